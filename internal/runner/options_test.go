package runner

import (
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestOptionsNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    Options
		validate func(*testing.T, Options)
	}{
		{
			name:  "defaults",
			input: Options{},
			validate: func(t *testing.T, o Options) {
				if o.Executor == nil {
					t.Error("Executor should not be nil")
				}
				if o.Stagger != DefaultStagger {
					t.Errorf("Stagger = %s, want %s", o.Stagger, DefaultStagger)
				}
				if o.PreDelay != DefaultPreDelay {
					t.Errorf("PreDelay = %s, want %s", o.PreDelay, DefaultPreDelay)
				}
				if o.LimiterFactory == nil || o.NewID == nil || o.Now == nil {
					t.Error("factories should be populated")
				}
			},
		},
		{
			name: "negative values disable or reset",
			input: Options{
				Stagger:       -1,
				PreDelay:      -time.Second,
				RatePerSecond: -5,
			},
			validate: func(t *testing.T, o Options) {
				if o.Stagger != 0 || o.PreDelay != 0 {
					t.Errorf("Stagger/PreDelay = %s/%s, want 0/0", o.Stagger, o.PreDelay)
				}
				if o.RatePerSecond != 0 {
					t.Errorf("RatePerSecond = %d, want 0", o.RatePerSecond)
				}
			},
		},
		{
			name:  "custom values kept",
			input: Options{Stagger: 2 * time.Millisecond, PreDelay: 3 * time.Millisecond, RatePerSecond: 7},
			validate: func(t *testing.T, o Options) {
				if o.Stagger != 2*time.Millisecond || o.PreDelay != 3*time.Millisecond || o.RatePerSecond != 7 {
					t.Errorf("custom values changed: %+v", o)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := tt.input
			o.normalize()
			tt.validate(t, o)
		})
	}
}

func TestDefaultLimiterFactory(t *testing.T) {
	var o Options
	o.normalize()

	if lim := o.LimiterFactory(0); lim.Limit() != rate.Inf {
		t.Errorf("Limit() = %v, want Inf", lim.Limit())
	}
	lim := o.LimiterFactory(20)
	if lim.Limit() != rate.Limit(20) || lim.Burst() != 1 {
		t.Errorf("limiter = %v/%d, want 20/1", lim.Limit(), lim.Burst())
	}
}

func TestULIDSourceIncreases(t *testing.T) {
	next := newULIDSource()
	at := time.Now()
	prev := ""
	for i := 0; i < 100; i++ {
		id := next(at)
		if len(id) != 26 {
			t.Fatalf("id %q has length %d, want 26", id, len(id))
		}
		if id <= prev {
			t.Fatalf("id %q not greater than %q", id, prev)
		}
		prev = id
	}
}
