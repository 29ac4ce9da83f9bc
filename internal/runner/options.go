package runner

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/torosent/burstprobe/internal/httpclient"
)

const (
	// DefaultStagger separates the start of consecutive requests in a batch.
	DefaultStagger = 5 * time.Millisecond
	// DefaultPreDelay is applied before every request.
	DefaultPreDelay = 1 * time.Millisecond
)

// Executor performs one attempt. Implementations must not fail: every
// outcome, including transport errors, is described by the Response.
type Executor interface {
	Execute(ctx context.Context, tmpl httpclient.Template) httpclient.Response
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, tmpl httpclient.Template) httpclient.Response

func (f ExecutorFunc) Execute(ctx context.Context, tmpl httpclient.Template) httpclient.Response {
	return f(ctx, tmpl)
}

// Options configure the Scheduler.
type Options struct {
	Executor       Executor                    // request executor (required)
	Stagger        time.Duration               // per-index start offset within a batch; 0 means default, negative disables
	PreDelay       time.Duration               // wait before each request; 0 means default, negative disables
	RatePerSecond  int                         // cap on request starts per second (0 means unlimited)
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
	NewID          func(at time.Time) string   // entry id generator; defaults to monotonic ULIDs
	Now            func() time.Time            // clock for entry timestamps
}

func (o *Options) normalize() {
	if o.Executor == nil {
		o.Executor = httpclient.NewExecutor(nil)
	}
	switch {
	case o.Stagger == 0:
		o.Stagger = DefaultStagger
	case o.Stagger < 0:
		o.Stagger = 0
	}
	switch {
	case o.PreDelay == 0:
		o.PreDelay = DefaultPreDelay
	case o.PreDelay < 0:
		o.PreDelay = 0
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst of one keeps starts evenly spaced inside a batch.
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
	if o.NewID == nil {
		o.NewID = newULIDSource()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// newULIDSource returns a generator of lexically increasing ULIDs.
func newULIDSource() func(time.Time) string {
	var mu sync.Mutex
	entropy := ulid.Monotonic(rand.Reader, 0)
	return func(at time.Time) string {
		mu.Lock()
		defer mu.Unlock()
		id, err := ulid.New(ulid.Timestamp(at), entropy)
		if err != nil {
			return ulid.Make().String()
		}
		return id.String()
	}
}
