package runner_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/torosent/burstprobe/internal/httpclient"
	"github.com/torosent/burstprobe/internal/runner"
	"github.com/torosent/burstprobe/internal/safety"
)

func TestEngineRejectsInvalidRun(t *testing.T) {
	exec := &fakeExecutor{}
	engine := runner.NewEngine(fastOptions(exec), nil)

	_, err := engine.Run(context.Background(), httpclient.Template{URL: " "}, safety.ExecutionConfig{Repetitions: 1}, false, nil)
	var verr safety.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Run() error = %v, want ValidationError", err)
	}
	if len(verr.Issues()) != 2 {
		t.Fatalf("Issues() = %v, want URL and confirmation", verr.Issues())
	}
	if engine.Phase() != runner.PhaseIdle {
		t.Fatalf("Phase() = %s, want idle", engine.Phase())
	}
	if exec.calls.Load() != 0 {
		t.Fatalf("executor called %d times for a rejected run", exec.calls.Load())
	}
}

func TestEngineCompletesWithWarnings(t *testing.T) {
	exec := &fakeExecutor{}
	engine := runner.NewEngine(fastOptions(exec), nil)

	var phases []runner.Phase
	sink := func(runner.RunState) { phases = append(phases, engine.Phase()) }

	res, err := engine.Run(context.Background(), tmpl, safety.ExecutionConfig{Repetitions: 4, Concurrency: 9}, true, sink)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("Warnings = %v, want concurrency clamp", res.Warnings)
	}
	if len(res.State.Entries) != 4 {
		t.Fatalf("entries = %d, want 4", len(res.State.Entries))
	}
	if engine.Phase() != runner.PhaseCompleted {
		t.Fatalf("Phase() = %s, want completed", engine.Phase())
	}
	for i, p := range phases {
		if p != runner.PhaseRunning {
			t.Fatalf("phase during snapshot %d = %s, want running", i, p)
		}
	}
}

func TestEngineClampsRepetitions(t *testing.T) {
	exec := &fakeExecutor{}
	engine := runner.NewEngine(fastOptions(exec), nil)

	res, err := engine.Run(context.Background(), tmpl, safety.ExecutionConfig{Repetitions: 80, Concurrency: 5, Delay: -1}, true, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := len(res.State.Entries); got != safety.MaxRepetitions {
		t.Fatalf("entries = %d, want %d", got, safety.MaxRepetitions)
	}
	if res.State.Planned != safety.MaxRepetitions {
		t.Fatalf("Planned = %d, want %d", res.State.Planned, safety.MaxRepetitions)
	}
}

func TestEngineStop(t *testing.T) {
	exec := &fakeExecutor{}
	engine := runner.NewEngine(fastOptions(exec), nil)

	sink := func(st runner.RunState) {
		if len(st.Entries) == 1 {
			engine.Stop()
		}
	}
	res, err := engine.Run(context.Background(), tmpl, safety.ExecutionConfig{Repetitions: 5, Concurrency: 1}, true, sink)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Stopped || len(res.State.Entries) != 1 {
		t.Fatalf("expected stop after one entry, got %d (%s)", len(res.State.Entries), res.State.Status)
	}
	if engine.Phase() != runner.PhaseStopped {
		t.Fatalf("Phase() = %s, want stopped", engine.Phase())
	}

	// Stop on an idle engine is a no-op and the engine can run again.
	engine.Stop()
	res, err = engine.Run(context.Background(), tmpl, safety.ExecutionConfig{Repetitions: 2, Concurrency: 1}, true, nil)
	if err != nil || res.Stopped {
		t.Fatalf("second run: err = %v, stopped = %v", err, res.Stopped)
	}
}

func TestEngineStopWhen(t *testing.T) {
	exec := &fakeExecutor{}
	engine := runner.NewEngine(fastOptions(exec), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine.StopWhen(ctx)

	sink := func(st runner.RunState) {
		if len(st.Entries) == 1 {
			cancel()
			// The watcher sets the flag asynchronously; the next batch waits on the sink.
			time.Sleep(20 * time.Millisecond)
		}
	}
	res, err := engine.Run(context.Background(), tmpl, safety.ExecutionConfig{Repetitions: 5, Concurrency: 1}, true, sink)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Stopped || len(res.State.Entries) != 1 {
		t.Fatalf("expected stop after one entry, got %d (%s)", len(res.State.Entries), res.State.Status)
	}
	for _, e := range res.State.Entries {
		if e.Response.FailureKind == httpclient.FailureCanceled {
			t.Fatal("in-flight request should not be canceled by a cooperative stop")
		}
	}
}

func TestEngineRejectsConcurrentRun(t *testing.T) {
	engine := runner.NewEngine(fastOptions(&fakeExecutor{}), nil)

	var nestedErr error
	sink := func(st runner.RunState) {
		if len(st.Entries) == 1 && st.Status == runner.StatusRunning {
			_, nestedErr = engine.Run(context.Background(), tmpl, safety.ExecutionConfig{Repetitions: 1}, true, nil)
		}
	}
	if _, err := engine.Run(context.Background(), tmpl, safety.ExecutionConfig{Repetitions: 2, Concurrency: 1}, true, sink); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !errors.Is(nestedErr, runner.ErrRunInProgress) {
		t.Fatalf("nested Run() error = %v, want ErrRunInProgress", nestedErr)
	}
}

func TestPhaseString(t *testing.T) {
	tests := map[runner.Phase]string{
		runner.PhaseIdle:       "idle",
		runner.PhaseValidating: "validating",
		runner.PhaseRunning:    "running",
		runner.PhaseCompleted:  "completed",
		runner.PhaseStopped:    "stopped",
		runner.Phase(42):       "unknown",
	}
	for p, want := range tests {
		if got := p.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", int(p), got, want)
		}
	}
}
