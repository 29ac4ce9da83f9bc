package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/torosent/burstprobe/internal/httpclient"
	"github.com/torosent/burstprobe/internal/safety"
)

// Phase is the lifecycle position of an Engine.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseRunning
	PhaseCompleted
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidating:
		return "validating"
	case PhaseRunning:
		return "running"
	case PhaseCompleted:
		return "completed"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ErrRunInProgress is returned when Run is called while another run is
// validating or running.
var ErrRunInProgress = errors.New("a run is already in progress")

// Engine validates a request and drives it through a Scheduler, tracking
// the run phase.
type Engine struct {
	scheduler *Scheduler
	logger    *slog.Logger
	phase     atomic.Int32

	mu       sync.Mutex
	stop     *Stopper
	stopWhen context.Context
}

// NewEngine returns an idle Engine. A nil logger discards output.
func NewEngine(opt Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{scheduler: NewScheduler(opt), logger: logger}
}

// Phase returns the current phase. Safe for concurrent use.
func (e *Engine) Phase() Phase {
	return Phase(e.phase.Load())
}

// Stop requests a cooperative stop of the current run. It has no effect
// when no run is active.
func (e *Engine) Stop() {
	e.mu.Lock()
	stop := e.stop
	e.mu.Unlock()
	stop.RequestStop()
}

// StopWhen makes every later run stop cooperatively once ctx is done.
// Requests already in flight are not interrupted.
func (e *Engine) StopWhen(ctx context.Context) {
	e.mu.Lock()
	e.stopWhen = ctx
	e.mu.Unlock()
}

// Run validates tmpl and cfg and, when accepted, executes the run. A
// rejected run returns the safety.ValidationError and leaves the engine
// idle. Warnings produced by clamping are returned in Result.Warnings.
func (e *Engine) Run(ctx context.Context, tmpl httpclient.Template, cfg safety.ExecutionConfig, confirmed bool, sink Sink) (Result, error) {
	if !e.begin() {
		return Result{}, ErrRunInProgress
	}

	stop := &Stopper{}
	e.mu.Lock()
	e.stop = stop
	stopWhen := e.stopWhen
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.stop = nil
		e.mu.Unlock()
	}()
	if stopWhen != nil {
		release := stop.StopOnDone(stopWhen)
		defer release()
	}

	decision, err := safety.Validate(tmpl, cfg, confirmed)
	if err != nil {
		e.phase.Store(int32(PhaseIdle))
		e.logger.Warn("run rejected", slog.String("error", err.Error()))
		return Result{}, err
	}
	for _, w := range decision.Warnings {
		e.logger.Warn("run adjusted", slog.String("warning", w))
	}

	e.phase.Store(int32(PhaseRunning))
	e.logger.Info("run started",
		slog.String("url", tmpl.URL),
		slog.String("method", tmpl.NormalizedMethod()),
		slog.Int("repetitions", decision.Config.Repetitions),
		slog.Int("concurrency", decision.Config.Concurrency),
		slog.Duration("delay", decision.Config.Delay),
	)

	result := e.scheduler.Run(ctx, tmpl, decision.Config, sink, stop)
	result.Warnings = decision.Warnings

	if result.Stopped {
		e.phase.Store(int32(PhaseStopped))
	} else {
		e.phase.Store(int32(PhaseCompleted))
	}
	e.logger.Info("run finished",
		slog.String("status", string(result.State.Status)),
		slog.Int("entries", len(result.State.Entries)),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

// begin moves the engine into the validating phase unless a run is active.
func (e *Engine) begin() bool {
	for {
		cur := Phase(e.phase.Load())
		if cur == PhaseValidating || cur == PhaseRunning {
			return false
		}
		if e.phase.CompareAndSwap(int32(cur), int32(PhaseValidating)) {
			return true
		}
	}
}
