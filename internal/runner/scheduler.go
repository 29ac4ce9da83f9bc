package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/burstprobe/internal/httpclient"
	"github.com/torosent/burstprobe/internal/metrics"
	"github.com/torosent/burstprobe/internal/safety"
)

// Scheduler sends a template repeatedly in bounded batches.
type Scheduler struct {
	opt Options
}

// NewScheduler returns a Scheduler with normalized options.
func NewScheduler(opt Options) *Scheduler {
	opt.normalize()
	return &Scheduler{opt: opt}
}

// Run executes cfg.Repetitions attempts of tmpl, cfg.Concurrency at a time,
// and reports every new entry to sink. cfg is expected to have passed
// safety.Validate already. Run returns once the last batch has been joined
// or a stop has been observed.
func (s *Scheduler) Run(ctx context.Context, tmpl httpclient.Template, cfg safety.ExecutionConfig, sink Sink, stop *Stopper) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	reps := cfg.Repetitions
	if reps < 0 {
		reps = 0
	}
	width := cfg.Concurrency
	if width > reps {
		width = reps
	}
	if width < 1 {
		width = 1
	}

	var limiter *rate.Limiter
	if s.opt.RatePerSecond > 0 {
		limiter = s.opt.LimiterFactory(s.opt.RatePerSecond)
	}

	rec := &recorder{
		sink:    sink,
		newID:   s.opt.NewID,
		tmpl:    tmpl,
		planned: reps,
		started: s.opt.Now(),
		entries: make([]metrics.Entry, 0, reps),
	}

	halted := func() bool {
		return stop.StopRequested() || ctx.Err() != nil
	}

	var attempted atomic.Int64
	for first := 0; first < reps; first += width {
		if halted() {
			break
		}
		size := width
		if first+size > reps {
			size = reps - first
		}

		b := rec.newBatch(size)
		var (
			wg     sync.WaitGroup
			exited atomic.Bool
		)
		for i := 0; i < size; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if !sleep(ctx, time.Duration(i)*s.opt.Stagger+s.opt.PreDelay) {
					exited.Store(true)
					b.skip(i)
					return
				}
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						exited.Store(true)
						b.skip(i)
						return
					}
				}
				if halted() {
					exited.Store(true)
					b.skip(i)
					return
				}
				issued := s.opt.Now()
				resp := s.opt.Executor.Execute(ctx, tmpl)
				attempted.Add(1)
				b.complete(i, issued, resp)
			}(i)
		}
		wg.Wait()

		if exited.Load() {
			break
		}
		if first+size < reps && cfg.Delay > 0 && !halted() {
			sleep(ctx, cfg.Delay)
		}
	}

	final := rec.finish()
	return Result{
		State:     final,
		Stopped:   final.Status == StatusStopped,
		Attempted: int(attempted.Load()),
		Duration:  time.Since(start),
	}
}

// sleep waits for d or until ctx is done. It reports whether the full wait
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// recorder owns the entry list of a run and serializes snapshot delivery.
type recorder struct {
	mu      sync.Mutex
	sink    Sink
	newID   func(time.Time) string
	tmpl    httpclient.Template
	planned int
	started time.Time
	entries []metrics.Entry
}

func (r *recorder) newBatch(size int) *batch {
	return &batch{rec: r, slots: make([]slot, size)}
}

// append records an entry and emits a running snapshot. Callers hold r.mu.
func (r *recorder) append(issued time.Time, resp httpclient.Response) {
	r.entries = append(r.entries, metrics.Entry{
		Request: metrics.RequestSnapshot{
			ID:        r.newID(issued),
			Timestamp: issued,
			URL:       r.tmpl.URL,
			Method:    r.tmpl.NormalizedMethod(),
			Headers:   r.tmpl.CloneHeaders(),
			Body:      r.tmpl.Body,
		},
		Response: resp,
	})
	r.emit(StatusRunning)
}

// snapshot builds a RunState that shares nothing with the recorder. Callers
// hold r.mu.
func (r *recorder) snapshot(status Status) RunState {
	return RunState{
		Mode:      ModeRepeated,
		Status:    status,
		StartedAt: r.started,
		Planned:   r.planned,
		Summary:   metrics.Summarize(r.entries),
		Entries:   metrics.CloneEntries(r.entries),
	}
}

// emit hands a snapshot to the sink. Callers hold r.mu.
func (r *recorder) emit(status Status) {
	if r.sink != nil {
		r.sink(r.snapshot(status))
	}
}

// finish emits the final snapshot and returns a separate copy of it.
func (r *recorder) finish() RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := StatusCompleted
	if len(r.entries) < r.planned {
		status = StatusStopped
	}
	r.emit(status)
	return r.snapshot(status)
}

type slot struct {
	settled bool
	skipped bool
	issued  time.Time
	resp    httpclient.Response
}

// batch releases finished slots to the recorder in index order.
type batch struct {
	rec   *recorder
	slots []slot
	next  int
}

func (b *batch) complete(i int, issued time.Time, resp httpclient.Response) {
	b.settle(i, slot{settled: true, issued: issued, resp: resp})
}

func (b *batch) skip(i int) {
	b.settle(i, slot{settled: true, skipped: true})
}

// settle stores slot i and flushes the longest settled prefix.
func (b *batch) settle(i int, s slot) {
	b.rec.mu.Lock()
	defer b.rec.mu.Unlock()
	b.slots[i] = s
	for b.next < len(b.slots) && b.slots[b.next].settled {
		cur := b.slots[b.next]
		b.next++
		if !cur.skipped {
			b.rec.append(cur.issued, cur.resp)
		}
	}
}
