package output

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/torosent/burstprobe/internal/runner"
)

// ProgressReporter displays a single, periodically refreshed progress line.
// Update may be used directly as a runner.Sink.
type ProgressReporter struct {
	ticker   *time.Ticker
	done     chan struct{}
	finished chan struct{}
	writer   io.Writer
	active   int32
	start    time.Time

	mu     sync.Mutex
	latest *runner.RunState
}

// NewProgressReporter creates a progress reporter that refreshes at the given interval.
func NewProgressReporter(interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &ProgressReporter{
		ticker:   time.NewTicker(interval),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		writer:   writer,
		start:    time.Now(),
	}
}

// Update records the latest run snapshot and redraws the line.
func (p *ProgressReporter) Update(state runner.RunState) {
	p.mu.Lock()
	p.latest = &state
	p.mu.Unlock()
	p.render()
}

// Start begins refreshing the line in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts refreshing and terminates the progress line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
		p.render()
		fmt.Fprintln(p.writer)
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			p.render()
		case <-p.done:
			return
		}
	}
}

func (p *ProgressReporter) render() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.writer, progressLine(p.latest, time.Since(p.start)))
}

func progressLine(state *runner.RunState, elapsed time.Duration) string {
	if state == nil {
		return fmt.Sprintf("\rWaiting for first response... (%s)", elapsed.Round(time.Second))
	}
	s := state.Summary
	line := fmt.Sprintf("\r[%d/%d] Successes: %d | Failures: %d | Avg: %.1fms | Elapsed: %s",
		s.TotalRequests, state.Planned, s.SuccessCount, s.FailureCount, s.AvgTimeMs, elapsed.Round(100*time.Millisecond))
	if n := len(state.Entries); n > 0 {
		last := state.Entries[n-1].Response
		line += fmt.Sprintf(" | Last: %s (%.1fms)", entryStatus(last), last.Timing.TotalMs)
	}
	if state.Status != runner.StatusRunning {
		line += " | " + string(state.Status)
	}
	return line
}
