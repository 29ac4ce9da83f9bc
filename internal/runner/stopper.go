package runner

import (
	"context"
	"sync"
	"sync/atomic"
)

// Stopper is a cooperative stop flag shared between a run and whoever may
// want to end it early. Setting it never interrupts a request in flight.
// The zero value is ready to use and a nil *Stopper never reports a stop.
type Stopper struct {
	flag atomic.Bool
}

// RequestStop asks the run to end at its next checkpoint.
func (s *Stopper) RequestStop() {
	if s == nil {
		return
	}
	s.flag.Store(true)
}

// StopRequested reports whether RequestStop has been called.
func (s *Stopper) StopRequested() bool {
	if s == nil {
		return false
	}
	return s.flag.Load()
}

// StopOnDone requests a stop once ctx is done. The returned function
// releases the watcher and returns after it has exited; no stop is
// requested once release has returned.
func (s *Stopper) StopOnDone(ctx context.Context) (release func()) {
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			select {
			case <-done:
				return
			default:
			}
			s.RequestStop()
		case <-done:
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-exited
	}
}
