// Package runner drives a bounded burst of identical requests.
//
// A run sends a request template a fixed number of times in consecutive
// batches. Members of a batch are started with a small stagger, the batch is
// joined before the next one begins, and an optional delay separates batches:
//
//	sched := runner.NewScheduler(runner.Options{Executor: exec})
//	result := sched.Run(ctx, tmpl, safety.ExecutionConfig{
//		Repetitions: 10,
//		Concurrency: 2,
//		Delay:       100 * time.Millisecond,
//	}, sink, &runner.Stopper{})
//
// # Snapshots
//
// After every attempt the [Sink] receives a [RunState] holding all entries so
// far and their freshly recomputed summary. Entries appear in index order
// within each batch even when later requests answer first, and the sink is
// never called concurrently. One final snapshot with status completed or
// stopped is emitted when the run ends.
//
// # Stopping
//
// [Stopper] is a cooperative flag. It is checked before each batch and again
// just before each request is sent; requests already in flight always finish
// and are recorded. Cancelling the context passed to Run also ends the run
// but aborts requests in flight; [Engine.StopWhen] turns a context into a
// cooperative stop instead.
//
// # Engine
//
// [Engine] wraps the scheduler with the safety checks and exposes the run
// phase (idle, validating, running, completed, stopped) to other goroutines
// such as a dashboard or a signal handler.
//
// # Middleware
//
// [WithLogging] wraps an [Executor] to log failed attempts through slog.
package runner
