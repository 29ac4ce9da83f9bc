// Package metrics summarizes the entries recorded during a run.
//
// [Summarize] is the authoritative aggregate: it is recomputed from the full
// entry list after every attempt and once more when the run ends, so the
// summary always describes exactly the entries it travels with.
//
//	summary := metrics.Summarize(entries)
//	fmt.Printf("%d/%d succeeded, avg %.1fms\n",
//		summary.SuccessCount, summary.TotalRequests, summary.AvgTimeMs)
//
// # Average time
//
// AvgTimeMs divides the total time of every timed entry by the number of
// successful entries. Timed failures (for example a 500 that still returned a
// body) therefore raise the average. Transport failures carry no timing and
// do not contribute.
//
// # Supplementary views
//
// [Distribution], [StatusBuckets] and [FailureBreakdown] are derived from the
// same entries for reports and the dashboard. They never feed back into the
// Summary.
package metrics
