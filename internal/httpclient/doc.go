// Package httpclient performs single timed HTTP exchanges for burstprobe.
//
// The package turns a [Template] into one outgoing request and returns a
// [Response] record that always describes the outcome, including transport
// and body-processing failures:
//   - Cache busting: a timestamp query parameter plus no-cache headers
//   - Redirect following with a cookie jar scoped per origin
//   - Fine-grained timing (time to first byte, download, header processing)
//   - JSON body decoding when the response declares a JSON content type
//
// # Executing
//
// Create an [Executor] around an HTTP client and run a template:
//
//	client := httpclient.NewClient(httpclient.ClientOptions{Timeout: 30 * time.Second})
//	exec := httpclient.NewExecutor(client)
//	resp := exec.Execute(ctx, httpclient.Template{URL: "https://example.test/ok", Method: "GET"})
//	if resp.TransportFailed() {
//		fmt.Println(resp.StatusText, resp.Body)
//	}
//
// Execute never returns an error. A response with Status 0 means no HTTP
// exchange took place; its Body carries a human-readable diagnosis.
//
// # Timing
//
// [Timing] is built only through [NewTiming], so TotalMs is always the sum
// of the three phases.
//
// # Integration
//
// This package integrates with:
//   - [github.com/torosent/burstprobe/internal/tracing] for per-request spans
//   - [github.com/torosent/burstprobe/internal/runner] which schedules executions
package httpclient
