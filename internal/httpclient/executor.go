package httpclient

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/torosent/burstprobe/internal/tracing"
)

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Executor performs one timed exchange per call.
type Executor struct {
	client    Doer
	now       func() time.Time
	tracer    trace.Tracer
	propagate bool
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithTracer wraps every exchange in a client span. When propagate is true
// the W3C trace context is injected into outgoing headers.
func WithTracer(tracer trace.Tracer, propagate bool) ExecutorOption {
	return func(e *Executor) {
		if tracer != nil {
			e.tracer = tracer
		}
		e.propagate = propagate
	}
}

// WithClock overrides the wall clock used for cache-busting timestamps.
func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// NewExecutor returns an Executor sending requests through client. A nil
// client falls back to NewClient with default options.
func NewExecutor(client Doer, opts ...ExecutorOption) *Executor {
	if client == nil {
		client = NewClient(ClientOptions{Timeout: 30 * time.Second})
	}
	e := &Executor{
		client: client,
		now:    time.Now,
		tracer: noop.NewTracerProvider().Tracer("burstprobe"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute sends tmpl once and describes the outcome. It never fails: transport
// errors produce a Status 0 record and undecodable bodies keep the real
// status with the processing error as body.
func (e *Executor) Execute(ctx context.Context, tmpl Template) Response {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := tracing.StartRequestSpan(ctx, e.tracer, tmpl.NormalizedMethod(), tmpl.URL)

	t0 := time.Now()
	req, err := buildRequest(ctx, tmpl, e.now())
	if err != nil {
		resp := transportFailure(err)
		tracing.EndSpan(span, err)
		return resp
	}
	if e.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	httpResp, err := e.client.Do(req)
	ttfb := time.Since(t0)
	if err != nil {
		resp := transportFailure(err)
		tracing.EndSpan(span, err, attribute.String("burstprobe.failure_kind", string(resp.FailureKind)))
		return resp
	}
	defer httpResp.Body.Close()

	downloadStart := time.Now()
	body, err := readBody(httpResp)
	if err != nil {
		elapsed := time.Since(t0)
		resp := Response{
			Status:      httpResp.StatusCode,
			StatusText:  statusText(httpResp),
			Headers:     map[string]string{},
			Body:        err.Error(),
			Timing:      NewTiming(ttfb, elapsed-ttfb, 0),
			FailureKind: FailureBodyProcessing,
		}
		tracing.EndSpan(span, err, attribute.Int("http.response.status_code", httpResp.StatusCode))
		return resp
	}
	download := time.Since(downloadStart)

	processingStart := time.Now()
	headers := flattenHeaders(httpResp.Header)
	processing := time.Since(processingStart)

	tracing.EndSpan(span, nil, attribute.Int("http.response.status_code", httpResp.StatusCode))
	return Response{
		Status:     httpResp.StatusCode,
		StatusText: statusText(httpResp),
		Headers:    headers,
		Body:       body,
		Timing:     NewTiming(ttfb, download, processing),
	}
}

// transportFailure reports zero timing so failed exchanges stay out of the
// latency extremes.
func transportFailure(err error) Response {
	kind, message := diagnose(err)
	return Response{
		Status:      0,
		StatusText:  StatusTextRequestFailed,
		Headers:     map[string]string{},
		Body:        message,
		Timing:      Timing{},
		FailureKind: kind,
	}
}

// statusText returns the reason phrase, e.g. "OK" for "200 OK".
func statusText(resp *http.Response) string {
	prefix := strconv.Itoa(resp.StatusCode) + " "
	if text := strings.TrimPrefix(resp.Status, prefix); text != resp.Status && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key, values := range h {
		out[strings.ToLower(key)] = strings.Join(values, ", ")
	}
	return out
}
