package runner

import (
	"context"
	"log/slog"

	"github.com/torosent/burstprobe/internal/httpclient"
)

const maxLoggedBody = 256

type loggingExecutor struct {
	inner  Executor
	logger *slog.Logger
}

// WithLogging wraps an Executor to log failed attempts.
func WithLogging(exec Executor, logger *slog.Logger) Executor {
	if logger == nil {
		return exec
	}
	return &loggingExecutor{inner: exec, logger: logger}
}

func (l *loggingExecutor) Execute(ctx context.Context, tmpl httpclient.Template) httpclient.Response {
	resp := l.inner.Execute(ctx, tmpl)
	if resp.Succeeded() && resp.FailureKind == httpclient.FailureNone {
		return resp
	}
	attrs := []any{
		slog.String("method", tmpl.NormalizedMethod()),
		slog.String("url", tmpl.URL),
		slog.Int("status", resp.Status),
		slog.Float64("total_ms", resp.Timing.TotalMs),
	}
	if resp.FailureKind != httpclient.FailureNone {
		attrs = append(attrs, slog.String("failure", httpclient.FailureLabel(resp.FailureKind)))
	}
	if msg, ok := resp.Body.(string); ok && msg != "" {
		if len(msg) > maxLoggedBody {
			msg = msg[:maxLoggedBody] + "..."
		}
		attrs = append(attrs, slog.String("detail", msg))
	}
	l.logger.WarnContext(ctx, "request failed", attrs...)
	return resp
}
