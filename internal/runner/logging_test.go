package runner_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/torosent/burstprobe/internal/httpclient"
	"github.com/torosent/burstprobe/internal/runner"
)

func TestWithLoggingLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	failing := runner.ExecutorFunc(func(context.Context, httpclient.Template) httpclient.Response {
		return httpclient.Response{
			Status:      0,
			StatusText:  httpclient.StatusTextRequestFailed,
			Body:        "Request timed out: deadline",
			FailureKind: httpclient.FailureTimeout,
		}
	})

	resp := runner.WithLogging(failing, logger).Execute(context.Background(), tmpl)
	if resp.FailureKind != httpclient.FailureTimeout {
		t.Fatalf("response altered by middleware: %+v", resp)
	}
	out := buf.String()
	for _, want := range []string{"request failed", "failure=Timeout", "status=0", "Request timed out"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestWithLoggingSkipsSuccess(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ok := runner.ExecutorFunc(func(context.Context, httpclient.Template) httpclient.Response {
		return httpclient.Response{Status: http.StatusOK}
	})

	runner.WithLogging(ok, logger).Execute(context.Background(), tmpl)
	if buf.Len() != 0 {
		t.Fatalf("unexpected log output: %q", buf.String())
	}
}

func TestWithLoggingNilLogger(t *testing.T) {
	exec := &fakeExecutor{}
	if got := runner.WithLogging(exec, nil); got != runner.Executor(exec) {
		t.Fatal("nil logger should return the executor unchanged")
	}
}
