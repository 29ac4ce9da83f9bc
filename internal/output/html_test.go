package output_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/torosent/burstprobe/internal/httpclient"
	"github.com/torosent/burstprobe/internal/metrics"
	"github.com/torosent/burstprobe/internal/output"
	"github.com/torosent/burstprobe/internal/runner"
	"github.com/torosent/burstprobe/internal/safety"
)

func TestGenerateHTMLReport(t *testing.T) {
	var buf bytes.Buffer
	if err := output.GenerateHTMLReport(&buf, testReport(t)); err != nil {
		t.Fatalf("GenerateHTMLReport() error = %v", err)
	}
	html := buf.String()

	checks := []string{
		"<!DOCTYPE html>",
		"Burstprobe Report",
		"GET https://example.com/api",
		"Total Requests",
		"Response Time",
		"uPlot",
		"timing-chart",
		"Thresholds (1/2 Passed)",
		"req_failed:rate&lt;0.01",
		"badge-error",
		"500 Internal Server Error",
		"Connection refused",
		"concurrency reduced to 5",
		"<code>01A</code>",
		"50.0%",
	}
	for _, check := range checks {
		if !strings.Contains(html, check) {
			t.Errorf("HTML report missing expected content: %q", check)
		}
	}
}

func TestGenerateHTMLReport_NoEntries(t *testing.T) {
	r := output.NewReport(httpclient.Template{URL: "https://example.com"}, safety.ExecutionConfig{Repetitions: 3, Concurrency: 1}, runner.Result{}, nil)

	var buf bytes.Buffer
	if err := output.GenerateHTMLReport(&buf, r); err != nil {
		t.Fatalf("GenerateHTMLReport() error = %v", err)
	}
	html := buf.String()

	if strings.Contains(html, `id="timing-chart"`) {
		t.Error("timing chart should be omitted without entries")
	}
	if strings.Contains(html, "Thresholds (") {
		t.Error("threshold section should be omitted without thresholds")
	}
	if !strings.Contains(html, "of 3 planned") {
		t.Error("expected planned repetitions in summary card")
	}
}

func TestGenerateHTMLReport_EscapesHTMLInData(t *testing.T) {
	entries := []metrics.Entry{{
		Request: metrics.RequestSnapshot{ID: "01X"},
		Response: httpclient.Response{
			Status:      0,
			StatusText:  httpclient.StatusTextRequestFailed,
			Body:        "<script>alert('xss')</script>",
			FailureKind: httpclient.FailureTransport,
		},
	}}
	res := runner.Result{State: runner.RunState{Status: runner.StatusCompleted, Entries: entries, Summary: metrics.Summarize(entries)}}
	r := output.NewReport(httpclient.Template{URL: "https://example.com/<b>"}, safety.ExecutionConfig{Repetitions: 1, Concurrency: 1}, res, nil)

	var buf bytes.Buffer
	if err := output.GenerateHTMLReport(&buf, r); err != nil {
		t.Fatalf("GenerateHTMLReport() error = %v", err)
	}
	html := buf.String()

	if strings.Contains(html, "<script>alert('xss')</script>") {
		t.Error("HTML should escape response bodies")
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Error("expected escaped failure detail")
	}
	if strings.Contains(html, "https://example.com/<b>") {
		t.Error("HTML should escape the target URL")
	}
}
