package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/torosent/burstprobe/internal/httpclient"
	"github.com/torosent/burstprobe/internal/metrics"
	"github.com/torosent/burstprobe/internal/runner"
	"github.com/torosent/burstprobe/internal/safety"
	"github.com/torosent/burstprobe/internal/threshold"
)

// Report is the final description of a run shared by every output format.
type Report struct {
	Request       httpclient.Template    `json:"request" yaml:"request"`
	Config        ReportConfig           `json:"config" yaml:"config"`
	Status        runner.Status          `json:"status" yaml:"status"`
	StartedAt     time.Time              `json:"started_at" yaml:"started_at"`
	DurationMs    float64                `json:"duration_ms" yaml:"duration_ms"`
	Summary       metrics.Summary        `json:"summary" yaml:"summary"`
	Percentiles   metrics.Percentiles    `json:"percentiles" yaml:"percentiles"`
	StatusBuckets []metrics.StatusBucket `json:"status_buckets,omitempty" yaml:"status_buckets,omitempty"`
	Failures      []metrics.FailureCount `json:"failures,omitempty" yaml:"failures,omitempty"`
	Warnings      []string               `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Thresholds    []threshold.Result     `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
	Entries       []metrics.Entry        `json:"entries" yaml:"entries"`
}

// ReportConfig is the execution configuration that actually ran.
type ReportConfig struct {
	Repetitions int     `json:"repetitions" yaml:"repetitions"`
	Concurrency int     `json:"concurrency" yaml:"concurrency"`
	DelayMs     float64 `json:"delay_ms" yaml:"delay_ms"`
}

// NewReport assembles a Report from a finished run. cfg should be the
// configuration after safety clamping.
func NewReport(tmpl httpclient.Template, cfg safety.ExecutionConfig, res runner.Result, thresholds []threshold.Result) Report {
	entries := res.State.Entries
	return Report{
		Request: tmpl,
		Config: ReportConfig{
			Repetitions: cfg.Repetitions,
			Concurrency: cfg.Concurrency,
			DelayMs:     float64(cfg.Delay) / float64(time.Millisecond),
		},
		Status:        res.State.Status,
		StartedAt:     res.State.StartedAt,
		DurationMs:    float64(res.Duration) / float64(time.Millisecond),
		Summary:       res.State.Summary,
		Percentiles:   metrics.Distribution(entries),
		StatusBuckets: metrics.StatusBuckets(entries),
		Failures:      metrics.SortedFailures(metrics.FailureBreakdown(entries)),
		Warnings:      res.Warnings,
		Thresholds:    thresholds,
		Entries:       entries,
	}
}

// Duration returns the run duration.
func (r Report) Duration() time.Duration {
	return time.Duration(r.DurationMs * float64(time.Millisecond))
}

// Write renders r in the named format: "text", "json" or "yaml". An empty
// format selects text.
func Write(w io.Writer, format string, r Report) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		PrintReport(w, r)
		return nil
	case "json":
		return PrintJSONReport(w, r)
	case "yaml":
		return PrintYAMLReport(w, r)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, r Report) {
	s := r.Summary
	fmt.Fprintln(w, "\n--- Burst Results ---")
	fmt.Fprintf(w, "Target:            %s %s\n", r.Request.NormalizedMethod(), r.Request.URL)
	fmt.Fprintf(w, "Status:            %s\n", r.Status)
	fmt.Fprintf(w, "Planned:           %d (concurrency %d, delay %.0fms)\n", r.Config.Repetitions, r.Config.Concurrency, r.Config.DelayMs)
	fmt.Fprintf(w, "Total Requests:    %d\n", s.TotalRequests)
	fmt.Fprintf(w, "Successful:        %d\n", s.SuccessCount)
	fmt.Fprintf(w, "Failed:            %d\n", s.FailureCount)
	fmt.Fprintf(w, "Duration:          %s\n", r.Duration().Round(time.Millisecond))
	fmt.Fprintln(w, "\nResponse Time:")
	fmt.Fprintf(w, "  Min:             %.2fms\n", s.MinTimeMs)
	fmt.Fprintf(w, "  Max:             %.2fms\n", s.MaxTimeMs)
	fmt.Fprintf(w, "  Avg:             %.2fms\n", s.AvgTimeMs)
	if r.Percentiles.Samples > 0 {
		fmt.Fprintf(w, "  P50:             %.2fms\n", r.Percentiles.P50Ms)
		fmt.Fprintf(w, "  P90:             %.2fms\n", r.Percentiles.P90Ms)
		fmt.Fprintf(w, "  P95:             %.2fms\n", r.Percentiles.P95Ms)
		fmt.Fprintf(w, "  P99:             %.2fms\n", r.Percentiles.P99Ms)
	}

	if len(r.StatusBuckets) > 0 {
		fmt.Fprintln(w, "\nStatus Codes:")
		for _, row := range r.StatusBuckets {
			fmt.Fprintf(w, "  %s: %d\n", row.Label, row.Count)
		}
	}

	if len(r.Failures) > 0 {
		fmt.Fprintln(w, "\nFailures:")
		for _, row := range r.Failures {
			fmt.Fprintf(w, "  %s: %d\n", row.Label, row.Count)
		}
	}

	if len(r.Entries) > 0 {
		fmt.Fprintln(w, "\nRequests:")
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"#", "Status", "TTFB", "Download", "Process", "Total"})
		for i, e := range r.Entries {
			timing := e.Response.Timing
			t.AppendRow(table.Row{
				i + 1,
				entryStatus(e.Response),
				formatMs(timing.TTFBMs),
				formatMs(timing.DownloadMs),
				formatMs(timing.ProcessingMs),
				formatMs(timing.TotalMs),
			})
		}
		t.Render()
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, warning := range r.Warnings {
			fmt.Fprintf(w, "  - %s\n", warning)
		}
	}

	if len(r.Thresholds) > 0 {
		passed := 0
		for _, t := range r.Thresholds {
			if t.Pass {
				passed++
			}
		}
		fmt.Fprintf(w, "\nThresholds (%d/%d passed):\n", passed, len(r.Thresholds))
		for _, t := range r.Thresholds {
			fmt.Fprintf(w, "  %s\n", t.Message)
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// PrintYAMLReport outputs a YAML-formatted report.
func PrintYAMLReport(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

func entryStatus(resp httpclient.Response) string {
	text := resp.StatusText
	if resp.TransportFailed() {
		if resp.FailureKind != httpclient.FailureNone {
			return httpclient.FailureLabel(resp.FailureKind)
		}
		return text
	}
	status := fmt.Sprintf("%d %s", resp.Status, text)
	if resp.FailureKind != httpclient.FailureNone {
		status += " (" + httpclient.FailureLabel(resp.FailureKind) + ")"
	}
	return strings.TrimSpace(status)
}

func formatMs(ms float64) string {
	return fmt.Sprintf("%.1fms", ms)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
