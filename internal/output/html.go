package output

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/torosent/burstprobe/internal/metrics"
)

// HTMLReportData contains all data needed for the HTML report template.
type HTMLReportData struct {
	GeneratedAt      string
	Report           Report
	Rows             []EntryRow
	ThresholdSummary *ThresholdSummary
	TimingsJSON      string
}

// EntryRow is one line of the per-request table.
type EntryRow struct {
	Index  int
	ID     string
	Status string
	OK     bool
	Timing string
	Detail string
}

// ThresholdSummary counts passed and failed thresholds.
type ThresholdSummary struct {
	Total  int
	Passed int
	Failed int
}

type timingPoint struct {
	Index        int     `json:"i"`
	TTFBMs       float64 `json:"ttfb"`
	DownloadMs   float64 `json:"download"`
	ProcessingMs float64 `json:"processing"`
	TotalMs      float64 `json:"total"`
}

// GenerateHTMLReport generates a standalone HTML report with an embedded
// per-request timing chart.
func GenerateHTMLReport(w io.Writer, r Report) error {
	var summary *ThresholdSummary
	if len(r.Thresholds) > 0 {
		summary = &ThresholdSummary{Total: len(r.Thresholds)}
		for _, t := range r.Thresholds {
			if t.Pass {
				summary.Passed++
			} else {
				summary.Failed++
			}
		}
	}

	rows := make([]EntryRow, 0, len(r.Entries))
	points := make([]timingPoint, 0, len(r.Entries))
	for i, e := range r.Entries {
		rows = append(rows, entryRow(i+1, e))
		points = append(points, timingPoint{
			Index:        i + 1,
			TTFBMs:       e.Response.Timing.TTFBMs,
			DownloadMs:   e.Response.Timing.DownloadMs,
			ProcessingMs: e.Response.Timing.ProcessingMs,
			TotalMs:      e.Response.Timing.TotalMs,
		})
	}

	timingsJSON, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("failed to marshal timings: %w", err)
	}

	data := HTMLReportData{
		GeneratedAt:      time.Now().Format(time.RFC3339),
		Report:           r,
		Rows:             rows,
		ThresholdSummary: summary,
		TimingsJSON:      string(timingsJSON),
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatMs": func(f float64) string {
			return fmt.Sprintf("%.2fms", f)
		},
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"formatPercent": func(part, total int) string {
			if total == 0 {
				return "0.0"
			}
			return fmt.Sprintf("%.1f", (float64(part)/float64(total))*100)
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}

func entryRow(index int, e metrics.Entry) EntryRow {
	row := EntryRow{
		Index:  index,
		ID:     e.Request.ID,
		Status: entryStatus(e.Response),
		OK:     e.Response.Succeeded() && e.Response.FailureKind == "",
		Timing: fmt.Sprintf("%.1f / %.1f / %.1f / %.1f",
			e.Response.Timing.TTFBMs,
			e.Response.Timing.DownloadMs,
			e.Response.Timing.ProcessingMs,
			e.Response.Timing.TotalMs),
	}
	if !row.OK {
		if msg, ok := e.Response.Body.(string); ok {
			row.Detail = truncate(msg, 200)
		}
	}
	return row
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Burstprobe Report</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif;
            background: #f4f6f8;
            color: #1f2933;
            line-height: 1.6;
            padding: 20px;
        }
        .container {
            max-width: 1200px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0,0,0,0.08);
            overflow: hidden;
        }
        header { background: #0f766e; color: white; padding: 28px 36px; }
        header h1 { font-size: 1.8rem; margin-bottom: 6px; }
        header .meta { opacity: 0.9; font-size: 0.9rem; }
        .content { padding: 36px; }
        .grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(200px, 1fr));
            gap: 16px;
            margin-bottom: 36px;
        }
        .card { background: #f8fafc; border-radius: 8px; padding: 18px; border-left: 4px solid #0f766e; }
        .card h3 { font-size: 0.8rem; color: #52606d; text-transform: uppercase; letter-spacing: 0.5px; }
        .card .value { font-size: 1.8rem; font-weight: bold; }
        .card .subvalue { font-size: 0.85rem; color: #52606d; }
        .card.success { border-left-color: #10b981; }
        .card.error { border-left-color: #ef4444; }
        .section { margin-bottom: 36px; }
        .section h2 { font-size: 1.3rem; margin-bottom: 16px; padding-bottom: 8px; border-bottom: 2px solid #e4e7eb; }
        .chart { width: 100%; height: 300px; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 10px; border-bottom: 1px solid #e4e7eb; font-size: 0.9rem; }
        th { background: #f8fafc; color: #52606d; text-transform: uppercase; font-size: 0.8rem; }
        .badge { display: inline-block; padding: 2px 10px; border-radius: 10px; font-size: 0.8rem; font-weight: 600; }
        .badge-success { background: #d1fae5; color: #065f46; }
        .badge-error { background: #fee2e2; color: #991b1b; }
        .detail { color: #7b8794; font-size: 0.8rem; white-space: pre-wrap; }
        .latency-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(120px, 1fr)); gap: 12px; }
        .latency-item { background: #f8fafc; padding: 12px; border-radius: 6px; text-align: center; }
        .latency-item .label { font-size: 0.8rem; color: #52606d; }
        .latency-item .value { font-size: 1.2rem; font-weight: bold; }
    </style>
    <script src="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.iife.min.js"></script>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.min.css">
</head>
<body>
    <div class="container">
        <header>
            <h1>Burstprobe Report</h1>
            <div class="meta">{{.Report.Request.NormalizedMethod}} {{.Report.Request.URL}}</div>
            <div class="meta">Generated: {{.GeneratedAt}} | Status: {{.Report.Status}} | Duration: {{formatMs .Report.DurationMs}}</div>
        </header>
        <div class="content">
            <div class="grid">
                <div class="card">
                    <h3>Total Requests</h3>
                    <div class="value">{{.Report.Summary.TotalRequests}}</div>
                    <div class="subvalue">of {{.Report.Config.Repetitions}} planned</div>
                </div>
                <div class="card success">
                    <h3>Successful</h3>
                    <div class="value">{{.Report.Summary.SuccessCount}}</div>
                    <div class="subvalue">{{formatPercent .Report.Summary.SuccessCount .Report.Summary.TotalRequests}}%</div>
                </div>
                <div class="card error">
                    <h3>Failed</h3>
                    <div class="value">{{.Report.Summary.FailureCount}}</div>
                    <div class="subvalue">{{formatPercent .Report.Summary.FailureCount .Report.Summary.TotalRequests}}%</div>
                </div>
                <div class="card">
                    <h3>Avg Time</h3>
                    <div class="value">{{formatMs .Report.Summary.AvgTimeMs}}</div>
                    <div class="subvalue">concurrency {{.Report.Config.Concurrency}}, delay {{formatMs .Report.Config.DelayMs}}</div>
                </div>
            </div>

            <div class="section">
                <h2>Response Time</h2>
                <div class="latency-grid">
                    <div class="latency-item"><div class="label">Min</div><div class="value">{{formatMs .Report.Summary.MinTimeMs}}</div></div>
                    <div class="latency-item"><div class="label">Avg</div><div class="value">{{formatMs .Report.Summary.AvgTimeMs}}</div></div>
                    <div class="latency-item"><div class="label">Max</div><div class="value">{{formatMs .Report.Summary.MaxTimeMs}}</div></div>
                    <div class="latency-item"><div class="label">P50</div><div class="value">{{formatMs .Report.Percentiles.P50Ms}}</div></div>
                    <div class="latency-item"><div class="label">P90</div><div class="value">{{formatMs .Report.Percentiles.P90Ms}}</div></div>
                    <div class="latency-item"><div class="label">P95</div><div class="value">{{formatMs .Report.Percentiles.P95Ms}}</div></div>
                    <div class="latency-item"><div class="label">P99</div><div class="value">{{formatMs .Report.Percentiles.P99Ms}}</div></div>
                </div>
            </div>

            {{if .Rows}}
            <div class="section">
                <h2>Timing per Request (ms)</h2>
                <div id="timing-chart" class="chart"></div>
            </div>
            {{end}}

            {{if .ThresholdSummary}}
            <div class="section">
                <h2>Thresholds ({{.ThresholdSummary.Passed}}/{{.ThresholdSummary.Total}} Passed)</h2>
                <table>
                    <thead><tr><th>Threshold</th><th>Actual</th><th>Result</th></tr></thead>
                    <tbody>
                        {{range .Report.Thresholds}}
                        <tr>
                            <td>{{.Expr}}</td>
                            <td>{{formatFloat .Actual}}</td>
                            <td>{{if .Pass}}<span class="badge badge-success">PASS</span>{{else}}<span class="badge badge-error">FAIL</span>{{end}}</td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            {{if .Report.StatusBuckets}}
            <div class="section">
                <h2>Status Codes</h2>
                <table>
                    <thead><tr><th>Status</th><th>Count</th></tr></thead>
                    <tbody>
                        {{range .Report.StatusBuckets}}
                        <tr><td>{{.Label}}</td><td>{{.Count}}</td></tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            {{if .Report.Failures}}
            <div class="section">
                <h2>Failures</h2>
                <table>
                    <thead><tr><th>Kind</th><th>Count</th></tr></thead>
                    <tbody>
                        {{range .Report.Failures}}
                        <tr><td>{{.Label}}</td><td>{{.Count}}</td></tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            {{if .Report.Warnings}}
            <div class="section">
                <h2>Warnings</h2>
                <ul>
                    {{range .Report.Warnings}}<li>{{.}}</li>{{end}}
                </ul>
            </div>
            {{end}}

            {{if .Rows}}
            <div class="section">
                <h2>Requests</h2>
                <table>
                    <thead><tr><th>#</th><th>Status</th><th>TTFB / Download / Process / Total (ms)</th><th>ID</th></tr></thead>
                    <tbody>
                        {{range .Rows}}
                        <tr>
                            <td>{{.Index}}</td>
                            <td>
                                {{if .OK}}<span class="badge badge-success">{{.Status}}</span>{{else}}<span class="badge badge-error">{{.Status}}</span>{{end}}
                                {{if .Detail}}<div class="detail">{{.Detail}}</div>{{end}}
                            </td>
                            <td>{{.Timing}}</td>
                            <td><code>{{.ID}}</code></td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}
        </div>
    </div>

    {{if .Rows}}
    <script>
        const timings = JSON.parse({{.TimingsJSON}});
        if (timings && timings.length > 0) {
            const data = [
                timings.map(d => d.i),
                timings.map(d => d.ttfb),
                timings.map(d => d.download),
                timings.map(d => d.total)
            ];
            new uPlot({
                width: document.getElementById('timing-chart').offsetWidth,
                height: 300,
                scales: { x: { time: false } },
                series: [
                    { label: "Request #" },
                    { label: "TTFB", stroke: "#0f766e", width: 2 },
                    { label: "Download", stroke: "#f59e0b", width: 2 },
                    { label: "Total", stroke: "#ef4444", width: 2 }
                ],
                axes: [
                    { label: "Request #" },
                    { label: "ms" }
                ]
            }, data, document.getElementById('timing-chart'));
        }
    </script>
    {{end}}
</body>
</html>
`
