package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/burstprobe/internal/metrics"
	"github.com/torosent/burstprobe/internal/runner"
)

const (
	historyLimit = 100
	recentLimit  = 10
)

// RunConfig holds run parameters for display.
type RunConfig struct {
	TargetURL   string        // Full target URL
	Method      string        // HTTP method
	Repetitions int           // Attempts after safety clamping
	Concurrency int           // Batch width after safety clamping
	Delay       time.Duration // Pause between batches
	Rate        float64       // Requests per second (0 = unlimited)
	Timeout     time.Duration // Request timeout
	ConfigFile  string        // Path to config file if used
}

// Dashboard renders a live terminal UI for a burst run. Update is a
// runner.Sink.
type Dashboard struct {
	ctx      context.Context
	cancel   context.CancelFunc
	stopFunc func()
	wg       sync.WaitGroup
	mu       sync.Mutex

	// Widgets
	grid           *ui.Grid
	progressGauge  *widgets.Gauge
	latencySparkle *widgets.SparklineGroup
	latencyPara    *widgets.Paragraph
	summaryPara    *widgets.Paragraph
	statusList     *widgets.List
	failureList    *widgets.List
	recentList     *widgets.List

	latest    runner.RunState
	hasState  bool
	startTime time.Time
	runConfig RunConfig
}

// New creates a new Dashboard. stopFunc is called when the user presses q
// or Ctrl-C.
func New(cfg RunConfig, stopFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		ctx:       ctx,
		cancel:    cancel,
		stopFunc:  stopFunc,
		startTime: time.Now(),
		runConfig: cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

// initWidgets initializes all dashboard widgets.
func (d *Dashboard) initWidgets() {
	d.progressGauge = widgets.NewGauge()
	d.progressGauge.Title = "Progress"
	d.progressGauge.Percent = 0
	d.progressGauge.BarColor = ui.ColorBlue
	d.progressGauge.BorderStyle.Fg = ui.ColorCyan
	d.progressGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	sparkline := widgets.NewSparkline()
	sparkline.Title = "Total time per request (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencySparkle.Title = "Response Time"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.Text = "Min: 0ms\nAvg: 0ms\nMax: 0ms\nP50: 0ms\nP95: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Run Summary"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.statusList = widgets.NewList()
	d.statusList.Title = "Status Codes"
	d.statusList.Rows = []string{"Awaiting data"}
	d.statusList.TextStyle = ui.NewStyle(ui.ColorCyan)
	d.statusList.BorderStyle.Fg = ui.ColorCyan

	d.failureList = widgets.NewList()
	d.failureList.Title = "Failures"
	d.failureList.Rows = []string{"No failures"}
	d.failureList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.failureList.BorderStyle.Fg = ui.ColorCyan

	d.recentList = widgets.NewList()
	d.recentList.Title = "Recent Requests"
	d.recentList.Rows = []string{"Awaiting data"}
	d.recentList.TextStyle = ui.NewStyle(ui.ColorWhite)
	d.recentList.BorderStyle.Fg = ui.ColorCyan
}

// setupGrid configures the layout grid.
func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.16,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.12,
			ui.NewCol(1.0, d.progressGauge),
		),
		ui.NewRow(0.28,
			ui.NewCol(0.65, d.latencySparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.44,
			ui.NewCol(0.5, d.recentList),
			ui.NewCol(0.25, d.statusList),
			ui.NewCol(0.25, d.failureList),
		),
	)
}

// Update records the latest run snapshot. It is safe to pass as a runner.Sink.
func (d *Dashboard) Update(state runner.RunState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.latest = state
	d.hasState = true
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and cleans up.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

// run is the main dashboard update loop.
func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.stopFunc != nil {
					d.stopFunc()
				}
				// Stop() cancels the context once the run has drained.
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

// update refreshes all widget data from the latest snapshot.
func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := time.Since(d.startTime)
	params := formatRunParams(d.runConfig)
	if !d.hasState {
		d.summaryPara.Text = fmt.Sprintf("Target: %s\n%s\nElapsed: %s | Waiting for first response...",
			d.runConfig.TargetURL, params, elapsed.Round(time.Second))
		return
	}

	state := d.latest
	s := state.Summary

	d.summaryPara.Text = fmt.Sprintf(
		"Target: %s\n%s\nElapsed: %s | Status: %s | Success Rate: %.1f%%",
		d.runConfig.TargetURL,
		params,
		elapsed.Round(time.Second),
		state.Status,
		s.SuccessRate()*100,
	)

	d.progressGauge.Percent = progressPercent(s.TotalRequests, state.Planned)
	d.progressGauge.Label = fmt.Sprintf("%d/%d requests | %d ok | %d failed",
		s.TotalRequests, state.Planned, s.SuccessCount, s.FailureCount)

	if series := latencySeries(state.Entries, historyLimit); len(series) > 0 {
		d.latencySparkle.Sparklines[0].Data = series
		d.latencySparkle.Title = fmt.Sprintf(
			"Response Time | Last: %.2fms | Min: %.2fms | Max: %.2fms",
			series[len(series)-1],
			s.MinTimeMs,
			s.MaxTimeMs,
		)
	}

	p := metrics.Distribution(state.Entries)
	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.2fms\nAvg:  %.2fms\nMax:  %.2fms\nP50:  %.2fms\nP90:  %.2fms\nP95:  %.2fms\nP99:  %.2fms",
		s.MinTimeMs,
		s.AvgTimeMs,
		s.MaxTimeMs,
		p.P50Ms,
		p.P90Ms,
		p.P95Ms,
		p.P99Ms,
	)

	d.statusList.Rows = formatStatusRows(metrics.StatusBuckets(state.Entries))
	d.failureList.Rows = formatFailureRows(metrics.SortedFailures(metrics.FailureBreakdown(state.Entries)))
	d.recentList.Rows = formatRecentRows(state.Entries, recentLimit)
}

// render draws all widgets to the screen.
func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func progressPercent(done, planned int) int {
	if planned <= 0 {
		return 0
	}
	pct := done * 100 / planned
	if pct > 100 {
		pct = 100
	}
	return pct
}

// latencySeries returns the TotalMs of the last limit entries.
func latencySeries(entries []metrics.Entry, limit int) []float64 {
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := make([]float64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Response.Timing.TotalMs)
	}
	return out
}

func formatStatusRows(buckets []metrics.StatusBucket) []string {
	if len(buckets) == 0 {
		return []string{"Awaiting data"}
	}
	rows := make([]string, 0, len(buckets))
	for _, b := range buckets {
		color := "green"
		if b.Code < 200 || b.Code >= 300 {
			color = "red"
		}
		rows = append(rows, fmt.Sprintf("[%s](fg:%s) %d", b.Label, color, b.Count))
	}
	return rows
}

func formatFailureRows(failures []metrics.FailureCount) []string {
	if len(failures) == 0 {
		return []string{"[No failures](fg:green)"}
	}
	maxRows := min(len(failures), 10)
	rows := make([]string, 0, maxRows)
	for _, f := range failures[:maxRows] {
		rows = append(rows, fmt.Sprintf("[%s](fg:red) %d", f.Label, f.Count))
	}
	return rows
}

// formatRecentRows lists the last limit entries, newest first.
func formatRecentRows(entries []metrics.Entry, limit int) []string {
	if len(entries) == 0 {
		return []string{"Awaiting data"}
	}
	rows := make([]string, 0, limit)
	for i := len(entries) - 1; i >= 0 && len(rows) < limit; i-- {
		resp := entries[i].Response
		status := resp.StatusText
		color := "red"
		if !resp.TransportFailed() {
			status = fmt.Sprintf("%d %s", resp.Status, resp.StatusText)
		}
		if resp.Succeeded() {
			color = "green"
		}
		rows = append(rows, fmt.Sprintf("#%-3d [%s](fg:%s) | %.1fms", i+1, strings.TrimSpace(status), color, resp.Timing.TotalMs))
	}
	return rows
}

// formatRunParams formats the run configuration parameters for display.
func formatRunParams(cfg RunConfig) string {
	var parts []string

	if cfg.Method != "" && !strings.EqualFold(cfg.Method, "GET") {
		parts = append(parts, fmt.Sprintf("Method: %s", strings.ToUpper(cfg.Method)))
	}

	if cfg.Repetitions > 0 {
		parts = append(parts, fmt.Sprintf("Repetitions: %d", cfg.Repetitions))
	}

	if cfg.Concurrency > 0 {
		parts = append(parts, fmt.Sprintf("Concurrency: %d", cfg.Concurrency))
	}

	if cfg.Delay > 0 {
		parts = append(parts, fmt.Sprintf("Delay: %s", cfg.Delay))
	}

	if cfg.Rate > 0 {
		parts = append(parts, fmt.Sprintf("Rate: %g/s", cfg.Rate))
	} else {
		parts = append(parts, "Rate: unlimited")
	}

	if cfg.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", cfg.Timeout))
	}

	if cfg.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", cfg.ConfigFile))
	}

	return strings.Join(parts, " | ")
}
