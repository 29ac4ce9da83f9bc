package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/torosent/burstprobe/internal/config"
	"github.com/torosent/burstprobe/internal/dashboard"
	"github.com/torosent/burstprobe/internal/history"
	"github.com/torosent/burstprobe/internal/httpclient"
	"github.com/torosent/burstprobe/internal/metrics"
	"github.com/torosent/burstprobe/internal/output"
	"github.com/torosent/burstprobe/internal/runner"
	"github.com/torosent/burstprobe/internal/safety"
	"github.com/torosent/burstprobe/internal/threshold"
	"github.com/torosent/burstprobe/internal/tracing"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	body, err := httpclient.ResolveBody(cfg.Body, cfg.BodyFile)
	if err != nil {
		return err
	}
	tmpl := httpclient.Template{
		URL:     cfg.TargetURL,
		Method:  cfg.Method,
		Headers: cfg.Headers,
		Body:    body,
	}
	execCfg := safety.ExecutionConfig{
		Repetitions: cfg.Repetitions,
		Concurrency: cfg.Concurrency,
		Delay:       cfg.Delay,
	}

	parsedThresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	// Validate up front so nothing is drawn for a rejected run. The engine
	// validates again and reports the same warnings.
	decision, err := safety.Validate(tmpl, execCfg, cfg.Confirmed)
	if err != nil {
		return err
	}

	ctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(stderr, "Warning: tracing shutdown: %v\n", err)
		}
	}()

	client := httpclient.NewClient(httpclient.ClientOptions{
		Timeout:        cfg.Timeout,
		SameOriginOnly: cfg.SameOrigin,
	})
	var exec runner.Executor = httpclient.NewExecutor(client,
		httpclient.WithTracer(provider.Tracer(), provider.ShouldPropagate()))

	var logger *slog.Logger
	if cfg.LogErrors {
		logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
		exec = runner.WithLogging(exec, logger)
	}

	engine := runner.NewEngine(runner.Options{
		Executor:      exec,
		RatePerSecond: cfg.Rate,
	}, logger)
	engine.StopWhen(ctx)

	var sink runner.Sink
	stopDisplay := func() {}
	switch {
	case cfg.Dashboard:
		dash, err := dashboard.New(dashboard.RunConfig{
			TargetURL:   cfg.TargetURL,
			Method:      tmpl.NormalizedMethod(),
			Repetitions: decision.Config.Repetitions,
			Concurrency: decision.Config.Concurrency,
			Delay:       decision.Config.Delay,
			Rate:        float64(cfg.Rate),
			Timeout:     cfg.Timeout,
			ConfigFile:  cfg.ConfigFile,
		}, engine.Stop)
		if err != nil {
			return err
		}
		dash.Start()
		stopDisplay = dash.Stop
		sink = dash.Update
	case cfg.Output == config.OutputText:
		progress := output.NewProgressReporter(progressInterval, stdout)
		progress.Start()
		stopDisplay = progress.Stop
		sink = progress.Update
	}

	res, err := engine.Run(context.Background(), tmpl, execCfg, cfg.Confirmed, sink)
	stopDisplay()
	if err != nil {
		return err
	}

	return finish(*cfg, tmpl, decision.Config, res, parsedThresholds, stdout, stderr)
}

// finish writes every requested report and turns the outcome into the
// process result.
func finish(cfg config.Config, tmpl httpclient.Template, execCfg safety.ExecutionConfig, res runner.Result, parsed []threshold.Threshold, stdout, stderr io.Writer) error {
	entries := res.State.Entries
	results := threshold.NewEvaluator(parsed).Evaluate(threshold.Measurements{
		Summary:     res.State.Summary,
		Percentiles: metrics.Distribution(entries),
		Duration:    res.Duration,
	})

	report := output.NewReport(tmpl, execCfg, res, results)

	for _, w := range res.Warnings {
		fmt.Fprintf(stderr, "Warning: %s\n", w)
	}

	if err := output.Write(stdout, string(cfg.Output), report); err != nil {
		return err
	}

	if cfg.HTMLOutput != "" {
		if err := writeHTMLReport(cfg.HTMLOutput, report); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "HTML report written to %s\n", cfg.HTMLOutput)
	}

	if cfg.HistoryFile != "" {
		if err := recordHistory(cfg.HistoryFile, report, stderr); err != nil {
			return err
		}
	}

	if !threshold.AllPassed(results) {
		failed := 0
		for _, r := range results {
			if !r.Pass {
				failed++
			}
		}
		return fmt.Errorf("%d of %d thresholds failed", failed, len(results))
	}
	if res.State.Summary.FailureCount > 0 {
		return fmt.Errorf("%d of %d requests failed", res.State.Summary.FailureCount, res.State.Summary.TotalRequests)
	}
	return nil
}

func writeHTMLReport(path string, report output.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create HTML report: %w", err)
	}
	if err := output.GenerateHTMLReport(f, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func recordHistory(path string, report output.Report, stderr io.Writer) error {
	store := history.NewStore(path)
	rec := history.NewRecord(report, time.Now())

	prev, ok, err := store.Previous(rec.Target)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintln(stderr, history.Compare(prev, rec))
	}
	return store.Append(rec)
}
