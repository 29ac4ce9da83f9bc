package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// OutputFormat selects how the final report is rendered.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

type Config struct {
	TargetURL   string            `mapstructure:"target"`
	Method      string            `mapstructure:"method"`
	Headers     map[string]string `mapstructure:"headers"`
	Body        string            `mapstructure:"body"`
	BodyFile    string            `mapstructure:"body_file"`
	Repetitions int               `mapstructure:"repetitions"`
	Concurrency int               `mapstructure:"concurrency"`
	Delay       time.Duration     `mapstructure:"delay"`
	Rate        int               `mapstructure:"rate"`
	Timeout     time.Duration     `mapstructure:"timeout"`
	Confirmed   bool              `mapstructure:"confirm"`
	SameOrigin  bool              `mapstructure:"same_origin"`
	Output      OutputFormat      `mapstructure:"output"`
	Dashboard   bool              `mapstructure:"dashboard"`
	LogErrors   bool              `mapstructure:"log_errors"`
	HTMLOutput  string            `mapstructure:"html_output"`
	HistoryFile string            `mapstructure:"history_file"`
	Thresholds  []string          `mapstructure:"thresholds"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
	ConfigFile  string            `mapstructure:"-"`
}

// TracingConfig configures OpenTelemetry export. Protocol is "grpc"
// (default) or "http"; a non-nil Propagate overrides ShouldPropagate.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   *bool   `mapstructure:"propagate"`
}

// Enabled reports whether an OTLP endpoint is configured, directly or via
// OTEL_EXPORTER_OTLP_ENDPOINT.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")) != ""
}

// ShouldPropagate reports whether W3C trace headers are injected.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Validate checks the settings that belong to the command line itself. Run
// limits and the ethical-usage confirmation are enforced by the safety
// package before a run starts.
func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.TargetURL) == "" {
		issues = append(issues, "target is required (use --help for usage information)")
	}
	if c.Repetitions < 0 {
		issues = append(issues, "repetitions must be >= 0")
	}
	if c.Concurrency < 0 {
		issues = append(issues, "concurrency must be >= 0")
	}
	if c.Delay < 0 {
		issues = append(issues, "delay must be >= 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if strings.TrimSpace(c.Body) != "" && strings.TrimSpace(c.BodyFile) != "" {
		issues = append(issues, "body and bodyFile are mutually exclusive")
	}

	switch c.Output {
	case "", OutputText, OutputJSON, OutputYAML:
	default:
		issues = append(issues, fmt.Sprintf("output format %q is not supported (use text, json or yaml)", c.Output))
	}
	if c.Dashboard && c.Output != "" && c.Output != OutputText {
		issues = append(issues, "dashboard and structured output are mutually exclusive")
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, "tracing sample_rate must be between 0.0 and 1.0")
	}
	if p := strings.ToLower(strings.TrimSpace(c.Tracing.Protocol)); p != "" && p != "grpc" && p != "http" {
		issues = append(issues, fmt.Sprintf("tracing protocol %q is not supported (use grpc or http)", c.Tracing.Protocol))
	}

	if c.Rate > 20 {
		fmt.Fprintf(os.Stderr, "WARNING: High request rate configured (%d RPS). Ensure you have authorization to test the target system.\n", c.Rate)
	}
	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}
