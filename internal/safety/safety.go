// Package safety enforces the limits a burst must respect before it may run:
// an explicit authorization confirmation, a well-formed request, and caps on
// how many requests are sent and how fast.
package safety

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/torosent/burstprobe/internal/httpclient"
)

const (
	// MaxRepetitions is the largest number of requests a run may send.
	MaxRepetitions = 50
	// MaxConcurrency is the largest batch size.
	MaxConcurrency = 5
	// MinBatchDelay is the smallest pause between batches for runs larger
	// than DelayThreshold.
	MinBatchDelay = 100 * time.Millisecond
	// DelayThreshold is the repetition count above which MinBatchDelay applies.
	DelayThreshold = 10
)

// ExecutionConfig controls how many requests a run sends and how they are
// grouped.
type ExecutionConfig struct {
	Repetitions int           `json:"repetitions" yaml:"repetitions"`
	Delay       time.Duration `json:"delay" yaml:"delay"`
	Concurrency int           `json:"concurrency" yaml:"concurrency"`
}

// Decision is an accepted configuration, possibly clamped, with one warning
// per adjustment.
type Decision struct {
	Config   ExecutionConfig
	Warnings []string
}

// ValidationError lists every reason a run was refused.
type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "safety check failed"
	}
	return fmt.Sprintf("safety check failed: %s", strings.Join(e.issues, "; "))
}

// Issues returns a copy of the individual problems.
func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Validate checks tmpl and cfg and returns the configuration that will
// actually run. Rejections are collected into a single ValidationError;
// limits that are merely exceeded are clamped with a warning instead.
// Validating an already-clamped configuration returns it unchanged.
func Validate(tmpl httpclient.Template, cfg ExecutionConfig, confirmed bool) (Decision, error) {
	var issues []string

	if strings.TrimSpace(tmpl.URL) == "" {
		issues = append(issues, "URL is required")
	}
	if tmpl.HasBody() && !gjson.Valid(tmpl.Body) {
		issues = append(issues, "request body must be valid JSON")
	}
	if !confirmed {
		issues = append(issues, "confirmation that you are authorized to test this endpoint is required")
	}
	if cfg.Repetitions < 1 {
		issues = append(issues, "repetitions must be at least 1")
	}
	if len(issues) > 0 {
		return Decision{}, ValidationError{issues: issues}
	}

	out := cfg
	var warnings []string

	if out.Repetitions > MaxRepetitions {
		warnings = append(warnings, fmt.Sprintf("repetitions limited to %d (requested %d)", MaxRepetitions, cfg.Repetitions))
		out.Repetitions = MaxRepetitions
	}

	switch {
	case out.Concurrency > MaxConcurrency:
		warnings = append(warnings, fmt.Sprintf("concurrency limited to %d (requested %d)", MaxConcurrency, cfg.Concurrency))
		out.Concurrency = MaxConcurrency
	case out.Concurrency < 1:
		warnings = append(warnings, fmt.Sprintf("concurrency raised to 1 (requested %d)", cfg.Concurrency))
		out.Concurrency = 1
	}

	if out.Delay < 0 {
		warnings = append(warnings, fmt.Sprintf("negative delay %s replaced with 0", cfg.Delay))
		out.Delay = 0
	}
	if out.Repetitions > DelayThreshold && out.Delay < MinBatchDelay {
		warnings = append(warnings, fmt.Sprintf("delay raised to %s between batches for runs over %d requests", MinBatchDelay, DelayThreshold))
		out.Delay = MinBatchDelay
	}

	return Decision{Config: out, Warnings: warnings}, nil
}
