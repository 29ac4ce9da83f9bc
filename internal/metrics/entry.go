package metrics

import (
	"time"

	"github.com/torosent/burstprobe/internal/httpclient"
)

// RequestSnapshot is the request as it was issued for one attempt.
type RequestSnapshot struct {
	ID        string            `json:"id" yaml:"id"`
	Timestamp time.Time         `json:"timestamp" yaml:"timestamp"`
	URL       string            `json:"url" yaml:"url"`
	Method    string            `json:"method" yaml:"method"`
	Headers   map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body      string            `json:"body,omitempty" yaml:"body,omitempty"`
}

// Entry pairs one attempt's request with its outcome.
type Entry struct {
	Request  RequestSnapshot     `json:"request" yaml:"request"`
	Response httpclient.Response `json:"response" yaml:"response"`
}

// Summary is the aggregate of a list of entries.
type Summary struct {
	TotalRequests int     `json:"total_requests" yaml:"total_requests"`
	SuccessCount  int     `json:"success_count" yaml:"success_count"`
	FailureCount  int     `json:"failure_count" yaml:"failure_count"`
	MinTimeMs     float64 `json:"min_time_ms" yaml:"min_time_ms"`
	MaxTimeMs     float64 `json:"max_time_ms" yaml:"max_time_ms"`
	AvgTimeMs     float64 `json:"avg_time_ms" yaml:"avg_time_ms"`
}

// SuccessRate returns SuccessCount / TotalRequests, or 0 for an empty run.
func (s Summary) SuccessRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(s.TotalRequests)
}

// Summarize recomputes the summary of entries. Only entries with a positive
// TotalMs count towards the time fields; the average divides their sum by
// the success count.
func Summarize(entries []Entry) Summary {
	s := Summary{TotalRequests: len(entries)}

	var (
		sum   float64
		timed bool
	)
	for _, e := range entries {
		if e.Response.Succeeded() {
			s.SuccessCount++
		}
		ms := e.Response.Timing.TotalMs
		if ms <= 0 {
			continue
		}
		if !timed || ms < s.MinTimeMs {
			s.MinTimeMs = ms
		}
		if ms > s.MaxTimeMs {
			s.MaxTimeMs = ms
		}
		sum += ms
		timed = true
	}
	s.FailureCount = s.TotalRequests - s.SuccessCount

	if s.SuccessCount > 0 {
		s.AvgTimeMs = sum / float64(s.SuccessCount)
	}
	return s
}
