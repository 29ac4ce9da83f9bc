package httpclient

import "time"

// FailureKind classifies why an attempt did not produce a usable response.
type FailureKind string

const (
	FailureNone              FailureKind = ""
	FailureTransport         FailureKind = "transport"
	FailureTimeout           FailureKind = "timeout"
	FailureDNS               FailureKind = "dns"
	FailureConnectionRefused FailureKind = "connection_refused"
	FailureCrossOrigin       FailureKind = "cross_origin"
	FailureCanceled          FailureKind = "canceled"
	FailureBodyProcessing    FailureKind = "body_processing"
)

// StatusTextRequestFailed is reported for attempts where no HTTP exchange
// completed.
const StatusTextRequestFailed = "Request Failed"

// Timing is the per-attempt timing breakdown in milliseconds.
type Timing struct {
	TTFBMs       float64 `json:"ttfb_ms" yaml:"ttfb_ms"`
	DownloadMs   float64 `json:"download_ms" yaml:"download_ms"`
	ProcessingMs float64 `json:"processing_ms" yaml:"processing_ms"`
	TotalMs      float64 `json:"total_ms" yaml:"total_ms"`
}

// NewTiming builds a Timing from phase durations. Negative phases are
// clamped to zero and TotalMs is their sum.
func NewTiming(ttfb, download, processing time.Duration) Timing {
	t := Timing{
		TTFBMs:       durationMs(ttfb),
		DownloadMs:   durationMs(download),
		ProcessingMs: durationMs(processing),
	}
	t.TotalMs = t.TTFBMs + t.DownloadMs + t.ProcessingMs
	return t
}

func durationMs(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}

// Response records the outcome of a single attempt.
type Response struct {
	Status      int               `json:"status" yaml:"status"`
	StatusText  string            `json:"status_text" yaml:"status_text"`
	Headers     map[string]string `json:"headers" yaml:"headers"`
	Body        any               `json:"body" yaml:"body"`
	Timing      Timing            `json:"timing" yaml:"timing"`
	FailureKind FailureKind       `json:"failure_kind,omitempty" yaml:"failure_kind,omitempty"`
}

// Succeeded reports whether the status is in [200, 300).
func (r Response) Succeeded() bool {
	return r.Status >= 200 && r.Status < 300
}

// TransportFailed reports whether the attempt never completed an HTTP exchange.
func (r Response) TransportFailed() bool {
	return r.Status == 0
}
