package metrics

import "github.com/HdrHistogram/hdrhistogram-go"

// Percentiles describes the latency distribution of timed entries.
type Percentiles struct {
	Samples int     `json:"samples" yaml:"samples"`
	P50Ms   float64 `json:"p50_ms" yaml:"p50_ms"`
	P90Ms   float64 `json:"p90_ms" yaml:"p90_ms"`
	P95Ms   float64 `json:"p95_ms" yaml:"p95_ms"`
	P99Ms   float64 `json:"p99_ms" yaml:"p99_ms"`
}

func newHistogram() *hdrhistogram.Histogram {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	return hdrhistogram.New(1, 60_000_000, 3)
}

// Distribution computes latency percentiles over entries with a positive
// TotalMs. Values are recorded at microsecond resolution.
func Distribution(entries []Entry) Percentiles {
	h := newHistogram()
	for _, e := range entries {
		ms := e.Response.Timing.TotalMs
		if ms <= 0 {
			continue
		}
		us := int64(ms * 1000)
		if us < h.LowestTrackableValue() {
			us = h.LowestTrackableValue()
		}
		if us > h.HighestTrackableValue() {
			us = h.HighestTrackableValue()
		}
		_ = h.RecordValue(us)
	}

	p := Percentiles{Samples: int(h.TotalCount())}
	if p.Samples == 0 {
		return p
	}
	p.P50Ms = quantileMs(h, 50)
	p.P90Ms = quantileMs(h, 90)
	p.P95Ms = quantileMs(h, 95)
	p.P99Ms = quantileMs(h, 99)
	return p
}

func quantileMs(h *hdrhistogram.Histogram, q float64) float64 {
	return float64(h.ValueAtQuantile(q)) / 1000
}
