package metrics

import (
	"sort"
	"strconv"

	"github.com/torosent/burstprobe/internal/httpclient"
)

// FailureCount is one row of a failure breakdown.
type FailureCount struct {
	Label string `json:"label" yaml:"label"`
	Count int    `json:"count" yaml:"count"`
}

// FailureBreakdown counts problem entries by a human-readable label.
// Entries with a failure kind are labelled by kind; the remaining non-2xx
// entries are labelled "HTTP <code>".
func FailureBreakdown(entries []Entry) map[string]int {
	out := make(map[string]int)
	for _, e := range entries {
		if label, ok := failureLabel(e.Response); ok {
			out[label]++
		}
	}
	return out
}

// SortedFailures flattens a breakdown into rows sorted by descending count,
// then by label.
func SortedFailures(breakdown map[string]int) []FailureCount {
	if len(breakdown) == 0 {
		return nil
	}
	rows := make([]FailureCount, 0, len(breakdown))
	for label, count := range breakdown {
		rows = append(rows, FailureCount{Label: label, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Label < rows[j].Label
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}

func failureLabel(resp httpclient.Response) (string, bool) {
	if resp.FailureKind != httpclient.FailureNone {
		return httpclient.FailureLabel(resp.FailureKind), true
	}
	if resp.TransportFailed() {
		return httpclient.FailureLabel(httpclient.FailureTransport), true
	}
	if !resp.Succeeded() {
		return "HTTP " + strconv.Itoa(resp.Status), true
	}
	return "", false
}
