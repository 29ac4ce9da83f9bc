package metrics

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/torosent/burstprobe/internal/httpclient"
)

// StatusBucket is the number of entries that ended with one status code.
type StatusBucket struct {
	Code  int    `json:"code" yaml:"code"`
	Label string `json:"label" yaml:"label"`
	Count int    `json:"count" yaml:"count"`
}

// StatusBuckets groups entries by status code. Rows are sorted by descending
// count, then by code for stability. Transport failures appear under code 0.
func StatusBuckets(entries []Entry) []StatusBucket {
	if len(entries) == 0 {
		return nil
	}
	counts := make(map[int]int)
	for _, e := range entries {
		counts[e.Response.Status]++
	}
	rows := make([]StatusBucket, 0, len(counts))
	for code, count := range counts {
		rows = append(rows, StatusBucket{Code: code, Label: statusLabel(code), Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Code < rows[j].Code
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}

func statusLabel(code int) string {
	if code == 0 {
		return httpclient.StatusTextRequestFailed
	}
	if text := http.StatusText(code); text != "" {
		return strconv.Itoa(code) + " " + text
	}
	return strconv.Itoa(code)
}
