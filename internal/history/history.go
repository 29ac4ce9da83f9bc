// Package history appends run summaries to a JSON Lines file shared safely
// between concurrent burstprobe processes.
package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/oklog/ulid/v2"

	"github.com/torosent/burstprobe/internal/metrics"
	"github.com/torosent/burstprobe/internal/output"
)

// Record is one line of the history file.
type Record struct {
	ID               string              `json:"id"`
	Timestamp        time.Time           `json:"timestamp"`
	Target           string              `json:"target"`
	Method           string              `json:"method"`
	Status           string              `json:"status"`
	Repetitions      int                 `json:"repetitions"`
	Concurrency      int                 `json:"concurrency"`
	DelayMs          float64             `json:"delay_ms"`
	DurationMs       float64             `json:"duration_ms"`
	Summary          metrics.Summary     `json:"summary"`
	Percentiles      metrics.Percentiles `json:"percentiles"`
	ThresholdsPassed *bool               `json:"thresholds_passed,omitempty"`
}

// NewRecord builds a history record from a finished report.
func NewRecord(r output.Report, now time.Time) Record {
	rec := Record{
		ID:          ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Timestamp:   now.UTC(),
		Target:      r.Request.URL,
		Method:      r.Request.NormalizedMethod(),
		Status:      string(r.Status),
		Repetitions: r.Config.Repetitions,
		Concurrency: r.Config.Concurrency,
		DelayMs:     r.Config.DelayMs,
		DurationMs:  r.DurationMs,
		Summary:     r.Summary,
		Percentiles: r.Percentiles,
	}
	if len(r.Thresholds) > 0 {
		passed := true
		for _, t := range r.Thresholds {
			passed = passed && t.Pass
		}
		rec.ThresholdsPassed = &passed
	}
	return rec
}

// Store reads and appends records under an advisory file lock.
type Store struct {
	path string
	lock *flock.Flock
}

// NewStore returns a store backed by path. The lock file lives next to it.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the history file location.
func (s *Store) Path() string {
	return s.path
}

// Append writes rec as a single line.
func (s *Store) Append(rec Record) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history directory: %w", err)
		}
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode history record: %w", err)
	}
	line = append(line, '\n')

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock history: %w", err)
	}
	defer s.lock.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("write history: %w", err)
	}
	return f.Close()
}

// Load returns every record in file order. A missing file or directory
// yields no records.
func (s *Store) Load() ([]Record, error) {
	if _, err := os.Stat(filepath.Dir(s.path)); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err := s.lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock history: %w", err)
	}
	defer s.lock.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	var records []Record
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("history line %d: %w", lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return records, nil
}

// Previous returns the most recent record for target, if any.
func (s *Store) Previous(target string) (Record, bool, error) {
	records, err := s.Load()
	if err != nil {
		return Record{}, false, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Target == target {
			return records[i], true, nil
		}
	}
	return Record{}, false, nil
}

// Compare describes how cur differs from prev.
func Compare(prev, cur Record) string {
	return fmt.Sprintf("vs previous run %s: avg %.2fms -> %.2fms (%+.2fms), p95 %.2fms -> %.2fms, success %.1f%% -> %.1f%%",
		prev.Timestamp.Format(time.RFC3339),
		prev.Summary.AvgTimeMs, cur.Summary.AvgTimeMs, cur.Summary.AvgTimeMs-prev.Summary.AvgTimeMs,
		prev.Percentiles.P95Ms, cur.Percentiles.P95Ms,
		prev.Summary.SuccessRate()*100, cur.Summary.SuccessRate()*100,
	)
}
