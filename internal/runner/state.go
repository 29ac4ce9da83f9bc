package runner

import (
	"time"

	"github.com/torosent/burstprobe/internal/metrics"
)

// ModeRepeated identifies a run that repeats a single request.
const ModeRepeated = "repeated"

// Status is the lifecycle state carried by a RunState.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusStopped   Status = "stopped"
)

// RunState is a snapshot of a run. Every snapshot owns its Entries slice.
type RunState struct {
	Mode      string          `json:"mode" yaml:"mode"`
	Status    Status          `json:"status" yaml:"status"`
	StartedAt time.Time       `json:"started_at" yaml:"started_at"`
	Planned   int             `json:"planned" yaml:"planned"`
	Summary   metrics.Summary `json:"summary" yaml:"summary"`
	Entries   []metrics.Entry `json:"entries" yaml:"entries"`
}

// Sink receives run snapshots. It is never called concurrently.
type Sink func(RunState)

// Result describes a finished run.
type Result struct {
	State     RunState
	Stopped   bool
	Attempted int
	Duration  time.Duration
	Warnings  []string
}
