// Package job tracks long running offline video processing work. Each job
// streams an input file frame by frame through an attention pipeline and
// writes the annotated result to a deterministic output path, reporting
// progress while it runs.
package job

import (
	"time"
)

// State is the lifecycle phase of a job. Done and Error are terminal
type State string

const (
	StatePending State = "pending"
	StateRunning State = "running"
	StateDone    State = "done"
	StateError   State = "error"
)

// Terminal reports whether the state admits no further transitions
func (s State) Terminal() bool {
	return s == StateDone || s == StateError
}

// Job is a snapshot of one video processing job. Progress runs 0 to 100
// and never decreases while the job is running. Err is set only when
// State is StateError
type Job struct {
	ID          string    `json:"job_id"`
	InputPath   string    `json:"input_path"`
	OutputPath  string    `json:"output_path"`
	State       State     `json:"state"`
	Progress    int       `json:"progress"`
	Err         string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}
