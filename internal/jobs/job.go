package jobs

import (
	"errors"
	"fmt"
	"time"

	"github.com/joelkehle/property-analysis/internal/analysis"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusRunning:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	}
	return -1
}

var ErrInvalidTransition = errors.New("invalid job transition")

// Job is the record of one analysis request. Result is set only when Status
// is COMPLETED; Error only when it is FAILED.
type Job struct {
	ID          string                     `json:"job_id"`
	Address     string                     `json:"address"`
	Status      Status                     `json:"status"`
	Progress    int                        `json:"progress"`
	CurrentStep string                     `json:"current_step"`
	Result      *analysis.PropertyAnalysis `json:"result,omitempty"`
	Outcome     analysis.Outcome           `json:"outcome,omitempty"`
	Error       string                     `json:"error,omitempty"`
	ErrorStatus int                        `json:"error_status,omitempty"`
	Attempts    int                        `json:"attempts,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
	CompletedAt *time.Time                 `json:"completed_at,omitempty"`
}

// Advance moves the job forward to status. Regressions, repeated states and
// any change after a terminal state are rejected.
func (j *Job) Advance(to Status, now time.Time) error {
	if to.rank() < 0 || j.Status.Terminal() || to.rank() <= j.Status.rank() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
	}
	j.Status = to
	j.UpdatedAt = now
	if to.Terminal() {
		j.Progress = 100
		t := now
		j.CompletedAt = &t
	}
	return nil
}

// Step records progress within the current state. Progress never decreases.
func (j *Job) Step(progress int, step string, now time.Time) {
	if progress > j.Progress {
		j.Progress = min(progress, 100)
	}
	j.CurrentStep = step
	j.UpdatedAt = now
}
