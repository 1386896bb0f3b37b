package batch

import "motioncanvas/internal/export"

// Status tracks a job through its lifecycle.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether a job can no longer change state.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Job stores one queued export's identity, request, and lifecycle state.
type Job struct {
	ID       string
	Request  export.Request
	Status   Status
	Progress float64
	// Err holds the terminal error for failed jobs.
	Err error
}
