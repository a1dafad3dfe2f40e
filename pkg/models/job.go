package models

import (
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of a restoration job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobKind distinguishes single-image from video submissions
type JobKind string

const (
	JobKindImage JobKind = "image"
	JobKindVideo JobKind = "video"
)

var validTransitions = map[JobStatus]map[JobStatus]bool{
	JobStatusPending: {
		JobStatusRunning: true, // worker picked the job up
		JobStatusFailed:  true, // rejected before it could run (queue full)
	},
	JobStatusRunning: {
		JobStatusCompleted: true,
		JobStatusFailed:    true,
	},
	// Terminal states
	JobStatusCompleted: {},
	JobStatusFailed:    {},
}

// ValidateTransition checks whether from → to is allowed
func ValidateTransition(from, to JobStatus) error {
	allowed, ok := validTransitions[from]
	if !ok {
		return fmt.Errorf("unknown source state: %s", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	return nil
}

// IsTerminal returns true if no further transitions are possible
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// APIStatus maps the lifecycle state onto the values polled by clients
func (s JobStatus) APIStatus() string {
	switch s {
	case JobStatusCompleted:
		return "completed"
	case JobStatusFailed:
		return "error"
	default:
		return "processing"
	}
}

// JobResult holds exactly one of the report kinds
type JobResult struct {
	Image *ImageReport `json:"image,omitempty"`
	Video *VideoReport `json:"video,omitempty"`
}

// Job is one submission's lifecycle record
type Job struct {
	ID          string     `json:"id"`
	Kind        JobKind    `json:"kind"`
	Status      JobStatus  `json:"status"`
	Result      *JobResult `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
