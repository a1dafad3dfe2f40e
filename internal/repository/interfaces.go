package repository

import (
	"context"

	"go-image-restorer/pkg/models"
)

// JobRepository stores job lifecycle records. Every returned Job is a copy;
// callers never observe a record changing under them.
type JobRepository interface {
	// Create registers a new job, which must be Pending
	Create(ctx context.Context, job models.Job) error

	// Get returns a snapshot of the job
	Get(ctx context.Context, id string) (models.Job, error)

	// Transition atomically moves the job to status
	Transition(ctx context.Context, id string, to models.JobStatus) (models.Job, error)

	// Complete moves a running job to Completed and attaches its result
	Complete(ctx context.Context, id string, result *models.JobResult) (models.Job, error)

	// Fail moves a job to Failed and records the reason
	Fail(ctx context.Context, id string, reason string) (models.Job, error)

	// List returns every job ordered by creation time
	List(ctx context.Context) ([]models.Job, error)

	// Counts returns the number of jobs in each status
	Counts(ctx context.Context) map[models.JobStatus]int
}
