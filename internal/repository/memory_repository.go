package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-image-restorer/internal/logger"
	"go-image-restorer/pkg/models"
)

// MemoryOptions bound the in-memory repository
type MemoryOptions struct {
	// Retention is how long terminal jobs are kept; 0 keeps them forever
	Retention time.Duration
	// MaxJobs caps the number of records; 0 means unbounded
	MaxJobs int
}

// MemoryJobRepository keeps jobs in a map guarded by a RWMutex
type MemoryJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
	opts MemoryOptions
	now  func() time.Time
}

func NewMemoryJobRepository(opts MemoryOptions) *MemoryJobRepository {
	return &MemoryJobRepository{
		jobs: make(map[string]*models.Job),
		opts: opts,
		now:  time.Now,
	}
}

func (r *MemoryJobRepository) Create(_ context.Context, job models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	if job.Status != models.JobStatusPending {
		return fmt.Errorf("%w: new jobs must be %s, got %s", ErrInvalidTransition, models.JobStatusPending, job.Status)
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; ok {
		return ErrJobExists
	}
	if r.opts.MaxJobs > 0 && len(r.jobs) >= r.opts.MaxJobs {
		r.evictLocked(r.now(), true)
		if len(r.jobs) >= r.opts.MaxJobs {
			return ErrRepositoryFull
		}
	}

	stored := clone(job)
	r.jobs[job.ID] = &stored
	return nil
}

func (r *MemoryJobRepository) Get(_ context.Context, id string) (models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return models.Job{}, ErrJobNotFound
	}
	return clone(*job), nil
}

func (r *MemoryJobRepository) Transition(_ context.Context, id string, to models.JobStatus) (models.Job, error) {
	return r.update(id, to, func(*models.Job) {})
}

func (r *MemoryJobRepository) Complete(_ context.Context, id string, result *models.JobResult) (models.Job, error) {
	return r.update(id, models.JobStatusCompleted, func(job *models.Job) {
		job.Result = result
	})
}

func (r *MemoryJobRepository) Fail(_ context.Context, id string, reason string) (models.Job, error) {
	return r.update(id, models.JobStatusFailed, func(job *models.Job) {
		job.Error = reason
	})
}

// update validates and applies one transition under the write lock
func (r *MemoryJobRepository) update(id string, to models.JobStatus, apply func(*models.Job)) (models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return models.Job{}, ErrJobNotFound
	}
	if err := models.ValidateTransition(job.Status, to); err != nil {
		return models.Job{}, fmt.Errorf("%w: job %s: %v", ErrInvalidTransition, id, err)
	}

	now := r.now()
	job.Status = to
	switch {
	case to == models.JobStatusRunning:
		job.StartedAt = &now
	case to.IsTerminal():
		job.CompletedAt = &now
	}
	apply(job)

	return clone(*job), nil
}

func (r *MemoryJobRepository) List(_ context.Context) ([]models.Job, error) {
	r.mu.RLock()
	out := make([]models.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, clone(*job))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryJobRepository) Counts(_ context.Context) map[models.JobStatus]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[models.JobStatus]int, 4)
	for _, job := range r.jobs {
		counts[job.Status]++
	}
	return counts
}

// EvictExpired drops terminal jobs that finished more than Retention ago
func (r *MemoryJobRepository) EvictExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evictLocked(r.now(), false)
}

// evictLocked removes expired terminal jobs. With force set and the cap still
// reached, the oldest terminal job is removed regardless of retention.
func (r *MemoryJobRepository) evictLocked(now time.Time, force bool) int {
	removed := 0
	if r.opts.Retention > 0 {
		cutoff := now.Add(-r.opts.Retention)
		for id, job := range r.jobs {
			if job.Status.IsTerminal() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
				delete(r.jobs, id)
				removed++
			}
		}
	}

	if force && r.opts.MaxJobs > 0 && len(r.jobs) >= r.opts.MaxJobs {
		var oldest *models.Job
		for _, job := range r.jobs {
			if !job.Status.IsTerminal() || job.CompletedAt == nil {
				continue
			}
			if oldest == nil || job.CompletedAt.Before(*oldest.CompletedAt) {
				oldest = job
			}
		}
		if oldest != nil {
			delete(r.jobs, oldest.ID)
			removed++
		}
	}

	if removed > 0 {
		logger.WithFields(logrus.Fields{
			"evicted":   removed,
			"remaining": len(r.jobs),
		}).Debug("Evicted finished jobs")
	}
	return removed
}

// RunJanitor evicts expired jobs every interval until ctx is done
func (r *MemoryJobRepository) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 || r.opts.Retention <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.EvictExpired()
		}
	}
}

func clone(job models.Job) models.Job {
	if job.StartedAt != nil {
		t := *job.StartedAt
		job.StartedAt = &t
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		job.CompletedAt = &t
	}
	return job
}
