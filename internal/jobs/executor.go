package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"go-image-restorer/internal/logger"
	"go-image-restorer/internal/observer"
	"go-image-restorer/internal/repository"
	"go-image-restorer/internal/tracing"
	"go-image-restorer/pkg/models"
)

// ErrQueueFull is returned by Submit when no worker slot or queue space is free
var ErrQueueFull = errors.New("job queue is full")

// Task is the work wrapped by one job
type Task func(ctx context.Context) (*models.JobResult, error)

// Executor turns submissions into tracked jobs running on a worker pool.
// Running jobs are never cancelled or retried.
type Executor struct {
	repo   repository.JobRepository
	pool   *WorkerPool
	events observer.Subject
	// base is the context every task runs under; request contexts end too early
	base context.Context
}

func NewExecutor(repo repository.JobRepository, pool *WorkerPool, events observer.Subject) *Executor {
	pool.Start()
	return &Executor{
		repo:   repo,
		pool:   pool,
		events: events,
		base:   context.Background(),
	}
}

// Submit registers a Pending job and queues task. It returns immediately. An
// empty id gets a fresh UUID. When the queue is full the job is recorded as
// Failed and ErrQueueFull is returned alongside it.
func (e *Executor) Submit(ctx context.Context, id string, kind models.JobKind, task Task) (models.Job, error) {
	if id == "" {
		id = uuid.NewString()
	}

	job := models.Job{
		ID:        id,
		Kind:      kind,
		Status:    models.JobStatusPending,
		CreatedAt: time.Now(),
	}
	if err := e.repo.Create(ctx, job); err != nil {
		return models.Job{}, fmt.Errorf("register job: %w", err)
	}
	e.publish(observer.JobEvent{EventType: observer.JobSubmitted, JobID: id, Kind: string(kind)})

	if e.pool.TrySubmit(func() { e.run(id, kind, task) }) {
		return job, nil
	}

	failed, err := e.repo.Fail(ctx, id, ErrQueueFull.Error())
	if err != nil {
		return models.Job{}, fmt.Errorf("reject job: %w", err)
	}
	e.publish(observer.JobEvent{
		EventType:    observer.JobFailed,
		JobID:        id,
		Kind:         string(kind),
		ErrorMessage: ErrQueueFull.Error(),
		Rejected:     true,
	})
	return failed, ErrQueueFull
}

// Get returns a snapshot of the job
func (e *Executor) Get(ctx context.Context, id string) (models.Job, error) {
	return e.repo.Get(ctx, id)
}

// Stats reports the worker pool counters
func (e *Executor) Stats() PoolStats {
	return e.pool.Stats()
}

// Shutdown stops accepting jobs and waits for queued ones to finish or ctx to end
func (e *Executor) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.pool.Close()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Executor) run(id string, kind models.JobKind, task Task) {
	log := logger.ForJob(id, string(kind))

	if _, err := e.repo.Transition(e.base, id, models.JobStatusRunning); err != nil {
		log.WithError(err).Error("Failed to start job")
		return
	}
	start := time.Now()
	e.publish(observer.JobEvent{EventType: observer.JobStarted, JobID: id, Kind: string(kind)})

	ctx, span := tracing.StartJob(e.base, id, string(kind))
	result, err := safeRun(ctx, task)
	tracing.End(span, err)
	duration := time.Since(start)

	if err != nil {
		if _, ferr := e.repo.Fail(e.base, id, err.Error()); ferr != nil {
			log.WithError(ferr).Error("Failed to record job failure")
		}
		e.publish(observer.JobEvent{
			EventType:    observer.JobFailed,
			JobID:        id,
			Kind:         string(kind),
			Duration:     duration,
			ErrorMessage: err.Error(),
		})
		return
	}

	if _, err := e.repo.Complete(e.base, id, result); err != nil {
		log.WithError(err).Error("Failed to record job completion")
		return
	}
	e.publish(observer.JobEvent{EventType: observer.JobCompleted, JobID: id, Kind: string(kind), Duration: duration})
}

// safeRun converts a panic inside task into an error
func safeRun(ctx context.Context, task Task) (result *models.JobResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return task(ctx)
}

func (e *Executor) publish(event observer.JobEvent) {
	if e.events == nil {
		return
	}
	e.events.NotifyObservers(e.base, event)
}
