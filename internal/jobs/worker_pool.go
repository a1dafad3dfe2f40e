package jobs

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"go-image-restorer/internal/logger"
)

// PoolStats is a point-in-time view of the pool counters
type PoolStats struct {
	Workers       int   `json:"workers"`
	QueueDepth    int   `json:"queue_depth"`
	QueueCapacity int   `json:"queue_capacity"`
	ActiveWorkers int64 `json:"active_workers"`
	TotalJobs     int64 `json:"total_jobs"`
	CompletedJobs int64 `json:"completed_jobs"`
}

// WorkerPool runs queued tasks on a fixed number of goroutines
type WorkerPool struct {
	workers  int
	jobQueue chan func()
	wg       sync.WaitGroup
	workerWG sync.WaitGroup
	once     sync.Once

	mu     sync.RWMutex
	closed bool

	active    atomic.Int64
	total     atomic.Int64
	completed atomic.Int64
}

// NewWorkerPool creates a pool with the given worker count and queue capacity
func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = workers * 2
	}

	return &WorkerPool{
		workers:  workers,
		jobQueue: make(chan func(), queueSize),
	}
}

// Start initializes and starts all workers in the pool
func (wp *WorkerPool) Start() {
	wp.once.Do(func() {
		for i := 0; i < wp.workers; i++ {
			wp.workerWG.Add(1)
			go wp.worker(i)
		}
	})
}

// worker processes jobs from the job queue
func (wp *WorkerPool) worker(id int) {
	defer wp.workerWG.Done()
	for job := range wp.jobQueue {
		wp.run(id, job)
	}
}

func (wp *WorkerPool) run(id int, job func()) {
	wp.active.Add(1)
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(logrus.Fields{
				"worker": id,
				"panic":  r,
			}).Error("Worker task panicked")
		}
		wp.active.Add(-1)
		wp.completed.Add(1)
		wp.wg.Done()
	}()
	job()
}

// TrySubmit queues job without blocking. It returns false when the queue is
// full or the pool is closed.
func (wp *WorkerPool) TrySubmit(job func()) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return false
	}

	wp.wg.Add(1)
	select {
	case wp.jobQueue <- job:
		wp.total.Add(1)
		return true
	default:
		wp.wg.Done()
		return false
	}
}

// Stats returns the current counters
func (wp *WorkerPool) Stats() PoolStats {
	return PoolStats{
		Workers:       wp.workers,
		QueueDepth:    len(wp.jobQueue),
		QueueCapacity: cap(wp.jobQueue),
		ActiveWorkers: wp.active.Load(),
		TotalJobs:     wp.total.Load(),
		CompletedJobs: wp.completed.Load(),
	}
}

// Wait waits for all submitted jobs to complete
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// Close stops accepting jobs, lets queued jobs drain and waits for the
// workers to exit.
func (wp *WorkerPool) Close() {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	close(wp.jobQueue)
	wp.mu.Unlock()

	wp.workerWG.Wait()
}
