package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// JobEvent represents one step of a job's lifecycle
type JobEvent struct {
	EventType    EventType              `json:"event_type"`
	Timestamp    time.Time              `json:"timestamp"`
	JobID        string                 `json:"job_id"`
	Kind         string                 `json:"kind"`
	Duration     time.Duration          `json:"duration"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Rejected     bool                   `json:"rejected,omitempty"` // failed before any worker ran it
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of job event
type EventType string

const (
	// JobSubmitted when a job is accepted into the queue
	JobSubmitted EventType = "job_submitted"
	// JobStarted when a worker picks the job up
	JobStarted EventType = "job_started"
	// JobCompleted when the job finishes successfully
	JobCompleted EventType = "job_completed"
	// JobFailed when the job errors, panics or is rejected
	JobFailed EventType = "job_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event JobEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event JobEvent)
}

// LoggingObserver logs job events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles job events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event JobEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"job_id":     event.JobID,
		"kind":       event.Kind,
	}
	if event.Duration > 0 {
		fields["duration"] = event.Duration.Seconds()
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case JobSubmitted:
		entry.Info("Job submitted")
	case JobStarted:
		entry.Debug("Job started")
	case JobCompleted:
		entry.Info("Job completed")
	case JobFailed:
		entry.Error("Job failed")
	default:
		entry.Info("Job event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	inflight  sync.WaitGroup
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers delivers event to every observer on its own goroutine.
// A panicking observer is logged and does not affect the others.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event JobEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		p.inflight.Add(1)
		go func(obs Observer) {
			defer p.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}

// Wait blocks until every delivery started so far has returned
func (p *EventPublisher) Wait() {
	p.inflight.Wait()
}
