package observer

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsObserver exports job events as Prometheus metrics on its own registry
type MetricsObserver struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
}

// NewMetricsObserver creates the job metrics and registers them with a
// fresh registry that also carries the Go and process collectors.
func NewMetricsObserver() *MetricsObserver {
	o := &MetricsObserver{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "restorer_job_events_total",
				Help: "Job lifecycle events by kind and event type",
			},
			[]string{"kind", "event"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "restorer_job_duration_seconds",
				Help:    "Wall time from job start to completion or failure",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
			},
			[]string{"kind", "status"},
		),
		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "restorer_jobs_running",
				Help: "Jobs currently executing on a worker",
			},
			[]string{"kind"},
		),
	}

	o.registry.MustRegister(
		o.events,
		o.duration,
		o.inFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return o
}

// OnEvent handles job events by updating the collectors
func (o *MetricsObserver) OnEvent(ctx context.Context, event JobEvent) {
	o.events.WithLabelValues(event.Kind, string(event.EventType)).Inc()

	switch event.EventType {
	case JobStarted:
		o.inFlight.WithLabelValues(event.Kind).Inc()
	case JobCompleted:
		o.inFlight.WithLabelValues(event.Kind).Dec()
		o.duration.WithLabelValues(event.Kind, "completed").Observe(event.Duration.Seconds())
	case JobFailed:
		if !event.Rejected {
			o.inFlight.WithLabelValues(event.Kind).Dec()
			o.duration.WithLabelValues(event.Kind, "failed").Observe(event.Duration.Seconds())
		}
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// Registry exposes the registry for additional collectors
func (o *MetricsObserver) Registry() *prometheus.Registry {
	return o.registry
}

// Handler serves the registry in the Prometheus exposition format
func (o *MetricsObserver) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})
}
