package observer

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	name   string
	mu     sync.Mutex
	events []JobEvent
}

func (o *recordingObserver) OnEvent(_ context.Context, event JobEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingObserver) GetObserverName() string { return o.name }

type panickingObserver struct{}

func (panickingObserver) OnEvent(context.Context, JobEvent) { panic("observer bug") }
func (panickingObserver) GetObserverName() string           { return "panicking" }

func TestEventPublisher_DeliversToAll(t *testing.T) {
	pub := NewEventPublisher()
	a := &recordingObserver{name: "a"}
	b := &recordingObserver{name: "b"}
	pub.Subscribe(a)
	pub.Subscribe(panickingObserver{})
	pub.Subscribe(b)

	pub.NotifyObservers(context.Background(), JobEvent{EventType: JobSubmitted, JobID: "j1", Kind: "image"})
	pub.Wait()

	for _, obs := range []*recordingObserver{a, b} {
		require.Len(t, obs.events, 1, obs.name)
		assert.Equal(t, "j1", obs.events[0].JobID)
		assert.False(t, obs.events[0].Timestamp.IsZero())
	}
}

func TestEventPublisher_Unsubscribe(t *testing.T) {
	pub := NewEventPublisher()
	a := &recordingObserver{name: "a"}
	pub.Subscribe(a)
	pub.Unsubscribe(&recordingObserver{name: "a"})

	pub.NotifyObservers(context.Background(), JobEvent{EventType: JobStarted})
	pub.Wait()
	assert.Empty(t, a.events)
}

func TestLoggingObserver(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	obs := NewLoggingObserver(log)
	obs.OnEvent(context.Background(), JobEvent{
		EventType:    JobFailed,
		JobID:        "j2",
		Kind:         "video",
		Duration:     1500 * time.Millisecond,
		ErrorMessage: "no frames were processed",
	})

	out := buf.String()
	assert.Contains(t, out, `"job_id":"j2"`)
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, "no frames were processed")
	assert.Equal(t, "logging_observer", obs.GetObserverName())
}

func TestMetricsObserver(t *testing.T) {
	obs := NewMetricsObserver()
	ctx := context.Background()

	obs.OnEvent(ctx, JobEvent{EventType: JobSubmitted, Kind: "image"})
	obs.OnEvent(ctx, JobEvent{EventType: JobStarted, Kind: "image"})
	obs.OnEvent(ctx, JobEvent{EventType: JobStarted, Kind: "image"})
	obs.OnEvent(ctx, JobEvent{EventType: JobCompleted, Kind: "image", Duration: time.Second})
	obs.OnEvent(ctx, JobEvent{EventType: JobFailed, Kind: "video", Rejected: true})

	assert.Equal(t, 1.0, testutil.ToFloat64(obs.events.WithLabelValues("image", string(JobSubmitted))))
	assert.Equal(t, 2.0, testutil.ToFloat64(obs.events.WithLabelValues("image", string(JobStarted))))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.inFlight.WithLabelValues("image")))
	assert.Equal(t, 0.0, testutil.ToFloat64(obs.inFlight.WithLabelValues("video")))
	assert.Equal(t, 1, testutil.CollectAndCount(obs.duration))

	rec := httptest.NewRecorder()
	obs.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "restorer_job_events_total"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
