package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/bussim/core/metrics"
	"github.com/kilianp07/bussim/core/model"
)

type bodyRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (b *bodyRecorder) handler(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	b.bodies = append(b.bodies, strings.TrimSpace(string(data)))
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (b *bodyRecorder) all() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.bodies...)
}

func TestInfluxSink_RecordPublish(t *testing.T) {
	rec := &bodyRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()
	ev := coremetrics.PublishEvent{
		RunID:    "run-1",
		DriverID: "driver-100",
		RouteID:  "route-123",
		Status:   model.StatusFinished,
		Location: model.Location{Latitude: 40.5, Longitude: -73.5},
		Latency:  1500 * time.Microsecond,
		Time:     now,
	}
	require.NoError(t, sink.RecordPublish(ev))

	p := write.NewPointWithMeasurement("bus_location").
		AddTag("driver_id", "driver-100").
		AddTag("route_id", "route-123").
		AddTag("status", "finished").
		AddTag("run_id", "run-1").
		AddField("latitude", 40.5).
		AddField("longitude", -73.5).
		AddField("latency_ms", 1.5).
		AddField("failed", false).
		SetTime(now)
	exp := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	assert.Equal(t, []string{exp}, rec.all())
}

func TestInfluxSink_RecordWorkerResult(t *testing.T) {
	rec := &bodyRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL+"/api/v2/write", "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()
	ev := coremetrics.WorkerResultEvent{
		DriverID:  "driver-101",
		RouteID:   "route-123",
		Published: 2,
		Duration:  2 * time.Second,
		Err:       errors.New("publish failed"),
		Time:      now,
	}
	require.NoError(t, sink.RecordWorkerResult(ev))

	p := write.NewPointWithMeasurement("bus_worker_result").
		AddTag("driver_id", "driver-101").
		AddTag("route_id", "route-123").
		AddTag("success", "false").
		AddField("published", 2).
		AddField("duration_ms", 2000.0).
		AddField("error", "publish failed").
		SetTime(now)
	exp := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	assert.Equal(t, []string{exp}, rec.all())
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	_, isInflux := sink.(*InfluxSink)
	assert.False(t, isInflux, "expected NopSink on failing health check")
	assert.True(t, called, "health endpoint not called")
}
