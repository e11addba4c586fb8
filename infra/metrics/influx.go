package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/bussim/core/metrics"
	"github.com/kilianp07/bussim/infra/logger"
)

// InfluxSink writes simulator events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

var _ coremetrics.Closer = (*InfluxSink)(nil)

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordPublish writes one bus_location point per published message.
func (s *InfluxSink) RecordPublish(ev coremetrics.PublishEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("bus_location").
		AddTag("driver_id", ev.DriverID).
		AddTag("route_id", ev.RouteID).
		AddTag("status", ev.Status.String())
	if ev.RunID != "" {
		p = p.AddTag("run_id", ev.RunID)
	}
	p = p.AddField("latitude", ev.Location.Latitude).
		AddField("longitude", ev.Location.Longitude).
		AddField("latency_ms", round3(float64(ev.Latency)/float64(time.Millisecond))).
		AddField("failed", ev.Failed).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordWorkerResult writes the outcome of a bus worker.
func (s *InfluxSink) RecordWorkerResult(ev coremetrics.WorkerResultEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	errStr := ""
	if ev.Err != nil {
		errStr = ev.Err.Error()
	}
	p := write.NewPointWithMeasurement("bus_worker_result").
		AddTag("driver_id", ev.DriverID).
		AddTag("route_id", ev.RouteID).
		AddTag("success", strconv.FormatBool(ev.Err == nil))
	if ev.RunID != "" {
		p = p.AddTag("run_id", ev.RunID)
	}
	p = p.AddField("published", ev.Published).
		AddField("duration_ms", round3(float64(ev.Duration)/float64(time.Millisecond))).
		AddField("error", errStr).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
