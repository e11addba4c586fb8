package metrics

import (
	"time"

	"github.com/kilianp07/bussim/core/model"
)

// PublishEvent describes one location message handed to the broker.
type PublishEvent struct {
	RunID    string
	DriverID string
	RouteID  string
	Topic    string
	Status   model.Status
	Location model.Location
	Latency  time.Duration
	Failed   bool
	Time     time.Time
}

// MetricsSink records simulator events for observability purposes.
type MetricsSink interface {
	RecordPublish(ev PublishEvent) error
}

// FleetSizeRecorder records the number of buses started by the launcher.
type FleetSizeRecorder interface {
	RecordFleetSize(size int) error
}

// WorkerResultEvent is emitted when a bus worker terminates.
type WorkerResultEvent struct {
	RunID     string
	DriverID  string
	RouteID   string
	Published int
	Duration  time.Duration
	Err       error
	Time      time.Time
}

// WorkerResultRecorder records the outcome of each bus worker.
type WorkerResultRecorder interface {
	RecordWorkerResult(ev WorkerResultEvent) error
}

// Closer is implemented by sinks holding resources such as HTTP clients.
type Closer interface {
	Close()
}

// Close releases s if it implements Closer.
func Close(s MetricsSink) {
	if c, ok := s.(Closer); ok {
		c.Close()
	}
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordPublish(PublishEvent) error           { return nil }
func (NopSink) RecordFleetSize(int) error                  { return nil }
func (NopSink) RecordWorkerResult(WorkerResultEvent) error { return nil }
