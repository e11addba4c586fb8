// Package metrics defines the sinks the simulator reports to. Every sink
// implements MetricsSink; FleetSizeRecorder and WorkerResultRecorder are
// optional and discovered by type assertion. Concrete sinks register
// themselves with RegisterMetricsSink and are built from configuration with
// NewMetricsSink, which returns a MultiSink when several are configured.
package metrics
