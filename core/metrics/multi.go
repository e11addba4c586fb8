package metrics

import "errors"

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPublish forwards the event to every sink and joins their errors.
func (m *MultiSink) RecordPublish(ev PublishEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordPublish(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordFleetSize forwards fleet size when supported by the sink.
func (m *MultiSink) RecordFleetSize(size int) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(FleetSizeRecorder); ok {
			if err := r.RecordFleetSize(size); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordWorkerResult forwards worker outcomes when supported by the sink.
func (m *MultiSink) RecordWorkerResult(ev WorkerResultEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(WorkerResultRecorder); ok {
			if err := r.RecordWorkerResult(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close releases every sink that implements Closer.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		Close(s)
	}
}
