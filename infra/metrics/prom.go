package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/bussim/core/metrics"
)

// PromSink records simulator events in Prometheus metrics.
type PromSink struct {
	published *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	latitude  *prometheus.GaugeVec
	longitude *prometheus.GaugeVec
	fleet     prometheus.Gauge
	workers   *prometheus.CounterVec
}

// NewPromSink registers simulator metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bussim_messages_published_total",
		Help: "Location messages handed to the broker",
	}, []string{"driver_id", "status", "result"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bussim_publish_latency_seconds",
		Help:    "Time spent in a single publish call",
		Buckets: prometheus.DefBuckets,
	}, []string{"driver_id"})
	latitude := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bussim_bus_latitude",
		Help: "Last published latitude per bus",
	}, []string{"driver_id"})
	longitude := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bussim_bus_longitude",
		Help: "Last published longitude per bus",
	}, []string{"driver_id"})
	fleet := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bussim_fleet_buses",
		Help: "Number of buses started by the launcher",
	})
	workers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bussim_workers_total",
		Help: "Bus workers that terminated, by result",
	}, []string{"result"})

	var err error
	if published, err = register(reg, published); err != nil {
		return nil, err
	}
	if latency, err = register(reg, latency); err != nil {
		return nil, err
	}
	if latitude, err = register(reg, latitude); err != nil {
		return nil, err
	}
	if longitude, err = register(reg, longitude); err != nil {
		return nil, err
	}
	if fleet, err = register(reg, fleet); err != nil {
		return nil, err
	}
	if workers, err = register(reg, workers); err != nil {
		return nil, err
	}
	return &PromSink{
		published: published,
		latency:   latency,
		latitude:  latitude,
		longitude: longitude,
		fleet:     fleet,
		workers:   workers,
	}, nil
}

// register reuses an already registered collector of the same type.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordPublish counts the message and tracks the bus position.
func (s *PromSink) RecordPublish(ev coremetrics.PublishEvent) error {
	s.published.WithLabelValues(ev.DriverID, ev.Status.String(), resultLabel(ev.Failed)).Inc()
	s.latency.WithLabelValues(ev.DriverID).Observe(ev.Latency.Seconds())
	if !ev.Failed {
		s.latitude.WithLabelValues(ev.DriverID).Set(ev.Location.Latitude)
		s.longitude.WithLabelValues(ev.DriverID).Set(ev.Location.Longitude)
	}
	return nil
}

// RecordFleetSize sets the gauge to the number of started buses.
func (s *PromSink) RecordFleetSize(size int) error {
	s.fleet.Set(float64(size))
	return nil
}

// RecordWorkerResult counts terminated workers by outcome.
func (s *PromSink) RecordWorkerResult(ev coremetrics.WorkerResultEvent) error {
	s.workers.WithLabelValues(resultLabel(ev.Err != nil)).Inc()
	return nil
}

func resultLabel(failed bool) string {
	if failed {
		return "error"
	}
	return "ok"
}
