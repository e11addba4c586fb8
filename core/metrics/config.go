package metrics

import "github.com/kilianp07/bussim/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr exposes /metrics on this address when non-empty.
	PrometheusAddr string `json:"prometheus_addr"`
}
