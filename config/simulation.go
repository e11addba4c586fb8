package config

import (
	"time"

	"github.com/kilianp07/bussim/core/model"
	"github.com/kilianp07/bussim/simulator"
)

// SimulationConfig holds the fleet parameters as read from file or environment.
type SimulationConfig struct {
	Buses           int     `json:"buses"`
	Status          string  `json:"status"`
	Iterations      int     `json:"iterations"`
	IntervalSeconds float64 `json:"interval_seconds"`
	RouteID         string  `json:"route_id"`
	DriverIDBase    int     `json:"driver_id_base"`
	TopicPrefix     string  `json:"topic_prefix"`
	BaseLatitude    float64 `json:"base_latitude"`
	BaseLongitude   float64 `json:"base_longitude"`
	Jitter          float64 `json:"jitter"`
	Seed            int64   `json:"seed"`
}

// DefaultSimulation mirrors simulator.DefaultFleetConfig.
func DefaultSimulation() SimulationConfig {
	d := simulator.DefaultFleetConfig()
	return SimulationConfig{
		Buses:           d.Buses,
		Status:          d.Status.String(),
		Iterations:      d.Iterations,
		IntervalSeconds: d.Interval.Seconds(),
		RouteID:         d.RouteID,
		DriverIDBase:    d.DriverIDBase,
		TopicPrefix:     d.TopicPrefix,
		BaseLatitude:    d.BaseLatitude,
		BaseLongitude:   d.BaseLongitude,
		Jitter:          d.Jitter,
	}
}

// Fleet converts the section into a simulator.FleetConfig.
func (c SimulationConfig) Fleet() simulator.FleetConfig {
	return simulator.FleetConfig{
		Buses:         c.Buses,
		Status:        model.Status(c.Status),
		Iterations:    c.Iterations,
		Interval:      time.Duration(c.IntervalSeconds * float64(time.Second)),
		RouteID:       c.RouteID,
		DriverIDBase:  c.DriverIDBase,
		TopicPrefix:   c.TopicPrefix,
		BaseLatitude:  c.BaseLatitude,
		BaseLongitude: c.BaseLongitude,
		Jitter:        c.Jitter,
		Seed:          c.Seed,
	}
}

// Validate checks the fleet parameters.
func (c SimulationConfig) Validate() error {
	return c.Fleet().Validate()
}
