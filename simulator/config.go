package simulator

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/bussim/core/model"
	coremqtt "github.com/kilianp07/bussim/core/mqtt"
)

// ErrInvalidConfig is returned when simulation parameters are rejected before
// any bus is started.
var ErrInvalidConfig = errors.New("invalid simulation config")

const (
	DefaultBuses         = 1
	DefaultIterations    = 20
	DefaultInterval      = time.Second
	DefaultRouteID       = "route-123"
	DefaultDriverIDBase  = 100
	DefaultBaseLatitude  = 40.0
	DefaultBaseLongitude = -74.0
	DefaultJitter        = 0.0005
)

// BusConfig holds the parameters of a single simulated bus.
type BusConfig struct {
	DriverID       string
	RouteID        string
	TerminalStatus model.Status
	Interval       time.Duration
	Iterations     int
	TopicPrefix    string
	BaseLatitude   float64
	BaseLongitude  float64
	// Jitter bounds the per-axis movement between two consecutive fixes, in degrees.
	Jitter float64
}

// SetDefaults fills unset fields. Base coordinates and Jitter are left
// untouched since zero is a valid value for both.
func (c *BusConfig) SetDefaults() {
	if c.TerminalStatus == "" {
		c.TerminalStatus = model.StatusInRoute
	}
	if c.Interval == 0 {
		c.Interval = DefaultInterval
	}
	if c.Iterations == 0 {
		c.Iterations = DefaultIterations
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = coremqtt.DefaultLocationPrefix
	}
}

// Validate checks the bus parameters.
func (c BusConfig) Validate() error {
	switch {
	case c.DriverID == "":
		return fmt.Errorf("%w: driver id is required", ErrInvalidConfig)
	case c.RouteID == "":
		return fmt.Errorf("%w: route id is required", ErrInvalidConfig)
	case c.Interval <= 0:
		return fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidConfig, c.Interval)
	case c.Iterations <= 0:
		return fmt.Errorf("%w: iterations must be positive, got %d", ErrInvalidConfig, c.Iterations)
	case c.Jitter < 0:
		return fmt.Errorf("%w: jitter must be >= 0, got %g", ErrInvalidConfig, c.Jitter)
	}
	if _, err := model.ParseStatus(string(c.TerminalStatus)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// FleetConfig holds parameters shared by every bus of a run.
type FleetConfig struct {
	Buses         int
	Status        model.Status
	Iterations    int
	Interval      time.Duration
	RouteID       string
	DriverIDBase  int
	TopicPrefix   string
	BaseLatitude  float64
	BaseLongitude float64
	Jitter        float64
	// Seed drives the random positions. Zero seeds from the current time.
	Seed int64
}

// DefaultFleetConfig returns the configuration of the reference simulator.
func DefaultFleetConfig() FleetConfig {
	return FleetConfig{
		Buses:         DefaultBuses,
		Status:        model.StatusInRoute,
		Iterations:    DefaultIterations,
		Interval:      DefaultInterval,
		RouteID:       DefaultRouteID,
		DriverIDBase:  DefaultDriverIDBase,
		TopicPrefix:   coremqtt.DefaultLocationPrefix,
		BaseLatitude:  DefaultBaseLatitude,
		BaseLongitude: DefaultBaseLongitude,
		Jitter:        DefaultJitter,
	}
}

// Validate checks the fleet parameters. Zero buses is valid and yields an empty run.
func (c FleetConfig) Validate() error {
	switch {
	case c.Buses < 0:
		return fmt.Errorf("%w: buses must be >= 0, got %d", ErrInvalidConfig, c.Buses)
	case c.Iterations <= 0:
		return fmt.Errorf("%w: iterations must be positive, got %d", ErrInvalidConfig, c.Iterations)
	case c.Interval <= 0:
		return fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidConfig, c.Interval)
	case c.RouteID == "":
		return fmt.Errorf("%w: route id is required", ErrInvalidConfig)
	case c.DriverIDBase < 0:
		return fmt.Errorf("%w: driver id base must be >= 0, got %d", ErrInvalidConfig, c.DriverIDBase)
	case c.Jitter < 0:
		return fmt.Errorf("%w: jitter must be >= 0, got %g", ErrInvalidConfig, c.Jitter)
	}
	if _, err := model.ParseStatus(string(c.Status)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// DriverID returns the identifier of the bus at index i.
func (c FleetConfig) DriverID(i int) string {
	return fmt.Sprintf("driver-%d", c.DriverIDBase+i)
}

// GenerateFleet creates one BusConfig per bus with ids driver-<base+i>.
func GenerateFleet(cfg FleetConfig) []BusConfig {
	if cfg.Buses <= 0 {
		return nil
	}
	buses := make([]BusConfig, cfg.Buses)
	for i := range buses {
		buses[i] = BusConfig{
			DriverID:       cfg.DriverID(i),
			RouteID:        cfg.RouteID,
			TerminalStatus: cfg.Status,
			Interval:       cfg.Interval,
			Iterations:     cfg.Iterations,
			TopicPrefix:    cfg.TopicPrefix,
			BaseLatitude:   cfg.BaseLatitude,
			BaseLongitude:  cfg.BaseLongitude,
			Jitter:         cfg.Jitter,
		}
	}
	return buses
}
