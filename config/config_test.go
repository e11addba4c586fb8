package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/bussim/core/model"
	"github.com/kilianp07/bussim/simulator"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, 60, cfg.MQTT.KeepAliveSeconds)
	assert.Equal(t, 0, cfg.MQTT.MaxRetries)
	assert.Equal(t, "info", cfg.Logging.Level)

	fleet := cfg.Simulation.Fleet()
	assert.Equal(t, 1, fleet.Buses)
	assert.Equal(t, model.StatusInRoute, fleet.Status)
	assert.Equal(t, 20, fleet.Iterations)
	assert.Equal(t, time.Second, fleet.Interval)
	assert.Equal(t, "route-123", fleet.RouteID)
	assert.Equal(t, "drivers_location/", fleet.TopicPrefix)
	assert.Equal(t, "driver-100", fleet.DriverID(0))
}

//nolint:gocyclo
func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `mqtt:
  broker: "tcp://emqx:1883"
  client_id: "sim"
  username: "user"
  password: "pass"
  qos: 1
  max_retries: 2
  backoff_ms: 50
simulation:
  buses: 4
  status: finished
  iterations: 7
  interval_seconds: 0.5
  route_id: "route-9"
  driver_id_base: 200
metrics:
  prometheus_addr: ":9100"
  sinks:
    - type: "nop"
logging:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"broker", cfg.MQTT.Broker, "tcp://emqx:1883"},
		{"client_id", cfg.MQTT.ClientID, "sim"},
		{"username", cfg.MQTT.Username, "user"},
		{"password", cfg.MQTT.Password, "pass"},
		{"qos", cfg.MQTT.QoS, byte(1)},
		{"max_retries", cfg.MQTT.MaxRetries, 2},
		{"backoff_ms", cfg.MQTT.BackoffMS, 50},
		{"keepalive default", cfg.MQTT.KeepAliveSeconds, 60},
		{"buses", cfg.Simulation.Buses, 4},
		{"status", cfg.Simulation.Status, "finished"},
		{"iterations", cfg.Simulation.Iterations, 7},
		{"interval", cfg.Simulation.Fleet().Interval, 500 * time.Millisecond},
		{"route_id", cfg.Simulation.RouteID, "route-9"},
		{"driver base", cfg.Simulation.Fleet().DriverID(1), "driver-201"},
		{"base_latitude default", cfg.Simulation.BaseLatitude, 40.0},
		{"prometheus_addr", cfg.Metrics.PrometheusAddr, ":9100"},
		{"sinks", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"level", cfg.Logging.Level, "debug"},
	}
	for _, c := range checks {
		assert.Equal(t, c.want, c.got, c.name)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{"simulation": {"buses": 0}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Simulation.Buses)
	assert.Equal(t, 20, cfg.Simulation.Iterations)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BUSSIM_MQTT__BROKER", "tcp://broker.local:1884")
	t.Setenv("BUSSIM_SIMULATION__BUSES", "3")
	t.Setenv("BUSSIM_SIMULATION__STATUS", "finished")
	path := writeFile(t, "config.yaml", "simulation:\n  buses: 1\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tcp://broker.local:1884", cfg.MQTT.Broker)
	assert.Equal(t, 3, cfg.Simulation.Buses)
	assert.Equal(t, "finished", cfg.Simulation.Status)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeFile(t, "config.toml", ""))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	cases := map[string]string{
		"negative buses":  "simulation:\n  buses: -1\n",
		"zero iterations": "simulation:\n  iterations: 0\n",
		"bad status":      "simulation:\n  status: parked\n",
		"zero interval":   "simulation:\n  interval_seconds: 0\n",
		"bad qos":         "mqtt:\n  qos: 5\n",
		"bad level":       "logging:\n  level: chatty\n",
	}
	for name, data := range cases {
		_, err := Load(writeFile(t, "config.yaml", data))
		assert.ErrorIs(t, err, ErrInvalid, name)
	}

	_, err = Load(writeFile(t, "config.yaml", "simulation:\n  buses: -1\n"))
	assert.ErrorIs(t, err, simulator.ErrInvalidConfig)
}

// Read leaves validation to the caller so overrides can fix file values.
func TestReadDefersValidation(t *testing.T) {
	path := writeFile(t, "config.yaml", "simulation:\n  iterations: 0\n")
	cfg, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Simulation.Iterations)
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid)

	cfg.Simulation.Iterations = 5
	assert.NoError(t, cfg.Validate())
}
