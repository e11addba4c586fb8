package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/bussim/config"
	"github.com/kilianp07/bussim/core/factory"
	coremetrics "github.com/kilianp07/bussim/core/metrics"
	"github.com/kilianp07/bussim/simulator"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestFleetLs(t *testing.T) {
	out, err := execute(t, "fleet", "ls", "--buses", "2", "--status", "finished", "--iterations", "3")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "driver-100")
	assert.Contains(t, lines[1], "drivers_location/driver-100")
	assert.Contains(t, lines[2], "driver-101")
	assert.Contains(t, lines[2], "finished")
	assert.Contains(t, lines[2], "route-123")
}

// Zero buses starts nothing and needs no broker.
func TestRunZeroBuses(t *testing.T) {
	_, err := execute(t, "--buses", "0", "--status", "in_route", "--iterations", "5")
	assert.NoError(t, err)
}

func TestRunRejectsInvalidArguments(t *testing.T) {
	_, err := execute(t, "--buses", "1", "--status", "in_route", "--iterations", "0")
	assert.ErrorIs(t, err, config.ErrInvalid)
	assert.ErrorIs(t, err, simulator.ErrInvalidConfig)

	_, err = execute(t, "--buses", "1", "--status", "parked", "--iterations", "1")
	assert.ErrorIs(t, err, config.ErrInvalid)

	_, err = execute(t, "--buses", "-2", "--status", "in_route", "--iterations", "1")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

// Explicit flags win over an invalid value in the configuration file.
func TestRunFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bussim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("simulation:\n  buses: 0\n  iterations: 0\n"), 0o644))
	t.Cleanup(func() { cfgPath = "" })

	_, err := execute(t, "--config", path, "--buses", "0", "--status", "in_route", "--iterations", "5")
	assert.NoError(t, err)

	_, err = execute(t, "--config", path, "--buses", "0", "--status", "in_route", "--iterations", "0")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestBuildSinkAddsPrometheus(t *testing.T) {
	s, err := buildSink(coremetrics.Config{})
	require.NoError(t, err)
	assert.IsType(t, coremetrics.NopSink{}, s)

	s, err = buildSink(coremetrics.Config{
		PrometheusAddr: ":0",
		Sinks:          []factory.ModuleConfig{{Type: "nop"}},
	})
	require.NoError(t, err)
	multi, ok := s.(*coremetrics.MultiSink)
	require.True(t, ok, "got %T", s)
	assert.Len(t, multi.Sinks, 2)
}
