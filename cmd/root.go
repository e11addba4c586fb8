package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kilianp07/bussim/config"
	"github.com/kilianp07/bussim/core/factory"
	coremetrics "github.com/kilianp07/bussim/core/metrics"
	"github.com/kilianp07/bussim/infra/logger"
	"github.com/kilianp07/bussim/infra/metrics"
	"github.com/kilianp07/bussim/infra/mqtt"
	"github.com/kilianp07/bussim/simulator"
)

var (
	cfgPath     string
	buses       int
	status      string
	iterations  int
	interval    float64
	broker      string
	routeID     string
	retries     int
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:          "bussim",
	Short:        "Simulate bus GPS telemetry over MQTT",
	Long:         "bussim starts one worker per simulated bus. Each worker publishes jittered JSON location messages to drivers_location/<driverId> and disconnects after the configured number of messages.",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
	pf.IntVar(&buses, "buses", simulator.DefaultBuses, "number of concurrent simulated buses")
	pf.StringVar(&status, "status", "in_route", "status of each bus's last message (in_route|finished)")
	pf.IntVar(&iterations, "iterations", simulator.DefaultIterations, "messages per bus")
	pf.Float64Var(&interval, "interval", simulator.DefaultInterval.Seconds(), "seconds between two messages of a bus")
	pf.StringVar(&broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	pf.StringVar(&routeID, "route-id", simulator.DefaultRouteID, "route id shared by every bus")
	pf.IntVar(&retries, "retries", 0, "publish retries before a bus fails (0 disables retry)")
	pf.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadConfig reads the configuration file and environment, applies the flags
// that were set explicitly on the command line and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Read(cfgPath)
	if err != nil {
		return nil, err
	}
	f := cmd.Flags()
	if f.Changed("buses") {
		cfg.Simulation.Buses = buses
	}
	if f.Changed("status") {
		cfg.Simulation.Status = status
	}
	if f.Changed("iterations") {
		cfg.Simulation.Iterations = iterations
	}
	if f.Changed("interval") {
		cfg.Simulation.IntervalSeconds = interval
	}
	if f.Changed("broker") {
		cfg.MQTT.Broker = broker
	}
	if f.Changed("route-id") {
		cfg.Simulation.RouteID = routeID
	}
	if f.Changed("retries") {
		cfg.MQTT.MaxRetries = retries
	}
	if f.Changed("metrics-addr") {
		cfg.Metrics.PrometheusAddr = metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildSink creates the configured sinks. Serving /metrics implies a
// Prometheus sink even when none is listed.
func buildSink(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	sinks := cfg.Sinks
	if cfg.PrometheusAddr != "" {
		found := false
		for _, s := range sinks {
			if s.Type == "prometheus" {
				found = true
				break
			}
		}
		if !found {
			sinks = append(append([]factory.ModuleConfig(nil), sinks...), factory.ModuleConfig{Type: "prometheus"})
		}
	}
	return coremetrics.NewMetricsSink(sinks)
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return err
	}
	runID := uuid.NewString()
	log := logger.New("bussim").With(map[string]any{"run_id": runID})

	sink, err := buildSink(cfg.Metrics)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	defer coremetrics.Close(sink)
	if cfg.Metrics.PrometheusAddr != "" {
		srvCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := metrics.StartPromServer(srvCtx, cfg.Metrics.PrometheusAddr); err != nil {
				log.Errorf("prom server: %v", err)
			}
		}()
	}

	fleet := simulator.NewFleet(cfg.Simulation.Fleet(), mqtt.NewPublisherFactory(cfg.MQTT, logger.New("mqtt_client")))
	fleet.Logger = log
	fleet.Metrics = sink
	fleet.RunID = runID
	log.Infof("broker %s, %d buses", cfg.MQTT.Broker, cfg.Simulation.Buses)
	_, err = fleet.Run(ctx)
	return err
}
