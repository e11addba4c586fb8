package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	coremetrics "github.com/kilianp07/bussim/core/metrics"
	coremqtt "github.com/kilianp07/bussim/core/mqtt"
	"github.com/kilianp07/bussim/infra/logger"
)

// Fleet starts one Bus per configured vehicle and waits for all of them.
type Fleet struct {
	Config    FleetConfig
	Publisher coremqtt.PublisherFactory
	Logger    logger.Logger
	Metrics   coremetrics.MetricsSink
	RunID     string
	Now       func() time.Time
}

// NewFleet creates a fleet using newPublisher to open one broker connection per bus.
func NewFleet(cfg FleetConfig, newPublisher coremqtt.PublisherFactory) *Fleet {
	return &Fleet{
		Config:    cfg,
		Publisher: newPublisher,
		Logger:    logger.NopLogger{},
		Metrics:   coremetrics.NopSink{},
		Now:       time.Now,
	}
}

// Run starts every bus concurrently and blocks until all have returned. A
// failing bus does not stop the others. The returned error joins the errors
// of every failed bus and is nil only when all succeeded.
func (f *Fleet) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: f.RunID}
	if err := f.Config.Validate(); err != nil {
		return report, err
	}
	buses := GenerateFleet(f.Config)
	if len(buses) == 0 {
		f.Logger.Infof("no buses configured, nothing to simulate")
		return report, nil
	}
	if r, ok := f.Metrics.(coremetrics.FleetSizeRecorder); ok {
		if err := r.RecordFleetSize(len(buses)); err != nil {
			f.Logger.Warnf("record fleet size: %v", err)
		}
	}

	seed := f.Config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	f.Logger.Infof("starting %d buses (%d messages each, status %s)", len(buses), f.Config.Iterations, f.Config.Status)

	report.Results = make([]BusResult, len(buses))
	var wg sync.WaitGroup
	for i, cfg := range buses {
		wg.Add(1)
		go func(i int, cfg BusConfig) {
			defer wg.Done()
			res := f.runBus(ctx, cfg, rand.New(rand.NewSource(seed+int64(i))))
			report.Results[i] = res
			f.recordResult(res)
		}(i, cfg)
	}
	wg.Wait()

	err := report.Err()
	sum := report.Summary()
	if err != nil {
		f.Logger.Errorf("%d/%d buses failed: %v", sum.FailedBuses, sum.Buses, err)
	} else {
		f.Logger.Infof("all %d buses completed, %d messages, publish latency mean %.3fms p95 %.3fms",
			sum.Buses, sum.Messages, sum.LatencyMeanMS, sum.LatencyP95MS)
	}
	return report, err
}

func (f *Fleet) runBus(ctx context.Context, cfg BusConfig, rng *rand.Rand) BusResult {
	pub, err := f.Publisher(cfg.DriverID)
	if err != nil {
		return BusResult{DriverID: cfg.DriverID, RouteID: cfg.RouteID, Err: fmt.Errorf("create publisher: %w", err)}
	}
	bus := NewBus(cfg, pub)
	bus.Rand = rng
	bus.Now = f.Now
	bus.Logger = f.Logger.With(map[string]any{"driver_id": cfg.DriverID})
	bus.Metrics = f.Metrics
	bus.RunID = f.RunID
	res, err := bus.Run(ctx)
	res.Err = err
	return res
}

func (f *Fleet) recordResult(res BusResult) {
	r, ok := f.Metrics.(coremetrics.WorkerResultRecorder)
	if !ok {
		return
	}
	err := r.RecordWorkerResult(coremetrics.WorkerResultEvent{
		RunID:     f.RunID,
		DriverID:  res.DriverID,
		RouteID:   res.RouteID,
		Published: res.Published,
		Duration:  res.Duration,
		Err:       res.Err,
		Time:      f.Now(),
	})
	if err != nil {
		f.Logger.Warnf("record worker result: %v", err)
	}
}
