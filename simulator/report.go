package simulator

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/bussim/core/model"
)

// BusResult summarizes what a single bus published.
type BusResult struct {
	DriverID       string
	RouteID        string
	Topic          string
	Published      int
	FirstTimestamp int64
	LastTimestamp  int64
	LastStatus     model.Status
	FinalPosition  model.Location
	Latencies      []time.Duration
	Duration       time.Duration
	Err            error
}

func (r *BusResult) add(msg model.LocationMessage, latency time.Duration) {
	if r.Published == 0 {
		r.FirstTimestamp = msg.Timestamp
	}
	r.Published++
	r.LastTimestamp = msg.Timestamp
	r.LastStatus = msg.Status
	r.FinalPosition = msg.DriverLocation
	r.Latencies = append(r.Latencies, latency)
}

// Report holds the per-bus results of a fleet run, in driver id order.
type Report struct {
	RunID   string
	Results []BusResult
}

// Failed returns the results of buses that ended with an error.
func (r Report) Failed() []BusResult {
	var out []BusResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Err joins the errors of every failed bus, prefixed with its driver id.
// It is nil when every bus succeeded.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", res.DriverID, res.Err))
	}
	return errors.Join(errs...)
}

// Summary aggregates a Report.
type Summary struct {
	Buses           int
	FailedBuses     int
	Messages        int
	LatencyMeanMS   float64
	LatencyStdDevMS float64
	LatencyP95MS    float64
}

// Summary computes fleet wide totals and publish latency statistics.
func (r Report) Summary() Summary {
	s := Summary{Buses: len(r.Results)}
	var lat []float64
	for _, res := range r.Results {
		s.Messages += res.Published
		if res.Err != nil {
			s.FailedBuses++
		}
		for _, l := range res.Latencies {
			lat = append(lat, float64(l)/float64(time.Millisecond))
		}
	}
	if len(lat) == 0 {
		return s
	}
	sort.Float64s(lat)
	s.LatencyMeanMS, s.LatencyStdDevMS = stat.MeanStdDev(lat, nil)
	if len(lat) == 1 {
		s.LatencyStdDevMS = 0
	}
	s.LatencyP95MS = stat.Quantile(0.95, stat.Empirical, lat, nil)
	return s
}
