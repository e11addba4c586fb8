package simulator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReportSummary(t *testing.T) {
	ms := func(v ...int) []time.Duration {
		out := make([]time.Duration, len(v))
		for i, x := range v {
			out[i] = time.Duration(x) * time.Millisecond
		}
		return out
	}
	r := Report{Results: []BusResult{
		{DriverID: "driver-100", Published: 3, Latencies: ms(1, 2, 3)},
		{DriverID: "driver-101", Published: 2, Latencies: ms(4, 5), Err: errors.New("boom")},
	}}
	s := r.Summary()
	assert.Equal(t, 2, s.Buses)
	assert.Equal(t, 1, s.FailedBuses)
	assert.Equal(t, 5, s.Messages)
	assert.InDelta(t, 3.0, s.LatencyMeanMS, 1e-9)
	assert.InDelta(t, 1.5811, s.LatencyStdDevMS, 1e-3)
	assert.InDelta(t, 5.0, s.LatencyP95MS, 1e-9)
}

func TestReportSummaryEdgeCases(t *testing.T) {
	assert.Equal(t, Summary{}, Report{}.Summary())

	s := Report{Results: []BusResult{{Published: 1, Latencies: []time.Duration{time.Millisecond}}}}.Summary()
	assert.Equal(t, 1.0, s.LatencyMeanMS)
	assert.Equal(t, 0.0, s.LatencyStdDevMS)
}

func TestReportErr(t *testing.T) {
	boom := errors.New("boom")
	r := Report{Results: []BusResult{{DriverID: "driver-100"}, {DriverID: "driver-101", Err: boom}}}
	err := r.Err()
	assert.ErrorIs(t, err, boom)
	assert.EqualError(t, err, "driver-101: boom")

	assert.NoError(t, Report{Results: []BusResult{{DriverID: "driver-100"}}}.Err())
}
