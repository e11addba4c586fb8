package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	coremetrics "github.com/kilianp07/bussim/core/metrics"
	"github.com/kilianp07/bussim/core/model"
	coremqtt "github.com/kilianp07/bussim/core/mqtt"
	"github.com/kilianp07/bussim/infra/logger"
)

// State is the lifecycle stage of a bus worker.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateRunning
	StateDisconnecting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateRunning:
		return "running"
	case StateDisconnecting:
		return "disconnecting"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Bus simulates one vehicle publishing its position over its own broker connection.
type Bus struct {
	BusConfig

	Publisher coremqtt.Publisher
	Rand      *rand.Rand
	Now       func() time.Time
	Logger    logger.Logger
	Metrics   coremetrics.MetricsSink
	RunID     string

	state atomic.Int32
}

// NewBus creates a bus with default collaborators. Callers may replace the
// exported fields before Run.
func NewBus(cfg BusConfig, pub coremqtt.Publisher) *Bus {
	cfg.SetDefaults()
	return &Bus{
		BusConfig: cfg,
		Publisher: pub,
		Rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		Now:       time.Now,
		Logger:    logger.NopLogger{},
		Metrics:   coremetrics.NopSink{},
	}
}

// State returns the current lifecycle stage.
func (b *Bus) State() State { return State(b.state.Load()) }

func (b *Bus) setState(s State) { b.state.Store(int32(s)) }

// statusAt returns the status carried by the message of iteration i.
func (b *Bus) statusAt(i int) model.Status {
	if i == b.Iterations-1 && b.TerminalStatus == model.StatusFinished {
		return model.StatusFinished
	}
	return model.StatusInRoute
}

// Run connects, publishes Iterations location messages spaced by Interval and
// disconnects. The connection is released on every exit path once opened.
// Cancelling ctx interrupts the wait between two messages.
func (b *Bus) Run(ctx context.Context) (res BusResult, err error) {
	if err := b.Validate(); err != nil {
		return BusResult{DriverID: b.DriverID, RouteID: b.RouteID}, err
	}
	topic := coremqtt.LocationTopic(b.TopicPrefix, b.DriverID)
	res = BusResult{DriverID: b.DriverID, RouteID: b.RouteID, Topic: topic}
	start := b.Now()
	defer func() { res.Duration = b.Now().Sub(start) }()

	if err := ctx.Err(); err != nil {
		b.setState(StateDone)
		return res, err
	}

	b.setState(StateConnecting)
	if err := b.Publisher.Connect(); err != nil {
		b.setState(StateDone)
		return res, err
	}
	defer func() {
		b.setState(StateDisconnecting)
		b.Publisher.Disconnect()
		b.setState(StateDone)
	}()

	b.setState(StateRunning)
	b.Logger.Infof("bus started on %s (%d messages every %s)", topic, b.Iterations, b.Interval)

	pos := startPosition(b.Rand, b.BaseLatitude, b.BaseLongitude)
	var lastTS int64
	for i := 0; i < b.Iterations; i++ {
		pos = move(b.Rand, pos, b.Jitter)
		ts := b.Now().UnixMilli()
		if ts < lastTS {
			ts = lastTS
		}
		lastTS = ts
		msg := model.LocationMessage{
			DriverID:       b.DriverID,
			DriverLocation: pos,
			Timestamp:      ts,
			CurrentRouteID: b.RouteID,
			Status:         b.statusAt(i),
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			return res, fmt.Errorf("encode message %d: %w", i, err)
		}

		sent := b.Now()
		pubErr := b.Publisher.Publish(topic, payload)
		latency := b.Now().Sub(sent)
		b.record(msg, topic, latency, pubErr != nil)
		if pubErr != nil {
			b.Logger.Errorf("publish %d/%d failed: %v", i+1, b.Iterations, pubErr)
			return res, pubErr
		}
		res.add(msg, latency)
		b.Logger.Infof("sent %s", payload)

		if i < b.Iterations-1 {
			if err := sleepCtx(ctx, b.Interval); err != nil {
				b.Logger.Warnf("stopped after %d/%d messages: %v", i+1, b.Iterations, err)
				return res, err
			}
		}
	}
	b.Logger.Infof("bus completed %d messages, last status %s", res.Published, res.LastStatus)
	return res, nil
}

func (b *Bus) record(msg model.LocationMessage, topic string, latency time.Duration, failed bool) {
	if b.Metrics == nil {
		return
	}
	err := b.Metrics.RecordPublish(coremetrics.PublishEvent{
		RunID:    b.RunID,
		DriverID: msg.DriverID,
		RouteID:  msg.CurrentRouteID,
		Topic:    topic,
		Status:   msg.Status,
		Location: msg.DriverLocation,
		Latency:  latency,
		Failed:   failed,
		Time:     time.UnixMilli(msg.Timestamp),
	})
	if err != nil {
		b.Logger.Warnf("record publish metric: %v", err)
	}
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
