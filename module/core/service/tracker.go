package service

import (
	"context"
	"errors"
	"sync"

	"github.com/dramaspikes/gpsAlarmApp/internal/logger"
	"github.com/dramaspikes/gpsAlarmApp/module/core/domain"
	"github.com/dramaspikes/gpsAlarmApp/module/core/internal/repository/publisher"
)

type TrackingState int

const (
	TrackingIdle TrackingState = iota
	TrackingActive
)

func (s TrackingState) String() string {
	if s == TrackingActive {
		return "tracking"
	}
	return "idle"
}

// SampleHandler receives position samples from a SampleSource.
type SampleHandler func(ctx context.Context, sample domain.PositionSample)

// SampleSource delivers position samples once started. Start fails when the
// source cannot deliver, e.g. permission denied or broker unreachable.
type SampleSource interface {
	Start(ctx context.Context, handle SampleHandler) error
	Stop() error
}

type alarmLister interface {
	List() []domain.Alarm
	Count() int
}

// TrackingController runs the sample source while at least one alarm exists
// and feeds every delivered sample through a GeofenceEvaluator.
type TrackingController struct {
	alarms alarmLister
	source SampleSource
	sink   publisher.FirePublisher

	// lifecycle serializes Start/Stop of the source and guards lastCount.
	lifecycle sync.Mutex
	lastCount int

	// mu guards state and evaluator.
	mu        sync.Mutex
	state     TrackingState
	evaluator *GeofenceEvaluator
}

func NewTrackingController(alarms alarmLister, source SampleSource, sink publisher.FirePublisher) *TrackingController {
	return &TrackingController{
		alarms:    alarms,
		source:    source,
		sink:      sink,
		evaluator: NewGeofenceEvaluator(),
	}
}

func (c *TrackingController) State() TrackingState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Reconcile starts the source when the alarm count went from zero to at least
// one since the previous reconcile, and stops it when no alarms are left. A
// start failure is returned as a *domain.SampleSourceError and leaves the
// controller idle until Retry or the next zero to one transition.
func (c *TrackingController) Reconcile(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	count := c.alarms.Count()
	previous := c.lastCount
	c.lastCount = count
	state := c.State()

	switch {
	case count > 0 && previous == 0 && state == TrackingIdle:
		return c.start(ctx)
	case count == 0 && state == TrackingActive:
		c.stop(ctx)
	}
	return nil
}

// Retry starts the source if alarms exist and tracking is idle, e.g. after
// the failure reported by Reconcile was resolved.
func (c *TrackingController) Retry(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.lastCount = c.alarms.Count()
	if c.lastCount > 0 && c.State() == TrackingIdle {
		return c.start(ctx)
	}
	return nil
}

// Close stops the source if it is running.
func (c *TrackingController) Close(ctx context.Context) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.State() == TrackingActive {
		c.stop(ctx)
	}
}

// HandleSample evaluates one sample and forwards the resulting fire events to
// the sink. Samples delivered while idle are dropped.
func (c *TrackingController) HandleSample(ctx context.Context, sample domain.PositionSample) {
	c.mu.Lock()
	if c.state != TrackingActive {
		c.mu.Unlock()
		logger.DebugKV(ctx, "sample dropped, tracking is idle", "device_id", sample.DeviceID)
		return
	}
	events := c.evaluator.Evaluate(sample, c.alarms.List())
	c.mu.Unlock()

	for i := range events {
		ev := &events[i]
		logger.InfoKV(ctx, "alarm fired",
			"alarm_id", ev.AlarmID,
			"alarm_name", ev.AlarmName,
			"event_id", ev.ID,
		)
		if err := c.sink.PublishFire(ctx, ev); err != nil {
			logger.ErrorKV(ctx, "publish fire event failed", "alarm_id", ev.AlarmID, "error", err)
		}
	}
}

func (c *TrackingController) start(ctx context.Context) error {
	c.setState(TrackingActive)

	if err := c.source.Start(ctx, c.HandleSample); err != nil {
		c.setState(TrackingIdle)

		var sourceErr *domain.SampleSourceError
		if !errors.As(err, &sourceErr) {
			err = &domain.SampleSourceError{Err: err}
		}
		logger.WarnKV(ctx, "tracking not started", "error", err)
		return err
	}

	logger.Info(ctx, "tracking started")
	return nil
}

func (c *TrackingController) stop(ctx context.Context) {
	c.setState(TrackingIdle)

	if err := c.source.Stop(); err != nil {
		logger.WarnKV(ctx, "stop sample source", "error", err)
		return
	}
	logger.Info(ctx, "tracking stopped")
}

func (c *TrackingController) setState(state TrackingState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == state {
		return
	}
	c.state = state
	c.evaluator.Reset()
}
