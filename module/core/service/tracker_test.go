package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dramaspikes/gpsAlarmApp/module/core/domain"
	"github.com/dramaspikes/gpsAlarmApp/module/core/store"
)

func newTestController(t *testing.T) (*store.AlarmStore, *fakeSampleSource, *mockFirePublisher, *TrackingController) {
	t.Helper()

	s := store.New()
	src := &fakeSampleSource{}
	pub := &mockFirePublisher{}
	return s, src, pub, NewTrackingController(s, src, pub)
}

func TestReconcile_StartsOnceAndStopsOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, src, _, c := newTestController(t)

	require.NoError(t, c.Reconcile(ctx))
	require.Equal(t, TrackingIdle, c.State())

	a, err := s.Add("A", origin, 100)
	require.NoError(t, err)
	require.NoError(t, c.Reconcile(ctx))
	require.Equal(t, TrackingActive, c.State())

	b, err := s.Add("B", origin, 100)
	require.NoError(t, err)
	require.NoError(t, c.Reconcile(ctx))

	starts, stops := src.counts()
	require.Equal(t, 1, starts)
	require.Zero(t, stops)

	s.Remove(a.ID)
	require.NoError(t, c.Reconcile(ctx))
	require.Equal(t, TrackingActive, c.State())

	s.Remove(b.ID)
	require.NoError(t, c.Reconcile(ctx))
	require.NoError(t, c.Reconcile(ctx))
	require.Equal(t, TrackingIdle, c.State())

	starts, stops = src.counts()
	require.Equal(t, 1, starts)
	require.Equal(t, 1, stops)
}

func TestReconcile_StartFailureStaysIdle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, src, _, c := newTestController(t)
	denied := errors.New("location permission denied")
	src.startFn = func(context.Context) error { return denied }

	_, err := s.Add("A", origin, 100)
	require.NoError(t, err)

	err = c.Reconcile(ctx)
	require.ErrorIs(t, err, domain.ErrSampleSource)
	require.ErrorIs(t, err, denied)
	require.Equal(t, TrackingIdle, c.State())

	// no automatic retry; the caller retries after the permission is granted
	src.startFn = nil
	require.NoError(t, c.Reconcile(ctx))
	require.Equal(t, TrackingIdle, c.State())

	require.NoError(t, c.Retry(ctx))
	require.Equal(t, TrackingActive, c.State())

	starts, _ := src.counts()
	require.Equal(t, 2, starts)
}

func TestReconcile_RetriesOnlyOnZeroToOne(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, src, _, c := newTestController(t)
	src.startFn = func(context.Context) error { return errors.New("location permission denied") }

	a, err := s.Add("A", origin, 100)
	require.NoError(t, err)
	require.ErrorIs(t, c.Reconcile(ctx), domain.ErrSampleSource)

	// 1 -> 2 while idle is not a start trigger
	src.startFn = nil
	b, err := s.Add("B", origin, 100)
	require.NoError(t, err)
	require.NoError(t, c.Reconcile(ctx))
	require.Equal(t, TrackingIdle, c.State())

	starts, stops := src.counts()
	require.Equal(t, 1, starts)

	// 2 -> 0 while idle does not stop a source that never started
	s.Remove(a.ID)
	s.Remove(b.ID)
	require.NoError(t, c.Reconcile(ctx))
	starts, stops = src.counts()
	require.Equal(t, 1, starts)
	require.Zero(t, stops)

	// 0 -> 1 starts again
	_, err = s.Add("C", origin, 100)
	require.NoError(t, err)
	require.NoError(t, c.Reconcile(ctx))
	require.Equal(t, TrackingActive, c.State())

	starts, _ = src.counts()
	require.Equal(t, 2, starts)
}

func TestRetry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, src, _, c := newTestController(t)

	// nothing to track
	require.NoError(t, c.Retry(ctx))
	require.Equal(t, TrackingIdle, c.State())

	_, err := s.Add("A", origin, 100)
	require.NoError(t, err)
	require.NoError(t, c.Retry(ctx))
	require.Equal(t, TrackingActive, c.State())

	// already tracking
	require.NoError(t, c.Retry(ctx))
	require.NoError(t, c.Reconcile(ctx))

	starts, _ := src.counts()
	require.Equal(t, 1, starts)
}

func TestReconcile_KeepsSourceErrorAsIs(t *testing.T) {
	t.Parallel()

	s, src, _, c := newTestController(t)
	sourceErr := &domain.SampleSourceError{Err: errors.New("broker unreachable")}
	src.startFn = func(context.Context) error { return sourceErr }

	_, err := s.Add("A", origin, 100)
	require.NoError(t, err)

	err = c.Reconcile(context.Background())
	require.Same(t, sourceErr, err)
}

func TestHandleSample_ForwardsFireEvents(t *testing.T) {
	t.Parallel()

	s, src, pub, c := newTestController(t)

	a, err := s.Add("Origin", origin, 1000)
	require.NoError(t, err)
	require.NoError(t, c.Reconcile(context.Background()))

	for i, p := range []domain.Coordinate{farFromOrigin, farFromOrigin, nearOrigin, origin, farFromOrigin, nearOrigin} {
		src.deliver(sampleAt(p, int64(i)))
	}

	require.Equal(t, []int64{a.ID, a.ID}, pub.fired())
}

func TestHandleSample_DroppedWhileIdle(t *testing.T) {
	t.Parallel()

	s, _, pub, c := newTestController(t)

	_, err := s.Add("Origin", origin, 1000)
	require.NoError(t, err)

	c.HandleSample(context.Background(), sampleAt(farFromOrigin, 0))
	c.HandleSample(context.Background(), sampleAt(origin, 1))

	require.Empty(t, pub.fired())
}

func TestHandleSample_AfterStopIsIgnored(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, src, pub, c := newTestController(t)

	a, err := s.Add("Origin", origin, 1000)
	require.NoError(t, err)
	require.NoError(t, c.Reconcile(ctx))
	src.deliver(sampleAt(farFromOrigin, 0))

	s.Remove(a.ID)
	require.NoError(t, c.Reconcile(ctx))

	src.deliver(sampleAt(origin, 1))
	require.Empty(t, pub.fired())
}

func TestHandleSample_RemovedAlarmDoesNotFire(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, src, pub, c := newTestController(t)

	keep, err := s.Add("Keep", domain.Coordinate{Lat: 10, Lon: 10}, 100)
	require.NoError(t, err)
	gone, err := s.Add("Gone", origin, 1000)
	require.NoError(t, err)
	require.NoError(t, c.Reconcile(ctx))

	src.deliver(sampleAt(farFromOrigin, 0))
	src.deliver(sampleAt(origin, 1))
	require.Equal(t, []int64{gone.ID}, pub.fired())

	// removed while inside, then re-added with a new id
	s.Remove(gone.ID)
	require.NoError(t, c.Reconcile(ctx))
	src.deliver(sampleAt(origin, 2))

	again, err := s.Add("Gone", origin, 1000)
	require.NoError(t, err)
	require.NotEqual(t, gone.ID, again.ID)

	src.deliver(sampleAt(origin, 3))
	require.Equal(t, []int64{gone.ID}, pub.fired())

	src.deliver(sampleAt(farFromOrigin, 4))
	src.deliver(sampleAt(origin, 5))
	require.Equal(t, []int64{gone.ID, again.ID}, pub.fired())
	require.NotContains(t, pub.fired(), keep.ID)
}

func TestHandleSample_SinkErrorDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	s, src, pub, c := newTestController(t)
	pub.publishFireFn = func(context.Context, *domain.FireEvent) error {
		return errors.New("rabbitmq down")
	}

	_, err := s.Add("big", origin, 2000)
	require.NoError(t, err)
	_, err = s.Add("small", origin, 50)
	require.NoError(t, err)
	require.NoError(t, c.Reconcile(context.Background()))

	src.deliver(sampleAt(farFromOrigin, 0))
	src.deliver(sampleAt(origin, 1))

	require.Len(t, pub.fired(), 2)
}

func TestClose(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, src, _, c := newTestController(t)

	c.Close(ctx)
	_, stops := src.counts()
	require.Zero(t, stops)

	_, err := s.Add("A", origin, 100)
	require.NoError(t, err)
	require.NoError(t, c.Reconcile(ctx))

	c.Close(ctx)
	_, stops = src.counts()
	require.Equal(t, 1, stops)
	require.Equal(t, TrackingIdle, c.State())
}

func TestTrackingStateString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "idle", TrackingIdle.String())
	require.Equal(t, "tracking", TrackingActive.String())
}
