package service

import (
	"context"
	"sync"

	"github.com/dramaspikes/gpsAlarmApp/module/core/domain"
)

type fakeSampleSource struct {
	startFn func(ctx context.Context) error
	stopFn  func() error

	mu      sync.Mutex
	starts  int
	stops   int
	handler SampleHandler
}

func (f *fakeSampleSource) Start(ctx context.Context, handle SampleHandler) error {
	f.mu.Lock()
	f.starts++
	f.mu.Unlock()

	if f.startFn != nil {
		if err := f.startFn(ctx); err != nil {
			return err
		}
	}

	f.mu.Lock()
	f.handler = handle
	f.mu.Unlock()
	return nil
}

func (f *fakeSampleSource) Stop() error {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()

	if f.stopFn != nil {
		return f.stopFn()
	}
	return nil
}

// deliver pushes a sample through the handler given to Start, as a real source would.
func (f *fakeSampleSource) deliver(sample domain.PositionSample) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()

	if h != nil {
		h(context.Background(), sample)
	}
}

func (f *fakeSampleSource) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.starts, f.stops
}

type mockFirePublisher struct {
	publishFireFn func(ctx context.Context, event *domain.FireEvent) error

	mu    sync.Mutex
	calls []*domain.FireEvent
}

func (m *mockFirePublisher) PublishFire(ctx context.Context, event *domain.FireEvent) error {
	m.mu.Lock()
	m.calls = append(m.calls, event)
	m.mu.Unlock()

	if m.publishFireFn != nil {
		return m.publishFireFn(ctx, event)
	}
	return nil
}

func (m *mockFirePublisher) fired() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.calls))
	for _, ev := range m.calls {
		ids = append(ids, ev.AlarmID)
	}
	return ids
}

type mockAlarmRepo struct {
	insertFn func(ctx context.Context, alarm *domain.Alarm) error
	deleteFn func(ctx context.Context, id int64) error
	listFn   func(ctx context.Context) ([]domain.Alarm, error)
	maxIDFn  func(ctx context.Context) (int64, error)

	mu       sync.Mutex
	inserted []domain.Alarm
	deleted  []int64
}

func (m *mockAlarmRepo) Insert(ctx context.Context, alarm *domain.Alarm) error {
	if m.insertFn != nil {
		if err := m.insertFn(ctx, alarm); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.inserted = append(m.inserted, *alarm)
	m.mu.Unlock()
	return nil
}

func (m *mockAlarmRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		if err := m.deleteFn(ctx, id); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.deleted = append(m.deleted, id)
	m.mu.Unlock()
	return nil
}

func (m *mockAlarmRepo) List(ctx context.Context) ([]domain.Alarm, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockAlarmRepo) MaxID(ctx context.Context) (int64, error) {
	if m.maxIDFn != nil {
		return m.maxIDFn(ctx)
	}
	return 0, nil
}
