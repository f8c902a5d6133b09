package service

import (
	"context"
	"fmt"

	"github.com/dramaspikes/gpsAlarmApp/internal/logger"
	"github.com/dramaspikes/gpsAlarmApp/module/core/domain"
	"github.com/dramaspikes/gpsAlarmApp/module/core/internal/repository/database"
)

type alarmStore interface {
	Add(name string, center domain.Coordinate, radiusMeters float64) (domain.Alarm, error)
	Remove(id int64) bool
	Get(id int64) (domain.Alarm, bool)
	List() []domain.Alarm
	Count() int
	Restore(alarms []domain.Alarm, issued int64)
}

type tracker interface {
	Reconcile(ctx context.Context) error
	Retry(ctx context.Context) error
	State() TrackingState
}

// AlarmService is the mutation and query surface for alarms. Every change is
// persisted and followed by a tracking reconcile.
type AlarmService struct {
	store   alarmStore
	repo    database.AlarmRepository
	tracker tracker
}

func NewAlarmService(store alarmStore, repo database.AlarmRepository, tracker tracker) *AlarmService {
	return &AlarmService{store: store, repo: repo, tracker: tracker}
}

// AddAlarm stores a new alarm. A *domain.ValidationError means nothing was
// stored. A *domain.SampleSourceError is returned together with the created
// alarm: the alarm exists but tracking could not start.
func (s *AlarmService) AddAlarm(ctx context.Context, in domain.AlarmInput) (domain.Alarm, error) {
	alarm, err := s.store.Add(in.Name, in.Center, in.RadiusMeters)
	if err != nil {
		return domain.Alarm{}, err
	}

	if err := s.repo.Insert(ctx, &alarm); err != nil {
		s.store.Remove(alarm.ID)
		return domain.Alarm{}, fmt.Errorf("persist alarm: %w", err)
	}

	logger.InfoKV(ctx, "alarm added",
		"alarm_id", alarm.ID,
		"name", alarm.Name,
		"radius_meters", alarm.RadiusMeters,
	)

	return alarm, s.tracker.Reconcile(ctx)
}

// RemoveAlarm deletes the alarm with the given id and reports whether it
// existed. Removing an unknown id is not an error.
func (s *AlarmService) RemoveAlarm(ctx context.Context, id int64) (bool, error) {
	if _, ok := s.store.Get(id); !ok {
		return false, nil
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return false, fmt.Errorf("delete alarm %d: %w", id, err)
	}

	if !s.store.Remove(id) {
		return false, nil
	}

	logger.InfoKV(ctx, "alarm removed", "alarm_id", id)

	return true, s.tracker.Reconcile(ctx)
}

func (s *AlarmService) GetAlarm(id int64) (domain.Alarm, bool) {
	return s.store.Get(id)
}

func (s *AlarmService) ListAlarms() []domain.Alarm {
	return s.store.List()
}

func (s *AlarmService) CountAlarms() int {
	return s.store.Count()
}

// StartTracking retries starting the sample source, e.g. after the user
// granted a permission that made the previous attempt fail.
func (s *AlarmService) StartTracking(ctx context.Context) error {
	return s.tracker.Retry(ctx)
}

func (s *AlarmService) TrackingState() TrackingState {
	return s.tracker.State()
}

// Bootstrap loads persisted alarms into the store. Seeds are added only when
// nothing was ever persisted, so a removed seed does not come back.
func (s *AlarmService) Bootstrap(ctx context.Context, seeds []domain.AlarmInput) error {
	alarms, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load alarms: %w", err)
	}

	issued, err := s.repo.MaxID(ctx)
	if err != nil {
		return fmt.Errorf("load alarm id counter: %w", err)
	}

	s.store.Restore(alarms, issued)
	logger.InfoKV(ctx, "alarms restored", "count", len(alarms), "last_id", issued)

	if issued == 0 {
		for _, seed := range seeds {
			alarm, err := s.store.Add(seed.Name, seed.Center, seed.RadiusMeters)
			if err != nil {
				return fmt.Errorf("seed alarm %q: %w", seed.Name, err)
			}
			if err := s.repo.Insert(ctx, &alarm); err != nil {
				s.store.Remove(alarm.ID)
				return fmt.Errorf("persist seed alarm %q: %w", seed.Name, err)
			}
			logger.InfoKV(ctx, "seed alarm added", "alarm_id", alarm.ID, "name", alarm.Name)
		}
	}

	return s.tracker.Reconcile(ctx)
}
