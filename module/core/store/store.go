// Package store owns the canonical, in-memory set of alarms.
package store

import (
	"slices"
	"sync"
	"time"

	"github.com/dramaspikes/gpsAlarmApp/module/core/domain"
)

// AlarmStore keeps alarms in insertion order and hands out ids from a
// monotonic counter, so an id is never reused after removal.
type AlarmStore struct {
	mu     sync.RWMutex
	alarms []domain.Alarm
	lastID int64
	now    func() time.Time
}

func New() *AlarmStore {
	return &AlarmStore{now: time.Now}
}

// Add validates and stores a new alarm.
func (s *AlarmStore) Add(name string, center domain.Coordinate, radiusMeters float64) (domain.Alarm, error) {
	if err := domain.ValidateAlarm(name, center, radiusMeters); err != nil {
		return domain.Alarm{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	alarm := domain.Alarm{
		ID:           s.lastID,
		Name:         name,
		Center:       center,
		RadiusMeters: radiusMeters,
		CreatedAt:    s.now().UTC(),
	}
	s.alarms = append(s.alarms, alarm)
	return alarm, nil
}

// Remove deletes the alarm with the given id and reports whether it existed.
func (s *AlarmStore) Remove(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.alarms, func(a domain.Alarm) bool { return a.ID == id })
	if i < 0 {
		return false
	}
	s.alarms = slices.Delete(s.alarms, i, i+1)
	return true
}

// Get returns the alarm with the given id.
func (s *AlarmStore) Get(id int64) (domain.Alarm, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.alarms {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Alarm{}, false
}

// List returns a snapshot of the alarms in insertion order.
func (s *AlarmStore) List() []domain.Alarm {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.alarms)
}

func (s *AlarmStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.alarms)
}

// Restore replaces the contents with previously persisted alarms. The id
// counter is raised to issued or the highest restored id, whichever is larger;
// it never goes down.
func (s *AlarmStore) Restore(alarms []domain.Alarm, issued int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alarms = slices.Clone(alarms)
	slices.SortStableFunc(s.alarms, func(a, b domain.Alarm) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	s.lastID = max(s.lastID, issued)
	for _, a := range s.alarms {
		s.lastID = max(s.lastID, a.ID)
	}
}
