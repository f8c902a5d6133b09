package service

import (
	"github.com/google/uuid"

	"github.com/dramaspikes/gpsAlarmApp/module/core/domain"
	"github.com/dramaspikes/gpsAlarmApp/module/core/geo"
)

// GeofenceEvaluator turns position samples into fire events. It remembers, per
// alarm id, whether the last sample was inside the alarm, and fires only on an
// outside to inside transition. An alarm seen for the first time counts as
// previously outside, except that it never fires on that first observation.
//
// Not safe for concurrent use.
type GeofenceEvaluator struct {
	inside map[int64]bool
	newID  func() string
}

func NewGeofenceEvaluator() *GeofenceEvaluator {
	return &GeofenceEvaluator{
		inside: make(map[int64]bool),
		newID:  uuid.NewString,
	}
}

// Evaluate checks sample against alarms, in order, and returns the fire events
// for alarms the sample has just entered.
func (e *GeofenceEvaluator) Evaluate(sample domain.PositionSample, alarms []domain.Alarm) []domain.FireEvent {
	e.reconcile(alarms)

	var events []domain.FireEvent
	for _, a := range alarms {
		inside := geo.IsInside(sample.Coordinate, a.Center, a.RadiusMeters)

		previous, seen := e.inside[a.ID]
		if seen && !previous && inside {
			events = append(events, domain.FireEvent{
				ID:         e.newID(),
				AlarmID:    a.ID,
				AlarmName:  a.Name,
				Coordinate: sample.Coordinate,
				Timestamp:  sample.Timestamp,
			})
		}
		e.inside[a.ID] = inside
	}
	return events
}

// Tracked returns how many alarms currently have containment state.
func (e *GeofenceEvaluator) Tracked() int {
	return len(e.inside)
}

// Reset forgets all containment state.
func (e *GeofenceEvaluator) Reset() {
	clear(e.inside)
}

// reconcile drops state for alarms that are no longer present.
func (e *GeofenceEvaluator) reconcile(alarms []domain.Alarm) {
	if len(e.inside) == 0 {
		return
	}
	present := make(map[int64]struct{}, len(alarms))
	for _, a := range alarms {
		present[a.ID] = struct{}{}
	}
	for id := range e.inside {
		if _, ok := present[id]; !ok {
			delete(e.inside, id)
		}
	}
}
