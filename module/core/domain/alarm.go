package domain

import (
	"strings"
	"time"
)

const (
	MinRadiusMeters = 10
	MaxRadiusMeters = 2000
)

// Alarm is a named circular geofence. It is immutable once created; editing is
// remove plus add.
type Alarm struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Center       Coordinate `json:"center"`
	RadiusMeters float64    `json:"radius_meters"`
	CreatedAt    time.Time  `json:"created_at"`
}

type FireEventType string

const AlarmFired FireEventType = "alarm_fired"

// FireEvent is emitted once per outside to inside transition of an alarm.
type FireEvent struct {
	ID         string     `json:"event_id"`
	AlarmID    int64      `json:"alarm_id"`
	AlarmName  string     `json:"alarm_name"`
	Coordinate Coordinate `json:"location"`
	Timestamp  time.Time  `json:"timestamp"`
}

// ValidateAlarm checks the caller supplied fields of a new alarm.
func ValidateAlarm(name string, center Coordinate, radiusMeters float64) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if !(radiusMeters >= MinRadiusMeters && radiusMeters <= MaxRadiusMeters) {
		return &ValidationError{Field: "radius_meters", Reason: "must be between 10 and 2000"}
	}
	return center.Validate()
}

// AlarmInput is the caller supplied part of an alarm, as read from a seed file
// or an API request.
type AlarmInput struct {
	Name         string
	Center       Coordinate
	RadiusMeters float64
}
