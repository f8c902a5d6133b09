package domain

import "time"

// Coordinate is a WGS 84 point in degrees.
type Coordinate struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

func (c Coordinate) Validate() error {
	// Written as negated ranges so NaN fails too.
	if !(c.Lat >= -90 && c.Lat <= 90) {
		return &ValidationError{Field: "latitude", Reason: "must be between -90 and 90"}
	}
	if !(c.Lon >= -180 && c.Lon <= 180) {
		return &ValidationError{Field: "longitude", Reason: "must be between -180 and 180"}
	}
	return nil
}

// PositionSample is one timestamped reading from the position source.
// DeviceID only identifies the reporter in logs.
type PositionSample struct {
	DeviceID   string
	Coordinate Coordinate
	Timestamp  time.Time
}
