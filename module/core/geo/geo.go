// Package geo holds the distance and containment math used by the alarm
// engine. All distances are in meters.
package geo

import (
	"math"

	"github.com/dramaspikes/gpsAlarmApp/module/core/domain"
)

const EarthRadiusMeters = 6371000

// DistanceMeters returns the great-circle distance between a and b using the
// haversine formula on a spherical earth.
func DistanceMeters(a, b domain.Coordinate) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// IsInside reports whether point lies within radiusMeters of center.
// The boundary counts as inside.
func IsInside(point, center domain.Coordinate, radiusMeters float64) bool {
	return DistanceMeters(point, center) <= radiusMeters
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
