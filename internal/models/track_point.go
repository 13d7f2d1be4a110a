package models

import "time"

// TrackPoint represents a single immutable GPS fix.
type TrackPoint struct {
	ID        int64   `json:"id" db:"id"`
	UserID    string  `json:"userId" db:"user_id"`
	Timestamp int64   `json:"timestamp" db:"timestamp"` // Unix timestamp in seconds
	Longitude float64 `json:"longitude" db:"longitude"`
	Latitude  float64 `json:"latitude" db:"latitude"`

	// Accuracy is the horizontal accuracy radius in meters; larger means noisier.
	// Nil when the source did not report one.
	Accuracy *float64 `json:"accuracy,omitempty" db:"accuracy"`

	// Velocity is the speed in km/h, sensor-reported or derived upstream.
	// Nil when missing; consumers must fall back to spatial heuristics.
	Velocity *float64 `json:"velocity,omitempty" db:"velocity"`
}

// Time returns the fix timestamp as time.Time.
func (p TrackPoint) Time() time.Time {
	return time.Unix(p.Timestamp, 0)
}

// HasVelocity reports whether a usable velocity reading is present.
func (p TrackPoint) HasVelocity() bool {
	return p.Velocity != nil && *p.Velocity >= 0
}

// HasAccuracy reports whether a usable accuracy estimate is present.
func (p TrackPoint) HasAccuracy() bool {
	return p.Accuracy != nil && *p.Accuracy > 0
}

// ValidCoordinates reports whether latitude/longitude are physically possible.
// Out-of-range fixes are skipped with a warning, never fatal.
func (p TrackPoint) ValidCoordinates() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// TrackPointFilter represents filter parameters for querying track points.
type TrackPointFilter struct {
	UserID    string `form:"userId"`
	StartTime int64  `form:"startTime"` // Unix timestamp
	EndTime   int64  `form:"endTime"`   // Unix timestamp
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}
