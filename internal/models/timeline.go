package models

// TravelMode classifies how a trip was traveled.
type TravelMode string

const (
	TravelModeCar     TravelMode = "CAR"
	TravelModeWalk    TravelMode = "WALK"
	TravelModeUnknown TravelMode = "UNKNOWN"
)

// DataSource describes how a timeline snapshot was produced.
type DataSource string

const (
	DataSourceLive         DataSource = "LIVE"
	DataSourceCached       DataSource = "CACHED"
	DataSourceMixed        DataSource = "MIXED"
	DataSourceRegenerating DataSource = "REGENERATING"
)

// TimelineStayPoint is a contiguous period where the user remained within a
// small radius. Coordinates are the weighted centroid of the fix cluster.
// Transformations produce new values; stays are never mutated in place, with
// the single exception of the overnight end-boundary extension.
type TimelineStayPoint struct {
	ID     int64  `json:"id" db:"id"`
	UserID string `json:"userId" db:"user_id"`

	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`

	StartTime       int64 `json:"startTime" db:"start_time"` // Unix timestamp
	EndTime         int64 `json:"endTime" db:"end_time"`     // Unix timestamp
	DurationSeconds int64 `json:"durationSeconds" db:"duration_seconds"`

	// LocationKey is the stable place identity resolved by the geocoding
	// collaborator; empty when unresolved. Used for merge-identity comparison.
	LocationKey string `json:"locationKey,omitempty" db:"location_key"`
	// Label is the human-readable place name shown to the user.
	Label string `json:"label,omitempty" db:"label"`

	PointCount int `json:"pointCount,omitempty" db:"point_count"`

	VersionHash string `json:"versionHash,omitempty" db:"version_hash"`
	Stale       bool   `json:"stale,omitempty" db:"stale"`
}

// Duration recomputes duration from the boundaries. Invariant: EndTime >= StartTime.
func (s TimelineStayPoint) Duration() int64 {
	return s.EndTime - s.StartTime
}

// TimelineTrip is a contiguous period of movement between two stays.
// Invariant: Path has at least 2 points; DistanceKm is polyline length,
// not displacement.
type TimelineTrip struct {
	ID     int64  `json:"id" db:"id"`
	UserID string `json:"userId" db:"user_id"`

	StartTimestamp int64 `json:"startTimestamp" db:"start_time"`
	EndTimestamp   int64 `json:"endTimestamp" db:"end_time"`

	Path []TrackPoint `json:"path" db:"-"`

	DistanceKm      float64    `json:"distanceKm" db:"distance_km"`
	DurationMinutes float64    `json:"durationMinutes" db:"duration_minutes"`
	TravelMode      TravelMode `json:"travelMode" db:"travel_mode"`

	VersionHash string `json:"versionHash,omitempty" db:"version_hash"`
	Stale       bool   `json:"stale,omitempty" db:"stale"`
}

// TripGpsStatistics aggregates inter-point speeds for one trip after
// non-physical outliers are filtered. Purely computed, never persisted alone.
type TripGpsStatistics struct {
	AvgSpeedKmh float64 `json:"avgSpeedKmh"`
	MaxSpeedKmh float64 `json:"maxSpeedKmh"`
	SampleCount int     `json:"sampleCount"`
}

// DataGap is a period with no usable GPS fixes above the minimum duration.
type DataGap struct {
	ID     int64  `json:"id" db:"id"`
	UserID string `json:"userId" db:"user_id"`

	StartTime       int64   `json:"startTime" db:"start_time"`
	EndTime         int64   `json:"endTime" db:"end_time"`
	DurationMinutes float64 `json:"durationMinutes" db:"duration_minutes"`

	VersionHash string `json:"versionHash,omitempty" db:"version_hash"`
}

// TimelineSnapshot is the assembled output for one query window.
type TimelineSnapshot struct {
	UserID             string              `json:"userId"`
	Stays              []TimelineStayPoint `json:"stays"`
	Trips              []TimelineTrip      `json:"trips"`
	DataGaps           []DataGap           `json:"dataGaps"`
	DataSource         DataSource          `json:"dataSource"`
	VersionFingerprint string              `json:"versionFingerprint,omitempty"`
	IsStale            bool                `json:"isStale"`
}

// TimelineFilter represents query parameters for timeline requests.
type TimelineFilter struct {
	UserID    string `form:"userId"`
	StartTime int64  `form:"startTime"` // Unix timestamp
	EndTime   int64  `form:"endTime"`   // Unix timestamp
}
