package models

import "fmt"

// Detector algorithm names selectable via config. Unknown names are rejected
// at config-validation time, before any points are processed.
const (
	DetectorAlgorithmSimple   = "simple"
	DetectorAlgorithmEnhanced = "enhanced"
)

// TimelineConfig is the immutable set of segmentation tunables. Speeds are
// km/h, distances meters unless the field name says otherwise.
type TimelineConfig struct {
	StaypointVelocityThreshold    float64 `json:"staypointVelocityThreshold"`    // km/h; below = stationary
	StaypointMaxAccuracyThreshold float64 `json:"staypointMaxAccuracyThreshold"` // meters
	StaypointMinAccuracyRatio     float64 `json:"staypointMinAccuracyRatio"`     // 0..1
	StaypointRadiusMeters         float64 `json:"staypointRadiusMeters"`

	TripMinDistanceMeters  float64 `json:"tripMinDistanceMeters"`
	TripMinDurationMinutes float64 `json:"tripMinDurationMinutes"`

	MergeEnabled           bool    `json:"mergeEnabled"`
	MergeMaxDistanceMeters float64 `json:"mergeMaxDistanceMeters"`
	MergeMaxTimeGapMinutes float64 `json:"mergeMaxTimeGapMinutes"`

	GapMinDurationMinutes float64 `json:"gapMinDurationMinutes"`

	CarMinAvgSpeed     float64 `json:"carMinAvgSpeed"`     // km/h
	CarMinMaxSpeed     float64 `json:"carMinMaxSpeed"`     // km/h
	WalkingMaxAvgSpeed float64 `json:"walkingMaxAvgSpeed"` // km/h
	WalkingMaxMaxSpeed float64 `json:"walkingMaxMaxSpeed"` // km/h
	ShortDistanceKm    float64 `json:"shortDistanceKm"`

	// MaxPlausibleSpeedKmh is the ceiling above which an inter-point speed is
	// treated as a GPS glitch and excluded from statistics.
	MaxPlausibleSpeedKmh float64 `json:"maxPlausibleSpeedKmh"`

	DetectorAlgorithm string `json:"detectorAlgorithm"`
}

// TimelineConfigOverride carries per-user tunables. Nil fields fall through to
// the global defaults; non-nil fields win.
type TimelineConfigOverride struct {
	StaypointVelocityThreshold    *float64 `json:"staypointVelocityThreshold,omitempty"`
	StaypointMaxAccuracyThreshold *float64 `json:"staypointMaxAccuracyThreshold,omitempty"`
	StaypointMinAccuracyRatio     *float64 `json:"staypointMinAccuracyRatio,omitempty"`
	StaypointRadiusMeters         *float64 `json:"staypointRadiusMeters,omitempty"`
	TripMinDistanceMeters         *float64 `json:"tripMinDistanceMeters,omitempty"`
	TripMinDurationMinutes        *float64 `json:"tripMinDurationMinutes,omitempty"`
	MergeEnabled                  *bool    `json:"mergeEnabled,omitempty"`
	MergeMaxDistanceMeters        *float64 `json:"mergeMaxDistanceMeters,omitempty"`
	MergeMaxTimeGapMinutes        *float64 `json:"mergeMaxTimeGapMinutes,omitempty"`
	GapMinDurationMinutes         *float64 `json:"gapMinDurationMinutes,omitempty"`
	CarMinAvgSpeed                *float64 `json:"carMinAvgSpeed,omitempty"`
	CarMinMaxSpeed                *float64 `json:"carMinMaxSpeed,omitempty"`
	WalkingMaxAvgSpeed            *float64 `json:"walkingMaxAvgSpeed,omitempty"`
	WalkingMaxMaxSpeed            *float64 `json:"walkingMaxMaxSpeed,omitempty"`
	ShortDistanceKm               *float64 `json:"shortDistanceKm,omitempty"`
	MaxPlausibleSpeedKmh          *float64 `json:"maxPlausibleSpeedKmh,omitempty"`
	DetectorAlgorithm             *string  `json:"detectorAlgorithm,omitempty"`
}

// DefaultTimelineConfig returns the global default tunables.
func DefaultTimelineConfig() TimelineConfig {
	return TimelineConfig{
		StaypointVelocityThreshold:    4.0,
		StaypointMaxAccuracyThreshold: 50.0,
		StaypointMinAccuracyRatio:     0.5,
		StaypointRadiusMeters:         80.0,
		TripMinDistanceMeters:         100.0,
		TripMinDurationMinutes:        5.0,
		MergeEnabled:                  true,
		MergeMaxDistanceMeters:        150.0,
		MergeMaxTimeGapMinutes:        10.0,
		GapMinDurationMinutes:         60.0,
		CarMinAvgSpeed:                25.0,
		CarMinMaxSpeed:                50.0,
		WalkingMaxAvgSpeed:            7.0,
		WalkingMaxMaxSpeed:            12.0,
		ShortDistanceKm:               1.0,
		MaxPlausibleSpeedKmh:          300.0,
		DetectorAlgorithm:             DetectorAlgorithmEnhanced,
	}
}

// MergeOverride applies a per-user override onto the receiver, field by field.
// A nil override returns the receiver unchanged.
func (c TimelineConfig) MergeOverride(o *TimelineConfigOverride) TimelineConfig {
	if o == nil {
		return c
	}
	if o.StaypointVelocityThreshold != nil {
		c.StaypointVelocityThreshold = *o.StaypointVelocityThreshold
	}
	if o.StaypointMaxAccuracyThreshold != nil {
		c.StaypointMaxAccuracyThreshold = *o.StaypointMaxAccuracyThreshold
	}
	if o.StaypointMinAccuracyRatio != nil {
		c.StaypointMinAccuracyRatio = *o.StaypointMinAccuracyRatio
	}
	if o.StaypointRadiusMeters != nil {
		c.StaypointRadiusMeters = *o.StaypointRadiusMeters
	}
	if o.TripMinDistanceMeters != nil {
		c.TripMinDistanceMeters = *o.TripMinDistanceMeters
	}
	if o.TripMinDurationMinutes != nil {
		c.TripMinDurationMinutes = *o.TripMinDurationMinutes
	}
	if o.MergeEnabled != nil {
		c.MergeEnabled = *o.MergeEnabled
	}
	if o.MergeMaxDistanceMeters != nil {
		c.MergeMaxDistanceMeters = *o.MergeMaxDistanceMeters
	}
	if o.MergeMaxTimeGapMinutes != nil {
		c.MergeMaxTimeGapMinutes = *o.MergeMaxTimeGapMinutes
	}
	if o.GapMinDurationMinutes != nil {
		c.GapMinDurationMinutes = *o.GapMinDurationMinutes
	}
	if o.CarMinAvgSpeed != nil {
		c.CarMinAvgSpeed = *o.CarMinAvgSpeed
	}
	if o.CarMinMaxSpeed != nil {
		c.CarMinMaxSpeed = *o.CarMinMaxSpeed
	}
	if o.WalkingMaxAvgSpeed != nil {
		c.WalkingMaxAvgSpeed = *o.WalkingMaxAvgSpeed
	}
	if o.WalkingMaxMaxSpeed != nil {
		c.WalkingMaxMaxSpeed = *o.WalkingMaxMaxSpeed
	}
	if o.ShortDistanceKm != nil {
		c.ShortDistanceKm = *o.ShortDistanceKm
	}
	if o.MaxPlausibleSpeedKmh != nil {
		c.MaxPlausibleSpeedKmh = *o.MaxPlausibleSpeedKmh
	}
	if o.DetectorAlgorithm != nil {
		c.DetectorAlgorithm = *o.DetectorAlgorithm
	}
	return c
}

// Validate fails fast on malformed tunables. It never clamps silently.
func (c TimelineConfig) Validate() error {
	nonNegative := map[string]float64{
		"staypointVelocityThreshold":    c.StaypointVelocityThreshold,
		"staypointMaxAccuracyThreshold": c.StaypointMaxAccuracyThreshold,
		"staypointRadiusMeters":         c.StaypointRadiusMeters,
		"tripMinDistanceMeters":         c.TripMinDistanceMeters,
		"tripMinDurationMinutes":        c.TripMinDurationMinutes,
		"mergeMaxDistanceMeters":        c.MergeMaxDistanceMeters,
		"mergeMaxTimeGapMinutes":        c.MergeMaxTimeGapMinutes,
		"gapMinDurationMinutes":         c.GapMinDurationMinutes,
		"carMinAvgSpeed":                c.CarMinAvgSpeed,
		"carMinMaxSpeed":                c.CarMinMaxSpeed,
		"walkingMaxAvgSpeed":            c.WalkingMaxAvgSpeed,
		"walkingMaxMaxSpeed":            c.WalkingMaxMaxSpeed,
		"shortDistanceKm":               c.ShortDistanceKm,
		"maxPlausibleSpeedKmh":          c.MaxPlausibleSpeedKmh,
	}
	for name, v := range nonNegative {
		if v < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %v", ErrInvalidConfig, name, v)
		}
	}
	if c.StaypointMinAccuracyRatio < 0 || c.StaypointMinAccuracyRatio > 1 {
		return fmt.Errorf("%w: staypointMinAccuracyRatio must be in [0,1], got %v",
			ErrInvalidConfig, c.StaypointMinAccuracyRatio)
	}
	switch c.DetectorAlgorithm {
	case DetectorAlgorithmSimple, DetectorAlgorithmEnhanced:
	default:
		return fmt.Errorf("%w: unknown detector algorithm %q", ErrInvalidConfig, c.DetectorAlgorithm)
	}
	return nil
}
