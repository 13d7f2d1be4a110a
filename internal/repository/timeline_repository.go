package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lifetrace/timeline-backend-go/internal/cache"
	"github.com/lifetrace/timeline-backend-go/internal/database"
	"github.com/lifetrace/timeline-backend-go/internal/models"
)

// TimelineRepository persists computed day timelines. It implements the cache
// store plus the predecessor lookup used by overnight continuity.
type TimelineRepository struct {
	db     *sql.DB
	tracks *TrackRepository
}

func NewTimelineRepository(db *sql.DB, tracks *TrackRepository) *TimelineRepository {
	return &TimelineRepository{db: db, tracks: tracks}
}

// LoadDay returns the cached timeline of one day, or nil when the day was
// never computed. An empty computed day is distinct from an absent one: the
// meta row exists either way.
func (r *TimelineRepository) LoadDay(ctx context.Context, userID string, dayStart int64) (*cache.DayTimeline, error) {
	var hash string
	var stale bool
	err := r.db.QueryRowContext(ctx, `
		SELECT version_hash, stale FROM timeline_days WHERE user_id = ? AND day = ?
	`, userID, dayStart).Scan(&hash, &stale)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load day meta: %w", err)
	}

	day := &cache.DayTimeline{Hash: hash, Stale: stale}

	day.Stays, err = r.staysForDay(ctx, userID, dayStart)
	if err != nil {
		return nil, err
	}
	day.Trips, err = r.tripsForDay(ctx, userID, dayStart)
	if err != nil {
		return nil, err
	}
	day.Gaps, err = r.gapsForDay(ctx, userID, dayStart)
	if err != nil {
		return nil, err
	}
	return day, nil
}

// SaveDay replaces the cached timeline of one day in a single transaction.
func (r *TimelineRepository) SaveDay(ctx context.Context, userID string, dayStart int64, hash string, stays []models.TimelineStayPoint, trips []models.TimelineTrip, gaps []models.DataGap) error {
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		for _, table := range []string{"timeline_stays", "timeline_trips", "timeline_gaps"} {
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf("DELETE FROM %s WHERE user_id = ? AND day = ?", table),
				userID, dayStart); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		for _, s := range stays {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO timeline_stays
					(user_id, day, latitude, longitude, start_time, end_time,
					 duration_seconds, location_key, label, point_count, version_hash, stale)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
			`, userID, dayStart, s.Latitude, s.Longitude, s.StartTime, s.EndTime,
				s.DurationSeconds, s.LocationKey, s.Label, s.PointCount, s.VersionHash); err != nil {
				return fmt.Errorf("failed to insert stay: %w", err)
			}
		}

		for _, t := range trips {
			pathJSON, err := json.Marshal(t.Path)
			if err != nil {
				return fmt.Errorf("failed to encode trip path: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO timeline_trips
					(user_id, day, start_time, end_time, distance_km,
					 duration_minutes, travel_mode, path_json, version_hash, stale)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
			`, userID, dayStart, t.StartTimestamp, t.EndTimestamp, t.DistanceKm,
				t.DurationMinutes, string(t.TravelMode), string(pathJSON), t.VersionHash); err != nil {
				return fmt.Errorf("failed to insert trip: %w", err)
			}
		}

		for _, g := range gaps {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO timeline_gaps
					(user_id, day, start_time, end_time, duration_minutes, version_hash)
				VALUES (?, ?, ?, ?, ?, ?)
			`, userID, dayStart, g.StartTime, g.EndTime, g.DurationMinutes, g.VersionHash); err != nil {
				return fmt.Errorf("failed to insert gap: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO timeline_days (user_id, day, version_hash, stale, computed_at)
			VALUES (?, ?, ?, 0, CURRENT_TIMESTAMP)
			ON CONFLICT(user_id, day) DO UPDATE SET
				version_hash = excluded.version_hash,
				stale = 0,
				computed_at = CURRENT_TIMESTAMP
		`, userID, dayStart, hash); err != nil {
			return fmt.Errorf("failed to upsert day meta: %w", err)
		}
		return nil
	})
}

// DeleteDay removes the cached timeline and its meta row.
func (r *TimelineRepository) DeleteDay(ctx context.Context, userID string, dayStart int64) error {
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		for _, table := range []string{"timeline_stays", "timeline_trips", "timeline_gaps", "timeline_days"} {
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf("DELETE FROM %s WHERE user_id = ? AND day = ?", table),
				userID, dayStart); err != nil {
				return fmt.Errorf("failed to delete from %s: %w", table, err)
			}
		}
		return nil
	})
}

// MarkDayStale flags a cached day and its entities without deleting them, so
// readers can keep serving the old snapshot while regeneration is queued.
func (r *TimelineRepository) MarkDayStale(ctx context.Context, userID string, dayStart int64) error {
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE timeline_days SET stale = 1 WHERE user_id = ? AND day = ?
		`, userID, dayStart); err != nil {
			return fmt.Errorf("failed to mark day stale: %w", err)
		}
		for _, table := range []string{"timeline_stays", "timeline_trips"} {
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf("UPDATE %s SET stale = 1 WHERE user_id = ? AND day = ?", table),
				userID, dayStart); err != nil {
				return fmt.Errorf("failed to mark %s stale: %w", table, err)
			}
		}
		return nil
	})
}

// PointsForWindow delegates to the track repository.
func (r *TimelineRepository) PointsForWindow(ctx context.Context, userID string, start, end int64) ([]models.TrackPoint, error) {
	return r.tracks.PointsForWindow(ctx, userID, start, end)
}

// InputSignature delegates to the track repository.
func (r *TimelineRepository) InputSignature(ctx context.Context, userID string, start, end int64) (string, error) {
	return r.tracks.InputSignature(ctx, userID, start, end)
}

// UpdateStayLabels patches the display label of every cached stay with the
// given location key. The cached structure is untouched.
func (r *TimelineRepository) UpdateStayLabels(ctx context.Context, userID, locationKey, newLabel string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE timeline_stays
		SET label = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND location_key = ?
	`, newLabel, userID, locationKey)
	if err != nil {
		return 0, fmt.Errorf("failed to update stay labels: %w", err)
	}
	return res.RowsAffected()
}

// DaysWithLocation lists the day starts whose cached stays reference the
// given location key.
func (r *TimelineRepository) DaysWithLocation(ctx context.Context, userID, locationKey string) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT day FROM timeline_stays
		WHERE user_id = ? AND location_key = ?
		ORDER BY day ASC
	`, userID, locationKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query days with location: %w", err)
	}
	defer rows.Close()

	var days []int64
	for rows.Next() {
		var d int64
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan day: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// LastStayBefore returns the cached stay with the latest end time strictly
// before the boundary, or nil when the user has none.
func (r *TimelineRepository) LastStayBefore(ctx context.Context, userID string, boundary int64) (*models.TimelineStayPoint, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, latitude, longitude, start_time, end_time,
		       duration_seconds, location_key, label, point_count, version_hash, stale
		FROM timeline_stays
		WHERE user_id = ? AND end_time <= ?
		ORDER BY end_time DESC
		LIMIT 1
	`, userID, boundary)

	s, err := scanStay(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load predecessor stay: %w", err)
	}
	return &s, nil
}

// ExtendStayEnd pushes a stay's end boundary forward, keeping the duration
// invariant intact. The only in-place stay mutation in the system.
func (r *TimelineRepository) ExtendStayEnd(ctx context.Context, stayID int64, newEndTime int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE timeline_stays
		SET end_time = ?, duration_seconds = ? - start_time, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND start_time <= ?
	`, newEndTime, newEndTime, stayID, newEndTime)
	if err != nil {
		return fmt.Errorf("failed to extend stay %d: %w", stayID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("stay %d not found or new end precedes its start", stayID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStay(row rowScanner) (models.TimelineStayPoint, error) {
	var s models.TimelineStayPoint
	var locationKey, label sql.NullString
	var pointCount sql.NullInt64
	err := row.Scan(&s.ID, &s.UserID, &s.Latitude, &s.Longitude, &s.StartTime, &s.EndTime,
		&s.DurationSeconds, &locationKey, &label, &pointCount, &s.VersionHash, &s.Stale)
	if err != nil {
		return s, err
	}
	s.LocationKey = locationKey.String
	s.Label = label.String
	s.PointCount = int(pointCount.Int64)
	return s, nil
}

func (r *TimelineRepository) staysForDay(ctx context.Context, userID string, dayStart int64) ([]models.TimelineStayPoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, latitude, longitude, start_time, end_time,
		       duration_seconds, location_key, label, point_count, version_hash, stale
		FROM timeline_stays
		WHERE user_id = ? AND day = ?
		ORDER BY start_time ASC
	`, userID, dayStart)
	if err != nil {
		return nil, fmt.Errorf("failed to query stays: %w", err)
	}
	defer rows.Close()

	var stays []models.TimelineStayPoint
	for rows.Next() {
		s, err := scanStay(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stay: %w", err)
		}
		stays = append(stays, s)
	}
	return stays, rows.Err()
}

func (r *TimelineRepository) tripsForDay(ctx context.Context, userID string, dayStart int64) ([]models.TimelineTrip, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, start_time, end_time, distance_km, duration_minutes,
		       travel_mode, path_json, version_hash, stale
		FROM timeline_trips
		WHERE user_id = ? AND day = ?
		ORDER BY start_time ASC
	`, userID, dayStart)
	if err != nil {
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}
	defer rows.Close()

	var trips []models.TimelineTrip
	for rows.Next() {
		var t models.TimelineTrip
		var mode, pathJSON string
		if err := rows.Scan(&t.ID, &t.UserID, &t.StartTimestamp, &t.EndTimestamp,
			&t.DistanceKm, &t.DurationMinutes, &mode, &pathJSON, &t.VersionHash, &t.Stale); err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		t.TravelMode = models.TravelMode(mode)
		if err := json.Unmarshal([]byte(pathJSON), &t.Path); err != nil {
			return nil, fmt.Errorf("failed to decode trip path: %w", err)
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

func (r *TimelineRepository) gapsForDay(ctx context.Context, userID string, dayStart int64) ([]models.DataGap, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, start_time, end_time, duration_minutes, version_hash
		FROM timeline_gaps
		WHERE user_id = ? AND day = ?
		ORDER BY start_time ASC
	`, userID, dayStart)
	if err != nil {
		return nil, fmt.Errorf("failed to query gaps: %w", err)
	}
	defer rows.Close()

	var gaps []models.DataGap
	for rows.Next() {
		var g models.DataGap
		if err := rows.Scan(&g.ID, &g.UserID, &g.StartTime, &g.EndTime, &g.DurationMinutes, &g.VersionHash); err != nil {
			return nil, fmt.Errorf("failed to scan gap: %w", err)
		}
		gaps = append(gaps, g)
	}
	return gaps, rows.Err()
}
