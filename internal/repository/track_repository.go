package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lifetrace/timeline-backend-go/internal/database"
	"github.com/lifetrace/timeline-backend-go/internal/models"
)

// TrackRepository reads and writes raw GPS fixes.
type TrackRepository struct {
	db *sql.DB
}

func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// PointsForWindow returns the fixes of [start, end) ordered by timestamp.
// Duplicate timestamps are excluded at the schema level.
func (r *TrackRepository) PointsForWindow(ctx context.Context, userID string, start, end int64) ([]models.TrackPoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, timestamp, latitude, longitude, accuracy, velocity
		FROM track_points
		WHERE user_id = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC
	`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query track points: %w", err)
	}
	defer rows.Close()

	var points []models.TrackPoint
	for rows.Next() {
		p, err := scanTrackPoint(rows)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// InputSignature summarizes the fixes of [start, end) as "count:min:max:sum".
// Any insertion, deletion, or timestamp change in the window changes the
// signature.
func (r *TrackRepository) InputSignature(ctx context.Context, userID string, start, end int64) (string, error) {
	var count int64
	var minTs, maxTs, sumTs sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(timestamp), MAX(timestamp), SUM(timestamp)
		FROM track_points
		WHERE user_id = ? AND timestamp >= ? AND timestamp < ?
	`, userID, start, end).Scan(&count, &minTs, &maxTs, &sumTs)
	if err != nil {
		return "", fmt.Errorf("failed to compute input signature: %w", err)
	}
	if count == 0 {
		return "0:0:0:0", nil
	}
	return fmt.Sprintf("%d:%d:%d:%d", count, minTs.Int64, maxTs.Int64, sumTs.Int64), nil
}

// InsertBatch inserts fixes in one transaction, ignoring duplicates on
// (user_id, timestamp). Returns the number of rows actually inserted.
func (r *TrackRepository) InsertBatch(ctx context.Context, points []models.TrackPoint) (int64, error) {
	if len(points) == 0 {
		return 0, nil
	}

	var inserted int64
	err := database.Transaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO track_points
				(user_id, timestamp, latitude, longitude, accuracy, velocity)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range points {
			res, err := stmt.ExecContext(ctx, p.UserID, p.Timestamp, p.Latitude, p.Longitude,
				nullFloat(p.Accuracy), nullFloat(p.Velocity))
			if err != nil {
				return fmt.Errorf("failed to insert track point: %w", err)
			}
			n, _ := res.RowsAffected()
			inserted += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// GetTrackPoints returns a page of fixes matching the filter plus the total
// count.
func (r *TrackRepository) GetTrackPoints(ctx context.Context, filter models.TrackPointFilter) ([]models.TrackPoint, int64, error) {
	where := "WHERE user_id = ?"
	args := []interface{}{filter.UserID}
	if filter.StartTime > 0 {
		where += " AND timestamp >= ?"
		args = append(args, filter.StartTime)
	}
	if filter.EndTime > 0 {
		where += " AND timestamp < ?"
		args = append(args, filter.EndTime)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM track_points "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count track points: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 100
	}
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, timestamp, latitude, longitude, accuracy, velocity
		FROM track_points `+where+`
		ORDER BY timestamp ASC
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query track points: %w", err)
	}
	defer rows.Close()

	var points []models.TrackPoint
	for rows.Next() {
		p, err := scanTrackPoint(rows)
		if err != nil {
			return nil, 0, err
		}
		points = append(points, p)
	}
	return points, total, rows.Err()
}

func scanTrackPoint(rows *sql.Rows) (models.TrackPoint, error) {
	var p models.TrackPoint
	var accuracy, velocity sql.NullFloat64
	if err := rows.Scan(&p.ID, &p.UserID, &p.Timestamp, &p.Latitude, &p.Longitude, &accuracy, &velocity); err != nil {
		return p, fmt.Errorf("failed to scan track point: %w", err)
	}
	if accuracy.Valid {
		p.Accuracy = &accuracy.Float64
	}
	if velocity.Valid {
		p.Velocity = &velocity.Float64
	}
	return p, nil
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
