package service

import (
	"context"
	"fmt"
	"math"

	"github.com/lifetrace/timeline-backend-go/internal/models"
	"github.com/lifetrace/timeline-backend-go/internal/repository"
)

// TrackPointsPage is the paginated track point listing.
type TrackPointsPage struct {
	Data       []models.TrackPoint `json:"data"`
	Total      int64               `json:"total"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"pageSize"`
	TotalPages int                 `json:"totalPages"`
}

// ImportResult reports a batch ingestion.
type ImportResult struct {
	Received int   `json:"received"`
	Inserted int64 `json:"inserted"`
	Skipped  int   `json:"skipped"`
}

// TrackService handles raw GPS fix ingestion and queries.
type TrackService struct {
	trackRepo *repository.TrackRepository
}

func NewTrackService(trackRepo *repository.TrackRepository) *TrackService {
	return &TrackService{trackRepo: trackRepo}
}

// GetTrackPoints retrieves track points with filtering and pagination.
func (s *TrackService) GetTrackPoints(ctx context.Context, filter models.TrackPointFilter) (*TrackPointsPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 100
	}
	if filter.PageSize > 1000 {
		filter.PageSize = 1000
	}

	points, total, err := s.trackRepo.GetTrackPoints(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get track points: %w", err)
	}

	return &TrackPointsPage{
		Data:       points,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.PageSize))),
	}, nil
}

// ImportPoints inserts a batch of fixes, skipping out-of-range coordinates and
// duplicate (user, timestamp) pairs.
func (s *TrackService) ImportPoints(ctx context.Context, userID string, points []models.TrackPoint) (*ImportResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", models.ErrInvalidInput)
	}

	valid := make([]models.TrackPoint, 0, len(points))
	for _, p := range points {
		p.UserID = userID
		if !p.ValidCoordinates() || p.Timestamp <= 0 {
			continue
		}
		valid = append(valid, p)
	}

	inserted, err := s.trackRepo.InsertBatch(ctx, valid)
	if err != nil {
		return nil, fmt.Errorf("failed to import track points: %w", err)
	}

	return &ImportResult{
		Received: len(points),
		Inserted: inserted,
		Skipped:  len(points) - int(inserted),
	}, nil
}
