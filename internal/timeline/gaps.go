package timeline

import (
	"fmt"

	"github.com/lifetrace/timeline-backend-go/internal/models"
)

// DetectGaps finds sub-intervals of [start, end) with no fixes for longer than
// gapMinDurationMinutes. A window with zero fixes yields exactly one gap
// spanning the whole window: absence of data is itself a reportable fact.
// Timestamps must be ordered; fixes outside the window are ignored.
func DetectGaps(cfg models.TimelineConfig, userID string, start, end int64, timestamps []int64) ([]models.DataGap, error) {
	if end <= start {
		return nil, fmt.Errorf("%w: gap window end %d not after start %d", models.ErrInvalidInput, end, start)
	}

	inWindow := make([]int64, 0, len(timestamps))
	for _, ts := range timestamps {
		if ts >= start && ts < end {
			inWindow = append(inWindow, ts)
		}
	}

	if len(inWindow) == 0 {
		return []models.DataGap{{
			UserID:          userID,
			StartTime:       start,
			EndTime:         end,
			DurationMinutes: float64(end-start) / 60.0,
		}}, nil
	}

	minSeconds := cfg.GapMinDurationMinutes * 60

	var gaps []models.DataGap
	emit := func(from, to int64) {
		if float64(to-from) <= minSeconds {
			return
		}
		gaps = append(gaps, models.DataGap{
			UserID:          userID,
			StartTime:       from,
			EndTime:         to,
			DurationMinutes: float64(to-from) / 60.0,
		})
	}

	emit(start, inWindow[0])
	for i := 1; i < len(inWindow); i++ {
		emit(inWindow[i-1], inWindow[i])
	}
	emit(inWindow[len(inWindow)-1], end)

	return gaps, nil
}
