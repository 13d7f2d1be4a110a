package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lifetrace/timeline-backend-go/internal/cache"
	"github.com/lifetrace/timeline-backend-go/internal/middleware"
	"github.com/lifetrace/timeline-backend-go/internal/models"
	"github.com/lifetrace/timeline-backend-go/internal/service"
	"github.com/lifetrace/timeline-backend-go/pkg/response"
)

// TimelineHandler exposes the segmentation and cache endpoints.
type TimelineHandler struct {
	timelineService *service.TimelineService
}

func NewTimelineHandler(timelineService *service.TimelineService) *TimelineHandler {
	return &TimelineHandler{timelineService: timelineService}
}

// GetTimeline handles GET /api/v1/timeline
func (h *TimelineHandler) GetTimeline(c *gin.Context) {
	var filter models.TimelineFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "invalid query parameters: "+err.Error())
		return
	}
	filter.UserID = middleware.UserID(c)

	snap, err := h.timelineService.GetTimeline(c.Request.Context(), filter)
	if err != nil {
		if errors.Is(err, models.ErrInvalidInput) || errors.Is(err, models.ErrInvalidConfig) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, "failed to build timeline")
		return
	}
	response.Success(c, snap)
}

// Regenerate handles POST /api/v1/timeline/regenerate
func (h *TimelineHandler) Regenerate(c *gin.Context) {
	var filter models.TimelineFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "invalid query parameters: "+err.Error())
		return
	}
	filter.UserID = middleware.UserID(c)

	snap, err := h.timelineService.ForceRegenerate(c.Request.Context(), filter)
	if err != nil {
		if errors.Is(err, models.ErrInvalidInput) || errors.Is(err, models.ErrInvalidConfig) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, "failed to regenerate timeline")
		return
	}
	response.Success(c, snap)
}

// GetSource handles GET /api/v1/timeline/source
func (h *TimelineHandler) GetSource(c *gin.Context) {
	day, err := strconv.ParseInt(c.Query("day"), 10, 64)
	if err != nil {
		response.BadRequest(c, "day must be a unix timestamp")
		return
	}
	userID := middleware.UserID(c)

	source, err := h.timelineService.DataSource(c.Request.Context(), userID, day)
	if err != nil {
		response.InternalError(c, "failed to resolve data source")
		return
	}
	response.Success(c, gin.H{
		"day":        cache.DayStart(day),
		"dataSource": source,
	})
}

// FavoriteRenamed handles POST /api/v1/timeline/events/favorite-renamed
func (h *TimelineHandler) FavoriteRenamed(c *gin.Context) {
	var ev cache.FavoriteRenamedEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		response.BadRequest(c, "invalid event payload: "+err.Error())
		return
	}
	ev.UserID = middleware.UserID(c)
	if ev.LocationKey == "" {
		response.BadRequest(c, "locationKey is required")
		return
	}

	analysis, err := h.timelineService.OnFavoriteRenamed(c.Request.Context(), ev)
	if err != nil {
		response.InternalError(c, "failed to process rename event")
		return
	}
	response.Success(c, analysis)
}

// GetConfig handles GET /api/v1/timeline/config
func (h *TimelineHandler) GetConfig(c *gin.Context) {
	cfg, err := h.timelineService.GetConfig(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.InternalError(c, "failed to load config")
		return
	}
	response.Success(c, cfg)
}

// UpdateConfig handles PUT /api/v1/timeline/config
func (h *TimelineHandler) UpdateConfig(c *gin.Context) {
	var override models.TimelineConfigOverride
	if err := c.ShouldBindJSON(&override); err != nil {
		response.BadRequest(c, "invalid config payload: "+err.Error())
		return
	}

	cfg, err := h.timelineService.UpdateConfig(c.Request.Context(), middleware.UserID(c), override)
	if err != nil {
		if errors.Is(err, models.ErrInvalidConfig) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, "failed to update config")
		return
	}
	response.Success(c, cfg)
}

// ResetConfig handles DELETE /api/v1/timeline/config
func (h *TimelineHandler) ResetConfig(c *gin.Context) {
	if err := h.timelineService.ResetConfig(c.Request.Context(), middleware.UserID(c)); err != nil {
		response.InternalError(c, "failed to reset config")
		return
	}
	response.Success(c, nil)
}
