package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/lifetrace/timeline-backend-go/internal/middleware"
	"github.com/lifetrace/timeline-backend-go/internal/models"
	"github.com/lifetrace/timeline-backend-go/internal/service"
	"github.com/lifetrace/timeline-backend-go/pkg/response"
)

// TrackHandler exposes raw GPS fix ingestion and queries.
type TrackHandler struct {
	trackService *service.TrackService
}

func NewTrackHandler(trackService *service.TrackService) *TrackHandler {
	return &TrackHandler{trackService: trackService}
}

// GetTracks handles GET /api/v1/tracks
func (h *TrackHandler) GetTracks(c *gin.Context) {
	var filter models.TrackPointFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "invalid query parameters: "+err.Error())
		return
	}
	filter.UserID = middleware.UserID(c)

	page, err := h.trackService.GetTrackPoints(c.Request.Context(), filter)
	if err != nil {
		response.InternalError(c, "failed to get track points")
		return
	}
	response.Success(c, page)
}

// ImportTracks handles POST /api/v1/tracks
func (h *TrackHandler) ImportTracks(c *gin.Context) {
	var points []models.TrackPoint
	if err := c.ShouldBindJSON(&points); err != nil {
		response.BadRequest(c, "invalid track points payload: "+err.Error())
		return
	}

	result, err := h.trackService.ImportPoints(c.Request.Context(), middleware.UserID(c), points)
	if err != nil {
		if errors.Is(err, models.ErrInvalidInput) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, "failed to import track points")
		return
	}
	response.Success(c, result)
}
