package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lifetrace/timeline-backend-go/internal/config"
	"github.com/lifetrace/timeline-backend-go/internal/handler"
	"github.com/lifetrace/timeline-backend-go/internal/middleware"
	"github.com/lifetrace/timeline-backend-go/internal/service"
)

// SetupRouter builds the HTTP surface.
func SetupRouter(cfg *config.Config, timelineService *service.TimelineService, trackService *service.TrackService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.RateLimit(300, time.Minute))

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Timeline Backend API is running",
		})
	})

	timelineHandler := handler.NewTimelineHandler(timelineService)
	trackHandler := handler.NewTrackHandler(trackService)

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTSecret))
	{
		timeline := api.Group("/timeline")
		{
			timeline.GET("", timelineHandler.GetTimeline)
			timeline.POST("/regenerate", timelineHandler.Regenerate)
			timeline.GET("/source", timelineHandler.GetSource)
			timeline.POST("/events/favorite-renamed", timelineHandler.FavoriteRenamed)
			timeline.GET("/config", timelineHandler.GetConfig)
			timeline.PUT("/config", timelineHandler.UpdateConfig)
			timeline.DELETE("/config", timelineHandler.ResetConfig)
		}

		tracks := api.Group("/tracks")
		{
			tracks.GET("", trackHandler.GetTracks)
			tracks.POST("", trackHandler.ImportTracks)
		}
	}

	return r
}
