package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lifetrace/timeline-backend-go/internal/api"
	"github.com/lifetrace/timeline-backend-go/internal/config"
	"github.com/lifetrace/timeline-backend-go/internal/database"
	"github.com/lifetrace/timeline-backend-go/internal/repository"
	"github.com/lifetrace/timeline-backend-go/internal/service"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	trackRepo := repository.NewTrackRepository(db)
	timelineRepo := repository.NewTimelineRepository(db, trackRepo)
	configRepo := repository.NewConfigRepository(db)

	timelineService := service.NewTimelineService(timelineRepo, configRepo, cfg.RegenWorkers)
	trackService := service.NewTrackService(trackRepo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	timelineService.StartQueue(ctx)
	defer timelineService.StopQueue()

	router := api.SetupRouter(cfg, timelineService, trackService)

	srv := &http.Server{
		Addr:    cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
}
