package routes

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/sentra-sec/sentra/backend/internal/api/handlers"
	"github.com/sentra-sec/sentra/backend/internal/api/middleware"
	"github.com/sentra-sec/sentra/backend/internal/config"
	"github.com/sentra-sec/sentra/backend/internal/logger"
	"github.com/sentra-sec/sentra/backend/internal/metrics"
	"github.com/sentra-sec/sentra/backend/internal/models"
	"github.com/sentra-sec/sentra/backend/internal/services"
)

// Register wires up API routes and performs automatic migrations.
func Register(router *gin.Engine, db *gorm.DB, cfg config.Config) error {
	if err := db.AutoMigrate(
		&models.TrafficEvent{},
		&models.Alert{},
		&models.BlockedIP{},
		&models.ActionLog{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	notifier := services.NewNotifier(cfg)
	detection := services.NewDetectionService(db, cfg.Detection, notifier)

	authService, err := services.NewAuthService(cfg)
	if err != nil {
		return fmt.Errorf("init auth service: %w", err)
	}

	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Recovery(cfg.Environment == "development"))

	// The block short-circuit runs ahead of every data route: already-blocked
	// clients get a 403 before any handler sees the request.
	router.Use(middleware.Blocklist(detection))

	authHandler := handlers.NewAuthHandler(authService)
	trafficHandler := handlers.NewTrafficHandler(detection)
	analyticsHandler := handlers.NewAnalyticsHandler(detection.Traffic(), detection.Alerts())
	blockHandler := handlers.NewBlockHandler(detection)

	router.GET("/api/v1/health", handlers.HealthHandler)
	router.GET("/system/status", handlers.SystemStatus)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	router.POST("/auth/login", authHandler.Login)

	router.POST("/traffic/log", trafficHandler.Log)
	router.GET("/analytics/traffic-summary", analyticsHandler.Summary)
	router.GET("/blocked-ips", blockHandler.ListBlocked)

	admin := router.Group("/")
	admin.Use(middleware.AdminAuth(authService))
	{
		admin.POST("/unblock-ip", blockHandler.Unblock)
		admin.GET("/action-logs", blockHandler.ActionLog)
	}

	if cfg.SweepSchedule != "" {
		if err := startSweep(detection.Blocks(), cfg); err != nil {
			return err
		}
	}

	return nil
}

// startSweep schedules the optional pruning of long-expired block rows. Rows
// are only removed once they have been expired for a full block duration, so
// the raw blocked-ips listing keeps showing anything recently expired.
func startSweep(blocks *services.BlockService, cfg config.Config) error {
	c := cron.New()
	_, err := c.AddFunc(cfg.SweepSchedule, func() {
		cutoff := time.Now().UTC().Add(-cfg.Detection.BlockDuration)
		removed, err := blocks.SweepExpired(cutoff)
		if err != nil {
			logger.Log().WithError(err).Error("blocklist sweep failed")
			return
		}
		if removed > 0 {
			logger.WithFields(map[string]interface{}{"removed": removed}).
				Info("pruned expired block entries")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule blocklist sweep: %w", err)
	}
	c.Start()
	return nil
}
