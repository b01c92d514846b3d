package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mr1hm/go-alert-relationships/internal/api"
	"github.com/mr1hm/go-alert-relationships/internal/catalog"
	"github.com/mr1hm/go-alert-relationships/internal/config"
	"github.com/mr1hm/go-alert-relationships/internal/events"
	internalgrpc "github.com/mr1hm/go-alert-relationships/internal/grpc"
	"github.com/mr1hm/go-alert-relationships/internal/logging"
	"github.com/mr1hm/go-alert-relationships/internal/models"
	"github.com/mr1hm/go-alert-relationships/internal/repository"
	"github.com/mr1hm/go-alert-relationships/internal/seed"
	"github.com/mr1hm/go-alert-relationships/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Seed.Path != "" {
		data, err := seed.Load(cfg.Seed.Path)
		if err != nil {
			logging.Fatalf("Failed to load seed data: %v", err)
		}
		res, err := data.Apply(ctx, db)
		if err != nil {
			logging.Fatalf("Failed to apply seed data: %v", err)
		}
		slog.Info("seed applied", "path", cfg.Seed.Path, "alert_types", res.AlertTypes, "templates", res.Templates, "alerts", res.Alerts)
	}

	types := catalog.New(catalog.FetcherFunc(db.ListAlertTypes), catalog.WithRefreshInterval(cfg.Catalog.RefreshInterval))

	// Save notifications for SSE subscribers
	broadcaster := events.NewBroadcaster()

	// Copies parent links of saved templates to the alerts table
	alertSync := worker.NewPool("alert_sync", cfg.Worker.Count, cfg.Worker.BufferSize,
		func(ctx context.Context, a models.FlatAlert) error {
			return db.AddAlert(ctx, &a)
		})
	alertSync.Start(ctx)

	// Start gRPC health server
	grpcServer := internalgrpc.NewServer()
	go func() {
		grpcAddr := fmt.Sprintf(":%d", cfg.GRPC.Port)
		if err := grpcServer.Start(grpcAddr); err != nil {
			logging.Fatalf("gRPC server error: %v", err)
		}
	}()
	go grpcServer.Watch(ctx, cfg.GRPC.HealthInterval, db.Ping)

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(api.MetricsMiddleware())
	router.Use(api.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))

	handler := api.NewHandler(db, types, broadcaster).WithAlertQueue(alertSync)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	broadcaster.Close() // Ends open event streams
	grpcServer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// Drain queued alert syncs before the database closes
	alertSync.Stop()
	cancel()

	slog.Info("shutdown complete")
}
