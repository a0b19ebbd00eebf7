package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimitrije/linkshelf-api/internal/config"
	"github.com/dimitrije/linkshelf-api/internal/database"
	"github.com/dimitrije/linkshelf-api/internal/handlers"
	"github.com/dimitrije/linkshelf-api/internal/logging"
	authmw "github.com/dimitrije/linkshelf-api/internal/middleware"
	"github.com/dimitrije/linkshelf-api/internal/services"
	"github.com/dimitrije/linkshelf-api/internal/sse"
	"github.com/dimitrije/linkshelf-api/internal/syncengine"
	"github.com/dimitrije/linkshelf-api/internal/telemetry"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
)

const tombstonePurgeInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, closer := logging.New(cfg.Log)
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		logger.Error("failed to set up telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	hub := sse.NewHub()
	go hub.Run(ctx)

	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry)
	tombstoneService := services.NewTombstoneService(db)
	bookmarkService := services.NewBookmarkService(db, tombstoneService, hub, logger)
	collaboratorService := services.NewCollaboratorService(db, hub)

	kinds := syncengine.DefaultKinds()
	syncService := syncengine.NewService(
		syncengine.NewCollector(db, kinds, tombstoneService),
		syncengine.NewApplier(db, kinds, tombstoneService, hub, syncengine.Policy(cfg.Sync.ConflictPolicy), logger),
		syncengine.Options{
			MaxChanges:       cfg.Sync.MaxChanges,
			TimeoutBase:      cfg.Sync.TimeoutBase,
			TimeoutPerChange: cfg.Sync.TimeoutPerChange,
		},
		logger,
	)

	syncHandler := handlers.NewSyncHandler(syncService, logger)
	bookmarkHandler := handlers.NewBookmarkHandler(bookmarkService)
	collaboratorHandler := handlers.NewCollaboratorHandler(collaboratorService)
	sseHandler := handlers.NewSSEHandler(hub)

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())
	app.Use(authmw.RequestLogger(logger, "/api/v1/health"))

	api := app.Group("/api/v1")

	api.Get("/health", func(c *drift.Context) {
		_ = c.JSON(200, map[string]string{"status": "ok"})
	})

	protected := api.Group("")
	protected.Use(authmw.Auth(jwtService))

	protected.Post("/sync", syncHandler.Sync)

	protected.Post("/bookmarks", bookmarkHandler.Create)
	protected.Get("/bookmarks/:id", bookmarkHandler.Get)
	protected.Delete("/bookmarks/:id", bookmarkHandler.Delete)

	protected.Post("/folders/:id/collaborators", collaboratorHandler.ShareFolder)
	protected.Delete("/folders/:id/collaborators/:userId", collaboratorHandler.RevokeFolder)
	protected.Post("/collections/:id/collaborators", collaboratorHandler.ShareCollection)
	protected.Delete("/collections/:id/collaborators/:userId", collaboratorHandler.RevokeCollection)

	protected.Get("/events", sseHandler.Connect)

	go purgeTombstones(ctx, tombstoneService, cfg.Sync.TombstoneRetention, logger)

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		logger.Info("server starting", "addr", addr, "conflict_policy", cfg.Sync.ConflictPolicy)
		if err := app.Run(addr); err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
}

// purgeTombstones drops deletion records older than retention. Clients that
// have not synced within that window must do a full sync.
func purgeTombstones(ctx context.Context, svc *services.TombstoneService, retention time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(tombstonePurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.Purge(ctx, time.Now().Add(-retention))
			if err != nil {
				logger.Warn("tombstone purge failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("tombstones purged", "count", n)
			}
		}
	}
}
