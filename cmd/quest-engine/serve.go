package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/cvaas/quest-engine/internal/api"
	"github.com/cvaas/quest-engine/internal/attachments"
	"github.com/cvaas/quest-engine/internal/cache"
	"github.com/cvaas/quest-engine/internal/events"
	"github.com/cvaas/quest-engine/internal/health"
	"github.com/cvaas/quest-engine/internal/quest"
	"github.com/cvaas/quest-engine/internal/reconcile"
	"github.com/cvaas/quest-engine/internal/storage"
)

var skipMigrations bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the stats reconciler",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on start")
}

func runServe(cmd *cobra.Command, args []string) error {
	slog.Info("starting quest-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if !skipMigrations {
		slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
		migrateCtx, migrateCancel := context.WithTimeout(ctx, 30*time.Second)
		applied, err := storage.MigrateFromDSN(migrateCtx, cfg.Database.DSN, cfg.Database.MigrationsDir)
		migrateCancel()
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		slog.Info("migrations complete", "applied", len(applied))
	}

	repo, err := openRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()
	slog.Info("database connected successfully")

	// Readiness checks
	registry := health.NewRegistry(2 * time.Second)

	pgChecker, err := health.NewPostgresChecker(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to create postgres checker: %w", err)
	}
	defer pgChecker.Close()
	registry.Register(pgChecker)

	questCfg := quest.Config{
		BadgeMinScore: cfg.Quest.BadgeMinScore,
	}

	if cfg.Redis.Address != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		registry.Register(health.NewRedisChecker(rdb))

		if cfg.Redis.LeaderboardTTL > 0 {
			questCfg.Cache = cache.NewLeaderboardCache(rdb, cfg.Redis.LeaderboardTTL)
			slog.Info("leaderboard cache enabled", "ttl", cfg.Redis.LeaderboardTTL)
		}
	}

	hub := events.NewHub(32)
	questCfg.Publisher = hub

	quests := quest.NewService(repo, questCfg)

	deps := api.Deps{
		Quests:         quests,
		Hub:            hub,
		Health:         registry,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
	}
	if cfg.Storage.Enabled() {
		uploader, err := attachments.NewUploader(ctx, attachments.Config{
			AccountID:       cfg.Storage.AccountID,
			Endpoint:        cfg.Storage.Endpoint,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			AccessKeySecret: cfg.Storage.AccessKeySecret,
			Bucket:          cfg.Storage.Bucket,
			CDNBaseURL:      cfg.Storage.CDNBaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to create attachment uploader: %w", err)
		}
		deps.Uploader = uploader
	} else {
		slog.Warn("attachment storage not configured, uploads disabled")
	}

	if cfg.Auth.JWTSecret == "" {
		slog.Warn("JWT_SECRET is empty, every authenticated request will be rejected")
	}

	reconciler := reconcile.NewReconciler(quests, cfg.Reconcile.Interval)
	if err := reconciler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start reconciler: %w", err)
	}

	server := api.NewServer(cfg.Server, cfg.Auth, deps)
	httpServer := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     server.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		slog.Error("HTTP server error", "error", err)
	}

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if err := reconciler.Stop(); err != nil {
		slog.Error("reconciler stop error", "error", err)
	}

	slog.Info("quest-engine stopped", "events_dropped", hub.Dropped())
	return nil
}
