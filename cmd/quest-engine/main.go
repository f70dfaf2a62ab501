package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cvaas/quest-engine/internal/config"
	"github.com/cvaas/quest-engine/internal/storage"
)

// cfg is loaded once by the root command before any subcommand runs
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "quest-engine",
	Short: "Quest attempt, review and badge service",
	Long: `quest-engine runs the quest lifecycle for CVaaS: candidates submit attempts,
recruiters review them, passes earn badges and feed the leaderboard.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		setupLogger(cfg.Log.Level)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, recomputeStatsCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// setupLogger installs a JSON slog logger at the configured level
func setupLogger(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)
}

// openRepository connects to PostgreSQL using the database settings
func openRepository(ctx context.Context) (*storage.PostgresRepository, error) {
	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	repo, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: int32(cfg.Database.MaxOpenConns),
		MaxIdleConns: int32(cfg.Database.MaxIdleConns),
		MaxLifetime:  cfg.Database.MaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create database repository: %w", err)
	}
	return repo, nil
}
