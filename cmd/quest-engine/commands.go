package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/cvaas/quest-engine/internal/api"
	"github.com/cvaas/quest-engine/internal/catalog"
	"github.com/cvaas/quest-engine/internal/models"
	"github.com/cvaas/quest-engine/internal/quest"
	"github.com/cvaas/quest-engine/internal/storage"
)

var migrateStatus bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if migrateStatus {
			pool, err := pgxpool.New(ctx, cfg.Database.DSN)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			pending, err := storage.NewMigrator(pool, cfg.Database.MigrationsDir).Pending(ctx)
			if err != nil {
				return err
			}
			for _, name := range pending {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			slog.Info("pending migrations", "count", len(pending))
			return nil
		}

		applied, err := storage.MigrateFromDSN(ctx, cfg.Database.DSN, cfg.Database.MigrationsDir)
		if err != nil {
			return err
		}
		slog.Info("migrations complete", "applied", applied)
		return nil
	},
}

var seedDir string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load quest definitions from YAML and upsert them",
	Long: `Reads every *.yaml file under the catalog directory and creates or updates
the quests it defines, owned by QUEST_CATALOG_OWNER. Quests are matched by slug,
so re-running the seed updates content without resetting attempt counters.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := seedDir
		if dir == "" {
			dir = cfg.Quest.CatalogDir
		}

		defs, err := catalog.LoadDir(dir)
		if err != nil {
			return err
		}

		repo, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer repo.Close()

		res, err := catalog.Seed(cmd.Context(), repo, cfg.Quest.CatalogOwner, defs)
		if err != nil {
			return err
		}
		slog.Info("catalog seeded", "dir", dir, "created", res.Created, "updated", res.Updated)
		return nil
	},
}

var recomputeStatsCmd = &cobra.Command{
	Use:   "recompute-stats [quest-id...]",
	Short: "Rebuild quest attempt counters from submissions",
	Long:  "Recomputes total attempts and success rate for the named quests, or for every quest when none are given.",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer repo.Close()

		svc := quest.NewService(repo, quest.Config{BadgeMinScore: cfg.Quest.BadgeMinScore})

		if len(args) == 0 {
			n, err := svc.RecomputeAllStats(cmd.Context())
			if err != nil {
				return err
			}
			slog.Info("all quest stats recomputed", "quests", n)
			return nil
		}

		for _, questID := range args {
			stats, err := svc.RecomputeQuestStats(cmd.Context(), questID)
			if err != nil {
				return fmt.Errorf("quest %s: %w", questID, err)
			}
			slog.Info("quest stats recomputed",
				"quest_id", questID,
				"total_attempts", stats.TotalAttempts,
				"success_rate", stats.SuccessRate,
			)
		}
		return nil
	},
}

var (
	tokenRole  string
	tokenEmail string
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue a bearer token for local development",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tok, err := api.SignToken(cfg.Auth, args[0], tokenEmail, models.Role(tokenRole), tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "list pending migrations without applying them")
	seedCmd.Flags().StringVar(&seedDir, "dir", "", "catalog directory (defaults to QUEST_CATALOG_DIR)")

	tokenCmd.Flags().StringVar(&tokenRole, "role", string(models.RoleCandidate), "candidate, recruiter or admin")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}
