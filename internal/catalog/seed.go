package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cvaas/quest-engine/internal/models"
	"github.com/cvaas/quest-engine/internal/storage"
)

// Store is the subset of storage.Repository the seeder writes through
type Store interface {
	GetQuestBySlug(ctx context.Context, creatorID, slug string) (*models.Quest, error)
	CreateQuest(ctx context.Context, q *models.Quest) error
	UpdateQuest(ctx context.Context, q *models.Quest) error
}

// SeedResult counts what a seed pass changed
type SeedResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// Seed upserts each definition by slug for owner. Existing quests keep their
// id, creation time and counters.
func Seed(ctx context.Context, store Store, owner string, defs []Definition) (SeedResult, error) {
	var res SeedResult
	if owner == "" {
		return res, fmt.Errorf("catalog owner is required")
	}

	now := time.Now().UTC()
	for _, def := range defs {
		existing, err := store.GetQuestBySlug(ctx, owner, def.Slug)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			q := def.quest(owner)
			q.ID = uuid.NewString()
			q.CreatedAt = now
			q.UpdatedAt = now
			if err := store.CreateQuest(ctx, q); err != nil {
				return res, fmt.Errorf("failed to create quest %q: %w", def.Slug, err)
			}
			res.Created++
			slog.Info("catalog quest created", "slug", def.Slug, "quest_id", q.ID)

		case err != nil:
			return res, fmt.Errorf("failed to look up quest %q: %w", def.Slug, err)

		default:
			q := def.quest(owner)
			q.ID = existing.ID
			q.CreatedAt = existing.CreatedAt
			q.UpdatedAt = now
			if err := store.UpdateQuest(ctx, q); err != nil {
				return res, fmt.Errorf("failed to update quest %q: %w", def.Slug, err)
			}
			res.Updated++
			slog.Debug("catalog quest updated", "slug", def.Slug, "quest_id", q.ID)
		}
	}

	return res, nil
}

func (d Definition) quest(owner string) *models.Quest {
	skills := d.Skills
	if skills == nil {
		skills = []string{}
	}
	return &models.Quest{
		CreatorID:        owner,
		Title:            d.Title,
		Slug:             d.Slug,
		Description:      d.Description,
		Category:         d.Category,
		Difficulty:       d.Difficulty,
		PassingScore:     d.PassingScore,
		Skills:           skills,
		TimeLimitMinutes: d.TimeLimitMinutes,
		IsActive:         d.IsActive(),
	}
}
