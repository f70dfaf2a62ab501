package quest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/samber/lo"

	"github.com/cvaas/quest-engine/internal/models"
	"github.com/cvaas/quest-engine/internal/storage"
)

// CreateQuest validates req and stores a new active quest owned by creatorID
func (s *Service) CreateQuest(ctx context.Context, creatorID string, req models.CreateQuestRequest) (*models.Quest, error) {
	if creatorID == "" {
		return nil, fmt.Errorf("%w: creator id is required", ErrInvalidArgument)
	}

	now := s.now()
	q := &models.Quest{
		ID:               uuid.NewString(),
		CreatorID:        creatorID,
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		Category:         req.Category,
		Difficulty:       req.Difficulty,
		PassingScore:     req.PassingScore,
		Skills:           cleanSkills(req.Skills),
		TimeLimitMinutes: req.TimeLimitMinutes,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := validateQuest(q); err != nil {
		return nil, err
	}

	q.Slug = slug.Make(q.Title)
	if _, err := s.repo.GetQuestBySlug(ctx, creatorID, q.Slug); err == nil {
		q.Slug = q.Slug + "-" + q.ID[:8]
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to check quest slug: %w", err)
	}

	if err := s.repo.CreateQuest(ctx, q); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, fmt.Errorf("%w: slug %q already used", ErrInvalidQuest, q.Slug)
		}
		return nil, fmt.Errorf("failed to create quest: %w", err)
	}

	s.logger.Info("quest created",
		"quest_id", q.ID,
		"creator_id", creatorID,
		"category", q.Category,
		"difficulty", q.Difficulty,
	)

	return q, nil
}

// UpdateQuest applies a partial update. Only the creator or an admin may edit.
func (s *Service) UpdateQuest(ctx context.Context, questID string, actor *models.Principal, req models.UpdateQuestRequest) (*models.Quest, error) {
	q, err := s.getQuest(ctx, questID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, q) {
		return nil, ErrNotFound
	}

	if req.Title != nil {
		q.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		q.Description = *req.Description
	}
	prevCategory := q.Category
	if req.Category != nil {
		q.Category = *req.Category
	}
	if req.Difficulty != nil {
		q.Difficulty = *req.Difficulty
	}
	if req.PassingScore != nil {
		q.PassingScore = *req.PassingScore
	}
	if req.Skills != nil {
		q.Skills = cleanSkills(req.Skills)
	}
	if req.TimeLimitMinutes != nil {
		q.TimeLimitMinutes = *req.TimeLimitMinutes
	}

	if err := validateQuest(q); err != nil {
		return nil, err
	}

	q.UpdatedAt = s.now()
	if err := s.repo.UpdateQuest(ctx, q); err != nil {
		return nil, mapWriteErr("update quest", err)
	}

	// Category boards group passes by their quest's current category.
	if q.Category != prevCategory {
		s.invalidateLeaderboard(ctx)
	}

	return q, nil
}

// SetQuestActive toggles whether new submissions are accepted
func (s *Service) SetQuestActive(ctx context.Context, questID string, actor *models.Principal, active bool) (*models.Quest, error) {
	q, err := s.getQuest(ctx, questID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, q) {
		return nil, ErrNotFound
	}

	if q.IsActive == active {
		return q, nil
	}

	q.IsActive = active
	q.UpdatedAt = s.now()
	if err := s.repo.UpdateQuest(ctx, q); err != nil {
		return nil, mapWriteErr("update quest", err)
	}

	s.logger.Info("quest activation changed", "quest_id", q.ID, "active", active)
	return q, nil
}

// GetQuest returns a quest by id
func (s *Service) GetQuest(ctx context.Context, questID string) (*models.Quest, error) {
	return s.getQuest(ctx, questID)
}

// ListQuests returns quests matching filters
func (s *Service) ListQuests(ctx context.Context, filters models.QuestFilters) ([]*models.Quest, error) {
	if filters.Category != "" && !filters.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidQuest, filters.Category)
	}
	if filters.Difficulty != "" && !filters.Difficulty.Valid() {
		return nil, fmt.Errorf("%w: unknown difficulty %q", ErrInvalidQuest, filters.Difficulty)
	}

	quests, err := s.repo.ListQuests(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list quests: %w", err)
	}
	return quests, nil
}

func validateQuest(q *models.Quest) error {
	if q.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidQuest)
	}
	if !q.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidQuest, q.Category)
	}
	if !q.Difficulty.Valid() {
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidQuest, q.Difficulty)
	}
	if q.PassingScore < 0 || q.PassingScore > 100 {
		return fmt.Errorf("%w: passing score must be between 0 and 100", ErrInvalidQuest)
	}
	if q.TimeLimitMinutes < 0 {
		return fmt.Errorf("%w: time limit must not be negative", ErrInvalidQuest)
	}
	return nil
}

func cleanSkills(skills []string) []string {
	out := lo.Uniq(lo.FilterMap(skills, func(skill string, _ int) (string, bool) {
		skill = strings.TrimSpace(skill)
		return skill, skill != ""
	}))
	if out == nil {
		return []string{}
	}
	return out
}

func mapWriteErr(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
