package quest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/cvaas/quest-engine/internal/models"
	"github.com/cvaas/quest-engine/internal/storage"
)

// BadgeLevel maps a score to a badge level; the highest threshold wins
func BadgeLevel(score int) models.BadgeLevel {
	switch {
	case score >= 95:
		return models.LevelDiamond
	case score >= 90:
		return models.LevelPlatinum
	case score >= 85:
		return models.LevelGold
	case score >= 80:
		return models.LevelSilver
	default:
		return models.LevelBronze
	}
}

// BadgeRarity maps quest difficulty and score to a rarity; the first
// matching rule wins
func BadgeRarity(difficulty models.Difficulty, score int) models.Rarity {
	switch {
	case difficulty == models.DifficultyExpert && score >= 95:
		return models.RarityLegendary
	case difficulty == models.DifficultyExpert && score >= 90:
		return models.RarityEpic
	case difficulty == models.DifficultyAdvanced && score >= 95:
		return models.RarityEpic
	case difficulty == models.DifficultyAdvanced && score >= 90:
		return models.RarityRare
	case score >= 95:
		return models.RarityRare
	case score >= 90:
		return models.RarityUncommon
	default:
		return models.RarityCommon
	}
}

// AwardBadge creates a badge for userID on questID. It is not idempotent:
// each call creates a new badge.
func (s *Service) AwardBadge(ctx context.Context, userID, questID string, score int) (*models.Badge, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}
	if score < 0 || score > 100 {
		return nil, ErrInvalidScore
	}

	q, err := s.getQuest(ctx, questID)
	if err != nil {
		return nil, err
	}

	return s.awardBadge(ctx, q, userID, "", score)
}

func (s *Service) awardBadge(ctx context.Context, q *models.Quest, userID, submissionID string, score int) (*models.Badge, error) {
	now := s.now()
	level := BadgeLevel(score)

	badge := &models.Badge{
		ID:           uuid.NewString(),
		UserID:       userID,
		QuestID:      q.ID,
		SubmissionID: submissionID,
		Name:         q.Title + " " + capitalize(string(level)),
		Description:  fmt.Sprintf("Earned by completing %s with a score of %d%%", q.Title, score),
		Skill:        q.PrimarySkill(),
		Level:        level,
		Rarity:       BadgeRarity(q.Difficulty, score),
		BlockchainData: models.BlockchainData{
			Score:           score,
			QuestDifficulty: q.Difficulty,
			EarnedDate:      now,
		},
		IsVerified:  true,
		IsDisplayed: true,
		EarnedAt:    now,
	}

	if err := s.repo.CreateBadge(ctx, badge); err != nil {
		return nil, fmt.Errorf("failed to create badge: %w", err)
	}

	s.logger.Info("badge awarded",
		"badge_id", badge.ID,
		"user_id", userID,
		"quest_id", q.ID,
		"level", badge.Level,
		"rarity", badge.Rarity,
	)

	return badge, nil
}

// ListBadges returns a user's badges in display order
func (s *Service) ListBadges(ctx context.Context, userID string) ([]*models.Badge, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}

	badges, err := s.repo.ListBadges(ctx, models.BadgeFilters{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	return badges, nil
}

// UpdateBadgeDisplay changes whether and where a badge is shown. Only the
// badge owner may change it.
func (s *Service) UpdateBadgeDisplay(ctx context.Context, badgeID string, owner *models.Principal, req models.BadgeDisplayRequest) (*models.Badge, error) {
	if owner == nil || badgeID == "" {
		return nil, ErrNotFound
	}

	badge, err := s.repo.GetBadge(ctx, badgeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get badge: %w", err)
	}
	if badge.UserID != owner.UserID {
		return nil, ErrNotFound
	}
	if req.DisplayOrder < 0 {
		return nil, fmt.Errorf("%w: display order must not be negative", ErrInvalidArgument)
	}

	if err := s.repo.UpdateBadgeDisplay(ctx, badgeID, req.IsDisplayed, req.DisplayOrder); err != nil {
		return nil, mapWriteErr("update badge display", err)
	}

	badge.IsDisplayed = req.IsDisplayed
	badge.DisplayOrder = req.DisplayOrder
	return badge, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
