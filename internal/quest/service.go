// Package quest implements the quest attempt, review, badge and leaderboard
// lifecycle on top of a storage.Repository.
package quest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cvaas/quest-engine/internal/models"
	"github.com/cvaas/quest-engine/internal/storage"
)

// DefaultBadgeMinScore is the platform-wide floor for awarding a badge
const DefaultBadgeMinScore = 80

// Event types emitted to the Publisher
const (
	EventSubmissionReviewed = "submission.reviewed"
	EventBadgeAwarded       = "badge.awarded"
)

// Publisher receives events for a user after the change is persisted.
// Implementations must not block.
type Publisher interface {
	Publish(userID, eventType string, payload any)
}

// LeaderboardCache stores computed leaderboards keyed by their filters.
// Get reports the cache generation it looked under; Set with a generation
// older than the latest Invalidate must never become visible to Get.
type LeaderboardCache interface {
	Get(ctx context.Context, timeframe models.Timeframe, category models.QuestCategory) ([]models.LeaderboardEntry, int64, bool)
	Set(ctx context.Context, gen int64, timeframe models.Timeframe, category models.QuestCategory, entries []models.LeaderboardEntry)
	Invalidate(ctx context.Context)
}

// Config holds service dependencies and tunables
type Config struct {
	BadgeMinScore int
	Publisher     Publisher
	Cache         LeaderboardCache
	Now           func() time.Time
	Logger        *slog.Logger
}

// Service is the quest lifecycle. It holds no state of its own; every
// operation reads and writes through the repository.
type Service struct {
	repo          storage.Repository
	badgeMinScore int
	publisher     Publisher
	cache         LeaderboardCache
	now           func() time.Time
	logger        *slog.Logger
}

// NewService creates a new quest service
func NewService(repo storage.Repository, cfg Config) *Service {
	s := &Service{
		repo:          repo,
		badgeMinScore: cfg.BadgeMinScore,
		publisher:     cfg.Publisher,
		cache:         cfg.Cache,
		now:           cfg.Now,
		logger:        cfg.Logger,
	}

	if s.badgeMinScore <= 0 {
		s.badgeMinScore = DefaultBadgeMinScore
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// BadgeMinScore returns the configured badge floor
func (s *Service) BadgeMinScore() int {
	return s.badgeMinScore
}

func (s *Service) publish(userID, eventType string, payload any) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(userID, eventType, payload)
}

func (s *Service) invalidateLeaderboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx)
}

// getQuest maps storage.ErrNotFound to ErrNotFound
func (s *Service) getQuest(ctx context.Context, id string) (*models.Quest, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	q, err := s.repo.GetQuest(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return q, nil
}

// canManage reports whether actor may act on a quest as its owner
func canManage(actor *models.Principal, q *models.Quest) bool {
	if actor == nil {
		return false
	}
	return actor.IsAdmin() || actor.UserID == q.CreatorID
}
