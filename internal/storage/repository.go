package storage

import (
	"context"
	"errors"

	"github.com/cvaas/quest-engine/internal/models"
)

var (
	// ErrNotFound is returned when a referenced row does not exist
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when an insert violates a uniqueness constraint
	ErrConflict = errors.New("record conflicts with an existing row")
)

// Repository defines the interface for quest persistence.
// Every method is a single-row or single-query operation; there are no
// multi-statement transactions.
type Repository interface {
	// Quests
	CreateQuest(ctx context.Context, q *models.Quest) error
	GetQuest(ctx context.Context, id string) (*models.Quest, error)
	GetQuestBySlug(ctx context.Context, creatorID, slug string) (*models.Quest, error)
	UpdateQuest(ctx context.Context, q *models.Quest) error
	UpdateQuestStats(ctx context.Context, id string, totalAttempts int, successRate float64) error
	ListQuests(ctx context.Context, filters models.QuestFilters) ([]*models.Quest, error)

	// Submissions
	CreateSubmission(ctx context.Context, s *models.Submission) error
	GetSubmission(ctx context.Context, id string) (*models.Submission, error)
	GetLatestSubmission(ctx context.Context, questID, userID string) (*models.Submission, error)
	// UpdateSubmissionReview only applies to a pending submission and
	// returns ErrConflict when a verdict was already stored.
	UpdateSubmissionReview(ctx context.Context, s *models.Submission) error
	ListSubmissions(ctx context.Context, filters models.SubmissionFilters) ([]*models.Submission, error)

	// Badges
	CreateBadge(ctx context.Context, b *models.Badge) error
	GetBadge(ctx context.Context, id string) (*models.Badge, error)
	UpdateBadgeDisplay(ctx context.Context, id string, displayed bool, order int) error
	ListBadges(ctx context.Context, filters models.BadgeFilters) ([]*models.Badge, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}
