package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/cvaas/quest-engine/internal/models"
)

// MemoryRepository implements Repository in process memory.
// It enforces the same uniqueness rules as the PostgreSQL schema.
type MemoryRepository struct {
	mu          sync.RWMutex
	quests      map[string]*models.Quest
	submissions map[string]*models.Submission
	badges      map[string]*models.Badge
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		quests:      make(map[string]*models.Quest),
		submissions: make(map[string]*models.Submission),
		badges:      make(map[string]*models.Badge),
	}
}

// Ping always succeeds
func (r *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op
func (r *MemoryRepository) Close() error {
	return nil
}

// --- Quests ---

func (r *MemoryRepository) CreateQuest(ctx context.Context, q *models.Quest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.quests[q.ID]; ok {
		return ErrConflict
	}
	for _, existing := range r.quests {
		if existing.CreatorID == q.CreatorID && existing.Slug == q.Slug {
			return ErrConflict
		}
	}
	r.quests[q.ID] = copyQuest(q)
	return nil
}

func (r *MemoryRepository) GetQuest(ctx context.Context, id string) (*models.Quest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, ok := r.quests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyQuest(q), nil
}

func (r *MemoryRepository) GetQuestBySlug(ctx context.Context, creatorID, slug string) (*models.Quest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, q := range r.quests {
		if q.CreatorID == creatorID && q.Slug == slug {
			return copyQuest(q), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) UpdateQuest(ctx context.Context, q *models.Quest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.quests[q.ID]
	if !ok {
		return ErrNotFound
	}
	updated := copyQuest(q)
	// counters are owned by UpdateQuestStats
	updated.TotalAttempts = existing.TotalAttempts
	updated.SuccessRate = existing.SuccessRate
	r.quests[q.ID] = updated
	return nil
}

func (r *MemoryRepository) UpdateQuestStats(ctx context.Context, id string, totalAttempts int, successRate float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.quests[id]
	if !ok {
		return ErrNotFound
	}
	q.TotalAttempts = totalAttempts
	q.SuccessRate = successRate
	return nil
}

func (r *MemoryRepository) ListQuests(ctx context.Context, filters models.QuestFilters) ([]*models.Quest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Quest
	for _, q := range r.quests {
		if filters.Category != "" && q.Category != filters.Category {
			continue
		}
		if filters.Difficulty != "" && q.Difficulty != filters.Difficulty {
			continue
		}
		if filters.CreatorID != "" && q.CreatorID != filters.CreatorID {
			continue
		}
		if filters.ActiveOnly && !q.IsActive {
			continue
		}
		result = append(result, copyQuest(q))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return paginate(result, filters.Limit, filters.Offset), nil
}

// --- Submissions ---

func (r *MemoryRepository) CreateSubmission(ctx context.Context, s *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.submissions[s.ID]; ok {
		return ErrConflict
	}
	for _, existing := range r.submissions {
		if existing.QuestID == s.QuestID && existing.UserID == s.UserID && existing.AttemptNumber == s.AttemptNumber {
			return ErrConflict
		}
	}
	r.submissions[s.ID] = copySubmission(s)
	return nil
}

func (r *MemoryRepository) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.submissions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySubmission(s), nil
}

func (r *MemoryRepository) GetLatestSubmission(ctx context.Context, questID, userID string) (*models.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *models.Submission
	for _, s := range r.submissions {
		if s.QuestID != questID || s.UserID != userID {
			continue
		}
		if latest == nil || s.AttemptNumber > latest.AttemptNumber {
			latest = s
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return copySubmission(latest), nil
}

func (r *MemoryRepository) UpdateSubmissionReview(ctx context.Context, s *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.submissions[s.ID]
	if !ok {
		return ErrNotFound
	}
	if !existing.Status.IsPending() {
		return ErrConflict
	}
	updated := copySubmission(existing)
	reviewed := copySubmission(s)
	updated.Status = reviewed.Status
	updated.Score = reviewed.Score
	updated.Feedback = reviewed.Feedback
	updated.ReviewedAt = reviewed.ReviewedAt
	updated.ReviewerID = reviewed.ReviewerID
	r.submissions[s.ID] = updated
	return nil
}

func (r *MemoryRepository) ListSubmissions(ctx context.Context, filters models.SubmissionFilters) ([]*models.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Submission
	for _, s := range r.submissions {
		if filters.QuestID != "" && s.QuestID != filters.QuestID {
			continue
		}
		if filters.UserID != "" && s.UserID != filters.UserID {
			continue
		}
		if len(filters.Statuses) > 0 && !lo.Contains(filters.Statuses, s.Status) {
			continue
		}
		if filters.Since != nil && s.PassedAt().Before(*filters.Since) {
			continue
		}
		if filters.CreatorID != "" || filters.Category != "" {
			q, ok := r.quests[s.QuestID]
			if !ok {
				continue
			}
			if filters.CreatorID != "" && q.CreatorID != filters.CreatorID {
				continue
			}
			if filters.Category != "" && q.Category != filters.Category {
				continue
			}
		}
		result = append(result, copySubmission(s))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].SubmittedAt.Equal(result[j].SubmittedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].SubmittedAt.After(result[j].SubmittedAt)
	})
	return paginate(result, filters.Limit, filters.Offset), nil
}

// --- Badges ---

func (r *MemoryRepository) CreateBadge(ctx context.Context, b *models.Badge) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.badges[b.ID]; ok {
		return ErrConflict
	}
	cp := *b
	r.badges[b.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetBadge(ctx context.Context, id string) (*models.Badge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.badges[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *MemoryRepository) UpdateBadgeDisplay(ctx context.Context, id string, displayed bool, order int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.badges[id]
	if !ok {
		return ErrNotFound
	}
	b.IsDisplayed = displayed
	b.DisplayOrder = order
	return nil
}

func (r *MemoryRepository) ListBadges(ctx context.Context, filters models.BadgeFilters) ([]*models.Badge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Badge
	for _, b := range r.badges {
		if filters.UserID != "" && b.UserID != filters.UserID {
			continue
		}
		if filters.Since != nil && b.EarnedAt.Before(*filters.Since) {
			continue
		}
		if filters.Category != "" {
			q, ok := r.quests[b.QuestID]
			if !ok || q.Category != filters.Category {
				continue
			}
		}
		cp := *b
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].DisplayOrder != result[j].DisplayOrder {
			return result[i].DisplayOrder < result[j].DisplayOrder
		}
		return result[i].EarnedAt.After(result[j].EarnedAt)
	})
	return result, nil
}

// Helper functions

func copyQuest(q *models.Quest) *models.Quest {
	cp := *q
	cp.Skills = append([]string(nil), q.Skills...)
	return &cp
}

func copySubmission(s *models.Submission) *models.Submission {
	cp := *s
	if s.Score != nil {
		score := *s.Score
		cp.Score = &score
	}
	if s.ReviewedAt != nil {
		t := *s.ReviewedAt
		cp.ReviewedAt = &t
	}
	if s.Feedback != nil {
		fb := *s.Feedback
		fb.Strengths = append([]models.FeedbackItem(nil), s.Feedback.Strengths...)
		fb.Improvements = append([]models.FeedbackItem(nil), s.Feedback.Improvements...)
		fb.SpecificComments = append([]models.FeedbackItem(nil), s.Feedback.SpecificComments...)
		cp.Feedback = &fb
	}
	return &cp
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
