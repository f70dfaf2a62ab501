package quest

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/cvaas/quest-engine/internal/models"
)

// QuestStats are the aggregate counters persisted on a quest
type QuestStats struct {
	TotalAttempts int     `json:"total_attempts"`
	Passed        int     `json:"passed"`
	SuccessRate   float64 `json:"success_rate"`
}

// RecomputeQuestStats recounts every submission of a quest from scratch and
// persists total attempts and success rate.
func (s *Service) RecomputeQuestStats(ctx context.Context, questID string) (*QuestStats, error) {
	subs, err := s.repo.ListSubmissions(ctx, models.SubmissionFilters{QuestID: questID})
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	stats := computeStats(subs)
	if err := s.repo.UpdateQuestStats(ctx, questID, stats.TotalAttempts, stats.SuccessRate); err != nil {
		return nil, mapWriteErr("update quest stats", err)
	}

	s.logger.Debug("quest stats recomputed",
		"quest_id", questID,
		"total_attempts", stats.TotalAttempts,
		"success_rate", stats.SuccessRate,
	)

	return stats, nil
}

// RecomputeAllStats recomputes every quest. A failure on one quest is logged
// and does not stop the pass; the number of quests updated is returned.
func (s *Service) RecomputeAllStats(ctx context.Context) (int, error) {
	quests, err := s.repo.ListQuests(ctx, models.QuestFilters{})
	if err != nil {
		return 0, fmt.Errorf("failed to list quests: %w", err)
	}

	updated := 0
	for _, q := range quests {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		if _, err := s.RecomputeQuestStats(ctx, q.ID); err != nil {
			s.logger.Error("failed to recompute quest stats", "quest_id", q.ID, "error", err)
			continue
		}
		updated++
	}

	return updated, nil
}

func computeStats(subs []*models.Submission) *QuestStats {
	stats := &QuestStats{
		TotalAttempts: len(subs),
		Passed: lo.CountBy(subs, func(sub *models.Submission) bool {
			return sub.Status == models.SubmissionPassed
		}),
	}
	if stats.TotalAttempts > 0 {
		stats.SuccessRate = float64(stats.Passed) / float64(stats.TotalAttempts)
	}
	return stats
}
