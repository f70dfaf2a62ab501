package quest

import (
	"context"
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/cvaas/quest-engine/internal/models"
)

// GetLeaderboard ranks users by the total score of their passed submissions.
// Ties go to more passes, then to the lower user id.
func (s *Service) GetLeaderboard(ctx context.Context, timeframe models.Timeframe, category models.QuestCategory) ([]models.LeaderboardEntry, error) {
	if timeframe == "" {
		timeframe = models.TimeframeAllTime
	}
	since, ok := timeframe.Since(s.now())
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeframe, timeframe)
	}
	if category != "" && !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidQuest, category)
	}

	var gen int64
	if s.cache != nil {
		entries, g, ok := s.cache.Get(ctx, timeframe, category)
		if ok {
			return entries, nil
		}
		gen = g
	}

	subs, err := s.repo.ListSubmissions(ctx, models.SubmissionFilters{
		Statuses: []models.SubmissionStatus{models.SubmissionPassed},
		Category: category,
		Since:    since,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list passed submissions: %w", err)
	}

	badges, err := s.repo.ListBadges(ctx, models.BadgeFilters{
		Category: category,
		Since:    since,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}

	entries := buildLeaderboard(subs, badges)

	if s.cache != nil {
		s.cache.Set(ctx, gen, timeframe, category, entries)
	}

	return entries, nil
}

func buildLeaderboard(subs []*models.Submission, badges []*models.Badge) []models.LeaderboardEntry {
	byUser := lo.GroupBy(subs, func(sub *models.Submission) string {
		return sub.UserID
	})
	badgeCounts := lo.CountValuesBy(badges, func(b *models.Badge) string {
		return b.UserID
	})

	entries := make([]models.LeaderboardEntry, 0, len(byUser))
	for userID, passed := range byUser {
		total := lo.SumBy(passed, func(sub *models.Submission) int {
			if sub.Score == nil {
				return 0
			}
			return *sub.Score
		})

		entries = append(entries, models.LeaderboardEntry{
			UserID:            userID,
			DisplayName:       displayName(userID),
			TotalQuestsPassed: len(passed),
			TotalScore:        total,
			AverageScore:      float64(total) / float64(len(passed)),
			BadgeCount:        badgeCounts[userID],
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if a.TotalQuestsPassed != b.TotalQuestsPassed {
			return a.TotalQuestsPassed > b.TotalQuestsPassed
		}
		return a.UserID < b.UserID
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}

	return entries
}

// displayName is a redacted form of the user id
func displayName(userID string) string {
	if len(userID) > 8 {
		userID = userID[:8]
	}
	return "User " + userID
}
