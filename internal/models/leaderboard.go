package models

import "time"

// Timeframe restricts the leaderboard to recent passes
type Timeframe string

const (
	TimeframeAllTime   Timeframe = "all-time"
	TimeframeThisMonth Timeframe = "this-month"
	TimeframeThisWeek  Timeframe = "this-week"
)

// Since returns the lower bound for the timeframe, or nil for all-time.
// ok is false for unknown values.
func (t Timeframe) Since(now time.Time) (since *time.Time, ok bool) {
	switch t {
	case "", TimeframeAllTime:
		return nil, true
	case TimeframeThisMonth:
		s := now.AddDate(0, 0, -30)
		return &s, true
	case TimeframeThisWeek:
		s := now.AddDate(0, 0, -7)
		return &s, true
	}
	return nil, false
}

// LeaderboardEntry is a derived per-user aggregate; it is never persisted
type LeaderboardEntry struct {
	Rank              int     `json:"rank"`
	UserID            string  `json:"user_id"`
	DisplayName       string  `json:"display_name"`
	TotalQuestsPassed int     `json:"total_quests_passed"`
	TotalScore        int     `json:"total_score"`
	AverageScore      float64 `json:"average_score"`
	BadgeCount        int     `json:"badge_count"`
}
