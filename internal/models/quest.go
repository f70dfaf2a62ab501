package models

import (
	"time"
)

// QuestCategory is the skill area a quest assesses
type QuestCategory string

const (
	CategoryCoding        QuestCategory = "coding"
	CategoryDesign        QuestCategory = "design"
	CategoryWriting       QuestCategory = "writing"
	CategoryAnalysis      QuestCategory = "analysis"
	CategoryLeadership    QuestCategory = "leadership"
	CategoryCommunication QuestCategory = "communication"
)

// Valid reports whether c is one of the known categories
func (c QuestCategory) Valid() bool {
	switch c {
	case CategoryCoding, CategoryDesign, CategoryWriting,
		CategoryAnalysis, CategoryLeadership, CategoryCommunication:
		return true
	}
	return false
}

// Difficulty of a quest
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
	DifficultyExpert       Difficulty = "expert"
)

// Valid reports whether d is one of the known difficulties
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced, DifficultyExpert:
		return true
	}
	return false
}

// Quest is a recruiter-authored challenge
type Quest struct {
	ID               string        `json:"id"`
	CreatorID        string        `json:"creator_id"`
	Title            string        `json:"title"`
	Slug             string        `json:"slug"`
	Description      string        `json:"description,omitempty"`
	Category         QuestCategory `json:"category"`
	Difficulty       Difficulty    `json:"difficulty"`
	PassingScore     int           `json:"passing_score"`
	Skills           []string      `json:"skills"`
	TimeLimitMinutes int           `json:"time_limit_minutes,omitempty"`
	IsActive         bool          `json:"is_active"`
	TotalAttempts    int           `json:"total_attempts"`
	SuccessRate      float64       `json:"success_rate"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// PrimarySkill returns the first assessed skill, or "General"
func (q *Quest) PrimarySkill() string {
	if len(q.Skills) > 0 && q.Skills[0] != "" {
		return q.Skills[0]
	}
	return "General"
}

// QuestFilters defines filters for listing quests
type QuestFilters struct {
	Category   QuestCategory
	Difficulty Difficulty
	CreatorID  string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// CreateQuestRequest represents a request to create a quest
type CreateQuestRequest struct {
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	Category         QuestCategory `json:"category"`
	Difficulty       Difficulty    `json:"difficulty"`
	PassingScore     int           `json:"passing_score"`
	Skills           []string      `json:"skills"`
	TimeLimitMinutes int           `json:"time_limit_minutes,omitempty"`
}

// UpdateQuestRequest is a partial quest update; nil fields are left unchanged
type UpdateQuestRequest struct {
	Title            *string        `json:"title,omitempty"`
	Description      *string        `json:"description,omitempty"`
	Category         *QuestCategory `json:"category,omitempty"`
	Difficulty       *Difficulty    `json:"difficulty,omitempty"`
	PassingScore     *int           `json:"passing_score,omitempty"`
	Skills           []string       `json:"skills,omitempty"`
	TimeLimitMinutes *int           `json:"time_limit_minutes,omitempty"`
}
