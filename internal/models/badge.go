package models

import (
	"time"
)

// BadgeLevel is derived from the passing score
type BadgeLevel string

const (
	LevelBronze   BadgeLevel = "bronze"
	LevelSilver   BadgeLevel = "silver"
	LevelGold     BadgeLevel = "gold"
	LevelPlatinum BadgeLevel = "platinum"
	LevelDiamond  BadgeLevel = "diamond"
)

// Rarity is derived from quest difficulty and score
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// BlockchainData is inert verification metadata attached to a badge.
// It is written once and never validated by this service.
type BlockchainData struct {
	Score           int        `json:"score"`
	QuestDifficulty Difficulty `json:"quest_difficulty"`
	EarnedDate      time.Time  `json:"earned_date"`
}

// Badge is a credential awarded for a passed submission
type Badge struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	QuestID        string         `json:"quest_id"`
	SubmissionID   string         `json:"submission_id,omitempty"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Skill          string         `json:"skill"`
	Level          BadgeLevel     `json:"level"`
	Rarity         Rarity         `json:"rarity"`
	BlockchainData BlockchainData `json:"blockchain_data"`
	IsVerified     bool           `json:"is_verified"`
	IsDisplayed    bool           `json:"is_displayed"`
	DisplayOrder   int            `json:"display_order"`
	EarnedAt       time.Time      `json:"earned_at"`
}

// BadgeFilters defines filters for listing badges
type BadgeFilters struct {
	UserID   string
	Category QuestCategory
	Since    *time.Time
}

// BadgeDisplayRequest updates owner-controlled presentation fields
type BadgeDisplayRequest struct {
	IsDisplayed  bool `json:"is_displayed"`
	DisplayOrder int  `json:"display_order"`
}
