package quest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvaas/quest-engine/internal/models"
)

func TestBadgeLevel(t *testing.T) {
	tests := []struct {
		score int
		want  models.BadgeLevel
	}{
		{100, models.LevelDiamond},
		{95, models.LevelDiamond},
		{94, models.LevelPlatinum},
		{90, models.LevelPlatinum},
		{85, models.LevelGold},
		{88, models.LevelGold},
		{80, models.LevelSilver},
		{79, models.LevelBronze},
		{0, models.LevelBronze},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BadgeLevel(tt.score), "score %d", tt.score)
	}
}

func TestBadgeRarity(t *testing.T) {
	tests := []struct {
		difficulty models.Difficulty
		score      int
		want       models.Rarity
	}{
		{models.DifficultyExpert, 96, models.RarityLegendary},
		{models.DifficultyExpert, 91, models.RarityEpic},
		{models.DifficultyExpert, 85, models.RarityCommon},
		{models.DifficultyAdvanced, 96, models.RarityEpic},
		{models.DifficultyAdvanced, 91, models.RarityRare},
		{models.DifficultyIntermediate, 95, models.RarityRare},
		{models.DifficultyBeginner, 96, models.RarityRare},
		{models.DifficultyBeginner, 91, models.RarityUncommon},
		{models.DifficultyBeginner, 50, models.RarityCommon},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BadgeRarity(tt.difficulty, tt.score), "%s/%d", tt.difficulty, tt.score)
	}
}

func TestAwardBadge_IsNotIdempotent(t *testing.T) {
	f := newFixture(t)
	q := f.createQuest(t, models.DifficultyExpert, 70)
	ctx := context.Background()

	first, err := f.svc.AwardBadge(ctx, candidateA, q.ID, 97)
	require.NoError(t, err)
	second, err := f.svc.AwardBadge(ctx, candidateA, q.ID, 97)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, models.LevelDiamond, first.Level)
	assert.Equal(t, models.RarityLegendary, first.Rarity)
	assert.Equal(t, "Earned by completing Build a REST API with a score of 97%", first.Description)
	assert.Equal(t, 97, first.BlockchainData.Score)
	assert.Equal(t, models.DifficultyExpert, first.BlockchainData.QuestDifficulty)
	assert.Equal(t, first.EarnedAt, first.BlockchainData.EarnedDate)

	badges, err := f.svc.ListBadges(ctx, candidateA)
	require.NoError(t, err)
	assert.Len(t, badges, 2)
}

func TestAwardBadge_GeneralSkill(t *testing.T) {
	f := newFixture(t)
	q, err := f.svc.CreateQuest(context.Background(), recruiterID, models.CreateQuestRequest{
		Title: "Lead a retro", Category: models.CategoryLeadership,
		Difficulty: models.DifficultyBeginner, PassingScore: 50,
	})
	require.NoError(t, err)

	b, err := f.svc.AwardBadge(context.Background(), candidateA, q.ID, 81)
	require.NoError(t, err)
	assert.Equal(t, "General", b.Skill)

	_, err = f.svc.AwardBadge(context.Background(), candidateA, "missing", 81)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateBadgeDisplay_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	q := f.createQuest(t, models.DifficultyBeginner, 50)
	ctx := context.Background()

	b, err := f.svc.AwardBadge(ctx, candidateA, q.ID, 90)
	require.NoError(t, err)

	_, err = f.svc.UpdateBadgeDisplay(ctx, b.ID, candidate(candidateB), models.BadgeDisplayRequest{IsDisplayed: false})
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := f.svc.UpdateBadgeDisplay(ctx, b.ID, candidate(candidateA), models.BadgeDisplayRequest{IsDisplayed: false, DisplayOrder: 3})
	require.NoError(t, err)
	assert.False(t, updated.IsDisplayed)
	assert.Equal(t, 3, updated.DisplayOrder)

	stored, err := f.repo.GetBadge(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsDisplayed)
	assert.Equal(t, 3, stored.DisplayOrder)
	assert.Equal(t, b.Level, stored.Level)
}
