package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvaas/quest-engine/internal/api"
	"github.com/cvaas/quest-engine/internal/config"
	"github.com/cvaas/quest-engine/internal/models"
	"github.com/cvaas/quest-engine/internal/quest"
	"github.com/cvaas/quest-engine/internal/storage"
)

var auth = config.AuthConfig{JWTSecret: "client-test"}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := quest.NewService(storage.NewMemoryRepository(), quest.Config{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	srv := httptest.NewServer(api.NewServer(config.ServerConfig{}, auth, api.Deps{Quests: svc}).Router())
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, srv *httptest.Server, userID string, role models.Role) *Client {
	t.Helper()
	tok, err := api.SignToken(auth, userID, "", role, time.Hour)
	require.NoError(t, err)
	return NewClient(srv.URL, tok, WithTimeout(5*time.Second))
}

func TestClient_QuestFlow(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	recruiter := newClient(t, srv, "recruiter-0001", models.RoleRecruiter)
	candidate := newClient(t, srv, "candidate-0001", models.RoleCandidate)

	require.NoError(t, candidate.Health(ctx))

	q, err := recruiter.CreateQuest(ctx, models.CreateQuestRequest{
		Title:        "Design a Logo",
		Category:     models.CategoryDesign,
		Difficulty:   models.DifficultyAdvanced,
		PassingScore: 60,
		Skills:       []string{"Branding"},
	})
	require.NoError(t, err)

	quests, err := candidate.ListQuests(ctx, ListQuestsOptions{Category: models.CategoryDesign})
	require.NoError(t, err)
	require.Len(t, quests, 1)

	elig, err := candidate.Eligibility(ctx, q.ID)
	require.NoError(t, err)
	assert.True(t, elig.CanSubmit)

	sub, err := candidate.Submit(ctx, q.ID, models.SubmitRequest{
		Content: models.SubmissionContent{
			Kind: models.ContentURL,
			Link: &models.LinkContent{URL: "https://dribbble.com/shots/1"},
		},
	})
	require.NoError(t, err)

	queue, err := recruiter.ReviewQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)

	score := 92
	result, err := recruiter.Review(ctx, sub.ID, models.ReviewRequest{Status: models.SubmissionPassed, Score: &score})
	require.NoError(t, err)
	require.NotNil(t, result.Badge)
	assert.Equal(t, models.LevelPlatinum, result.Badge.Level)

	badges, err := candidate.ListMyBadges(ctx)
	require.NoError(t, err)
	require.Len(t, badges, 1)

	board, err := candidate.Leaderboard(ctx, models.TimeframeAllTime, models.CategoryDesign)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, 1, board[0].Rank)
}

func TestClient_APIError(t *testing.T) {
	srv := newServer(t)
	candidate := newClient(t, srv, "candidate-0001", models.RoleCandidate)

	_, err := candidate.GetQuest(context.Background(), "missing")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "not_found", apiErr.Code)

	_, err = candidate.CreateQuest(context.Background(), models.CreateQuestRequest{Title: "x"})
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
}

func TestClient_UploadWithoutStorage(t *testing.T) {
	srv := newServer(t)
	candidate := newClient(t, srv, "candidate-0001", models.RoleCandidate)

	_, err := candidate.UploadAttachment(context.Background(), "cv.pdf", strings.NewReader("%PDF-1.7"))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
}
