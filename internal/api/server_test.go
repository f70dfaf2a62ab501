package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvaas/quest-engine/internal/config"
	"github.com/cvaas/quest-engine/internal/events"
	"github.com/cvaas/quest-engine/internal/health"
	"github.com/cvaas/quest-engine/internal/models"
	"github.com/cvaas/quest-engine/internal/quest"
	"github.com/cvaas/quest-engine/internal/storage"
)

const (
	testRecruiter = "recruiter-0001"
	testCandidate = "candidate-0001"
	testOther     = "candidate-0002"
)

var testAuth = config.AuthConfig{JWTSecret: "test-secret", Issuer: "cvaas-test"}

type testEnv struct {
	srv   *httptest.Server
	repo  *storage.MemoryRepository
	hub   *events.Hub
	reg   *health.Registry
	quest *quest.Service
}

func newTestEnv(t *testing.T, uploader Uploader) *testEnv {
	t.Helper()

	repo := storage.NewMemoryRepository()
	hub := events.NewHub(8)
	svc := quest.NewService(repo, quest.Config{
		Publisher: hub,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	reg := health.NewRegistry(time.Second)
	reg.Register(health.NewPingFunc("repository", repo.Ping))

	server := NewServer(config.ServerConfig{RequestTimeout: 5 * time.Second}, testAuth, Deps{
		Quests:         svc,
		Hub:            hub,
		Health:         reg,
		Uploader:       uploader,
		MaxUploadBytes: 1024,
	})

	srv := httptest.NewServer(server.Router())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, repo: repo, hub: hub, reg: reg, quest: svc}
}

func token(t *testing.T, userID string, role models.Role) string {
	t.Helper()
	tok, err := SignToken(testAuth, userID, userID+"@example.com", role, time.Hour)
	require.NoError(t, err)
	return tok
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path, tok string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func (e *testEnv) createQuest(t *testing.T, passingScore int) *models.Quest {
	t.Helper()
	status, env := e.do(t, http.MethodPost, "/api/v1/quests", token(t, testRecruiter, models.RoleRecruiter), models.CreateQuestRequest{
		Title:        "Build a REST API",
		Category:     models.CategoryCoding,
		Difficulty:   models.DifficultyIntermediate,
		PassingScore: passingScore,
		Skills:       []string{"Go", "HTTP"},
	})
	require.Equal(t, http.StatusCreated, status, "create quest: %+v", env.Error)
	return decode[*models.Quest](t, env)
}

func textSubmission(body string) models.SubmitRequest {
	return models.SubmitRequest{
		Content:          models.SubmissionContent{Kind: models.ContentText, Text: &models.TextContent{Body: body}},
		TimeSpentSeconds: 600,
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, body.Success)
}

func TestReady(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, body.Success)

	env.reg.Register(health.NewPingFunc("redis", func(ctx context.Context) error {
		return errors.New("connection refused")
	}))

	status, body = env.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "not_ready", body.Error.Code)

	report := decode[health.Report](t, body)
	assert.False(t, report.Healthy)
	assert.Len(t, report.Checks, 2)
}

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t, nil)

	expired, err := SignToken(testAuth, testCandidate, "", models.RoleCandidate, -time.Minute)
	require.NoError(t, err)

	wrongIssuer, err := SignToken(config.AuthConfig{JWTSecret: "test-secret", Issuer: "someone-else"}, testCandidate, "", models.RoleCandidate, time.Hour)
	require.NoError(t, err)

	wrongSecret, err := SignToken(config.AuthConfig{JWTSecret: "other", Issuer: "cvaas-test"}, testCandidate, "", models.RoleCandidate, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		code  string
	}{
		{"missing", "", "missing_token"},
		{"garbage", "not-a-jwt", "invalid_token"},
		{"expired", expired, "invalid_token"},
		{"wrong issuer", wrongIssuer, "invalid_token"},
		{"wrong secret", wrongSecret, "invalid_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(t, http.MethodGet, "/api/v1/quests", tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, status)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestVerify_UnknownRoleFallsBackToCandidate(t *testing.T) {
	m := NewAuthMiddleware(testAuth)

	tok, err := SignToken(testAuth, testCandidate, "", models.Role("superuser"), time.Hour)
	require.NoError(t, err)

	p, err := m.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCandidate, p.Role)
	assert.False(t, p.HasPermission("reviews:write"))
}

func TestPermissions(t *testing.T) {
	env := newTestEnv(t, nil)
	candidate := token(t, testCandidate, models.RoleCandidate)

	status, body := env.do(t, http.MethodPost, "/api/v1/quests", candidate, models.CreateQuestRequest{Title: "x"})
	assert.Equal(t, http.StatusForbidden, status)
	require.NotNil(t, body.Error)
	assert.Equal(t, "permission_denied", body.Error.Code)

	status, _ = env.do(t, http.MethodGet, "/api/v1/reviews/queue", candidate, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestQuestEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	recruiter := token(t, testRecruiter, models.RoleRecruiter)
	candidate := token(t, testCandidate, models.RoleCandidate)

	q := env.createQuest(t, 70)
	assert.Equal(t, "build-a-rest-api", q.Slug)
	assert.True(t, q.IsActive)

	status, body := env.do(t, http.MethodPost, "/api/v1/quests", recruiter, models.CreateQuestRequest{
		Title: "Bad", Category: "cooking", Difficulty: models.DifficultyBeginner,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "invalid_quest", body.Error.Code)

	title := "Build a GraphQL API"
	status, body = env.do(t, http.MethodPatch, "/api/v1/quests/"+q.ID, recruiter, models.UpdateQuestRequest{Title: &title})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, title, decode[*models.Quest](t, body).Title)

	status, _ = env.do(t, http.MethodPatch, "/api/v1/quests/"+q.ID, token(t, "recruiter-0002", models.RoleRecruiter), models.UpdateQuestRequest{Title: &title})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodPost, "/api/v1/quests/"+q.ID+"/deactivate", recruiter, nil)
	require.Equal(t, http.StatusOK, status)

	// inactive quests are hidden from candidates but visible to their author
	status, _ = env.do(t, http.MethodGet, "/api/v1/quests/"+q.ID, candidate, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = env.do(t, http.MethodGet, "/api/v1/quests/"+q.ID, recruiter, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = env.do(t, http.MethodGet, "/api/v1/quests", candidate, nil)
	require.Equal(t, http.StatusOK, status)
	list := decode[struct {
		Quests []*models.Quest `json:"quests"`
		Total  int             `json:"total"`
	}](t, body)
	assert.Zero(t, list.Total)

	status, body = env.do(t, http.MethodGet, "/api/v1/quests?include_inactive=true&creator_id="+testRecruiter, recruiter, nil)
	require.Equal(t, http.StatusOK, status)
	list = decode[struct {
		Quests []*models.Quest `json:"quests"`
		Total  int             `json:"total"`
	}](t, body)
	assert.Equal(t, 1, list.Total)

	status, body = env.do(t, http.MethodPost, "/api/v1/quests/"+q.ID+"/submissions", candidate, textSubmission("answer"))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "quest_inactive", body.Error.Code)
}

func TestSubmissionLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	recruiter := token(t, testRecruiter, models.RoleRecruiter)
	candidate := token(t, testCandidate, models.RoleCandidate)
	q := env.createQuest(t, 70)

	status, body := env.do(t, http.MethodGet, "/api/v1/quests/"+q.ID+"/eligibility", candidate, nil)
	require.Equal(t, http.StatusOK, status)
	elig := decode[models.Eligibility](t, body)
	assert.True(t, elig.CanSubmit)
	assert.False(t, elig.HasPriorSubmission)

	status, body = env.do(t, http.MethodPost, "/api/v1/quests/"+q.ID+"/submissions", candidate, textSubmission("first try"))
	require.Equal(t, http.StatusCreated, status, "%+v", body.Error)
	sub := decode[*models.Submission](t, body)
	assert.Equal(t, 1, sub.AttemptNumber)
	assert.Equal(t, models.SubmissionSubmitted, sub.Status)

	status, body = env.do(t, http.MethodPost, "/api/v1/quests/"+q.ID+"/submissions", candidate, textSubmission("again"))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already_pending", body.Error.Code)

	status, body = env.do(t, http.MethodPost, "/api/v1/quests/"+q.ID+"/submissions", candidate, models.SubmitRequest{
		Content: models.SubmissionContent{Kind: models.ContentText},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, body = env.do(t, http.MethodGet, "/api/v1/reviews/queue", recruiter, nil)
	require.Equal(t, http.StatusOK, status)
	queue := decode[struct {
		Submissions []*models.Submission `json:"submissions"`
	}](t, body)
	require.Len(t, queue.Submissions, 1)
	assert.Equal(t, sub.ID, queue.Submissions[0].ID)

	score := 60
	status, body = env.do(t, http.MethodPost, "/api/v1/submissions/"+sub.ID+"/review", recruiter, models.ReviewRequest{
		Status: models.SubmissionPassed, Score: &score,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "score_below_threshold", body.Error.Code)

	status, _ = env.do(t, http.MethodPost, "/api/v1/submissions/"+sub.ID+"/review", token(t, "recruiter-0002", models.RoleRecruiter), models.ReviewRequest{
		Status: models.SubmissionNeedsRevision,
	})
	assert.Equal(t, http.StatusNotFound, status)

	score = 88
	status, body = env.do(t, http.MethodPost, "/api/v1/submissions/"+sub.ID+"/review", recruiter, models.ReviewRequest{
		Status: models.SubmissionPassed,
		Score:  &score,
		Feedback: &models.StructuredFeedback{
			Overall:      "Solid work",
			PrivateNotes: "strong hire signal",
		},
	})
	require.Equal(t, http.StatusOK, status, "%+v", body.Error)
	result := decode[quest.ReviewResult](t, body)
	require.NotNil(t, result.Badge)
	assert.Equal(t, models.LevelGold, result.Badge.Level)

	status, body = env.do(t, http.MethodPost, "/api/v1/submissions/"+sub.ID+"/review", recruiter, models.ReviewRequest{
		Status: models.SubmissionFailed,
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already_reviewed", body.Error.Code)

	// the submitter never sees private notes
	status, body = env.do(t, http.MethodGet, "/api/v1/submissions/"+sub.ID, candidate, nil)
	require.Equal(t, http.StatusOK, status)
	own := decode[*models.Submission](t, body)
	require.NotNil(t, own.Feedback)
	assert.Empty(t, own.Feedback.PrivateNotes)
	assert.Equal(t, 88, own.Feedback.Score)

	status, body = env.do(t, http.MethodGet, "/api/v1/submissions/"+sub.ID, recruiter, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "strong hire signal", decode[*models.Submission](t, body).Feedback.PrivateNotes)

	status, _ = env.do(t, http.MethodGet, "/api/v1/submissions/"+sub.ID, token(t, testOther, models.RoleCandidate), nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = env.do(t, http.MethodPost, "/api/v1/quests/"+q.ID+"/submissions", candidate, textSubmission("more"))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already_passed", body.Error.Code)

	status, body = env.do(t, http.MethodGet, "/api/v1/submissions/mine?quest_id="+q.ID, candidate, nil)
	require.Equal(t, http.StatusOK, status)
	mine := decode[struct {
		Submissions []*models.Submission `json:"submissions"`
		Total       int                  `json:"total"`
	}](t, body)
	assert.Equal(t, 1, mine.Total)
}

func TestBadgesAndLeaderboard(t *testing.T) {
	env := newTestEnv(t, nil)
	recruiter := token(t, testRecruiter, models.RoleRecruiter)
	candidate := token(t, testCandidate, models.RoleCandidate)
	other := token(t, testOther, models.RoleCandidate)
	q := env.createQuest(t, 70)

	status, body := env.do(t, http.MethodPost, "/api/v1/quests/"+q.ID+"/submissions", candidate, textSubmission("answer"))
	require.Equal(t, http.StatusCreated, status)
	sub := decode[*models.Submission](t, body)

	score := 95
	status, _ = env.do(t, http.MethodPost, "/api/v1/submissions/"+sub.ID+"/review", recruiter, models.ReviewRequest{
		Status: models.SubmissionPassed, Score: &score,
	})
	require.Equal(t, http.StatusOK, status)

	status, body = env.do(t, http.MethodGet, "/api/v1/badges/mine", candidate, nil)
	require.Equal(t, http.StatusOK, status)
	badges := decode[struct {
		Badges []*models.Badge `json:"badges"`
	}](t, body).Badges
	require.Len(t, badges, 1)
	badge := badges[0]

	// only the owner may change display settings
	status, _ = env.do(t, http.MethodPatch, "/api/v1/badges/"+badge.ID+"/display", other, models.BadgeDisplayRequest{IsDisplayed: false})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodPatch, "/api/v1/badges/"+badge.ID+"/display", candidate, models.BadgeDisplayRequest{IsDisplayed: false, DisplayOrder: 3})
	require.Equal(t, http.StatusOK, status)

	status, body = env.do(t, http.MethodGet, "/api/v1/users/"+testCandidate+"/badges", other, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[struct {
		Badges []*models.Badge `json:"badges"`
	}](t, body).Badges)

	status, body = env.do(t, http.MethodGet, "/api/v1/users/"+testCandidate+"/badges", candidate, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[struct {
		Badges []*models.Badge `json:"badges"`
	}](t, body).Badges, 1)

	status, body = env.do(t, http.MethodGet, "/api/v1/leaderboard?timeframe=this-week&category=coding", other, nil)
	require.Equal(t, http.StatusOK, status)
	board := decode[struct {
		Entries []models.LeaderboardEntry `json:"entries"`
	}](t, body).Entries
	require.Len(t, board, 1)
	assert.Equal(t, testCandidate, board[0].UserID)
	assert.Equal(t, 95, board[0].TotalScore)
	assert.Equal(t, 1, board[0].BadgeCount)
	assert.Equal(t, "User candidat", board[0].DisplayName)

	status, body = env.do(t, http.MethodGet, "/api/v1/leaderboard?timeframe=yesterday", other, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_timeframe", body.Error.Code)
}
