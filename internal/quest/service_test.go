package quest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cvaas/quest-engine/internal/models"
	"github.com/cvaas/quest-engine/internal/storage"
)

const (
	recruiterID = "recruiter-0001"
	candidateA  = "candidate-aaaa-0001"
	candidateB  = "candidate-bbbb-0002"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type recordedEvent struct {
	userID    string
	eventType string
	payload   any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(userID, eventType string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{userID, eventType, payload})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.eventType
	}
	return out
}

type fixture struct {
	svc   *Service
	repo  *storage.MemoryRepository
	pub   *recordingPublisher
	clock *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := storage.NewMemoryRepository()
	pub := &recordingPublisher{}
	clk := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewService(repo, Config{
		Publisher: pub,
		Now:       clk.Now,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return &fixture{svc: svc, repo: repo, pub: pub, clock: clk}
}

func (f *fixture) createQuest(t *testing.T, difficulty models.Difficulty, passing int) *models.Quest {
	t.Helper()
	q, err := f.svc.CreateQuest(context.Background(), recruiterID, models.CreateQuestRequest{
		Title:        "Build a REST API",
		Category:     models.CategoryCoding,
		Difficulty:   difficulty,
		PassingScore: passing,
		Skills:       []string{"Go", "HTTP"},
	})
	require.NoError(t, err)
	return q
}

func textContent(body string) models.SubmissionContent {
	return models.SubmissionContent{
		Kind: models.ContentText,
		Text: &models.TextContent{Body: body},
	}
}

func (f *fixture) submit(t *testing.T, questID, userID string) *models.Submission {
	t.Helper()
	sub, err := f.svc.Submit(context.Background(), questID, userID, models.SubmitRequest{
		Content:          textContent("solution"),
		TimeSpentSeconds: 600,
	})
	require.NoError(t, err)
	return sub
}

func (f *fixture) review(t *testing.T, subID string, status models.SubmissionStatus, score *int) *ReviewResult {
	t.Helper()
	res, err := f.svc.Review(context.Background(), subID, recruiter(), models.ReviewRequest{
		Status: status,
		Score:  score,
	})
	require.NoError(t, err)
	return res
}

func recruiter() *models.Principal {
	return models.NewPrincipal(recruiterID, "", models.RoleRecruiter)
}

func candidate(id string) *models.Principal {
	return models.NewPrincipal(id, "", models.RoleCandidate)
}

func intPtr(v int) *int { return &v }

// failingRepo fails latest-submission reads
type failingRepo struct {
	*storage.MemoryRepository
}

func (r failingRepo) GetLatestSubmission(ctx context.Context, questID, userID string) (*models.Submission, error) {
	return nil, errors.New("connection reset")
}

// gatedRepo holds every GetSubmission until n readers are waiting, so
// concurrent callers all observe the same pre-write state.
type gatedRepo struct {
	*storage.MemoryRepository
	n       int
	mu      sync.Mutex
	waiting int
	release chan struct{}
}

func newGatedRepo(n int) *gatedRepo {
	return &gatedRepo{MemoryRepository: storage.NewMemoryRepository(), n: n, release: make(chan struct{})}
}

func (r *gatedRepo) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := r.MemoryRepository.GetSubmission(ctx, id)

	r.mu.Lock()
	r.waiting++
	if r.waiting == r.n {
		close(r.release)
	}
	r.mu.Unlock()

	select {
	case <-r.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return sub, err
}
