// Package client is a Go SDK for the quest-engine API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cvaas/quest-engine/internal/models"
)

// Client is a Go SDK for quest-engine API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new client authenticating with a bearer token
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is an error envelope returned by the server
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (HTTP %d): %s - %s", e.Status, e.Code, e.Message)
}

// ReviewResult is the reviewed submission and the badge it earned, if any
type ReviewResult struct {
	Submission *models.Submission `json:"submission"`
	Badge      *models.Badge      `json:"badge,omitempty"`
}

// ListQuestsOptions contains options for listing quests
type ListQuestsOptions struct {
	Category        models.QuestCategory
	Difficulty      models.Difficulty
	CreatorID       string
	IncludeInactive bool
	Limit           int
	Offset          int
}

// Quests

// ListQuests retrieves quests matching opts
func (c *Client) ListQuests(ctx context.Context, opts ListQuestsOptions) ([]*models.Quest, error) {
	q := url.Values{}
	if opts.Category != "" {
		q.Set("category", string(opts.Category))
	}
	if opts.Difficulty != "" {
		q.Set("difficulty", string(opts.Difficulty))
	}
	if opts.CreatorID != "" {
		q.Set("creator_id", opts.CreatorID)
	}
	if opts.IncludeInactive {
		q.Set("include_inactive", "true")
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}

	var out struct {
		Quests []*models.Quest `json:"quests"`
	}
	if err := c.do(ctx, http.MethodGet, withQuery("/api/v1/quests", q), nil, &out); err != nil {
		return nil, err
	}
	return out.Quests, nil
}

// CreateQuest creates a quest owned by the caller
func (c *Client) CreateQuest(ctx context.Context, req models.CreateQuestRequest) (*models.Quest, error) {
	var out models.Quest
	if err := c.do(ctx, http.MethodPost, "/api/v1/quests", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetQuest retrieves a quest by ID
func (c *Client) GetQuest(ctx context.Context, id string) (*models.Quest, error) {
	var out models.Quest
	if err := c.do(ctx, http.MethodGet, "/api/v1/quests/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateQuest applies a partial update
func (c *Client) UpdateQuest(ctx context.Context, id string, req models.UpdateQuestRequest) (*models.Quest, error) {
	var out models.Quest
	if err := c.do(ctx, http.MethodPatch, "/api/v1/quests/"+url.PathEscape(id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetQuestActive activates or deactivates a quest
func (c *Client) SetQuestActive(ctx context.Context, id string, active bool) (*models.Quest, error) {
	action := "deactivate"
	if active {
		action = "activate"
	}

	var out models.Quest
	if err := c.do(ctx, http.MethodPost, "/api/v1/quests/"+url.PathEscape(id)+"/"+action, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Submissions

// Eligibility reports whether the caller may submit to a quest
func (c *Client) Eligibility(ctx context.Context, questID string) (*models.Eligibility, error) {
	var out models.Eligibility
	if err := c.do(ctx, http.MethodGet, "/api/v1/quests/"+url.PathEscape(questID)+"/eligibility", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Submit records a new attempt at a quest
func (c *Client) Submit(ctx context.Context, questID string, req models.SubmitRequest) (*models.Submission, error) {
	var out models.Submission
	if err := c.do(ctx, http.MethodPost, "/api/v1/quests/"+url.PathEscape(questID)+"/submissions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSubmission retrieves a submission by ID
func (c *Client) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	var out models.Submission
	if err := c.do(ctx, http.MethodGet, "/api/v1/submissions/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMySubmissions retrieves the caller's submissions; questID is optional
func (c *Client) ListMySubmissions(ctx context.Context, questID string) ([]*models.Submission, error) {
	q := url.Values{}
	if questID != "" {
		q.Set("quest_id", questID)
	}

	var out struct {
		Submissions []*models.Submission `json:"submissions"`
	}
	if err := c.do(ctx, http.MethodGet, withQuery("/api/v1/submissions/mine", q), nil, &out); err != nil {
		return nil, err
	}
	return out.Submissions, nil
}

// Review records a verdict on a submission
func (c *Client) Review(ctx context.Context, submissionID string, req models.ReviewRequest) (*ReviewResult, error) {
	var out ReviewResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/submissions/"+url.PathEscape(submissionID)+"/review", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReviewQueue retrieves submissions awaiting the caller's review
func (c *Client) ReviewQueue(ctx context.Context) ([]*models.Submission, error) {
	var out struct {
		Submissions []*models.Submission `json:"submissions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/reviews/queue", nil, &out); err != nil {
		return nil, err
	}
	return out.Submissions, nil
}

// Badges

// ListMyBadges retrieves the caller's badges
func (c *Client) ListMyBadges(ctx context.Context) ([]*models.Badge, error) {
	return c.listBadges(ctx, "/api/v1/badges/mine")
}

// ListUserBadges retrieves the badges a user displays on their profile
func (c *Client) ListUserBadges(ctx context.Context, userID string) ([]*models.Badge, error) {
	return c.listBadges(ctx, "/api/v1/users/"+url.PathEscape(userID)+"/badges")
}

func (c *Client) listBadges(ctx context.Context, path string) ([]*models.Badge, error) {
	var out struct {
		Badges []*models.Badge `json:"badges"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Badges, nil
}

// UpdateBadgeDisplay changes whether and where a badge is shown
func (c *Client) UpdateBadgeDisplay(ctx context.Context, badgeID string, req models.BadgeDisplayRequest) (*models.Badge, error) {
	var out models.Badge
	if err := c.do(ctx, http.MethodPatch, "/api/v1/badges/"+url.PathEscape(badgeID)+"/display", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Leaderboard retrieves the ranked leaderboard; empty filters mean all-time
// across every category.
func (c *Client) Leaderboard(ctx context.Context, timeframe models.Timeframe, category models.QuestCategory) ([]models.LeaderboardEntry, error) {
	q := url.Values{}
	if timeframe != "" {
		q.Set("timeframe", string(timeframe))
	}
	if category != "" {
		q.Set("category", string(category))
	}

	var out struct {
		Entries []models.LeaderboardEntry `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, withQuery("/api/v1/leaderboard", q), nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// UploadAttachment uploads a file and returns a reference usable in file
// submission content.
func (c *Client) UploadAttachment(ctx context.Context, name string, r io.Reader) (*models.FileRef, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	var out models.FileRef
	if err := c.send(ctx, http.MethodPost, "/api/v1/attachments", &buf, mw.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// do sends a JSON request and decodes the envelope data into out
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	return c.send(ctx, method, path, body, "application/json", out)
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success || resp.StatusCode >= 400 {
		apiErr := result.Error
		if apiErr == nil {
			apiErr = &APIError{Code: "unknown", Message: http.StatusText(resp.StatusCode)}
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	if out != nil && len(result.Data) > 0 {
		if err := json.Unmarshal(result.Data, out); err != nil {
			return fmt.Errorf("failed to unmarshal response data: %w", err)
		}
	}
	return nil
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
