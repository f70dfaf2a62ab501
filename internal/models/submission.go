package models

import (
	"time"
)

// SubmissionStatus represents the review state of a submission
type SubmissionStatus string

const (
	SubmissionSubmitted     SubmissionStatus = "submitted"
	SubmissionUnderReview   SubmissionStatus = "under_review"
	SubmissionPassed        SubmissionStatus = "passed"
	SubmissionFailed        SubmissionStatus = "failed"
	SubmissionNeedsRevision SubmissionStatus = "needs_revision"
)

// Valid reports whether s is a known status
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionSubmitted, SubmissionUnderReview, SubmissionPassed,
		SubmissionFailed, SubmissionNeedsRevision:
		return true
	}
	return false
}

// IsPending returns true while the submission waits for a verdict
func (s SubmissionStatus) IsPending() bool {
	return s == SubmissionSubmitted || s == SubmissionUnderReview
}

// IsFinal returns true once a verdict has been recorded
func (s SubmissionStatus) IsFinal() bool {
	return s == SubmissionPassed || s == SubmissionFailed || s == SubmissionNeedsRevision
}

// AllowsResubmission returns true if a new attempt may follow a submission in this state
func (s SubmissionStatus) AllowsResubmission() bool {
	return s == SubmissionFailed || s == SubmissionNeedsRevision
}

// Submission is one attempt by one user at one quest
type Submission struct {
	ID               string              `json:"id"`
	QuestID          string              `json:"quest_id"`
	UserID           string              `json:"user_id"`
	AttemptNumber    int                 `json:"attempt_number"`
	Content          SubmissionContent   `json:"content"`
	Status           SubmissionStatus    `json:"status"`
	Score            *int                `json:"score,omitempty"`
	Feedback         *StructuredFeedback `json:"feedback,omitempty"`
	TimeSpentSeconds int                 `json:"time_spent_seconds"`
	SubmittedAt      time.Time           `json:"submitted_at"`
	ReviewedAt       *time.Time          `json:"reviewed_at,omitempty"`
	ReviewerID       string              `json:"reviewer_id,omitempty"`
}

// PassedAt returns the time the submission counted as passed
func (s *Submission) PassedAt() time.Time {
	if s.ReviewedAt != nil {
		return *s.ReviewedAt
	}
	return s.SubmittedAt
}

// ForSubmitter returns a copy safe to show to the submitting user
func (s *Submission) ForSubmitter() *Submission {
	out := *s
	if s.Feedback != nil {
		fb := *s.Feedback
		fb.PrivateNotes = ""
		out.Feedback = &fb
	}
	return &out
}

// SubmissionFilters defines filters for listing submissions
type SubmissionFilters struct {
	QuestID   string
	UserID    string
	CreatorID string // quests owned by this recruiter
	Category  QuestCategory
	Statuses  []SubmissionStatus
	Since     *time.Time // compared with PassedAt
	Limit     int
	Offset    int
}

// Eligibility describes whether a user may submit a new attempt
type Eligibility struct {
	HasPriorSubmission bool        `json:"has_prior_submission"`
	LatestSubmission   *Submission `json:"latest_submission"`
	CanSubmit          bool        `json:"can_submit"`
}

// SubmitRequest represents a new attempt
type SubmitRequest struct {
	Content          SubmissionContent `json:"content"`
	TimeSpentSeconds int               `json:"time_spent_seconds"`
}

// ReviewRequest represents a recruiter verdict
type ReviewRequest struct {
	Status   SubmissionStatus    `json:"status"`
	Score    *int                `json:"score,omitempty"`
	Feedback *StructuredFeedback `json:"feedback,omitempty"`
}
