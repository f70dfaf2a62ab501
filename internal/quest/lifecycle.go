package quest

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cvaas/quest-engine/internal/models"
	"github.com/cvaas/quest-engine/internal/storage"
)

// GetSubmissionEligibility reports whether userID may submit a new attempt
// for questID.
//
// A failed read is reported as eligible. Submit re-reads the latest attempt
// and does not share this behavior.
func (s *Service) GetSubmissionEligibility(ctx context.Context, questID, userID string) (*models.Eligibility, error) {
	if questID == "" || userID == "" {
		return nil, fmt.Errorf("%w: quest id and user id are required", ErrInvalidArgument)
	}

	latest, err := s.repo.GetLatestSubmission(ctx, questID, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("eligibility read failed, allowing submission",
				"quest_id", questID,
				"user_id", userID,
				"error", err,
			)
		}
		return &models.Eligibility{CanSubmit: true}, nil
	}

	return &models.Eligibility{
		HasPriorSubmission: true,
		LatestSubmission:   latest.ForSubmitter(),
		CanSubmit:          latest.Status.AllowsResubmission(),
	}, nil
}

// Submit records a new attempt with the next attempt number and refreshes
// the quest's aggregate counters.
func (s *Service) Submit(ctx context.Context, questID, userID string, req models.SubmitRequest) (*models.Submission, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}
	if err := req.Content.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	if req.TimeSpentSeconds < 0 {
		return nil, fmt.Errorf("%w: time spent must not be negative", ErrInvalidContent)
	}

	q, err := s.getQuest(ctx, questID)
	if err != nil {
		return nil, err
	}
	if !q.IsActive {
		return nil, ErrQuestInactive
	}

	attempt := 1
	latest, err := s.repo.GetLatestSubmission(ctx, questID, userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to get latest submission: %w", err)
	case latest.Status == models.SubmissionPassed:
		return nil, ErrAlreadyPassed
	case latest.Status.IsPending():
		return nil, ErrAlreadyPending
	default:
		attempt = latest.AttemptNumber + 1
	}

	sub := &models.Submission{
		ID:               uuid.NewString(),
		QuestID:          questID,
		UserID:           userID,
		AttemptNumber:    attempt,
		Content:          req.Content,
		Status:           models.SubmissionSubmitted,
		TimeSpentSeconds: req.TimeSpentSeconds,
		SubmittedAt:      s.now(),
	}

	if err := s.repo.CreateSubmission(ctx, sub); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// a concurrent submit took this attempt number
			return nil, ErrAlreadyPending
		}
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	s.logger.Info("submission created",
		"submission_id", sub.ID,
		"quest_id", questID,
		"user_id", userID,
		"attempt", attempt,
	)

	if _, err := s.RecomputeQuestStats(ctx, questID); err != nil {
		s.logger.Error("failed to update quest stats after submission",
			"quest_id", questID,
			"submission_id", sub.ID,
			"error", err,
		)
	}

	return sub, nil
}

// GetSubmission returns a submission visible to viewer. The submitter sees it
// without private reviewer notes; the quest creator and admins see it whole.
func (s *Service) GetSubmission(ctx context.Context, submissionID string, viewer *models.Principal) (*models.Submission, error) {
	if submissionID == "" || viewer == nil {
		return nil, ErrNotFound
	}

	sub, err := s.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	if viewer.IsAdmin() {
		return sub, nil
	}

	q, err := s.getQuest(ctx, sub.QuestID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if q != nil && q.CreatorID == viewer.UserID {
		return sub, nil
	}

	if sub.UserID == viewer.UserID {
		return sub.ForSubmitter(), nil
	}

	return nil, ErrNotFound
}

// ListUserSubmissions returns the user's own submissions, newest first.
// questID is optional.
func (s *Service) ListUserSubmissions(ctx context.Context, userID, questID string) ([]*models.Submission, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}

	subs, err := s.repo.ListSubmissions(ctx, models.SubmissionFilters{
		UserID:  userID,
		QuestID: questID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	for i, sub := range subs {
		subs[i] = sub.ForSubmitter()
	}
	return subs, nil
}

// ReviewQueue returns submissions on quests the reviewer created. With no
// statuses given it returns those still awaiting a verdict.
func (s *Service) ReviewQueue(ctx context.Context, reviewer *models.Principal, statuses ...models.SubmissionStatus) ([]*models.Submission, error) {
	if reviewer == nil || reviewer.UserID == "" {
		return nil, fmt.Errorf("%w: reviewer is required", ErrInvalidArgument)
	}

	if len(statuses) == 0 {
		statuses = []models.SubmissionStatus{models.SubmissionSubmitted, models.SubmissionUnderReview}
	}
	for _, st := range statuses {
		if !st.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, st)
		}
	}

	filters := models.SubmissionFilters{Statuses: statuses}
	if !reviewer.IsAdmin() {
		filters.CreatorID = reviewer.UserID
	}

	subs, err := s.repo.ListSubmissions(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list review queue: %w", err)
	}
	return subs, nil
}
