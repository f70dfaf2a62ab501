package quest

import (
	"context"
	"errors"
	"fmt"

	"github.com/cvaas/quest-engine/internal/models"
	"github.com/cvaas/quest-engine/internal/storage"
)

// ReviewResult is the reviewed submission and the badge it earned, if any
type ReviewResult struct {
	Submission *models.Submission `json:"submission"`
	Badge      *models.Badge      `json:"badge,omitempty"`
}

// Review applies a verdict to a submission on a quest the reviewer created.
//
// A passed verdict needs a score at or above the quest's passing score. A
// badge is awarded when the verdict is passed and the score reaches the badge
// floor. If the badge insert fails the review stands without one.
func (s *Service) Review(ctx context.Context, submissionID string, reviewer *models.Principal, req models.ReviewRequest) (*ReviewResult, error) {
	if reviewer == nil || reviewer.UserID == "" {
		return nil, fmt.Errorf("%w: reviewer is required", ErrInvalidArgument)
	}
	if err := validateReview(req); err != nil {
		return nil, err
	}

	sub, err := s.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	q, err := s.getQuest(ctx, sub.QuestID)
	if err != nil {
		return nil, err
	}
	if !canManage(reviewer, q) {
		return nil, ErrNotFound
	}

	if sub.Status.IsFinal() {
		return nil, ErrAlreadyReviewed
	}

	if req.Status == models.SubmissionPassed && *req.Score < q.PassingScore {
		return nil, fmt.Errorf("%w: %d < %d", ErrScoreBelowThreshold, *req.Score, q.PassingScore)
	}

	now := s.now()
	sub.Status = req.Status
	sub.Score = req.Score
	sub.Feedback = nil
	sub.ReviewedAt = &now
	sub.ReviewerID = reviewer.UserID

	if req.Feedback != nil {
		fb := *req.Feedback
		if sub.Score != nil && fb.Score == 0 {
			fb.Score = *sub.Score
		}
		sub.Feedback = &fb
	}

	// A concurrent review may have stored a verdict since the read above.
	if err := s.repo.UpdateSubmissionReview(ctx, sub); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrAlreadyReviewed
		}
		return nil, mapWriteErr("update submission", err)
	}

	s.logger.Info("submission reviewed",
		"submission_id", sub.ID,
		"quest_id", q.ID,
		"reviewer_id", reviewer.UserID,
		"status", sub.Status,
	)

	result := &ReviewResult{Submission: sub}
	s.publish(sub.UserID, EventSubmissionReviewed, sub.ForSubmitter())

	if sub.Status != models.SubmissionPassed {
		return result, nil
	}

	if _, err := s.RecomputeQuestStats(ctx, q.ID); err != nil {
		s.logger.Error("failed to update quest stats after review", "quest_id", q.ID, "error", err)
	}

	if *sub.Score >= s.badgeMinScore {
		badge, err := s.awardBadge(ctx, q, sub.UserID, sub.ID, *sub.Score)
		if err != nil {
			s.logger.Error("badge award failed, review kept without badge",
				"submission_id", sub.ID,
				"user_id", sub.UserID,
				"error", err,
			)
		} else {
			result.Badge = badge
			s.publish(sub.UserID, EventBadgeAwarded, badge)
		}
	}

	s.invalidateLeaderboard(ctx)

	return result, nil
}

func validateReview(req models.ReviewRequest) error {
	switch req.Status {
	case models.SubmissionPassed, models.SubmissionFailed,
		models.SubmissionNeedsRevision, models.SubmissionUnderReview:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
	}

	if req.Score != nil && (*req.Score < 0 || *req.Score > 100) {
		return ErrInvalidScore
	}
	if req.Status == models.SubmissionPassed && req.Score == nil {
		return ErrScoreRequired
	}
	return nil
}
