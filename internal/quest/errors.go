package quest

import "errors"

var (
	// ErrAlreadyPending is returned when a prior attempt still awaits review
	ErrAlreadyPending = errors.New("a submission for this quest is already pending review")
	// ErrAlreadyPassed is returned when the user has already passed the quest
	ErrAlreadyPassed = errors.New("quest already passed")
	// ErrScoreBelowThreshold is returned when a passed verdict carries a score under the quest's passing score
	ErrScoreBelowThreshold = errors.New("score is below the quest passing score")
	// ErrNotFound covers both missing rows and rows the caller may not see
	ErrNotFound = errors.New("not found or no permission")

	ErrInvalidArgument  = errors.New("invalid argument")
	ErrInvalidStatus    = errors.New("invalid review status")
	ErrScoreRequired    = errors.New("score is required for a passed review")
	ErrInvalidScore     = errors.New("score must be between 0 and 100")
	ErrInvalidContent   = errors.New("invalid submission content")
	ErrAlreadyReviewed  = errors.New("submission already has a final verdict")
	ErrQuestInactive    = errors.New("quest is not active")
	ErrInvalidQuest     = errors.New("invalid quest")
	ErrInvalidTimeframe = errors.New("invalid timeframe")
)
