package models

// Recommendation is the reviewer's hiring signal
type Recommendation string

const (
	RecommendHire     Recommendation = "hire"
	RecommendConsider Recommendation = "consider"
	RecommendPass     Recommendation = "pass"
)

// FeedbackItemType tags a feedback item
type FeedbackItemType string

const (
	ItemStrength        FeedbackItemType = "strength"
	ItemImprovement     FeedbackItemType = "improvement"
	ItemSpecificComment FeedbackItemType = "comment"
)

// Severity of an improvement item
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeverityMajor    Severity = "major"
)

// Impact of an improvement item
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// FeedbackItem is one strength, improvement or specific comment
type FeedbackItem struct {
	ID       string           `json:"id"`
	Content  string           `json:"content"`
	Type     FeedbackItemType `json:"type"`
	Severity Severity         `json:"severity,omitempty"`
	Impact   Impact           `json:"impact,omitempty"`
	Category string           `json:"category,omitempty"`
}

// StructuredFeedback is attached to a submission at review time.
// PrivateNotes are never shown to the submitting user.
type StructuredFeedback struct {
	Overall          string         `json:"overall"`
	Strengths        []FeedbackItem `json:"strengths,omitempty"`
	Improvements     []FeedbackItem `json:"improvements,omitempty"`
	SpecificComments []FeedbackItem `json:"specific_comments,omitempty"`
	Score            int            `json:"score"`
	Recommendation   Recommendation `json:"recommendation,omitempty"`
	PrivateNotes     string         `json:"private_notes,omitempty"`
}
