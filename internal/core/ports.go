package core

import (
	"context"
)

// SignalExtractor computes one independent signal for an email.
//
// Contract for implementers: the returned score must already be clamped to
// [0,1], and any failure to compute the real score (missing credential,
// timeout, malformed input) must degrade to a neutral 0.5 with an
// explanatory reason. Extract never reports an error; the fusion layer has
// no special-casing for broken extractors.
type SignalExtractor interface {
	// Name identifies the signal in the fusion weight table.
	Name() string
	Extract(ctx context.Context, email *EmailRecord) SignalResult
}

// DomainAnalyzer produces the detailed domain reputation block for a sender
// address. It follows the same degradation contract as SignalExtractor.
type DomainAnalyzer interface {
	Analyze(ctx context.Context, sender string) DomainAnalysis
}

// TextScorer is the feedback-trained binary classifier over email text.
type TextScorer interface {
	// Predict returns the positive-class (phishing) probability in [0,1]
	// and a rationale tag. An untrained scorer returns its documented
	// neutral default rather than failing.
	Predict(text string) (float64, string)

	// Train fits a new model from accumulated feedback. It returns false
	// without mutating persisted state when the sample count is below the
	// training threshold or the derived labels lack one of the two classes.
	Train(records []FeedbackRecord) bool
}

// IntentModel scores free text for phishing intent. Remote implementations
// return an error on transport or credential failure; the intent extractor
// translates that into a degraded neutral signal.
type IntentModel interface {
	ScoreText(ctx context.Context, text string) (float64, []string, error)
}

// FeedbackRepository is the durable append-only feedback log.
type FeedbackRepository interface {
	// Append durably stores one record. A write failure is returned to the
	// caller; the record is then not part of the log.
	Append(record FeedbackRecord) error

	// All returns a snapshot of every record in append order.
	All() []FeedbackRecord

	Stats() FeedbackStats
}

// ScanHistoryRepository persists one record per completed analysis and
// serves the dashboard read views.
type ScanHistoryRepository interface {
	Add(ctx context.Context, record *ScanRecord) error
	Stats(ctx context.Context, days int) (*DashboardStats, error)
	ExportCSV(ctx context.Context) (string, error)
	ExportJSON(ctx context.Context) ([]byte, error)
}
