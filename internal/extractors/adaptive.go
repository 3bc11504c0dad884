package extractors

import (
	"context"

	"github.com/mikey/phishshield/internal/core"
)

// AdaptiveExtractor exposes the feedback-trained text classifier as a fusion
// signal. The scorer itself handles the untrained case by returning its
// neutral default, so this wrapper has no degradation logic of its own.
type AdaptiveExtractor struct {
	scorer core.TextScorer
}

// NewAdaptiveExtractor creates a new adaptive extractor.
func NewAdaptiveExtractor(scorer core.TextScorer) *AdaptiveExtractor {
	return &AdaptiveExtractor{scorer: scorer}
}

// Name identifies the signal in the fusion weight table.
func (e *AdaptiveExtractor) Name() string {
	return core.SignalAdaptive
}

// Extract predicts with the current feedback model.
func (e *AdaptiveExtractor) Extract(_ context.Context, email *core.EmailRecord) core.SignalResult {
	score, rationale := e.scorer.Predict(email.Subject + " " + email.Body)
	return core.SignalResult{Score: score, Reasons: []string{rationale}}
}
