package extractors

import (
	"context"
	"strings"

	"github.com/mikey/phishshield/internal/core"
	"go.uber.org/zap"
)

// bodyKeywords are the terms the body extractor looks for. Each distinct
// match raises the score and is reported back as a flagged keyword.
var bodyKeywords = []string{
	"account", "password", "bank", "click", "login", "verify",
	"urgent", "compromised", "suspended", "confirm", "immediately",
	"winner", "prize", "refund", "invoice",
}

const (
	bodyBaseScore      = 0.1
	bodyKeywordPenalty = 0.15
)

// BodyExtractor scores the email body by suspicious-keyword density. Its
// reasons are the matched keywords themselves, surfaced as body_keywords in
// the analysis response.
type BodyExtractor struct {
	logger *zap.Logger
}

// NewBodyExtractor creates a new body extractor.
func NewBodyExtractor(logger *zap.Logger) *BodyExtractor {
	return &BodyExtractor{logger: logger}
}

// Name identifies the signal in the fusion weight table.
func (e *BodyExtractor) Name() string {
	return core.SignalBody
}

// Extract scores the body text against the keyword list.
func (e *BodyExtractor) Extract(_ context.Context, email *core.EmailRecord) core.SignalResult {
	body := strings.ToLower(email.Body)

	score := bodyBaseScore
	var matched []string
	for _, keyword := range bodyKeywords {
		if strings.Contains(body, keyword) {
			score += bodyKeywordPenalty
			matched = append(matched, keyword)
		}
	}

	return core.SignalResult{Score: clamp01(score), Reasons: matched}
}
