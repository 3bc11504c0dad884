package extractors

import (
	"context"
	"strings"

	"github.com/mikey/phishshield/internal/core"
	"go.uber.org/zap"
)

// IntentExtractor scores the phishing intent of subject+body text through a
// pluggable model. A remote model failure degrades to a neutral signal; it
// is never surfaced as a request failure.
type IntentExtractor struct {
	model  core.IntentModel
	logger *zap.Logger
}

// NewIntentExtractor creates a new intent extractor.
func NewIntentExtractor(model core.IntentModel, logger *zap.Logger) *IntentExtractor {
	return &IntentExtractor{model: model, logger: logger}
}

// Name identifies the signal in the fusion weight table.
func (e *IntentExtractor) Name() string {
	return core.SignalIntent
}

// Extract runs the intent model over subject and body.
func (e *IntentExtractor) Extract(ctx context.Context, email *core.EmailRecord) core.SignalResult {
	text := email.Subject + " " + email.Body

	score, reasons, err := e.model.ScoreText(ctx, text)
	if err != nil {
		e.logger.Warn("Intent model unavailable, degrading to neutral", zap.Error(err))
		return core.SignalResult{
			Score:   neutralScore,
			Reasons: []string{"Intent analysis unavailable: " + err.Error()},
		}
	}

	return core.SignalResult{Score: clamp01(score), Reasons: reasons}
}

// phishingPhrases are wordings that strongly indicate a credential lure.
var phishingPhrases = []string{
	"click here", "verify now", "account has been compromised",
	"security alert", "password expired", "login required",
	"confirm identity", "verify your account", "suspicious activity",
	"account suspended",
}

// urgencyKeywords indicate pressure tactics.
var urgencyKeywords = []string{
	"urgent", "immediately", "asap", "critical", "emergency",
	"expires", "deadline", "limited time", "act now", "hurry",
}

const (
	intentBaseScore     = 0.5
	intentPhrasePenalty = 0.2
	urgencyPenalty      = 0.1
)

// HeuristicIntentModel is the default local intent model: a pure phrase and
// urgency-keyword analyzer. It never fails, so it needs no degradation path.
type HeuristicIntentModel struct{}

// NewHeuristicIntentModel creates the local intent model.
func NewHeuristicIntentModel() *HeuristicIntentModel {
	return &HeuristicIntentModel{}
}

// ScoreText scores the text against the phrase and urgency lists.
func (m *HeuristicIntentModel) ScoreText(_ context.Context, text string) (float64, []string, error) {
	lower := strings.ToLower(text)

	score := intentBaseScore
	var reasons []string
	for _, phrase := range phishingPhrases {
		if strings.Contains(lower, phrase) {
			score += intentPhrasePenalty
			reasons = append(reasons, "Suspicious pattern: "+phrase)
		}
	}
	for _, keyword := range urgencyKeywords {
		if strings.Contains(lower, keyword) {
			score += urgencyPenalty
			reasons = append(reasons, "Urgency keyword: "+keyword)
		}
	}

	return clamp01(score), reasons, nil
}
