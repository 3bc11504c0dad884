package extractors

import (
	"context"
	"strings"

	"github.com/mikey/phishshield/internal/core"
	"go.uber.org/zap"
)

// standardTLDs are sender domain suffixes considered unremarkable; anything
// else raises the header score.
var standardTLDs = []string{".com", ".org", ".net", ".in"}

// urgencySubjectKeywords raise the header score when they appear in the
// subject line.
var urgencySubjectKeywords = []string{"urgent", "immediately", "action required", "final notice", "asap"}

// HeaderExtractor scores sender and subject heuristics.
type HeaderExtractor struct {
	logger *zap.Logger
}

// NewHeaderExtractor creates a new header extractor.
func NewHeaderExtractor(logger *zap.Logger) *HeaderExtractor {
	return &HeaderExtractor{logger: logger}
}

// Name identifies the signal in the fusion weight table.
func (e *HeaderExtractor) Name() string {
	return core.SignalHeader
}

// Extract scores the sender address and subject line.
func (e *HeaderExtractor) Extract(_ context.Context, email *core.EmailRecord) core.SignalResult {
	score := neutralScore
	var reasons []string

	sender := strings.ToLower(email.Sender)
	subject := strings.ToLower(email.Subject)

	if strings.Contains(sender, "no-reply") {
		score -= 0.1
		reasons = append(reasons, "Sender uses no-reply")
	}
	if !hasStandardTLD(sender) {
		score += 0.2
		reasons = append(reasons, "Suspicious sender domain")
	}
	if strings.Count(sender, "@") != 1 {
		score += 0.3
		reasons = append(reasons, "Malformed sender email")
	}
	if keyword, ok := containsAny(subject, urgencySubjectKeywords); ok {
		score += 0.2
		reasons = append(reasons, "Urgent language in subject: "+keyword)
	}

	return core.SignalResult{Score: clamp01(score), Reasons: reasons}
}

func hasStandardTLD(sender string) bool {
	for _, tld := range standardTLDs {
		if strings.HasSuffix(sender, tld) {
			return true
		}
	}
	return false
}

func containsAny(text string, keywords []string) (string, bool) {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return keyword, true
		}
	}
	return "", false
}
