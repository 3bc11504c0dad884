package extractors

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikey/phishshield/internal/core"
	"go.uber.org/zap"
)

// linkKeywords are credential-harvesting terms commonly planted in phishing
// URLs.
var linkKeywords = []string{"login", "update", "verify", "secure", "account"}

const (
	// noLinkScore is returned for an email that carries no links at all.
	noLinkScore = 0.3
	// linkBaseScore is the floor for an email that carries any link.
	linkBaseScore = 0.2

	linkKeywordPenalty   = 0.2
	linkSubdomainPenalty = 0.2
	linkSchemePenalty    = 0.1

	// maxLinkDots is the dot count above which a URL is treated as
	// subdomain abuse.
	maxLinkDots = 3
)

// LinkExtractor scores the URLs carried by an email. The scoring is fully
// deterministic over the link set.
type LinkExtractor struct {
	logger *zap.Logger
}

// NewLinkExtractor creates a new link extractor.
func NewLinkExtractor(logger *zap.Logger) *LinkExtractor {
	return &LinkExtractor{logger: logger}
}

// Name identifies the signal in the fusion weight table.
func (e *LinkExtractor) Name() string {
	return core.SignalLink
}

// Extract scores every link for suspicious keywords, subdomain abuse and
// non-HTTPS schemes.
func (e *LinkExtractor) Extract(_ context.Context, email *core.EmailRecord) core.SignalResult {
	if len(email.Links) == 0 {
		return core.SignalResult{Score: noLinkScore}
	}

	score := linkBaseScore
	var reasons []string

	for _, link := range email.Links {
		lower := strings.ToLower(link)

		if keyword, ok := containsAny(lower, linkKeywords); ok {
			score += linkKeywordPenalty
			reasons = append(reasons, fmt.Sprintf("Suspicious keyword %q in link: %s", keyword, link))
		}
		if strings.Count(lower, ".") > maxLinkDots {
			score += linkSubdomainPenalty
			reasons = append(reasons, "Too many subdomains: "+link)
		}
		if !strings.HasPrefix(lower, "https://") && !strings.HasPrefix(lower, "http://") {
			score += linkSchemePenalty
			reasons = append(reasons, "Non-standard link: "+link)
		}
	}

	return core.SignalResult{Score: clamp01(score), Reasons: reasons}
}
