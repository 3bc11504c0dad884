package reputation

import (
	"context"
	"math"
	"strings"

	"github.com/mikey/phishshield/internal/core"
	"go.uber.org/zap"
)

// Check kinds. They name the entries of the trust weight table and prefix
// the cache keys, so each check is cached independently.
const (
	CheckVirusTotal   = "virustotal"
	CheckSafeBrowsing = "safebrowsing"
	CheckPatterns     = "patterns"
	CheckBlacklist    = "blacklist"
)

// trustWeights is the fixed weight table combining the four domain checks
// into one trust score. The two external providers are weighted above the
// two local heuristics. The weights sum to 1.0; adding or removing a check
// requires updating this table.
var trustWeights = map[string]float64{
	CheckVirusTotal:   0.40,
	CheckSafeBrowsing: 0.40,
	CheckPatterns:     0.10,
	CheckBlacklist:    0.10,
}

// Analyzer computes the domain reputation signal: two external provider
// lookups plus two local heuristics, each cached independently per check
// kind, combined by the trust weight table.
type Analyzer struct {
	virustotal   *VirusTotalClient
	safebrowsing *SafeBrowsingClient
	cache        Cache
	logger       *zap.Logger
}

// NewAnalyzer creates a domain reputation analyzer.
func NewAnalyzer(virustotal *VirusTotalClient, safebrowsing *SafeBrowsingClient, cache Cache, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		virustotal:   virustotal,
		safebrowsing: safebrowsing,
		cache:        cache,
		logger:       logger,
	}
}

// TrustWeights returns a copy of the trust weight table.
func TrustWeights() map[string]float64 {
	weights := make(map[string]float64, len(trustWeights))
	for name, w := range trustWeights {
		weights[name] = w
	}
	return weights
}

// ExtractDomain pulls the domain out of an email address. A bare domain is
// returned as-is; the caller decides whether it is usable.
func ExtractDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return strings.ToLower(strings.TrimSpace(email))
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}

// Analyze runs all four checks for the sender's domain and combines them
// into the trust score. It never fails: every check degrades on its own.
func (a *Analyzer) Analyze(ctx context.Context, sender string) core.DomainAnalysis {
	domain := ExtractDomain(sender)
	if domain == "" || !strings.Contains(domain, ".") {
		return invalidDomainAnalysis(domain)
	}

	vt := a.cached(ctx, CheckVirusTotal, domain, func() core.SignalResult {
		return a.virustotal.CheckDomain(ctx, domain)
	})
	sb := a.cached(ctx, CheckSafeBrowsing, domain, func() core.SignalResult {
		return a.safebrowsing.CheckDomain(ctx, domain)
	})
	patterns := a.cached(ctx, CheckPatterns, domain, func() core.SignalResult {
		return CheckDomainPatterns(domain)
	})
	blacklist := a.cached(ctx, CheckBlacklist, domain, func() core.SignalResult {
		return CheckDomainBlacklist(domain)
	})

	trust := trustWeights[CheckVirusTotal]*vt.Score +
		trustWeights[CheckSafeBrowsing]*sb.Score +
		trustWeights[CheckPatterns]*patterns.Score +
		trustWeights[CheckBlacklist]*blacklist.Score

	var reasons []string
	reasons = append(reasons, vt.Reasons...)
	reasons = append(reasons, sb.Reasons...)
	reasons = append(reasons, patterns.Reasons...)
	reasons = append(reasons, blacklist.Reasons...)

	return core.DomainAnalysis{
		Domain:     domain,
		TrustScore: round3(trust),
		Reasons:    reasons,
		Detailed: map[string]core.SignalResult{
			CheckVirusTotal:   vt,
			CheckSafeBrowsing: sb,
			CheckPatterns:     patterns,
			CheckBlacklist:    blacklist,
		},
	}
}

func (a *Analyzer) cached(ctx context.Context, kind, domain string, compute func() core.SignalResult) core.SignalResult {
	return a.cache.GetOrCompute(ctx, kind+":"+domain, compute)
}

func invalidDomainAnalysis(domain string) core.DomainAnalysis {
	invalid := neutral("Invalid domain format")
	return core.DomainAnalysis{
		Domain:     domain,
		TrustScore: neutralScore,
		Reasons:    []string{"Invalid domain format"},
		Detailed: map[string]core.SignalResult{
			CheckVirusTotal:   invalid,
			CheckSafeBrowsing: invalid,
			CheckPatterns:     invalid,
			CheckBlacklist:    invalid,
		},
	}
}

const neutralScore = 0.5

// neutral is the degraded-signal value: a neutral score plus the reason the
// real computation was unavailable.
func neutral(reason string) core.SignalResult {
	return core.SignalResult{Score: neutralScore, Reasons: []string{reason}}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
