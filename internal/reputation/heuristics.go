package reputation

import (
	"strings"

	"github.com/mikey/phishshield/internal/core"
)

// Local heuristic checks. These are pure functions over the domain string:
// they always succeed and are unaffected by network state or credentials.

// suspiciousTLDs are cheap or free TLDs heavily abused by phishing campaigns.
var suspiciousTLDs = []string{".tk", ".ml", ".ga", ".cf", ".click", ".download", ".online", ".site"}

// suspiciousDomainKeywords are credential-lure terms that legitimate apex
// domains rarely contain.
var suspiciousDomainKeywords = []string{"secure", "login", "verify", "account", "update", "confirm", "bank", "paypal"}

// typosquatReferences are the brands checked for look-alike domains.
var typosquatReferences = []string{"google.com", "microsoft.com", "apple.com", "amazon.com", "facebook.com", "paypal.com"}

// blacklistTLDs and blacklistKeywords are the narrower lists used by the
// blacklist check, kept separate so the two heuristics stay independently
// cacheable per check kind.
var (
	blacklistTLDs       = []string{".tk", ".ml", ".ga", ".cf", ".click", ".download"}
	blacklistKeywords   = []string{"secure", "login", "verify", "account", "update", "confirm"}
	blacklistReferences = []string{"google.com", "microsoft.com", "apple.com", "amazon.com", "facebook.com"}
)

const (
	// typosquatThreshold is the edit-distance similarity above which a
	// domain counts as a look-alike of a reference brand.
	typosquatThreshold = 0.8

	// maxSubdomainDots is the dot count above which a domain is treated as
	// subdomain abuse.
	maxSubdomainDots = 2

	// maxDomainDigits is the digit count above which a domain is treated
	// as machine-generated.
	maxDomainDigits = 2

	tldPenalty       = 0.3
	keywordPenalty   = 0.2
	typosquatPenalty = 0.4
	subdomainPenalty = 0.1
	digitPenalty     = 0.2
)

// CheckDomainPatterns runs the full pattern heuristic: suspicious TLD, lure
// keywords, typosquatting, subdomain abuse and excessive digits.
func CheckDomainPatterns(domain string) core.SignalResult {
	return checkHeuristics(domain, suspiciousTLDs, suspiciousDomainKeywords, typosquatReferences, true)
}

// CheckDomainBlacklist runs the narrower blacklist heuristic.
func CheckDomainBlacklist(domain string) core.SignalResult {
	return checkHeuristics(domain, blacklistTLDs, blacklistKeywords, blacklistReferences, false)
}

func checkHeuristics(domain string, tlds, keywords, references []string, structural bool) core.SignalResult {
	d := strings.ToLower(strings.TrimSpace(domain))

	score := neutralScore
	var reasons []string

	for _, tld := range tlds {
		if strings.HasSuffix(d, tld) {
			score += tldPenalty
			reasons = append(reasons, "Suspicious TLD: "+tld)
			break
		}
	}

	for _, keyword := range keywords {
		if strings.Contains(d, keyword) {
			score += keywordPenalty
			reasons = append(reasons, "Suspicious keyword in domain: "+keyword)
		}
	}

	if ref, ok := matchTyposquat(d, references); ok {
		score += typosquatPenalty
		reasons = append(reasons, "Potential typosquatting of "+ref)
	}

	if structural {
		if strings.Count(d, ".") > maxSubdomainDots {
			score += subdomainPenalty
			reasons = append(reasons, "Multiple subdomains detected")
		}
		if digitCount(d) > maxDomainDigits {
			score += digitPenalty
			reasons = append(reasons, "Excessive numbers in domain")
		}
	}

	return core.SignalResult{Score: clamp01(score), Reasons: reasons}
}

// matchTyposquat reports the first reference domain the candidate looks
// like. The genuine reference domain and its own subdomains are never a
// squat. Besides the full domain it also compares the registrable label and
// its hyphen-split tokens against the reference brand name, so
// "paypa1-secure.tk" is caught as a look-alike of paypal.com.
func matchTyposquat(domain string, references []string) (string, bool) {
	candidates := typosquatCandidates(domain)
	for _, ref := range references {
		if domain == ref || strings.HasSuffix(domain, "."+ref) {
			continue
		}
		refBase := strings.SplitN(ref, ".", 2)[0]
		for _, candidate := range candidates {
			if Similarity(candidate, ref) >= typosquatThreshold ||
				Similarity(candidate, refBase) >= typosquatThreshold {
				return ref, true
			}
		}
	}
	return "", false
}

func typosquatCandidates(domain string) []string {
	candidates := []string{domain}
	labels := strings.Split(domain, ".")
	if len(labels) >= 2 {
		registrable := labels[len(labels)-2]
		candidates = append(candidates, registrable)
		if strings.Contains(registrable, "-") {
			candidates = append(candidates, strings.Split(registrable, "-")...)
		}
	}
	return candidates
}

// Similarity is the edit-distance similarity of two strings in [0,1];
// 1 means identical. It is the pluggable measure behind the typosquatting
// check.
func Similarity(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(maxLen)
}

func levenshtein(a, b string) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 0; i < len(a); i++ {
		curr[0] = i + 1
		for j := 0; j < len(b); j++ {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}
			curr[j+1] = min3(prev[j+1]+1, curr[j]+1, prev[j]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
