package reputation

import (
	"math"
	"testing"
)

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{"plain address", "alice@example.com", "example.com"},
		{"uppercase normalized", "Alice@Example.COM", "example.com"},
		{"bare domain passes through", "example.com", "example.com"},
		{"last at sign wins", `"weird@local"@example.com`, "example.com"},
		{"surrounding whitespace trimmed", " alice@example.com ", "example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractDomain(tt.email); got != tt.want {
				t.Errorf("ExtractDomain(%q) = %q, want %q", tt.email, got, tt.want)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"paypal", "paypal", 1.0},
		{"paypa1", "paypal", 1.0 - 1.0/6.0},
		{"", "", 1.0},
		{"abc", "", 0.0},
	}

	for _, tt := range tests {
		if got := Similarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCheckDomainPatternsTyposquat(t *testing.T) {
	got := CheckDomainPatterns("paypa1-secure.tk")

	// Suspicious TLD (+0.3), lure keyword (+0.2) and paypal look-alike
	// (+0.4) on top of the neutral 0.5, clamped to 1.0.
	if got.Score != 1.0 {
		t.Errorf("score = %v, want 1.0", got.Score)
	}

	foundTyposquat := false
	for _, reason := range got.Reasons {
		if reason == "Potential typosquatting of paypal.com" {
			foundTyposquat = true
		}
	}
	if !foundTyposquat {
		t.Errorf("reasons = %v, want typosquat reason for paypal.com", got.Reasons)
	}
}

func TestCheckDomainPatternsCleanDomain(t *testing.T) {
	got := CheckDomainPatterns("nytimes.com")

	if got.Score != 0.5 {
		t.Errorf("score = %v, want neutral 0.5", got.Score)
	}
	if len(got.Reasons) != 0 {
		t.Errorf("reasons = %v, want none", got.Reasons)
	}
}

func TestCheckDomainPatternsGenuineBrandNotTyposquat(t *testing.T) {
	for _, domain := range []string{"paypal.com", "mail.google.com"} {
		got := CheckDomainPatterns(domain)
		for _, reason := range got.Reasons {
			if reason == "Potential typosquatting of paypal.com" ||
				reason == "Potential typosquatting of google.com" {
				t.Errorf("%s flagged as typosquat: %v", domain, got.Reasons)
			}
		}
	}
}

func TestCheckDomainPatternsStructural(t *testing.T) {
	got := CheckDomainPatterns("a.b.c.example.com")
	foundSubdomains := false
	for _, reason := range got.Reasons {
		if reason == "Multiple subdomains detected" {
			foundSubdomains = true
		}
	}
	if !foundSubdomains {
		t.Errorf("reasons = %v, want subdomain reason", got.Reasons)
	}

	got = CheckDomainPatterns("mail123.example.com")
	foundDigits := false
	for _, reason := range got.Reasons {
		if reason == "Excessive numbers in domain" {
			foundDigits = true
		}
	}
	if !foundDigits {
		t.Errorf("reasons = %v, want digit reason", got.Reasons)
	}
}

func TestCheckDomainBlacklistIgnoresStructure(t *testing.T) {
	// The blacklist check carries no structural heuristics, so deep
	// subdomains alone stay neutral.
	got := CheckDomainBlacklist("a.b.c.example.com")
	if got.Score != 0.5 {
		t.Errorf("score = %v, want 0.5", got.Score)
	}

	got = CheckDomainBlacklist("update-now.tk")
	// TLD (+0.3) and keyword (+0.2).
	if got.Score != 1.0 {
		t.Errorf("score = %v, want 1.0", got.Score)
	}
}
