package reputation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mikey/phishshield/internal/core"
	"go.uber.org/zap"
)

const virusTotalDomainReportURL = "https://www.virustotal.com/vtapi/v2/domain/report"

// DefaultLookupTimeout bounds every external reputation request so a slow
// provider cannot stall an analysis.
const DefaultLookupTimeout = 10 * time.Second

// VirusTotalClient queries the VirusTotal domain report API. A missing
// credential, timeout or non-200 response degrades to a neutral score with
// an explanatory reason; transport errors never reach the caller.
type VirusTotalClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewVirusTotalClient creates a VirusTotal client. An empty API key is a
// valid configuration; every lookup then degrades to neutral.
func NewVirusTotalClient(apiKey string, timeout time.Duration, logger *zap.Logger) *VirusTotalClient {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &VirusTotalClient{
		apiKey:     apiKey,
		baseURL:    virusTotalDomainReportURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type vtDomainReport struct {
	DetectedURLs []struct {
		Positives int `json:"positives"`
	} `json:"detected_urls"`
	DetectedReferrerSamples []struct {
		Positives int `json:"positives"`
	} `json:"detected_referrer_samples"`
}

// CheckDomain scores the domain by the ratio of flagged URLs VirusTotal has
// seen on it, scaled into the 0.5-1.0 band.
func (c *VirusTotalClient) CheckDomain(ctx context.Context, domain string) core.SignalResult {
	if c.apiKey == "" {
		return neutral("VirusTotal API key not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return neutral(fmt.Sprintf("VirusTotal request error: %v", err))
	}
	query := req.URL.Query()
	query.Set("apikey", c.apiKey)
	query.Set("domain", domain)
	req.URL.RawQuery = query.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("VirusTotal lookup failed", zap.Error(err), zap.String("domain", domain))
		return neutral(fmt.Sprintf("VirusTotal API error: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return neutral(fmt.Sprintf("VirusTotal API error: %d", resp.StatusCode))
	}

	var report vtDomainReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return neutral(fmt.Sprintf("VirusTotal response error: %v", err))
	}

	score := neutralScore
	var reasons []string

	if total := len(report.DetectedURLs); total > 0 {
		malicious := 0
		for _, url := range report.DetectedURLs {
			if url.Positives > 0 {
				malicious++
			}
		}
		ratio := float64(malicious) / float64(total)
		score = 0.5 + ratio*0.5
		reasons = append(reasons, fmt.Sprintf("VirusTotal: %d/%d URLs flagged", malicious, total))
	}

	maliciousRefs := 0
	for _, ref := range report.DetectedReferrerSamples {
		if ref.Positives > 0 {
			maliciousRefs++
		}
	}
	if maliciousRefs > 0 {
		score += 0.1
		reasons = append(reasons, fmt.Sprintf("VirusTotal: %d malicious referrers", maliciousRefs))
	}

	return core.SignalResult{Score: clamp01(score), Reasons: reasons}
}
