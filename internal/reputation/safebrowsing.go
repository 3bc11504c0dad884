package reputation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mikey/phishshield/internal/core"
	"go.uber.org/zap"
)

const safeBrowsingFindURL = "https://safebrowsing.googleapis.com/v4/threatMatches:find"

const (
	// safeBrowsingMatchScore is assigned when the provider flags the domain.
	safeBrowsingMatchScore = 0.9
	// safeBrowsingCleanScore is assigned when the provider knows the domain
	// and reports it clean.
	safeBrowsingCleanScore = 0.1
)

// SafeBrowsingClient queries the Google Safe Browsing v4 lookup API, with
// the same degradation contract as the VirusTotal client.
type SafeBrowsingClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSafeBrowsingClient creates a Safe Browsing client. An empty API key is
// a valid configuration; every lookup then degrades to neutral.
func NewSafeBrowsingClient(apiKey string, timeout time.Duration, logger *zap.Logger) *SafeBrowsingClient {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &SafeBrowsingClient{
		apiKey:     apiKey,
		baseURL:    safeBrowsingFindURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type sbRequest struct {
	Client     sbClientInfo `json:"client"`
	ThreatInfo sbThreatInfo `json:"threatInfo"`
}

type sbClientInfo struct {
	ClientID      string `json:"clientId"`
	ClientVersion string `json:"clientVersion"`
}

type sbThreatInfo struct {
	ThreatTypes      []string     `json:"threatTypes"`
	PlatformTypes    []string     `json:"platformTypes"`
	ThreatEntryTypes []string     `json:"threatEntryTypes"`
	ThreatEntries    []sbURLEntry `json:"threatEntries"`
}

type sbURLEntry struct {
	URL string `json:"url"`
}

type sbResponse struct {
	Matches []struct {
		ThreatType string `json:"threatType"`
	} `json:"matches"`
}

// CheckDomain asks Safe Browsing whether the domain matches any known
// threat list.
func (c *SafeBrowsingClient) CheckDomain(ctx context.Context, domain string) core.SignalResult {
	if c.apiKey == "" {
		return neutral("Google Safe Browsing API key not configured")
	}

	payload := sbRequest{
		Client: sbClientInfo{ClientID: "phishshield", ClientVersion: "1.0"},
		ThreatInfo: sbThreatInfo{
			ThreatTypes:      []string{"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE"},
			PlatformTypes:    []string{"ANY_PLATFORM"},
			ThreatEntryTypes: []string{"URL"},
			ThreatEntries:    []sbURLEntry{{URL: "http://" + domain}},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return neutral(fmt.Sprintf("Google Safe Browsing request error: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"?key="+c.apiKey, bytes.NewReader(body))
	if err != nil {
		return neutral(fmt.Sprintf("Google Safe Browsing request error: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Safe Browsing lookup failed", zap.Error(err), zap.String("domain", domain))
		return neutral(fmt.Sprintf("Google Safe Browsing API error: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return neutral(fmt.Sprintf("Google Safe Browsing API error: %d", resp.StatusCode))
	}

	var result sbResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return neutral(fmt.Sprintf("Google Safe Browsing response error: %v", err))
	}

	if len(result.Matches) == 0 {
		return core.SignalResult{
			Score:   safeBrowsingCleanScore,
			Reasons: []string{"Google Safe Browsing: Clean"},
		}
	}

	seen := make(map[string]bool)
	var threats []string
	for _, match := range result.Matches {
		threatType := match.ThreatType
		if threatType == "" {
			threatType = "UNKNOWN"
		}
		if !seen[threatType] {
			seen[threatType] = true
			threats = append(threats, threatType)
		}
	}

	return core.SignalResult{
		Score:   safeBrowsingMatchScore,
		Reasons: []string{"Google Safe Browsing: " + strings.Join(threats, ", ")},
	}
}
