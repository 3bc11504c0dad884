package core

import (
	"time"
)

// Verdict is the discrete outcome assigned to one analyzed email.
type Verdict string

const (
	VerdictPhishing   Verdict = "Phishing"
	VerdictSuspicious Verdict = "Suspicious"
	VerdictSafe       Verdict = "Safe"
	VerdictUnknown    Verdict = "Unknown"
)

// Flagged reports whether the verdict marked the email as a threat. It is
// the polarity used when deriving training labels from user feedback.
func (v Verdict) Flagged() bool {
	return v == VerdictPhishing || v == VerdictSuspicious
}

// Names of the signals combined by the fusion engine.
const (
	SignalHeader   = "header"
	SignalDomain   = "domain"
	SignalBody     = "body"
	SignalIntent   = "intent"
	SignalAdaptive = "adaptive"
	SignalLink     = "link"
)

// EmailRecord is the immutable input to one analysis pass.
type EmailRecord struct {
	Sender  string   `json:"sender"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	Links   []string `json:"links"`
}

// SignalResult is one extractor's contribution: a score in [0,1] and
// human-readable reasons. Extractors clamp the score internally; everything
// downstream trusts it. An extractor that cannot compute its real score
// returns a neutral 0.5 with an explanatory reason instead of an error.
type SignalResult struct {
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}

// DomainAnalysis is the detailed breakdown of the domain reputation signal.
// TrustScore keeps the provider polarity: higher means more suspicious.
type DomainAnalysis struct {
	Domain     string                  `json:"domain"`
	TrustScore float64                 `json:"trust_score"`
	Reasons    []string                `json:"reasons"`
	Detailed   map[string]SignalResult `json:"detailed_analysis"`
}

// AnalysisResult aggregates every signal produced for one email together
// with the fused score and verdict. It is created once per analysis call and
// never mutated afterwards. The JSON field names are the external contract
// of the analyze endpoint and must not change.
type AnalysisResult struct {
	HeaderScore    float64        `json:"header_score"`
	HeaderReasons  []string       `json:"header_reasons"`
	DomainAnalysis DomainAnalysis `json:"domain_analysis"`
	BodyScore      float64        `json:"body_score"`
	BodyKeywords   []string       `json:"body_keywords"`
	IntentScore    float64        `json:"bert_score"`
	IntentAnalysis SignalResult   `json:"bert_analysis"`
	AdaptiveScore  float64        `json:"feedback_score"`
	AdaptiveReason string         `json:"feedback_reason"`
	LinkScore      float64        `json:"link_score"`
	LinkReasons    []string       `json:"link_reasons"`
	FinalScore     float64        `json:"final_score"`
	Verdict        Verdict        `json:"verdict"`
}

// FeedbackRecord attaches user-asserted ground truth to a prior analysis.
// Records are append-only; their identity is the append order.
type FeedbackRecord struct {
	Email   EmailRecord    `json:"emailData"`
	Result  AnalysisResult `json:"analysisResult"`
	Correct bool           `json:"correct"`
}

// FeedbackStats summarizes the accumulated feedback log.
type FeedbackStats struct {
	Total    int              `json:"total_feedback"`
	Accuracy float64          `json:"accuracy"`
	Recent   []FeedbackRecord `json:"recent_feedback"`
}

// ScanRecord is one persisted row of scan history, written after every
// completed analysis.
type ScanRecord struct {
	ID            string    `json:"id"`
	ScannedAt     time.Time `json:"timestamp"`
	Sender        string    `json:"sender"`
	Subject       string    `json:"subject"`
	BodyLength    int       `json:"body_length"`
	LinkCount     int       `json:"links_count"`
	HeaderScore   float64   `json:"header_score"`
	DomainScore   float64   `json:"domain_score"`
	BodyScore     float64   `json:"body_score"`
	IntentScore   float64   `json:"bert_score"`
	AdaptiveScore float64   `json:"feedback_score"`
	LinkScore     float64   `json:"link_score"`
	FinalScore    float64   `json:"final_score"`
	Verdict       Verdict   `json:"verdict"`
}

// SenderCount is one entry of the top-senders dashboard view.
type SenderCount struct {
	Sender string `json:"sender"`
	Count  int    `json:"count"`
}

// DailyCount is one day of the scan trend dashboard view.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DashboardStats is the aggregate read view over recent scan history.
type DashboardStats struct {
	TotalScans         int                `json:"total_scans"`
	PhishingDetected   int                `json:"phishing_detected"`
	SuspiciousDetected int                `json:"suspicious_detected"`
	SafeDetected       int                `json:"safe_detected"`
	DetectionRate      float64            `json:"detection_rate"`
	AverageScores      map[string]float64 `json:"average_scores"`
	TopSenders         []SenderCount      `json:"top_senders"`
	ScanTrends         []DailyCount       `json:"scan_trends"`
	RecentScans        []ScanRecord       `json:"recent_scans"`
}
