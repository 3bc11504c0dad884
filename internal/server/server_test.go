package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mikey/phishshield/internal/adaptive"
	"github.com/mikey/phishshield/internal/core"
	"github.com/mikey/phishshield/internal/extractors"
	"github.com/mikey/phishshield/internal/reputation"
	"go.uber.org/zap"
)

type fakeFeedback struct {
	records []core.FeedbackRecord
	fail    bool
}

func (f *fakeFeedback) Append(record core.FeedbackRecord) error {
	if f.fail {
		return context.DeadlineExceeded
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeFeedback) All() []core.FeedbackRecord { return f.records }

func (f *fakeFeedback) Stats() core.FeedbackStats {
	return core.FeedbackStats{Total: len(f.records)}
}

type fakeHistory struct{}

func (fakeHistory) Add(context.Context, *core.ScanRecord) error { return nil }
func (fakeHistory) Stats(context.Context, int) (*core.DashboardStats, error) {
	return &core.DashboardStats{TotalScans: 2}, nil
}
func (fakeHistory) ExportCSV(context.Context) (string, error) {
	return "id,timestamp\nscan-1,2026-01-01T00:00:00Z\n", nil
}
func (fakeHistory) ExportJSON(context.Context) ([]byte, error) { return []byte("[]"), nil }

func newTestServer(t *testing.T, feedback core.FeedbackRepository) *Server {
	t.Helper()
	logger := zap.NewNop()

	scorer := adaptive.NewScorer(filepath.Join(t.TempDir(), "model.json"), logger)
	exts := []core.SignalExtractor{
		extractors.NewHeaderExtractor(logger),
		extractors.NewLinkExtractor(logger),
		extractors.NewBodyExtractor(logger),
		extractors.NewIntentExtractor(extractors.NewHeuristicIntentModel(), logger),
		extractors.NewAdaptiveExtractor(scorer),
	}
	domains := reputation.NewAnalyzer(
		reputation.NewVirusTotalClient("", time.Second, logger),
		reputation.NewSafeBrowsingClient("", time.Second, logger),
		reputation.NewMemoryCache(time.Hour, reputation.SystemClock()),
		logger,
	)
	service := core.NewAnalyzerService(exts, domains, core.NewFusionEngine(), fakeHistory{}, logger, 10*time.Second)

	return New("127.0.0.1:0", service, feedback, fakeHistory{}, logger)
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeFeedback{})

	body := `{"sender":"security@paypa1-secure.tk","subject":"Urgent: Verify your account now","body":"Your account has been compromised. Please verify your password immediately.","links":["http://paypa1-secure.tk/login"]}`
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var result core.AnalysisResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if result.Verdict != core.VerdictPhishing {
		t.Errorf("verdict = %v, want %v", result.Verdict, core.VerdictPhishing)
	}
	if result.FinalScore <= 0.70 {
		t.Errorf("final score = %v, want above the suspicious band", result.FinalScore)
	}
}

func TestAnalyzeEndpointMalformedBody(t *testing.T) {
	srv := newTestServer(t, &fakeFeedback{})

	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", `{"sender": "a@b.com"`},
		{"trailing garbage", `{"sender": "a@b.com"} extra`},
		{"missing sender", `{"subject": "hello"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestFeedbackEndpoint(t *testing.T) {
	feedback := &fakeFeedback{}
	srv := newTestServer(t, feedback)

	body := `{"emailData":{"sender":"a@b.com","subject":"s","body":"b"},"analysisResult":{"verdict":"Safe","final_score":0.2},"correct":true}`
	req := httptest.NewRequest(http.MethodPost, "/feedback", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if len(feedback.records) != 1 {
		t.Fatalf("stored %d records, want 1", len(feedback.records))
	}
	if !feedback.records[0].Correct {
		t.Error("correct flag lost in decoding")
	}

	var resp struct {
		Status string             `json:"status"`
		Stats  core.FeedbackStats `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if resp.Status != "recorded" {
		t.Errorf("status = %q, want recorded", resp.Status)
	}
	if resp.Stats.Total != 1 {
		t.Errorf("stats total = %d, want 1", resp.Stats.Total)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeFeedback{})

	req := httptest.NewRequest(http.MethodGet, "/stats?days=30", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Dashboard core.DashboardStats `json:"dashboard"`
		Feedback  core.FeedbackStats  `json:"feedback"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if resp.Dashboard.TotalScans != 2 {
		t.Errorf("dashboard total scans = %d, want 2", resp.Dashboard.TotalScans)
	}
}

func TestStatsEndpointRejectsBadDays(t *testing.T) {
	srv := newTestServer(t, &fakeFeedback{})

	for _, days := range []string{"zero", "-1", "0"} {
		req := httptest.NewRequest(http.MethodGet, "/stats?days="+days, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("days=%s: status = %d, want 400", days, rec.Code)
		}
	}
}

func TestExportEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeFeedback{})

	req := httptest.NewRequest(http.MethodGet, "/export?format=csv", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/csv" {
		t.Errorf("content type = %q, want text/csv", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/export?format=json", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("content type = %q, want application/json", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/export?format=xml", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unsupported format", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &fakeFeedback{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
