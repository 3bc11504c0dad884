package history

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mikey/phishshield/internal/core"
	"go.uber.org/zap"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func scanRecord(i int, verdict core.Verdict, scannedAt time.Time) *core.ScanRecord {
	return &core.ScanRecord{
		ID:            fmt.Sprintf("scan-%04d", i),
		ScannedAt:     scannedAt,
		Sender:        fmt.Sprintf("user%d@example.com", i%2),
		Subject:       fmt.Sprintf("subject %d", i),
		BodyLength:    120,
		LinkCount:     i % 3,
		HeaderScore:   0.5,
		DomainScore:   0.6,
		BodyScore:     0.4,
		IntentScore:   0.5,
		AdaptiveScore: 0.5,
		LinkScore:     0.3,
		FinalScore:    0.48,
		Verdict:       verdict,
	}
}

func TestAddAndStats(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	verdicts := []core.Verdict{
		core.VerdictPhishing,
		core.VerdictSuspicious,
		core.VerdictSafe,
		core.VerdictSafe,
	}
	for i, verdict := range verdicts {
		record := scanRecord(i, verdict, now.Add(-time.Duration(i)*time.Hour))
		if err := store.Add(ctx, record); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := store.Stats(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}

	if stats.TotalScans != 4 {
		t.Errorf("total scans = %d, want 4", stats.TotalScans)
	}
	if stats.PhishingDetected != 1 || stats.SuspiciousDetected != 1 || stats.SafeDetected != 2 {
		t.Errorf("verdict counts = %d/%d/%d, want 1/1/2",
			stats.PhishingDetected, stats.SuspiciousDetected, stats.SafeDetected)
	}
	if stats.DetectionRate != 0.5 {
		t.Errorf("detection rate = %v, want 0.5", stats.DetectionRate)
	}
	if got := stats.AverageScores["final_score"]; got != 0.48 {
		t.Errorf("average final score = %v, want 0.48", got)
	}
	if len(stats.RecentScans) != 4 {
		t.Fatalf("recent scans = %d, want 4", len(stats.RecentScans))
	}
	// Newest first.
	if stats.RecentScans[0].ID != "scan-0000" {
		t.Errorf("recent[0] = %q, want scan-0000", stats.RecentScans[0].ID)
	}
	if len(stats.TopSenders) != 2 {
		t.Errorf("top senders = %d, want 2", len(stats.TopSenders))
	}
}

func TestStatsWindowExcludesOldScans(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := store.Add(ctx, scanRecord(0, core.VerdictSafe, now)); err != nil {
		t.Fatal(err)
	}
	if err := store.Add(ctx, scanRecord(1, core.VerdictPhishing, now.AddDate(0, 0, -30))); err != nil {
		t.Fatal(err)
	}

	stats, err := store.Stats(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalScans != 1 {
		t.Errorf("total scans = %d, want 1 inside the 7-day window", stats.TotalScans)
	}
	if stats.PhishingDetected != 0 {
		t.Errorf("phishing detected = %d, want 0", stats.PhishingDetected)
	}
}

func TestStatsEmptyStore(t *testing.T) {
	store := openTestStore(t)

	stats, err := store.Stats(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalScans != 0 {
		t.Errorf("total scans = %d, want 0", stats.TotalScans)
	}
	if stats.RecentScans == nil || stats.TopSenders == nil || stats.ScanTrends == nil {
		t.Error("empty stats must use empty slices, not nil")
	}
}

func TestExportCSV(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Add(ctx, scanRecord(0, core.VerdictPhishing, time.Now().UTC())); err != nil {
		t.Fatal(err)
	}

	csvData, err := store.ExportCSV(ctx)
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(csvData), "\n")
	if len(lines) != 2 {
		t.Fatalf("CSV has %d lines, want header plus one row", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,timestamp,sender") {
		t.Errorf("CSV header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "scan-0000") || !strings.Contains(lines[1], "Phishing") {
		t.Errorf("CSV row = %q, want id and verdict", lines[1])
	}
}

func TestExportJSON(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Add(ctx, scanRecord(0, core.VerdictSafe, time.Now().UTC())); err != nil {
		t.Fatal(err)
	}

	data, err := store.ExportJSON(ctx)
	if err != nil {
		t.Fatal(err)
	}

	var records []core.ScanRecord
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("exported %d records, want 1", len(records))
	}
	if records[0].ID != "scan-0000" || records[0].Verdict != core.VerdictSafe {
		t.Errorf("exported record = %+v", records[0])
	}
}

func TestExportJSONEmptyStore(t *testing.T) {
	store := openTestStore(t)

	data, err := store.ExportJSON(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("empty export = %q, want []", string(data))
	}
}
