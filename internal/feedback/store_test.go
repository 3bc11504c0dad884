package feedback

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/phishshield/internal/core"
	"go.uber.org/zap"
)

// channelTrainer reports every Train call on a channel so tests can observe
// the background retrain cadence.
type channelTrainer struct {
	calls chan int
}

func newChannelTrainer() *channelTrainer {
	return &channelTrainer{calls: make(chan int, 16)}
}

func (t *channelTrainer) Predict(string) (float64, string) { return 0.5, "model not trained" }

func (t *channelTrainer) Train(records []core.FeedbackRecord) bool {
	t.calls <- len(records)
	return true
}

// waitForTrain blocks until one Train call happens or the timeout elapses,
// returning the record count it was given.
func (t *channelTrainer) waitForTrain(tb testing.TB) int {
	tb.Helper()
	select {
	case n := <-t.calls:
		return n
	case <-time.After(5 * time.Second):
		tb.Fatal("timed out waiting for a retrain")
		return 0
	}
}

func (t *channelTrainer) assertNoTrain(tb testing.TB) {
	tb.Helper()
	select {
	case n := <-t.calls:
		tb.Fatalf("unexpected retrain with %d records", n)
	case <-time.After(100 * time.Millisecond):
	}
}

func testRecord(i int) core.FeedbackRecord {
	return core.FeedbackRecord{
		Email: core.EmailRecord{
			Sender:  fmt.Sprintf("user%d@example.com", i),
			Subject: fmt.Sprintf("subject %d", i),
			Body:    "body",
		},
		Result:  core.AnalysisResult{FinalScore: 0.2, Verdict: core.VerdictSafe},
		Correct: i%2 == 0,
	}
}

func openTestStore(t *testing.T, path string, trainer core.TextScorer) *Store {
	t.Helper()
	store, err := Open(path, trainer, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.jsonl")
	trainer := newChannelTrainer()

	store := openTestStore(t, path, trainer)
	for i := 0; i < 3; i++ {
		if err := store.Append(testRecord(i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := openTestStore(t, path, trainer)
	records := reopened.All()
	if len(records) != 3 {
		t.Fatalf("reloaded %d records, want 3", len(records))
	}
	if records[1].Email.Sender != "user1@example.com" {
		t.Errorf("record order lost: %q", records[1].Email.Sender)
	}
}

func TestCorruptTrailingLineIsDropped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.jsonl")
	trainer := newChannelTrainer()

	store := openTestStore(t, path, trainer)
	if err := store.Append(testRecord(0)); err != nil {
		t.Fatal(err)
	}
	if err := store.Append(testRecord(1)); err != nil {
		t.Fatal(err)
	}
	store.Close()

	// Simulate a crash mid-append.
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := file.WriteString(`{"emailData":{"sender":"tr`); err != nil {
		t.Fatal(err)
	}
	file.Close()

	reopened := openTestStore(t, path, trainer)
	if got := len(reopened.All()); got != 2 {
		t.Errorf("reloaded %d records, want 2 with the torn line dropped", got)
	}
}

func TestStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.jsonl")
	store := openTestStore(t, path, newChannelTrainer())

	for i := 0; i < 4; i++ {
		if err := store.Append(testRecord(i)); err != nil {
			t.Fatal(err)
		}
	}

	stats := store.Stats()
	if stats.Total != 4 {
		t.Errorf("total = %d, want 4", stats.Total)
	}
	// Records 0 and 2 are marked correct.
	if stats.Accuracy != 0.5 {
		t.Errorf("accuracy = %v, want 0.5", stats.Accuracy)
	}
	if len(stats.Recent) != 4 {
		t.Fatalf("recent = %d records, want 4", len(stats.Recent))
	}
	// Newest first.
	if stats.Recent[0].Email.Sender != "user3@example.com" {
		t.Errorf("recent[0] sender = %q, want user3@example.com", stats.Recent[0].Email.Sender)
	}
}

func TestStatsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.jsonl")
	store := openTestStore(t, path, newChannelTrainer())

	stats := store.Stats()
	if stats.Total != 0 || stats.Accuracy != 0 || len(stats.Recent) != 0 {
		t.Errorf("stats = %+v, want zero values", stats)
	}
}

func TestRetrainCadence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.jsonl")
	trainer := newChannelTrainer()
	store := openTestStore(t, path, trainer)

	// No retrain below the minimum record count.
	for i := 0; i < 9; i++ {
		if err := store.Append(testRecord(i)); err != nil {
			t.Fatal(err)
		}
	}
	trainer.assertNoTrain(t)

	// The tenth record triggers the first retrain.
	if err := store.Append(testRecord(9)); err != nil {
		t.Fatal(err)
	}
	if n := trainer.waitForTrain(t); n != 10 {
		t.Errorf("retrained with %d records, want 10", n)
	}

	// Off-cadence appends stay quiet.
	for i := 10; i < 14; i++ {
		if err := store.Append(testRecord(i)); err != nil {
			t.Fatal(err)
		}
	}
	trainer.assertNoTrain(t)

	// The next multiple of five retrains again.
	if err := store.Append(testRecord(14)); err != nil {
		t.Fatal(err)
	}
	if n := trainer.waitForTrain(t); n != 15 {
		t.Errorf("retrained with %d records, want 15", n)
	}
}

func TestAppendSnapshotsAreImmutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.jsonl")
	store := openTestStore(t, path, newChannelTrainer())

	if err := store.Append(testRecord(0)); err != nil {
		t.Fatal(err)
	}
	before := store.All()

	if err := store.Append(testRecord(1)); err != nil {
		t.Fatal(err)
	}

	if len(before) != 1 {
		t.Errorf("earlier snapshot grew to %d records", len(before))
	}
	if got := len(store.All()); got != 2 {
		t.Errorf("current snapshot has %d records, want 2", got)
	}
}
