package adaptive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mikey/phishshield/internal/core"
	"go.uber.org/zap"
)

// feedbackFor builds a record whose derived training label matches wantPhishing:
// a confirmed Phishing verdict labels the text positive, a confirmed Safe
// verdict labels it negative.
func feedbackFor(text string, wantPhishing bool) core.FeedbackRecord {
	verdict := core.VerdictSafe
	if wantPhishing {
		verdict = core.VerdictPhishing
	}
	return core.FeedbackRecord{
		Email:   core.EmailRecord{Subject: "", Body: text},
		Result:  core.AnalysisResult{Verdict: verdict},
		Correct: true,
	}
}

var phishingTexts = []string{
	"verify your account password immediately or lose access",
	"urgent security alert your password was compromised click to verify",
	"your bank account is suspended verify your login now",
	"confirm your password immediately account suspended",
	"winner claim your prize now verify account details",
	"urgent verify password bank account compromised",
}

var safeTexts = []string{
	"meeting notes from the weekly sync attached",
	"lunch on thursday works for me see you then",
	"the quarterly report draft is ready for review",
	"thanks for the feedback on the design document",
	"reminder the team offsite agenda is attached",
	"photos from the weekend trip are in the shared album",
}

func balancedFeedback() []core.FeedbackRecord {
	var records []core.FeedbackRecord
	for _, text := range phishingTexts {
		records = append(records, feedbackFor(text, true))
	}
	for _, text := range safeTexts {
		records = append(records, feedbackFor(text, false))
	}
	return records
}

func TestPredictUntrained(t *testing.T) {
	scorer := NewScorer(filepath.Join(t.TempDir(), "model.json"), zap.NewNop())

	score, rationale := scorer.Predict("verify your account now")
	if score != NeutralScore {
		t.Errorf("score = %v, want %v", score, NeutralScore)
	}
	if rationale != RationaleUntrained {
		t.Errorf("rationale = %q, want %q", rationale, RationaleUntrained)
	}
	if scorer.Trained() {
		t.Error("Trained() = true for a scorer with no model file")
	}
}

func TestTrainRefusesBelowMinimum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	scorer := NewScorer(path, zap.NewNop())

	records := balancedFeedback()[:9]
	if scorer.Train(records) {
		t.Error("Train() = true with 9 records, want false")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("refused training must not create a model file")
	}
}

func TestTrainRefusesSingleClass(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	scorer := NewScorer(path, zap.NewNop())

	var records []core.FeedbackRecord
	for _, text := range phishingTexts {
		records = append(records, feedbackFor(text, true))
		records = append(records, feedbackFor(text+" again", true))
	}
	if scorer.Train(records) {
		t.Error("Train() = true with single-class feedback, want false")
	}
	if scorer.Trained() {
		t.Error("scorer reports trained after refused training")
	}
}

func TestTrainSeparatesClasses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	scorer := NewScorer(path, zap.NewNop())

	if !scorer.Train(balancedFeedback()) {
		t.Fatal("Train() = false with balanced feedback, want true")
	}
	if !scorer.Trained() {
		t.Fatal("Trained() = false after successful training")
	}
	if scorer.Version() != 1 {
		t.Errorf("version = %d, want 1", scorer.Version())
	}

	phishingScore, rationale := scorer.Predict("urgent verify your password account compromised")
	if rationale != RationaleModel {
		t.Errorf("rationale = %q, want %q", rationale, RationaleModel)
	}
	safeScore, _ := scorer.Predict("meeting notes attached see you thursday")

	if phishingScore <= safeScore {
		t.Errorf("phishing score %v not above safe score %v", phishingScore, safeScore)
	}
}

func TestTrainPersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")

	scorer := NewScorer(path, zap.NewNop())
	if !scorer.Train(balancedFeedback()) {
		t.Fatal("Train() = false, want true")
	}
	wantScore, _ := scorer.Predict("urgent verify your password")

	// A fresh scorer lazily loads the persisted model.
	reloaded := NewScorer(path, zap.NewNop())
	gotScore, rationale := reloaded.Predict("urgent verify your password")

	if rationale != RationaleModel {
		t.Fatalf("rationale = %q, want %q after reload", rationale, RationaleModel)
	}
	if gotScore != wantScore {
		t.Errorf("reloaded prediction = %v, want %v", gotScore, wantScore)
	}
	if reloaded.Version() != 1 {
		t.Errorf("reloaded version = %d, want 1", reloaded.Version())
	}
}

func TestRetrainBumpsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	scorer := NewScorer(path, zap.NewNop())

	records := balancedFeedback()
	if !scorer.Train(records) {
		t.Fatal("first Train() = false, want true")
	}
	records = append(records,
		feedbackFor("your invoice refund is waiting click to claim", true),
		feedbackFor("agenda for the next sprint planning", false),
	)
	if !scorer.Train(records) {
		t.Fatal("second Train() = false, want true")
	}
	if scorer.Version() != 2 {
		t.Errorf("version = %d, want 2", scorer.Version())
	}
}

func TestFailedTrainingKeepsExistingModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	scorer := NewScorer(path, zap.NewNop())

	if !scorer.Train(balancedFeedback()) {
		t.Fatal("Train() = false, want true")
	}
	persisted, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// A later refused training leaves both the live model and the persisted
	// file untouched.
	if scorer.Train(balancedFeedback()[:5]) {
		t.Error("Train() = true with too few records, want false")
	}
	if scorer.Version() != 1 {
		t.Errorf("version = %d, want 1", scorer.Version())
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(persisted) != string(after) {
		t.Error("refused training modified the persisted model file")
	}
}

func TestCorruptModelFileIsIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	scorer := NewScorer(path, zap.NewNop())
	score, rationale := scorer.Predict("anything")
	if score != NeutralScore || rationale != RationaleUntrained {
		t.Errorf("Predict() = (%v, %q), want untrained neutral", score, rationale)
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Verify YOUR account! a x1 now-2")
	want := []string{"verify", "your", "account", "now"}
	if len(got) != len(want) {
		t.Fatalf("Tokenize() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
