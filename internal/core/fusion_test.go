package core

import (
	"math"
	"testing"
)

func uniformSignals(score float64) map[string]SignalResult {
	return map[string]SignalResult{
		SignalHeader:   {Score: score},
		SignalDomain:   {Score: score},
		SignalBody:     {Score: score},
		SignalIntent:   {Score: score},
		SignalAdaptive: {Score: score},
		SignalLink:     {Score: score},
	}
}

func TestFusionWeightsSumToOne(t *testing.T) {
	engine := NewFusionEngine()

	sum := 0.0
	for _, w := range engine.Weights() {
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Fatalf("fusion weights sum to %v, want 1.0", sum)
	}
}

func TestFuseVerdictBands(t *testing.T) {
	// A uniform signal score fuses to itself because the weights sum to 1,
	// which makes the band boundaries directly testable.
	tests := []struct {
		name    string
		score   float64
		want    float64
		verdict Verdict
	}{
		{"all zero", 0.0, 0.0, VerdictSafe},
		{"safe upper bound inclusive", 0.40, 0.40, VerdictSafe},
		{"just above safe", 0.41, 0.41, VerdictSuspicious},
		{"suspicious upper bound inclusive", 0.70, 0.70, VerdictSuspicious},
		{"just above suspicious", 0.71, 0.71, VerdictPhishing},
		{"all one", 1.0, 1.0, VerdictPhishing},
	}

	engine := NewFusionEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, verdict := engine.Fuse(uniformSignals(tt.score))
			if got != tt.want {
				t.Errorf("Fuse() score = %v, want %v", got, tt.want)
			}
			if verdict != tt.verdict {
				t.Errorf("Fuse() verdict = %v, want %v", verdict, tt.verdict)
			}
		})
	}
}

func TestFuseRoundsToTwoDecimals(t *testing.T) {
	engine := NewFusionEngine()

	got, _ := engine.Fuse(uniformSignals(0.333))
	if got != 0.33 {
		t.Errorf("Fuse() score = %v, want 0.33", got)
	}
}

func TestFuseMissingSignalIsUnknown(t *testing.T) {
	engine := NewFusionEngine()

	signals := uniformSignals(0.9)
	delete(signals, SignalAdaptive)

	got, verdict := engine.Fuse(signals)
	if verdict != VerdictUnknown {
		t.Errorf("Fuse() verdict = %v, want %v", verdict, VerdictUnknown)
	}
	if got != 0 {
		t.Errorf("Fuse() score = %v, want 0", got)
	}
}

func TestFuseNaNSignalIsUnknown(t *testing.T) {
	engine := NewFusionEngine()

	signals := uniformSignals(0.5)
	signals[SignalBody] = SignalResult{Score: math.NaN()}

	_, verdict := engine.Fuse(signals)
	if verdict != VerdictUnknown {
		t.Errorf("Fuse() verdict = %v, want %v", verdict, VerdictUnknown)
	}
}

func TestFuseOutOfRangeSignalIsUnknown(t *testing.T) {
	engine := NewFusionEngine()

	signals := uniformSignals(1.0)
	signals[SignalIntent] = SignalResult{Score: 3.0}

	_, verdict := engine.Fuse(signals)
	if verdict != VerdictUnknown {
		t.Errorf("Fuse() verdict = %v, want %v", verdict, VerdictUnknown)
	}
}
