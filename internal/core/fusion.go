package core

import (
	"math"
)

// fusionWeights is the single authoritative weight table for signal fusion.
// The weights sum to 1.0. Adding or removing a signal requires updating this
// table; that coupling is deliberate, so the blend of evidence is reviewed
// whenever the signal set changes.
var fusionWeights = map[string]float64{
	SignalHeader:   0.15,
	SignalDomain:   0.20,
	SignalBody:     0.20,
	SignalIntent:   0.20,
	SignalAdaptive: 0.10,
	SignalLink:     0.15,
}

// Verdict band boundaries. Bands are contiguous with inclusive upper edges:
// score <= SafeUpperBound is Safe, score <= SuspiciousUpperBound is
// Suspicious, anything above is Phishing. A score outside [0,1] (or NaN)
// falls through to Unknown.
const (
	SafeUpperBound       = 0.40
	SuspiciousUpperBound = 0.70
)

// finalScorePrecision is the number of decimal digits kept on the fused score.
const finalScorePrecision = 2

// FusionEngine combines the independent signals into one calibrated score
// and verdict. Fuse is a pure function: it has no side effects and trusts
// that every input score was clamped by its extractor, so it never
// re-clamps. Persisting the result is the caller's responsibility.
type FusionEngine struct{}

// NewFusionEngine creates a new fusion engine.
func NewFusionEngine() *FusionEngine {
	return &FusionEngine{}
}

// Weights returns a copy of the fusion weight table.
func (e *FusionEngine) Weights() map[string]float64 {
	weights := make(map[string]float64, len(fusionWeights))
	for name, w := range fusionWeights {
		weights[name] = w
	}
	return weights
}

// Fuse computes the weighted final score over the named signals, rounds it
// to two decimals and maps it onto a verdict band. Every signal named in the
// weight table must be present; a missing signal marks the result Unknown,
// as does a NaN or out-of-range score from a misbehaving extractor.
func (e *FusionEngine) Fuse(signals map[string]SignalResult) (float64, Verdict) {
	sum := 0.0
	for name, weight := range fusionWeights {
		signal, ok := signals[name]
		if !ok {
			return 0, VerdictUnknown
		}
		sum += weight * signal.Score
	}

	final := roundScore(sum)
	switch {
	case math.IsNaN(final) || final < 0 || final > 1:
		return final, VerdictUnknown
	case final <= SafeUpperBound:
		return final, VerdictSafe
	case final <= SuspiciousUpperBound:
		return final, VerdictSuspicious
	default:
		return final, VerdictPhishing
	}
}

func roundScore(v float64) float64 {
	shift := math.Pow(10, finalScorePrecision)
	return math.Round(v*shift) / shift
}
