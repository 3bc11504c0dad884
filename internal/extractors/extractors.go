// Package extractors contains the signal extractors combined by the fusion
// engine. Every extractor honors the same contract: scores are clamped to
// [0,1] before they leave the extractor, and anything that prevents the real
// computation degrades to a neutral 0.5 with an explanatory reason instead
// of an error.
package extractors

// neutralScore substitutes for a signal that could not be computed.
const neutralScore = 0.5

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
