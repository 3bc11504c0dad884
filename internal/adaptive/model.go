package adaptive

import (
	"math"
	"regexp"
	"strings"
	"time"
)

// TrainedModel is one immutable version of the feedback classifier: a term
// vocabulary plus logistic-regression weights. Exactly one current version
// exists at a time; a retrain publishes a replacement, it never mutates a
// model that predictions may still be reading.
type TrainedModel struct {
	Vocabulary map[string]int `json:"vocabulary"`
	Weights    []float64      `json:"weights"`
	Bias       float64        `json:"bias"`
	TrainedAt  time.Time      `json:"trained_at"`
	Version    int            `json:"version"`
	Samples    int            `json:"samples"`
	Accuracy   float64        `json:"holdout_accuracy"`
}

var tokenPattern = regexp.MustCompile(`[a-z]+`)

// Tokenize lowercases the text and keeps alphabetic runs of two or more
// characters.
func Tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := raw[:0]
	for _, tok := range raw {
		if len(tok) >= 2 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// Vectorize maps text onto normalized term frequencies over the model
// vocabulary. Out-of-vocabulary tokens are ignored.
func (m *TrainedModel) Vectorize(text string) []float64 {
	vec := make([]float64, len(m.Weights))
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return vec
	}
	for _, tok := range tokens {
		if idx, ok := m.Vocabulary[tok]; ok {
			vec[idx]++
		}
	}
	norm := float64(len(tokens))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// PredictProbability returns the positive-class (phishing) probability for
// the text, clamped to [0,1].
func (m *TrainedModel) PredictProbability(text string) float64 {
	vec := m.Vectorize(text)
	z := m.Bias
	for i, w := range m.Weights {
		z += w * vec[i]
	}
	p := sigmoid(z)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
