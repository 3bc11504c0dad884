// Package adaptive implements the feedback-trained text classifier: a
// bag-of-words logistic regression retrained from user verdict corrections.
// Until enough labeled feedback exists the scorer returns a neutral score so
// the other signals decide alone.
package adaptive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mikey/phishshield/internal/core"
	"go.uber.org/zap"
)

const (
	// NeutralScore is returned while no trained model exists.
	NeutralScore = 0.5

	// RationaleUntrained explains a neutral prediction from an untrained
	// scorer.
	RationaleUntrained = "model not trained"

	// RationaleModel explains a prediction produced by a trained model.
	RationaleModel = "feedback model prediction"

	// minTrainingSamples is the feedback count below which training is
	// refused.
	minTrainingSamples = 10

	// maxVocabularySize caps the bag-of-words dimensionality.
	maxVocabularySize = 5000

	learningRate = 0.5
	epochs       = 200
)

// Scorer is the adaptive signal source. Predictions read the current model
// through an atomic pointer and never block; Train builds a replacement
// model, persists it, and swaps it in.
type Scorer struct {
	path   string
	logger *zap.Logger

	model    atomic.Pointer[TrainedModel]
	loadOnce sync.Once
	trainMu  sync.Mutex
}

// NewScorer creates a scorer persisting its model at path. The model file is
// loaded lazily on first use; a missing file means untrained, which is a
// normal state, not an error.
func NewScorer(path string, logger *zap.Logger) *Scorer {
	return &Scorer{path: path, logger: logger}
}

// Predict scores the text in [0,1] with a human-readable rationale. An
// untrained scorer returns the neutral score.
func (s *Scorer) Predict(text string) (float64, string) {
	model := s.current()
	if model == nil {
		return NeutralScore, RationaleUntrained
	}
	return model.PredictProbability(text), RationaleModel
}

// Trained reports whether a model is currently loaded.
func (s *Scorer) Trained() bool {
	return s.current() != nil
}

// Version returns the current model version, 0 when untrained.
func (s *Scorer) Version() int {
	if model := s.current(); model != nil {
		return model.Version
	}
	return 0
}

func (s *Scorer) current() *TrainedModel {
	s.loadOnce.Do(s.loadFromDisk)
	return s.model.Load()
}

func (s *Scorer) loadFromDisk() {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		s.logger.Warn("Failed to read feedback model", zap.Error(err), zap.String("path", s.path))
		return
	}

	var model TrainedModel
	if err := json.Unmarshal(data, &model); err != nil {
		s.logger.Warn("Failed to parse feedback model", zap.Error(err), zap.String("path", s.path))
		return
	}
	if len(model.Weights) != len(model.Vocabulary) {
		s.logger.Warn("Feedback model is inconsistent, ignoring it", zap.String("path", s.path))
		return
	}

	s.model.Store(&model)
	s.logger.Info("Loaded feedback model",
		zap.Int("version", model.Version),
		zap.Int("samples", model.Samples),
		zap.Float64("holdout_accuracy", model.Accuracy))
}

// Train fits a new model from the feedback records and reports whether a new
// version was published. Training is refused when fewer than ten records
// exist or all records carry the same label; the previous model, trained or
// not, stays in place. Training failures never corrupt the persisted model:
// the file is replaced atomically only after the new version is fully
// written.
func (s *Scorer) Train(records []core.FeedbackRecord) bool {
	s.trainMu.Lock()
	defer s.trainMu.Unlock()

	samples := buildSamples(records)
	if len(samples) < minTrainingSamples {
		s.logger.Info("Not enough feedback to train",
			zap.Int("records", len(samples)),
			zap.Int("required", minTrainingSamples))
		return false
	}

	positives := 0
	for _, sample := range samples {
		positives += sample.label
	}
	if positives == 0 || positives == len(samples) {
		s.logger.Info("Feedback covers a single class, skipping training",
			zap.Int("records", len(samples)),
			zap.Int("positives", positives))
		return false
	}

	train, holdout := splitHoldout(samples)
	vocabulary := buildVocabulary(train)
	if len(vocabulary) == 0 {
		s.logger.Warn("Feedback texts contain no usable tokens, skipping training")
		return false
	}

	previous := s.current()
	version := 1
	if previous != nil {
		version = previous.Version + 1
	}

	model := fit(train, vocabulary)
	model.Version = version
	model.Samples = len(samples)
	model.Accuracy = evaluate(model, holdout)

	if err := s.persist(model); err != nil {
		s.logger.Error("Failed to persist feedback model", zap.Error(err), zap.String("path", s.path))
		return false
	}

	s.model.Store(model)
	s.logger.Info("Trained feedback model",
		zap.Int("version", model.Version),
		zap.Int("samples", model.Samples),
		zap.Int("vocabulary", len(model.Vocabulary)),
		zap.Float64("holdout_accuracy", model.Accuracy))
	return true
}

// persist writes the model to a temp file in the target directory and
// renames it over the old file, so readers only ever see a complete model.
func (s *Scorer) persist(model *TrainedModel) error {
	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".model-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp model file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close model file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace model file: %w", err)
	}
	return nil
}

type sample struct {
	text  string
	label int
}

// buildSamples derives training labels from feedback. A record where the
// user confirmed a flagged verdict, or contradicted an unflagged one, is a
// positive (phishing) example; the reverse is a negative one.
func buildSamples(records []core.FeedbackRecord) []sample {
	samples := make([]sample, 0, len(records))
	for _, record := range records {
		text := record.Email.Subject + " " + record.Email.Body
		label := 0
		if record.Result.Verdict.Flagged() == record.Correct {
			label = 1
		}
		samples = append(samples, sample{text: text, label: label})
	}
	return samples
}

// splitHoldout reserves every fifth sample of each class for evaluation so
// both classes appear on both sides of the split regardless of record order.
func splitHoldout(samples []sample) (train, holdout []sample) {
	counts := [2]int{}
	for _, sm := range samples {
		if counts[sm.label]%5 == 4 {
			holdout = append(holdout, sm)
		} else {
			train = append(train, sm)
		}
		counts[sm.label]++
	}
	if len(holdout) == 0 {
		return samples, nil
	}
	return train, holdout
}

func buildVocabulary(samples []sample) map[string]int {
	freq := make(map[string]int)
	for _, sm := range samples {
		seen := make(map[string]bool)
		for _, tok := range Tokenize(sm.text) {
			if !seen[tok] {
				seen[tok] = true
				freq[tok]++
			}
		}
	}

	terms := make([]string, 0, len(freq))
	for term := range freq {
		terms = append(terms, term)
	}
	// Most frequent terms first; ties broken lexically so the vocabulary is
	// deterministic for a given corpus.
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxVocabularySize {
		terms = terms[:maxVocabularySize]
	}

	vocabulary := make(map[string]int, len(terms))
	for idx, term := range terms {
		vocabulary[term] = idx
	}
	return vocabulary
}

// fit trains logistic regression by full-batch gradient descent.
func fit(train []sample, vocabulary map[string]int) *TrainedModel {
	model := &TrainedModel{
		Vocabulary: vocabulary,
		Weights:    make([]float64, len(vocabulary)),
		TrainedAt:  time.Now().UTC(),
	}

	vectors := make([][]float64, len(train))
	labels := make([]float64, len(train))
	for i, sm := range train {
		vectors[i] = model.Vectorize(sm.text)
		labels[i] = float64(sm.label)
	}

	n := float64(len(train))
	gradients := make([]float64, len(model.Weights))
	for epoch := 0; epoch < epochs; epoch++ {
		for i := range gradients {
			gradients[i] = 0
		}
		biasGradient := 0.0

		for i, vec := range vectors {
			z := model.Bias
			for j, w := range model.Weights {
				z += w * vec[j]
			}
			residual := sigmoid(z) - labels[i]
			for j, x := range vec {
				gradients[j] += residual * x
			}
			biasGradient += residual
		}

		for j := range model.Weights {
			model.Weights[j] -= learningRate * gradients[j] / n
		}
		model.Bias -= learningRate * biasGradient / n
	}

	return model
}

func evaluate(model *TrainedModel, holdout []sample) float64 {
	if len(holdout) == 0 {
		return 0
	}
	correct := 0
	for _, sm := range holdout {
		predicted := 0
		if model.PredictProbability(sm.text) > 0.5 {
			predicted = 1
		}
		if predicted == sm.label {
			correct++
		}
	}
	return float64(correct) / float64(len(holdout))
}
