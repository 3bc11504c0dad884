// Package feedback implements the durable append-only feedback log and the
// retraining cadence driven by it.
package feedback

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/mikey/phishshield/internal/core"
	"go.uber.org/zap"
)

const (
	// retrainMinRecords is the log size below which no retrain is triggered.
	retrainMinRecords = 10

	// retrainCadence triggers a retrain whenever the log size is a multiple
	// of it (once the minimum is reached), so training cost stays amortized
	// as feedback accumulates.
	retrainCadence = 5

	// recentWindow is how many latest records the stats view exposes.
	recentWindow = 10
)

// Store is a JSON-lines feedback log. Appends are serialized and fsynced;
// reads are lock-free snapshots through an atomic pointer, so a slow disk
// never blocks the analyze path. Every append that brings the log to a
// retrain point kicks off one background training run.
type Store struct {
	path    string
	trainer core.TextScorer
	logger  *zap.Logger

	mu   sync.Mutex
	file *os.File

	records    atomic.Pointer[[]core.FeedbackRecord]
	retraining atomic.Bool
}

// Open loads the feedback log at path, creating it if needed. A corrupt
// trailing line, the footprint of a crash mid-append, is dropped with a
// warning; everything before it is kept.
func Open(path string, trainer core.TextScorer, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create feedback directory: %w", err)
	}

	records, err := loadRecords(path, logger)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open feedback log: %w", err)
	}

	store := &Store{
		path:    path,
		trainer: trainer,
		logger:  logger,
		file:    file,
	}
	store.records.Store(&records)

	logger.Info("Opened feedback log", zap.String("path", path), zap.Int("records", len(records)))
	return store, nil
}

func loadRecords(path string, logger *zap.Logger) ([]core.FeedbackRecord, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read feedback log: %w", err)
	}
	defer file.Close()

	var records []core.FeedbackRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		var record core.FeedbackRecord
		if err := json.Unmarshal(data, &record); err != nil {
			logger.Warn("Dropping unparseable feedback line",
				zap.Int("line", line),
				zap.Error(err),
				zap.String("path", path))
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan feedback log: %w", err)
	}
	return records, nil
}

// Append durably stores one record and, once enough feedback exists, starts
// a background retrain at every cadence point.
func (s *Store) Append(record core.FeedbackRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode feedback record: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	if _, err := s.file.Write(data); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to append feedback record: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to sync feedback log: %w", err)
	}

	previous := *s.records.Load()
	updated := make([]core.FeedbackRecord, len(previous)+1)
	copy(updated, previous)
	updated[len(previous)] = record
	s.records.Store(&updated)
	total := len(updated)
	s.mu.Unlock()

	s.maybeRetrain(total)
	return nil
}

// All returns a snapshot of every record in append order. The snapshot is
// never mutated by later appends.
func (s *Store) All() []core.FeedbackRecord {
	return *s.records.Load()
}

// Stats summarizes the log: size, user-confirmed accuracy, and the latest
// records newest first.
func (s *Store) Stats() core.FeedbackStats {
	records := s.All()

	stats := core.FeedbackStats{Total: len(records)}
	if len(records) == 0 {
		return stats
	}

	confirmed := 0
	for _, record := range records {
		if record.Correct {
			confirmed++
		}
	}
	stats.Accuracy = float64(confirmed) / float64(len(records))

	window := recentWindow
	if window > len(records) {
		window = len(records)
	}
	stats.Recent = make([]core.FeedbackRecord, 0, window)
	for i := len(records) - 1; i >= len(records)-window; i-- {
		stats.Recent = append(stats.Recent, records[i])
	}
	return stats
}

// maybeRetrain starts at most one concurrent training run. A cadence point
// reached while a run is in flight is skipped; the next one picks up the
// accumulated records anyway.
func (s *Store) maybeRetrain(total int) {
	if total < retrainMinRecords || total%retrainCadence != 0 {
		return
	}
	if !s.retraining.CompareAndSwap(false, true) {
		s.logger.Debug("Retrain already in flight, skipping", zap.Int("records", total))
		return
	}

	go func() {
		defer s.retraining.Store(false)
		s.logger.Info("Retraining feedback model", zap.Int("records", total))
		if s.trainer.Train(s.All()) {
			return
		}
		s.logger.Info("Retraining produced no new model", zap.Int("records", total))
	}()
}

// Close closes the underlying log file. Appends after Close fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
