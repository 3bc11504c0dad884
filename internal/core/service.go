package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnalyzerService runs every signal extractor concurrently over an incoming
// email, fuses the results into one verdict and records the scan in history.
// All collaborators are injected once at construction; the service keeps no
// other state, so concurrent Analyze calls are independent.
type AnalyzerService struct {
	extractors []SignalExtractor
	domains    DomainAnalyzer
	fusion     *FusionEngine
	history    ScanHistoryRepository
	logger     *zap.Logger
	timeout    time.Duration
}

// NewAnalyzerService creates a new analyzer service.
func NewAnalyzerService(
	extractors []SignalExtractor,
	domains DomainAnalyzer,
	fusion *FusionEngine,
	history ScanHistoryRepository,
	logger *zap.Logger,
	timeout time.Duration,
) *AnalyzerService {
	return &AnalyzerService{
		extractors: extractors,
		domains:    domains,
		fusion:     fusion,
		history:    history,
		logger:     logger,
		timeout:    timeout,
	}
}

// Analyze fans the email out to every extractor, waits for all signals and
// fuses them. It never fails: extractors degrade to neutral signals on their
// own, and a scan-history write failure is logged without discarding the
// analysis (the result is already complete at that point).
func (s *AnalyzerService) Analyze(ctx context.Context, email *EmailRecord) *AnalysisResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		signals = make(map[string]SignalResult, len(s.extractors)+1)
		domain  DomainAnalysis
	)

	for _, extractor := range s.extractors {
		wg.Add(1)
		go func(extractor SignalExtractor) {
			defer wg.Done()
			result := extractor.Extract(ctx, email)
			mu.Lock()
			signals[extractor.Name()] = result
			mu.Unlock()
		}(extractor)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		domain = s.domains.Analyze(ctx, email.Sender)
	}()

	// Fusion is the synchronization barrier: every signal must be in.
	wg.Wait()

	signals[SignalDomain] = SignalResult{Score: domain.TrustScore, Reasons: domain.Reasons}

	final, verdict := s.fusion.Fuse(signals)
	result := buildAnalysisResult(signals, domain, final, verdict)

	s.logger.Info("Email analyzed",
		zap.String("sender", email.Sender),
		zap.Float64("final_score", final),
		zap.String("verdict", string(verdict)))

	record := newScanRecord(email, result)
	if err := s.history.Add(ctx, record); err != nil {
		s.logger.Error("Failed to persist scan record",
			zap.Error(err),
			zap.String("scan_id", record.ID))
	}

	return result
}

func buildAnalysisResult(signals map[string]SignalResult, domain DomainAnalysis, final float64, verdict Verdict) *AnalysisResult {
	adaptive := signals[SignalAdaptive]
	adaptiveReason := ""
	if len(adaptive.Reasons) > 0 {
		adaptiveReason = adaptive.Reasons[0]
	}

	return &AnalysisResult{
		HeaderScore:    signals[SignalHeader].Score,
		HeaderReasons:  signals[SignalHeader].Reasons,
		DomainAnalysis: domain,
		BodyScore:      signals[SignalBody].Score,
		BodyKeywords:   signals[SignalBody].Reasons,
		IntentScore:    signals[SignalIntent].Score,
		IntentAnalysis: signals[SignalIntent],
		AdaptiveScore:  adaptive.Score,
		AdaptiveReason: adaptiveReason,
		LinkScore:      signals[SignalLink].Score,
		LinkReasons:    signals[SignalLink].Reasons,
		FinalScore:     final,
		Verdict:        verdict,
	}
}

func newScanRecord(email *EmailRecord, result *AnalysisResult) *ScanRecord {
	return &ScanRecord{
		ID:            uuid.NewString(),
		ScannedAt:     time.Now().UTC(),
		Sender:        email.Sender,
		Subject:       email.Subject,
		BodyLength:    len(email.Body),
		LinkCount:     len(email.Links),
		HeaderScore:   result.HeaderScore,
		DomainScore:   result.DomainAnalysis.TrustScore,
		BodyScore:     result.BodyScore,
		IntentScore:   result.IntentScore,
		AdaptiveScore: result.AdaptiveScore,
		LinkScore:     result.LinkScore,
		FinalScore:    result.FinalScore,
		Verdict:       result.Verdict,
	}
}
