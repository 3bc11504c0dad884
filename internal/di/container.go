package di

import (
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phishshield/internal/adapters/smtpfilter"
	"github.com/mikey/phishshield/internal/adaptive"
	"github.com/mikey/phishshield/internal/config"
	"github.com/mikey/phishshield/internal/core"
	"github.com/mikey/phishshield/internal/factory"
	"github.com/mikey/phishshield/internal/feedback"
	"github.com/mikey/phishshield/internal/logging"
	"github.com/mikey/phishshield/internal/reputation"
	"github.com/mikey/phishshield/internal/server"
	"github.com/mikey/phishshield/internal/whitelist"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewReputationFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewIntentFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewHistoryFactory); err != nil {
		return nil, err
	}

	// Register reputation cache and analyzer
	if err := container.Provide(func(f *factory.ReputationFactory) (reputation.Cache, error) {
		return f.CreateCache()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.ReputationFactory, cache reputation.Cache) (core.DomainAnalyzer, error) {
		return f.CreateAnalyzer(cache)
	}); err != nil {
		return nil, err
	}

	// Register intent model
	if err := container.Provide(func(f *factory.IntentFactory) (core.IntentModel, error) {
		return f.CreateIntentModel()
	}); err != nil {
		return nil, err
	}

	// Register scan history repository
	if err := container.Provide(func(f *factory.HistoryFactory) (core.ScanHistoryRepository, error) {
		return f.CreateHistoryRepository()
	}); err != nil {
		return nil, err
	}

	// Register adaptive scorer
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.TextScorer {
		return adaptive.NewScorer(cfg.GetString("adaptive.model_path"), logger)
	}); err != nil {
		return nil, err
	}

	// Register feedback log
	if err := container.Provide(func(cfg *config.Config, scorer core.TextScorer, logger *zap.Logger) (core.FeedbackRepository, error) {
		return feedback.Open(cfg.GetString("feedback.path"), scorer, logger)
	}); err != nil {
		return nil, err
	}

	// Register signal extractors
	if err := container.Provide(NewExtractors); err != nil {
		return nil, err
	}

	// Register fusion engine
	if err := container.Provide(core.NewFusionEngine); err != nil {
		return nil, err
	}

	// Register analyzer service
	if err := container.Provide(func(
		extractors []core.SignalExtractor,
		domains core.DomainAnalyzer,
		fusion *core.FusionEngine,
		history core.ScanHistoryRepository,
		cfg *config.Config,
		logger *zap.Logger,
	) (*core.AnalyzerService, error) {
		timeout, err := cfg.GetDuration("server.request_timeout")
		if err != nil {
			return nil, fmt.Errorf("invalid request timeout: %w", err)
		}
		return core.NewAnalyzerService(extractors, domains, fusion, history, logger, timeout), nil
	}); err != nil {
		return nil, err
	}

	// Register HTTP server
	if err := container.Provide(func(
		cfg *config.Config,
		service *core.AnalyzerService,
		fb core.FeedbackRepository,
		history core.ScanHistoryRepository,
		logger *zap.Logger,
	) *server.Server {
		return server.New(cfg.GetString("server.listen_address"), service, fb, history, logger)
	}); err != nil {
		return nil, err
	}

	// Register trusted-domain checker
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *whitelist.Checker {
		return whitelist.NewChecker(cfg.GetStringSlice("smtp.trusted_domains"), logger)
	}); err != nil {
		return nil, err
	}

	// Register SMTP content filter
	if err := container.Provide(func(
		cfg *config.Config,
		service *core.AnalyzerService,
		trusted *whitelist.Checker,
		logger *zap.Logger,
	) *smtpfilter.Filter {
		relayAddr := fmt.Sprintf("%s:%d", cfg.GetString("smtp.relay_address"), cfg.GetInt("smtp.relay_port"))
		return smtpfilter.NewFilter(service, trusted, smtpfilter.Config{
			ListenAddr:    cfg.GetString("smtp.listen_address"),
			RelayAddr:     relayAddr,
			BlockPhishing: cfg.GetBool("smtp.block_phishing"),
			ScoreHeader:   cfg.GetString("smtp.headers.score"),
			VerdictHeader: cfg.GetString("smtp.headers.verdict"),
			ReasonHeader:  cfg.GetString("smtp.headers.reason"),
		}, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
