package di

import (
	"context"
	"flag"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phishshield/internal/adaptive"
	"github.com/mikey/phishshield/internal/config"
	"github.com/mikey/phishshield/internal/core"
	"github.com/mikey/phishshield/internal/factory"
	"github.com/mikey/phishshield/internal/logging"
	"github.com/mikey/phishshield/internal/reputation"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Intent model flags
	IntentProvider string
	OpenAIAPIKey   string
	OpenAIModel    string
	MaxBodySize    int

	// Reputation flags
	VirusTotalAPIKey   string
	SafeBrowsingAPIKey string
	LookupTimeout      time.Duration

	// Adaptive scorer flags
	ModelPath string

	// Input flags
	InputFile  string
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	flag.StringVar(&flags.IntentProvider, "intent-provider", "heuristic", "Intent model provider (heuristic, openai)")
	flag.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	flag.StringVar(&flags.OpenAIModel, "openai-model", "gpt-4o-mini", "OpenAI model name")
	flag.IntVar(&flags.MaxBodySize, "max-body-size", 4096, "Maximum email body size to send to the intent model")

	flag.StringVar(&flags.VirusTotalAPIKey, "virustotal-api-key", "", "API key for VirusTotal")
	flag.StringVar(&flags.SafeBrowsingAPIKey, "safebrowsing-api-key", "", "API key for Google Safe Browsing")
	flag.DurationVar(&flags.LookupTimeout, "lookup-timeout", 10*time.Second, "Timeout for reputation lookups")

	flag.StringVar(&flags.ModelPath, "model-path", "data/feedback_model.json", "Path to the feedback model file")

	flag.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if not specified)")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container
// for the CLI application. The CLI skips scan history persistence; a one-shot
// analysis leaves no dashboard trail.
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.New()
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewReputationFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewIntentFactory); err != nil {
		return nil, err
	}

	// Register reputation analyzer with an in-memory cache; a one-shot run
	// has nothing to share.
	if err := container.Provide(func(f *factory.ReputationFactory) (core.DomainAnalyzer, error) {
		cache := reputation.NewMemoryCache(reputation.DefaultCacheTTL, reputation.SystemClock())
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

	// Register adaptive scorer
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) core.TextScorer {
		return adaptive.NewScorer(flags.ModelPath, logger)
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

	// Register analyzer service with no history persistence
	if err := container.Provide(func(
		extractors []core.SignalExtractor,
		domains core.DomainAnalyzer,
		fusion *core.FusionEngine,
		logger *zap.Logger,
	) *core.AnalyzerService {
		return core.NewAnalyzerService(extractors, domains, fusion, nopHistory{}, logger, 30*time.Second)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	v.Set("intent.provider", flags.IntentProvider)
	v.Set("intent.openai_api_key", flags.OpenAIAPIKey)
	v.Set("intent.openai_model", flags.OpenAIModel)
	v.Set("intent.max_body_size", flags.MaxBodySize)

	v.Set("reputation.virustotal_api_key", flags.VirusTotalAPIKey)
	v.Set("reputation.safebrowsing_api_key", flags.SafeBrowsingAPIKey)
	v.Set("reputation.lookup_timeout", flags.LookupTimeout.String())

	v.Set("adaptive.model_path", flags.ModelPath)

	return config.NewFromViper(v)
}

// nopHistory discards scan records; the CLI has no dashboard.
type nopHistory struct{}

func (nopHistory) Add(context.Context, *core.ScanRecord) error { return nil }
func (nopHistory) Stats(context.Context, int) (*core.DashboardStats, error) {
	return &core.DashboardStats{}, nil
}
func (nopHistory) ExportCSV(context.Context) (string, error)  { return "", nil }
func (nopHistory) ExportJSON(context.Context) ([]byte, error) { return []byte("[]"), nil }
