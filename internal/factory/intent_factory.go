package factory

import (
	"fmt"

	"github.com/mikey/phishshield/internal/adapters/openaiintent"
	"github.com/mikey/phishshield/internal/config"
	"github.com/mikey/phishshield/internal/core"
	"github.com/mikey/phishshield/internal/extractors"
	"go.uber.org/zap"
)

// IntentFactory creates the intent model based on configuration
type IntentFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewIntentFactory creates a new intent factory
func NewIntentFactory(cfg *config.Config, logger *zap.Logger) *IntentFactory {
	return &IntentFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateIntentModel creates the intent model based on the configuration
func (f *IntentFactory) CreateIntentModel() (core.IntentModel, error) {
	provider := f.cfg.GetString("intent.provider")

	switch provider {
	case "heuristic":
		return extractors.NewHeuristicIntentModel(), nil
	case "openai":
		return openaiintent.NewClient(
			f.cfg.GetString("intent.openai_api_key"),
			f.cfg.GetString("intent.openai_model"),
			f.cfg.GetInt("intent.max_body_size"),
			f.logger,
		), nil
	default:
		return nil, fmt.Errorf("unsupported intent provider: %s", provider)
	}
}
