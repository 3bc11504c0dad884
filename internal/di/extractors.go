package di

import (
	"github.com/mikey/phishshield/internal/core"
	"github.com/mikey/phishshield/internal/extractors"
	"go.uber.org/zap"
)

// NewExtractors assembles the full signal extractor set. The order is not
// significant; extractors are keyed by name in the fusion weight table.
func NewExtractors(model core.IntentModel, scorer core.TextScorer, logger *zap.Logger) []core.SignalExtractor {
	return []core.SignalExtractor{
		extractors.NewHeaderExtractor(logger),
		extractors.NewLinkExtractor(logger),
		extractors.NewBodyExtractor(logger),
		extractors.NewIntentExtractor(model, logger),
		extractors.NewAdaptiveExtractor(scorer),
	}
}
