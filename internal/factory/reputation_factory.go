package factory

import (
	"fmt"

	"github.com/mikey/phishshield/internal/config"
	"github.com/mikey/phishshield/internal/reputation"
	"go.uber.org/zap"
)

// ReputationFactory creates the domain reputation analyzer based on
// configuration
type ReputationFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewReputationFactory creates a new reputation factory
func NewReputationFactory(cfg *config.Config, logger *zap.Logger) *ReputationFactory {
	return &ReputationFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCache creates the reputation cache based on the configuration
func (f *ReputationFactory) CreateCache() (reputation.Cache, error) {
	cacheType := f.cfg.GetString("reputation.cache.type")
	ttl, err := f.cfg.GetDuration("reputation.cache.ttl")
	if err != nil {
		return nil, fmt.Errorf("invalid reputation cache TTL: %w", err)
	}

	switch cacheType {
	case "memory":
		return reputation.NewMemoryCache(ttl, reputation.SystemClock()), nil
	case "redis":
		return reputation.NewRedisCache(
			f.cfg.GetString("reputation.cache.redis_addr"),
			f.cfg.GetString("reputation.cache.redis_password"),
			f.cfg.GetInt("reputation.cache.redis_db"),
			ttl,
			f.logger,
		), nil
	default:
		return nil, fmt.Errorf("unsupported reputation cache type: %s", cacheType)
	}
}

// CreateAnalyzer creates the domain reputation analyzer
func (f *ReputationFactory) CreateAnalyzer(cache reputation.Cache) (*reputation.Analyzer, error) {
	timeout, err := f.cfg.GetDuration("reputation.lookup_timeout")
	if err != nil {
		return nil, fmt.Errorf("invalid reputation lookup timeout: %w", err)
	}

	virustotal := reputation.NewVirusTotalClient(
		f.cfg.GetString("reputation.virustotal_api_key"), timeout, f.logger)
	safebrowsing := reputation.NewSafeBrowsingClient(
		f.cfg.GetString("reputation.safebrowsing_api_key"), timeout, f.logger)

	return reputation.NewAnalyzer(virustotal, safebrowsing, cache, f.logger), nil
}
