// internal/workers/recommendation/rank-programs/config.go
package rankprograms

import (
	"time"

	"program-recommender/internal/common/config"
)

type Config struct {
	Timeout        time.Duration
	CacheEnabled   bool
	CacheTTL       time.Duration
	CacheKeyPrefix string
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout:        config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		CacheEnabled:   cfg.Cache.Enabled,
		CacheTTL:       config.GetDuration(cfg.Cache.ResultTTL),
		CacheKeyPrefix: cfg.Cache.KeyPrefix,
	}
}
