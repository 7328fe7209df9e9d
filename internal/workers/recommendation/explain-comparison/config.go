// internal/workers/recommendation/explain-comparison/config.go
package explaincomparison

import (
	"time"

	"program-recommender/internal/common/config"
)

type Config struct {
	// Timeout bounds the whole job, all generator attempts included.
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout: config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
	}
}
