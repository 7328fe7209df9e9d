package engine

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"program-recommender/internal/common/config"
	"program-recommender/internal/models"
)

// DurationBucket is the ideal program length for a study level, in months.
type DurationBucket struct {
	MinMonths int
	MaxMonths int
}

// Config holds every tunable of the scoring engine.
type Config struct {
	Weights               map[string]float64
	BudgetTolerance       float64
	LocationMismatchScore float64
	CGPAScale             float64
	Levels                []string
	DurationBuckets       map[string]DurationBucket // keyed by lower-case level
	DurationMaxDeviation  int                       // months
	ParallelThreshold     int
	MaxParallelism        int
	SlowRankingThreshold  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Weights: map[string]float64{
			models.CriterionFieldMatch:         0.35,
			models.CriterionBudgetFit:          0.25,
			models.CriterionAcademicFit:        0.15,
			models.CriterionLocationPreference: 0.15,
			models.CriterionDurationFit:        0.10,
		},
		BudgetTolerance:       0.10,
		LocationMismatchScore: 0.5,
		CGPAScale:             4.0,
		Levels:                []string{"Foundation", "Diploma", "Bachelor", "Master", "PhD"},
		DurationBuckets: map[string]DurationBucket{
			"foundation": {MinMonths: 12, MaxMonths: 18},
			"diploma":    {MinMonths: 24, MaxMonths: 36},
			"bachelor":   {MinMonths: 36, MaxMonths: 48},
			"master":     {MinMonths: 12, MaxMonths: 24},
			"phd":        {MinMonths: 36, MaxMonths: 60},
		},
		DurationMaxDeviation: 24,
		ParallelThreshold:    64,
		MaxParallelism:       runtime.GOMAXPROCS(0),
		SlowRankingThreshold: 500 * time.Millisecond,
	}
}

// ConfigFromSettings overlays the values set in the engine section of the
// service configuration onto DefaultConfig. A non-empty weights map replaces
// the default vector; criteria it omits get weight 0.
func ConfigFromSettings(s config.EngineConfig) Config {
	cfg := DefaultConfig()

	if len(s.Weights) > 0 {
		cfg.Weights = make(map[string]float64, len(s.Weights))
		for name, w := range s.Weights {
			cfg.Weights[strings.ToLower(name)] = w
		}
	}
	if s.BudgetTolerance != nil {
		cfg.BudgetTolerance = *s.BudgetTolerance
	}
	if s.LocationMismatchScore != nil {
		cfg.LocationMismatchScore = *s.LocationMismatchScore
	}
	if s.CGPAScale > 0 {
		cfg.CGPAScale = s.CGPAScale
	}
	if len(s.Levels) > 0 {
		cfg.Levels = append([]string(nil), s.Levels...)
	}
	for level, b := range s.DurationBuckets {
		cfg.DurationBuckets[strings.ToLower(level)] = DurationBucket{MinMonths: b.MinMonths, MaxMonths: b.MaxMonths}
	}
	if s.DurationMaxDeviation > 0 {
		cfg.DurationMaxDeviation = s.DurationMaxDeviation
	}
	if s.ParallelThreshold > 0 {
		cfg.ParallelThreshold = s.ParallelThreshold
	}
	if s.MaxParallelism > 0 {
		cfg.MaxParallelism = s.MaxParallelism
	}
	if s.SlowRankingThreshold > 0 {
		cfg.SlowRankingThreshold = config.GetDuration(s.SlowRankingThreshold)
	}
	return cfg
}

func (c *Config) validate() error {
	if c.BudgetTolerance < 0 {
		return fmt.Errorf("budget tolerance must be non-negative, got %v", c.BudgetTolerance)
	}
	if c.LocationMismatchScore < 0 || c.LocationMismatchScore > 1 {
		return fmt.Errorf("location mismatch score must be within [0,1], got %v", c.LocationMismatchScore)
	}
	if c.CGPAScale <= 0 {
		return fmt.Errorf("cgpa scale must be positive, got %v", c.CGPAScale)
	}
	if len(c.Levels) == 0 {
		return fmt.Errorf("at least one academic level is required")
	}
	seen := make(map[string]bool, len(c.Levels))
	for _, l := range c.Levels {
		key := strings.ToLower(strings.TrimSpace(l))
		if key == "" {
			return fmt.Errorf("academic levels must not be blank")
		}
		if seen[key] {
			return fmt.Errorf("academic level %q listed twice", l)
		}
		seen[key] = true
	}
	for level, b := range c.DurationBuckets {
		if b.MinMonths <= 0 || b.MaxMonths < b.MinMonths {
			return fmt.Errorf("duration bucket for %q: need 0 < min <= max, got %d-%d", level, b.MinMonths, b.MaxMonths)
		}
	}
	return nil
}
