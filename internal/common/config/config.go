// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App         AppConfig               `mapstructure:"app"`
	Server      ServerConfig            `mapstructure:"server"`
	Camunda     CamundaConfig           `mapstructure:"camunda"`
	Database    DatabaseConfig          `mapstructure:"database"`
	Workers     map[string]WorkerConfig `mapstructure:"workers"`
	APIs        APIsConfig              `mapstructure:"apis"`
	Logging     LoggingConfig           `mapstructure:"logging"`
	Tracing     TracingConfig           `mapstructure:"tracing"`
	Engine      EngineConfig            `mapstructure:"engine"`
	Explanation ExplanationConfig       `mapstructure:"explanation"`
	Catalog     CatalogConfig           `mapstructure:"catalog"`
	Cache       CacheConfig             `mapstructure:"cache"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
}

// CamundaConfig is optional: an empty BrokerAddress disables the job workers
// and the service runs HTTP only.
type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// APIsConfig holds settings for the text-generation collaborator.
type APIsConfig struct {
	GenAI struct {
		// Provider is "http", "gemini" or empty (fallback summaries only).
		Provider    string  `mapstructure:"provider"`
		BaseURL     string  `mapstructure:"base_url"`
		APIKey      string  `mapstructure:"api_key"`
		Model       string  `mapstructure:"model"`
		Timeout     int     `mapstructure:"timeout"` // milliseconds
		MaxTokens   int     `mapstructure:"max_tokens"`
		Temperature float64 `mapstructure:"temperature"`
	} `mapstructure:"genai"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// EngineConfig carries scoring overrides. Zero values mean "use the engine
// default"; pointer fields distinguish an explicit zero from unset.
type EngineConfig struct {
	Weights               map[string]float64              `mapstructure:"weights"`
	BudgetTolerance       *float64                        `mapstructure:"budget_tolerance"`
	LocationMismatchScore *float64                        `mapstructure:"location_mismatch_score"`
	CGPAScale             float64                         `mapstructure:"cgpa_scale"`
	Levels                []string                        `mapstructure:"levels"`
	DurationBuckets       map[string]DurationBucketConfig `mapstructure:"duration_buckets"`
	DurationMaxDeviation  int                             `mapstructure:"duration_max_deviation"` // months
	ParallelThreshold     int                             `mapstructure:"parallel_threshold"`
	MaxParallelism        int                             `mapstructure:"max_parallelism"`
	SlowRankingThreshold  int                             `mapstructure:"slow_ranking_threshold"` // milliseconds
}

type DurationBucketConfig struct {
	MinMonths int `mapstructure:"min_months"`
	MaxMonths int `mapstructure:"max_months"`
}

type ExplanationConfig struct {
	Timeout     int `mapstructure:"timeout"` // milliseconds, per attempt
	MaxAttempts int `mapstructure:"max_attempts"`
}

// CatalogConfig enables loading candidates from Postgres when a request has
// no inline programs.
type CatalogConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MaxPrograms int  `mapstructure:"max_programs"`
}

type CacheConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ResultTTL int    `mapstructure:"result_ttl"` // milliseconds
	KeyPrefix string `mapstructure:"key_prefix"`
}
