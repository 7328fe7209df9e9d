package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: recommender-test
workers:
  rank-programs:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "recommender-test", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 2, cfg.Explanation.MaxAttempts)
	assert.Equal(t, cfg.APIs.GenAI.Timeout, cfg.Explanation.Timeout)
	assert.Equal(t, 5000, cfg.Catalog.MaxPrograms)
	assert.Equal(t, "recommend:", cfg.Cache.KeyPrefix)

	worker := cfg.Workers["rank-programs"]
	assert.True(t, worker.Enabled)
	assert.Equal(t, 5, worker.MaxJobsActive)
	assert.Equal(t, 30000, worker.Timeout)
}

func TestLoadFromFile_ExpandsEnvironment(t *testing.T) {
	t.Setenv("RECOMMENDER_TEST_GENAI_URL", "http://genai.local:9000")
	t.Setenv("RECOMMENDER_TEST_UNSET", "")

	path := writeConfig(t, `
apis:
  genai:
    provider: http
    base_url: ${RECOMMENDER_TEST_GENAI_URL}
    model: ${RECOMMENDER_TEST_UNSET}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://genai.local:9000", cfg.APIs.GenAI.BaseURL)
	// An empty placeholder falls through to the default.
	assert.Equal(t, "gemini-1.5-flash", cfg.APIs.GenAI.Model)
}

func TestLoadFromFile_EngineSection(t *testing.T) {
	path := writeConfig(t, `
engine:
  weights:
    field_match: 2
    budget_fit: 1
  budget_tolerance: 0
  duration_buckets:
    master: { min_months: 10, max_months: 20 }
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 2.0, cfg.Engine.Weights["field_match"])
	require.NotNil(t, cfg.Engine.BudgetTolerance)
	assert.Equal(t, 0.0, *cfg.Engine.BudgetTolerance)
	assert.Nil(t, cfg.Engine.LocationMismatchScore)
	assert.Equal(t, DurationBucketConfig{MinMonths: 10, MaxMonths: 20}, cfg.Engine.DurationBuckets["master"])
}

func TestLoadFromFile_Validation(t *testing.T) {
	t.Setenv("GENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "catalog without host",
			yaml:    "catalog:\n  enabled: true\n",
			wantErr: "database.postgres.host",
		},
		{
			name:    "cache without redis",
			yaml:    "cache:\n  enabled: true\n",
			wantErr: "database.redis.address",
		},
		{
			name:    "unknown provider",
			yaml:    "apis:\n  genai:\n    provider: carrier-pigeon\n",
			wantErr: "not supported",
		},
		{
			name:    "gemini without key",
			yaml:    "apis:\n  genai:\n    provider: gemini\n",
			wantErr: "api_key",
		},
		{
			name:    "too many attempts",
			yaml:    "explanation:\n  max_attempts: 3\n",
			wantErr: "max_attempts",
		},
		{
			name:    "unknown criterion",
			yaml:    "engine:\n  weights:\n    prestige: 1\n",
			wantErr: "unknown criterion",
		},
		{
			name:    "zero weight sum",
			yaml:    "engine:\n  weights:\n    field_match: 0\n",
			wantErr: "positive sum",
		},
		{
			name:    "negative tolerance",
			yaml:    "engine:\n  budget_tolerance: -0.5\n",
			wantErr: "budget_tolerance",
		},
		{
			name:    "mismatch score out of range",
			yaml:    "engine:\n  location_mismatch_score: 1.5\n",
			wantErr: "location_mismatch_score",
		},
		{
			name:    "inverted duration bucket",
			yaml:    "engine:\n  duration_buckets:\n    phd: { min_months: 60, max_months: 36 }\n",
			wantErr: "duration_buckets.phd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestGetWorkerConfig(t *testing.T) {
	cfg := Default()
	cfg.Workers["explain-comparison"] = WorkerConfig{Enabled: false, MaxJobsActive: 2}

	assert.False(t, GetWorkerConfig(cfg, "explain-comparison").Enabled)
	assert.False(t, IsWorkerEnabled(cfg, "explain-comparison"))

	fallback := GetWorkerConfig(cfg, "rank-programs")
	assert.True(t, fallback.Enabled)
	assert.Equal(t, 5, fallback.MaxJobsActive)
	assert.True(t, IsWorkerEnabled(cfg, "rank-programs"))
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}
