package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "program-recommender/internal/common/errors"
	"program-recommender/internal/common/logger"
	"program-recommender/internal/engine"
	"program-recommender/internal/explain"
	"program-recommender/internal/models"
	explaincomparison "program-recommender/internal/workers/recommendation/explain-comparison"
	rankprograms "program-recommender/internal/workers/recommendation/rank-programs"
)

type stubRecommender struct {
	err error
}

func (s *stubRecommender) Execute(ctx context.Context, payload []byte) (*models.RecommendationResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.RecommendationResult{Ranked: []models.ScoredCandidate{}, Diagnostics: []models.Diagnostic{}}, nil
}

func newServer(t *testing.T, mutate func(*Options)) http.Handler {
	t.Helper()
	log := logger.NewTestLogger(t)

	eng, err := engine.New(engine.DefaultConfig(), log)
	require.NoError(t, err)
	ranker, err := rankprograms.NewHandler(rankprograms.HandlerOptions{
		Config: &rankprograms.Config{Timeout: time.Second},
		Engine: eng,
		Logger: log,
	})
	require.NoError(t, err)

	adapter := explain.NewAdapter(nil, explain.DefaultOptions(), log)
	explainer, err := explaincomparison.NewHandler(&explaincomparison.Config{Timeout: time.Second}, adapter, nil, log)
	require.NoError(t, err)

	opts := Options{
		Recommender: ranker,
		Explainer:   explainer,
		Logger:      log,
		Version:     "test",
	}
	if mutate != nil {
		mutate(&opts)
	}
	return NewHandler(opts).Routes()
}

func post(t *testing.T, srv http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestRecommend_OK(t *testing.T) {
	srv := newServer(t, nil)

	w := post(t, srv, "/v1/recommendations", `{
		"student_profile": {"study_level": "Bachelor", "field_ids": [1], "budget": 50000},
		"programs": [
			{"program_id": 1, "field_id": 1, "tuition_fee": 55000, "level": "Bachelor"},
			{"program_id": 2, "field_id": 1, "tuition_fee": 60000, "level": "Bachelor"}
		]
	}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	ranked := body["ranked"].([]interface{})
	require.Len(t, ranked, 1)
	assert.EqualValues(t, 1, ranked[0].(map[string]interface{})["program_id"])
	assert.EqualValues(t, 2, body["total_count_considered"])
	assert.EqualValues(t, 1, body["eligible_count"])
	assert.Equal(t, false, body["cached"])
	assert.NotEmpty(t, body["request_id"])
	_, hasExcluded := body["Excluded"]
	assert.False(t, hasExcluded)

	diags := body["diagnostics"].([]interface{})
	require.Len(t, diags, 1)
	assert.Equal(t, "over_budget", diags[0].(map[string]interface{})["kind"])
}

func TestRecommend_ValidationError(t *testing.T) {
	srv := newServer(t, nil)

	w := post(t, srv, "/v1/recommendations", `{"student_profile":{"field_ids":[1]},"programs":[]}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
}

func TestRecommend_ErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"catalog", apperrors.NewCatalogUnavailableError(errors.New("down")), http.StatusServiceUnavailable},
		{"cache", apperrors.NewCacheUnavailableError(errors.New("down")), http.StatusServiceUnavailable},
		{"cancelled", context.Canceled, http.StatusInternalServerError},
		{"internal", apperrors.NewInternalError(errors.New("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, func(o *Options) { o.Recommender = &stubRecommender{err: tt.err} })
			w := post(t, srv, "/v1/recommendations", `{}`)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRecommend_RequestChecks(t *testing.T) {
	srv := newServer(t, func(o *Options) { o.MaxBodyBytes = 64 })

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/recommendations", nil)
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("wrong content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/recommendations", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "text/plain")
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})

	t.Run("body too large", func(t *testing.T) {
		w := post(t, srv, "/v1/recommendations", `{"student_profile":{"study_level":"Bachelor","field_ids":[1,2,3,4,5,6,7,8,9]}}`)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		w := post(t, srv, "/v1/recommendations", `{invalid-json}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCompare_FallbackResponse(t *testing.T) {
	srv := newServer(t, nil)

	w := post(t, srv, "/v1/comparisons", `{
		"programA": {"program_id": 1, "total_score": 0.8, "criterion_scores": {"field_match": 1, "budget_fit": 0.4}},
		"programB": {"program_id": 2, "total_score": 0.6, "criterion_scores": {"field_match": 1, "budget_fit": 0.1}}
	}`)

	require.Equal(t, http.StatusOK, w.Code)
	var result models.ComparisonResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Equal(t, models.SourceFallback, result.Source)
	assert.Contains(t, result.Summary, "Program 1 scores 80% overall")
}

func TestCompare_ValidationError(t *testing.T) {
	srv := newServer(t, nil)
	w := post(t, srv, "/v1/comparisons", `{"programA":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndReady(t *testing.T) {
	failing := errors.New("dial tcp: connection refused")
	srv := newServer(t, func(o *Options) {
		o.Checks = []ReadinessCheck{
			{Name: "postgres", Check: func(context.Context) error { return nil }},
			{Name: "redis", Check: func(context.Context) error { return failing }},
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	req = httptest.NewRequest(http.MethodGet, "/ready", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "ok", body.Dependencies["postgres"])
	assert.Contains(t, body.Dependencies["redis"], "connection refused")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newServer(t, nil)
	post(t, srv, "/v1/recommendations", `{"student_profile":{"study_level":"Master","field_ids":[3]},"programs":[]}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "recommender_ranking_duration_seconds")
}
