// internal/workers/recommendation/explain-comparison/handler_test.go
package explaincomparison

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "program-recommender/internal/common/errors"
	apphttp "program-recommender/internal/common/http"
	"program-recommender/internal/common/logger"
	"program-recommender/internal/explain"
	"program-recommender/internal/models"
)

const comparisonRequest = `{
  "programA": {
    "program_id": 101, "name": "BSc Computer Science", "total_score": 0.92,
    "criterion_scores": {"field_match": 1, "budget_fit": 0.1, "academic_fit": 0.9, "location_preference": 1, "duration_fit": 1},
    "tuition_fee": 18000, "duration_months": 36
  },
  "programB": {
    "program_id": 202, "name": "BEng Software Engineering", "total_score": 0.71,
    "criterion_scores": {"field_match": 1, "budget_fit": 0, "academic_fit": 0.9, "location_preference": 0.5, "duration_fit": 0.75},
    "tuition_fee": 24000, "duration_months": 48
  }
}`

type stubGenerator struct {
	text string
	err  error
}

func (s *stubGenerator) Name() string { return "stub" }

func (s *stubGenerator) Generate(ctx context.Context, prompt string, summary *explain.Summary) (string, error) {
	return s.text, s.err
}

func newTestHandler(t *testing.T, gen explain.Generator) *Handler {
	t.Helper()
	log := logger.NewTestLogger(t)
	adapter := explain.NewAdapter(gen, explain.Options{
		Timeout:     100 * time.Millisecond,
		MaxAttempts: 2,
		Backoff:     time.Millisecond,
	}, log)
	h, err := NewHandler(&Config{Timeout: time.Second}, adapter, nil, log)
	require.NoError(t, err)
	return h
}

func TestHandler_Execute_GeneratorText(t *testing.T) {
	h := newTestHandler(t, &stubGenerator{text: "Computer Science is the closer fit."})

	result, err := h.Execute(context.Background(), []byte(comparisonRequest))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.SourceGenerator, result.Source)
	assert.Equal(t, "Computer Science is the closer fit.", result.Summary)
}

func TestHandler_Execute_FallbackOnGeneratorError(t *testing.T) {
	h := newTestHandler(t, &stubGenerator{err: errors.New("status 500")})

	result, err := h.Execute(context.Background(), []byte(comparisonRequest))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, models.SourceFallback, result.Source)
	assert.Contains(t, result.Summary, "BSc Computer Science scores 92% overall")
	assert.Contains(t, result.Summary, "Duration is 36 versus 48 months.")
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, models.DiagExplanationFallback, result.Diagnostics[0].Kind)
}

func TestHandler_Execute_HTTPGenerator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"Both are strong; A is cheaper."}`))
	}))
	defer server.Close()

	gen := explain.NewHTTPGenerator(explain.HTTPGeneratorConfig{BaseURL: server.URL, MaxTokens: 200},
		apphttp.NewClientFrom(server.Client()))
	h := newTestHandler(t, gen)

	result, err := h.Execute(context.Background(), []byte(comparisonRequest))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Both are strong; A is cheaper.", result.Summary)
}

func TestHandler_Execute_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: `programA`},
		{name: "missing programB", payload: `{"programA":{"program_id":1,"total_score":0.5,"criterion_scores":{}}}`},
		{name: "score above one", payload: `{"programA":{"program_id":1,"total_score":1.5,"criterion_scores":{}},"programB":{"program_id":2,"total_score":0.5,"criterion_scores":{}}}`},
		{name: "criterion score negative", payload: `{"programA":{"program_id":1,"total_score":0.5,"criterion_scores":{"budget_fit":-0.1}},"programB":{"program_id":2,"total_score":0.5,"criterion_scores":{}}}`},
		{name: "string program id", payload: `{"programA":{"program_id":"1","total_score":0.5,"criterion_scores":{}},"programB":{"program_id":2,"total_score":0.5,"criterion_scores":{}}}`},
	}

	h := newTestHandler(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.Execute(context.Background(), []byte(tt.payload))
			assert.Nil(t, result)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation), "got %v", err)
		})
	}
}

func TestNewHandler_RequiresComparer(t *testing.T) {
	_, err := NewHandler(&Config{}, nil, nil, logger.NewNoOpLogger())
	assert.Error(t, err)
}
