package explain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "program-recommender/internal/common/http"
)

func TestHTTPGenerator_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/generate", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "compare these", body["prompt"])
		assert.EqualValues(t, 400, body["max_tokens"])
		ctxData, ok := body["context"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "A", ctxData["leader"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"A wins"}`))
	}))
	defer server.Close()

	gen := NewHTTPGenerator(HTTPGeneratorConfig{
		BaseURL:     server.URL + "/",
		APIKey:      "secret",
		MaxTokens:   400,
		Temperature: 0.3,
	}, apphttp.NewClientFrom(server.Client()))

	a, b := testPair()
	text, err := gen.Generate(context.Background(), "compare these", BuildSummary(a, b))
	require.NoError(t, err)
	assert.Equal(t, "A wins", text)
	assert.Equal(t, "genai-http", gen.Name())
}

func TestHTTPGenerator_UpstreamErrorFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	gen := NewHTTPGenerator(HTTPGeneratorConfig{BaseURL: server.URL}, apphttp.NewClientFrom(server.Client()))
	adapter := NewAdapter(gen, fastOptions(), nil)

	a, b := testPair()
	result := adapter.Compare(context.Background(), a, b)
	assert.False(t, result.Success)
	assert.Contains(t, result.Diagnostics[0].Message, "503")
}

type fakeModel struct {
	resp *genai.GenerateContentResponse
	err  error
	got  []genai.Part
}

func (f *fakeModel) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.got = parts
	return f.resp, f.err
}

func TestGeminiGenerator_Generate(t *testing.T) {
	model := &fakeModel{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: nil},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("Program A "), genai.Text("fits better.")}}},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("ignored")}}},
		},
	}}
	gen := &GeminiGenerator{model: model}

	text, err := gen.Generate(context.Background(), "prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, "Program A fits better.", text)
	require.Len(t, model.got, 1)
	assert.Equal(t, genai.Text("prompt"), model.got[0])
	assert.NoError(t, gen.Close())
}

func TestGeminiGenerator_Error(t *testing.T) {
	gen := &GeminiGenerator{model: &fakeModel{err: errors.New("quota exceeded")}}

	_, err := gen.Generate(context.Background(), "prompt", nil)
	assert.EqualError(t, err, "quota exceeded")
}

func TestExtractText_Empty(t *testing.T) {
	assert.Equal(t, "", extractText(nil))
	assert.Equal(t, "", extractText(&genai.GenerateContentResponse{}))
}
