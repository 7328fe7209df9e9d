package explain

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	apphttp "program-recommender/internal/common/http"
)

// HTTPGenerator calls a GenAI gateway: POST {base}/api/ai/generate with
// {prompt, context, max_tokens, temperature}, answered by {text}.
type HTTPGenerator struct {
	client      *apphttp.Client
	baseURL     string
	apiKey      string
	maxTokens   int
	temperature float64
}

type HTTPGeneratorConfig struct {
	BaseURL     string
	APIKey      string
	MaxTokens   int
	Temperature float64
}

func NewHTTPGenerator(cfg HTTPGeneratorConfig, client *apphttp.Client) *HTTPGenerator {
	return &HTTPGenerator{
		client:      client,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

func (g *HTTPGenerator) Name() string { return "genai-http" }

func (g *HTTPGenerator) Generate(ctx context.Context, prompt string, summary *Summary) (string, error) {
	requestBody := map[string]interface{}{
		"prompt":      prompt,
		"context":     summary,
		"max_tokens":  g.maxTokens,
		"temperature": g.temperature,
	}

	var headers map[string]string
	if g.apiKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + g.apiKey}
	}

	var apiResponse struct {
		Text string `json:"text"`
	}
	if err := g.client.PostJSON(ctx, g.baseURL+"/api/ai/generate", headers, requestBody, &apiResponse); err != nil {
		return "", err
	}
	return apiResponse.Text, nil
}

// contentGenerator is the part of *genai.GenerativeModel the Gemini
// generator uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator calls Google's Gemini API directly.
type GeminiGenerator struct {
	client *genai.Client
	model  contentGenerator
}

type GeminiConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	if cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(cfg.MaxTokens))
	}
	model.SetTemperature(float32(cfg.Temperature))

	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Name() string { return "gemini" }

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, _ *Summary) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return extractText(resp), nil
}

func (g *GeminiGenerator) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		// First candidate with content is the answer.
		if sb.Len() > 0 {
			break
		}
	}
	return sb.String()
}
