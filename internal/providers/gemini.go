package providers

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"
	// DefaultTimeout bounds every completion request.
	DefaultTimeout = 10 * time.Second
)

// GeminiProvider calls the Gemini generateContent endpoint.
type GeminiProvider struct {
	endpoint string
	client   *resty.Client
}

var _ Provider = (*GeminiProvider)(nil)

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopP            float64 `json:"topP,omitempty"`
	TopK            int     `json:"topK,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// NewGeminiProvider creates a Gemini client with the default endpoint.
func NewGeminiProvider() *GeminiProvider {
	return NewGeminiProviderWithEndpoint(geminiEndpoint)
}

// NewGeminiProviderWithEndpoint allows pointing the client at a test server.
func NewGeminiProviderWithEndpoint(endpoint string) *GeminiProvider {
	return &GeminiProvider{
		endpoint: endpoint,
		client:   resty.New().SetTimeout(DefaultTimeout),
	}
}

func (g *GeminiProvider) Name() string {
	return "gemini"
}

// Complete sends the prompt and returns the raw completion text.
func (g *GeminiProvider) Complete(ctx context.Context, prompt, apiKey string, cfg GenerationConfig) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", ErrMissingAPIKey
	}

	body := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxTokens,
			TopP:            cfg.TopP,
			TopK:            40,
		},
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("key", apiKey).
		SetBody(body).
		Post(g.endpoint)
	if err != nil {
		return "", wrapTransportError(g.Name(), err)
	}

	if resp.IsError() {
		logrus.Debugf("Gemini returned status %d", resp.StatusCode())
		return "", &HTTPError{Provider: g.Name(), Status: resp.StatusCode(), Body: upstreamMessage(resp.Body())}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", &ParseError{Provider: g.Name(), Reason: err.Error()}
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", &ParseError{Provider: g.Name(), Reason: "no candidates in response"}
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// upstreamMessage extracts the human-readable error message from an API
// error body, falling back to the raw body.
func upstreamMessage(body []byte) string {
	var wrapped struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Error.Message != "" {
		return wrapped.Error.Message
	}
	return strings.TrimSpace(string(body))
}
