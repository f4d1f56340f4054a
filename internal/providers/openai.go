package providers

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	openaiEndpoint = "https://api.openai.com/v1/chat/completions"
	openaiModel    = "gpt-4o-mini"
)

// OpenAIProvider calls the OpenAI chat-completions endpoint.
type OpenAIProvider struct {
	endpoint string
	model    string
	client   *resty.Client
}

var _ Provider = (*OpenAIProvider)(nil)

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	TopP        float64         `json:"top_p,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message openaiMessage `json:"message"`
	} `json:"choices"`
}

// NewOpenAIProvider creates an OpenAI client with the default endpoint.
func NewOpenAIProvider() *OpenAIProvider {
	return NewOpenAIProviderWithEndpoint(openaiEndpoint)
}

// NewOpenAIProviderWithEndpoint allows pointing the client at a test server.
func NewOpenAIProviderWithEndpoint(endpoint string) *OpenAIProvider {
	return &OpenAIProvider{
		endpoint: endpoint,
		model:    openaiModel,
		client:   resty.New().SetTimeout(DefaultTimeout),
	}
}

func (o *OpenAIProvider) Name() string {
	return "openai"
}

// Complete sends the prompt as a single user message and returns the raw
// completion text.
func (o *OpenAIProvider) Complete(ctx context.Context, prompt, apiKey string, cfg GenerationConfig) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", ErrMissingAPIKey
	}

	body := openaiRequest{
		Model:       o.model,
		Messages:    []openaiMessage{{Role: "user", Content: prompt}},
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
	}

	resp, err := o.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(apiKey).
		SetBody(body).
		Post(o.endpoint)
	if err != nil {
		return "", wrapTransportError(o.Name(), err)
	}

	if resp.IsError() {
		logrus.Debugf("OpenAI returned status %d", resp.StatusCode())
		return "", &HTTPError{Provider: o.Name(), Status: resp.StatusCode(), Body: upstreamMessage(resp.Body())}
	}

	var parsed openaiResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", &ParseError{Provider: o.Name(), Reason: err.Error()}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", &ParseError{Provider: o.Name(), Reason: "no choices in response"}
	}
	return parsed.Choices[0].Message.Content, nil
}
