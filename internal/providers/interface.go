package providers

import "context"

// GenerationConfig carries the sampling parameters shared by every
// remote completion call.
type GenerationConfig struct {
	Temperature float64
	MaxTokens   int
	TopP        float64
}

// DefaultGenerationConfig matches the tuning the reply prompt was
// written against.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{Temperature: 0.7, MaxTokens: 500, TopP: 0.8}
}

// Provider is the contract for a remote completion backend. Complete
// performs exactly one attempt: retries and local fallback are policy
// decisions that belong to the caller, never to the client.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt, apiKey string, cfg GenerationConfig) (string, error)
}
