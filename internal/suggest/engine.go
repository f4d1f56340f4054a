// Package suggest turns a post's content record into an ordered list of
// short reply suggestions, through a configured remote provider or the
// local heuristic generator.
package suggest

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/replypilot/replypilot/internal/extractor"
	"github.com/replypilot/replypilot/internal/models"
	"github.com/replypilot/replypilot/internal/providers"
	"github.com/replypilot/replypilot/internal/settings"
)

// ErrInvalidContent reports that the extracted text is unusable: empty,
// or shorter than three characters once URLs are stripped.
var ErrInvalidContent = errors.New("invalid post content")

// ErrNoSuggestions reports that a completion parsed to zero usable lines.
var ErrNoSuggestions = errors.New("no suggestions generated")

// ErrUnknownProvider reports a settings provider with no registered client.
var ErrUnknownProvider = errors.New("unknown provider")

const minUsableTextLength = 3

// Engine resolves suggestions for post content. Remote failures are
// surfaced to the caller as typed errors, never silently converted into
// local suggestions: the fallback decision belongs to the orchestrator.
type Engine struct {
	remotes map[models.Provider]providers.Provider
	store   settings.Store
	genCfg  providers.GenerationConfig
}

// NewEngine builds an engine with the default remote clients registered.
func NewEngine(store settings.Store) *Engine {
	e := &Engine{
		remotes: map[models.Provider]providers.Provider{},
		store:   store,
		genCfg:  providers.DefaultGenerationConfig(),
	}
	e.Register(models.ProviderGemini, providers.NewGeminiProvider())
	e.Register(models.ProviderOpenAI, providers.NewOpenAIProvider())
	return e
}

// Register installs (or replaces) the client for a remote provider.
func (e *Engine) Register(name models.Provider, p providers.Provider) {
	e.remotes[name] = p
}

// Generate produces suggestions for content under the given settings.
// The remote path is taken when the configured provider is remote and
// has a key; otherwise the local heuristics run. On success the usage
// counters are incremented; on any failure they stay untouched.
func (e *Engine) Generate(ctx context.Context, content models.PostContent, st models.Settings) ([]string, error) {
	if err := validate(content); err != nil {
		return nil, err
	}
	st.Normalize()

	if st.Provider.Remote() && st.APIKey(st.Provider) != "" {
		return e.generateRemote(ctx, content, st)
	}
	return e.Local(ctx, content, st)
}

// Local runs the heuristic generator and records stats. Exposed so the
// orchestrator can use it as its fallback policy after a remote failure.
func (e *Engine) Local(ctx context.Context, content models.PostContent, st models.Settings) ([]string, error) {
	if err := validate(content); err != nil {
		return nil, err
	}
	st.Normalize()
	suggestions := LocalSuggestions(content, st.MaxSuggestions)
	e.recordStats(ctx, len(suggestions))
	return suggestions, nil
}

func (e *Engine) generateRemote(ctx context.Context, content models.PostContent, st models.Settings) ([]string, error) {
	remote, ok := e.remotes[st.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, st.Provider)
	}

	ctx, cancel := context.WithTimeout(ctx, providers.DefaultTimeout)
	defer cancel()

	raw, err := remote.Complete(ctx, BuildPrompt(content), st.APIKey(st.Provider), e.genCfg)
	if err != nil {
		return nil, err
	}

	suggestions := ParseCompletion(raw, st.MaxSuggestions)
	if len(suggestions) == 0 {
		return nil, ErrNoSuggestions
	}
	e.recordStats(ctx, len(suggestions))
	return suggestions, nil
}

// TestProvider verifies an API key with the fixed test prompt and
// returns the provider's reply text.
func (e *Engine) TestProvider(ctx context.Context, name models.Provider, apiKey string) (string, error) {
	remote, ok := e.remotes[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	ctx, cancel := context.WithTimeout(ctx, providers.DefaultTimeout)
	defer cancel()
	cfg := e.genCfg
	cfg.MaxTokens = 100
	return remote.Complete(ctx, TestPrompt, apiKey, cfg)
}

func (e *Engine) recordStats(ctx context.Context, generated int) {
	if e.store == nil {
		return
	}
	// Stats are informational; a store failure must not fail the request.
	delta := models.Stats{PostsProcessed: 1, SuggestionsGenerated: generated}
	if _, err := e.store.AddStats(context.WithoutCancel(ctx), delta); err != nil {
		logrus.Warnf("Failed to record usage stats: %v", err)
	}
}

func validate(content models.PostContent) error {
	if content.Text == "" {
		return ErrInvalidContent
	}
	if len(extractor.StripURLs(content.Text)) < minUsableTextLength {
		return ErrInvalidContent
	}
	return nil
}
