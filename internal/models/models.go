package models

import "strings"

// Provider identifies a suggestion backend.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// Valid reports whether p is a known provider name.
func (p Provider) Valid() bool {
	switch p {
	case ProviderLocal, ProviderGemini, ProviderOpenAI:
		return true
	}
	return false
}

// Remote reports whether p requires a network call.
func (p Provider) Remote() bool {
	return p == ProviderGemini || p == ProviderOpenAI
}

// PostContent is the normalized content scraped from a single post.
// All fields are best-effort; a media-only post has an empty Text.
type PostContent struct {
	Text     string   `json:"text"`
	Tags     []string `json:"tags"`
	Mentions []string `json:"mentions"`
	Author   string   `json:"author"`
}

// Combined joins text, tags and mentions into the single string fed to
// the suggestion pipeline. It is always derived, never stored.
func (c PostContent) Combined() string {
	parts := c.Text + " " + strings.Join(c.Tags, " ") + " " + strings.Join(c.Mentions, " ")
	return strings.TrimSpace(parts)
}

// Stats holds the usage counters surfaced in the control API and digest.
// Counters only ever grow; updates are additive.
type Stats struct {
	PostsProcessed       int `json:"posts_processed"`
	SuggestionsGenerated int `json:"suggestions_generated"`
}

// Add returns the element-wise sum of s and delta.
func (s Stats) Add(delta Stats) Stats {
	return Stats{
		PostsProcessed:       s.PostsProcessed + delta.PostsProcessed,
		SuggestionsGenerated: s.SuggestionsGenerated + delta.SuggestionsGenerated,
	}
}

const (
	DefaultMaxSuggestions = 5
	MinSuggestions        = 3
	MaxSuggestionsCeiling = 10
	MaxSuggestionLength   = 280
)

// Settings is the persisted, user-editable configuration.
type Settings struct {
	Enabled        bool                `json:"enabled"`
	Provider       Provider            `json:"provider"`
	APIKeys        map[Provider]string `json:"api_keys"`
	MaxSuggestions int                 `json:"max_suggestions"`
	Stats          Stats               `json:"stats"`
}

// DefaultSettings returns the first-install configuration.
func DefaultSettings() Settings {
	return Settings{
		Enabled:        true,
		Provider:       ProviderGemini,
		APIKeys:        map[Provider]string{},
		MaxSuggestions: DefaultMaxSuggestions,
	}
}

// Normalize clamps out-of-range values and fills zero fields so that a
// Settings read from any store is always usable.
func (s *Settings) Normalize() {
	if !s.Provider.Valid() {
		s.Provider = ProviderGemini
	}
	if s.APIKeys == nil {
		s.APIKeys = map[Provider]string{}
	}
	if s.MaxSuggestions == 0 {
		s.MaxSuggestions = DefaultMaxSuggestions
	}
	if s.MaxSuggestions < MinSuggestions {
		s.MaxSuggestions = MinSuggestions
	}
	if s.MaxSuggestions > MaxSuggestionsCeiling {
		s.MaxSuggestions = MaxSuggestionsCeiling
	}
}

// APIKey returns the configured key for p, trimmed of surrounding whitespace.
func (s Settings) APIKey(p Provider) string {
	return strings.TrimSpace(s.APIKeys[p])
}
