package hostpage

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Selectors is the host-site selector profile. The concrete selectors
// belong to the host page, not to the pipeline, so they are loaded from
// configuration and can be swapped without touching any algorithm.
type Selectors struct {
	// Post matches a post container, or an element wrapping one.
	Post []string `yaml:"post"`
	// Text matches the primary text region inside a post, in priority order.
	Text []string `yaml:"text"`
	// TextFallback matches language-tagged nodes scanned when no Text
	// selector yields a usable element.
	TextFallback []string `yaml:"text_fallback"`
	// Media matches sub-regions whose text must never leak into extraction.
	Media []string `yaml:"media"`
	// Author matches the display-name region.
	Author []string `yaml:"author"`
	// ActionBar matches the control strip the decoration is injected into.
	ActionBar []string `yaml:"action_bar"`
	// ReplyTrigger matches the host page's native reply control.
	ReplyTrigger []string `yaml:"reply_trigger"`
	// HashtagLinks and MentionLinks match tag/mention anchors inside the
	// chosen text region.
	HashtagLinks []string `yaml:"hashtag_links"`
	MentionLinks []string `yaml:"mention_links"`
}

// DefaultSelectors returns the built-in profile for the reference host site.
func DefaultSelectors() Selectors {
	return Selectors{
		Post: []string{
			`[data-testid="tweet"]`,
			`article[data-testid="tweet"]`,
			`[data-testid="cellInnerDiv"]`,
		},
		Text: []string{
			`[data-testid="tweetText"]`,
			`div[data-testid="tweetText"]`,
			`div[lang]:not([data-testid*="media"])`,
		},
		TextFallback: []string{
			`div[lang]`,
			`span[lang]`,
		},
		Media: []string{
			`[data-testid*="media"]`,
			`[data-testid*="video"]`,
			`[data-testid*="image"]`,
		},
		Author: []string{
			`[data-testid="User-Name"]`,
			`a[href^="/"][role="link"]`,
		},
		ActionBar: []string{
			`[role="group"]`,
		},
		ReplyTrigger: []string{
			`[data-testid="reply"]`,
		},
		HashtagLinks: []string{
			`a[href^="/hashtag/"]`,
		},
		MentionLinks: []string{
			`a[href^="/"]`,
		},
	}
}

// LoadSelectors reads a YAML selector profile. Empty lists fall back to
// the built-in profile so a partial file only overrides what it names.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()
	data, err := os.ReadFile(path)
	if err != nil {
		return sel, fmt.Errorf("failed to read selector profile: %w", err)
	}
	var loaded Selectors
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return sel, fmt.Errorf("failed to parse selector profile: %w", err)
	}
	merge := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}
	merge(&sel.Post, loaded.Post)
	merge(&sel.Text, loaded.Text)
	merge(&sel.TextFallback, loaded.TextFallback)
	merge(&sel.Media, loaded.Media)
	merge(&sel.Author, loaded.Author)
	merge(&sel.ActionBar, loaded.ActionBar)
	merge(&sel.ReplyTrigger, loaded.ReplyTrigger)
	merge(&sel.HashtagLinks, loaded.HashtagLinks)
	merge(&sel.MentionLinks, loaded.MentionLinks)
	return sel, nil
}
