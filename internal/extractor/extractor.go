// Package extractor scrapes normalized content records out of post nodes.
// Extraction is best-effort by contract: missing or ambiguous regions
// degrade to empty fields, never to an error.
package extractor

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/replypilot/replypilot/internal/hostpage"
	"github.com/replypilot/replypilot/internal/models"
)

var (
	hashtagPattern = regexp.MustCompile(`#[a-zA-Z0-9_]+`)
	mentionPattern = regexp.MustCompile(`@[a-zA-Z0-9_]+`)
	urlPattern     = regexp.MustCompile(`https?://\S+`)
)

// Extractor scrapes PostContent from post nodes using a selector profile.
type Extractor struct {
	selectors hostpage.Selectors
}

// New returns an extractor for the given profile.
func New(selectors hostpage.Selectors) *Extractor {
	return &Extractor{selectors: selectors}
}

// Extract builds the content record for a post node. A post holding only
// media yields Text == "" and is a valid extraction; callers treat such
// posts as not decoratable.
func (e *Extractor) Extract(post *html.Node) models.PostContent {
	if post == nil {
		return models.PostContent{}
	}

	textNode := e.findTextNode(post)
	content := models.PostContent{
		Text:   hostpage.CleanText(hostpage.Text(textNode)),
		Author: hostpage.CleanText(hostpage.Text(hostpage.FindFirst(post, e.selectors.Author))),
	}
	// Tags and mentions come from the chosen text region only, so the
	// author handle and surrounding chrome never leak in as mentions.
	content.Tags = e.extractTokens(textNode, e.selectors.HashtagLinks, "#", hashtagPattern)
	content.Mentions = e.extractTokens(textNode, e.selectors.MentionLinks, "@", mentionPattern)
	return content
}

// HasText reports whether the post has extractable primary text, the
// gate for attaching a decoration.
func (e *Extractor) HasText(post *html.Node) bool {
	return hostpage.CleanText(hostpage.Text(e.findTextNode(post))) != ""
}

// findTextNode runs the prioritized selector cascade, then falls back to
// scanning language-tagged nodes. Candidates inside media sub-regions are
// skipped so alt text and captions never pose as post text.
func (e *Extractor) findTextNode(post *html.Node) *html.Node {
	for _, sel := range e.selectors.Text {
		for _, candidate := range hostpage.FindAll(post, []string{sel}) {
			if e.inMediaRegion(post, candidate) {
				continue
			}
			if strings.TrimSpace(hostpage.Text(candidate)) != "" {
				return candidate
			}
		}
	}
	for _, candidate := range hostpage.FindAll(post, e.selectors.TextFallback) {
		if e.inMediaRegion(post, candidate) {
			continue
		}
		if strings.TrimSpace(hostpage.Text(candidate)) != "" {
			return candidate
		}
	}
	return nil
}

func (e *Extractor) inMediaRegion(post, n *html.Node) bool {
	for _, media := range hostpage.FindAll(post, e.selectors.Media) {
		if hostpage.Contains(media, n) {
			return true
		}
	}
	return false
}

// extractTokens collects prefix-marked tokens (#tag, @mention) from the
// text region: anchor elements first, then a regex sweep of the plain
// text for hosts that render tokens without links.
func (e *Extractor) extractTokens(textNode *html.Node, linkSelectors []string, prefix string, pattern *regexp.Regexp) []string {
	if textNode == nil {
		return nil
	}
	var tokens []string
	for _, link := range hostpage.FindAll(textNode, linkSelectors) {
		token := hostpage.CleanText(hostpage.Text(link))
		if strings.HasPrefix(token, prefix) {
			tokens = append(tokens, token)
		}
	}
	if len(tokens) == 0 {
		tokens = pattern.FindAllString(hostpage.Text(textNode), -1)
	}
	return dedupOrdered(tokens)
}

func dedupOrdered(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	var out []string
	for _, t := range tokens {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// StripURLs removes http(s) URLs from text; used when judging whether a
// post has enough substance to generate replies for.
func StripURLs(text string) string {
	return strings.TrimSpace(urlPattern.ReplaceAllString(text, ""))
}
