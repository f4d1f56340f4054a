package suggest

import (
	"regexp"
	"strings"

	"github.com/replypilot/replypilot/internal/hostpage"
	"github.com/replypilot/replypilot/internal/models"
)

const promptTemplate = `You are a helpful assistant that generates engaging, human-like reply suggestions for social media posts.

Given the following post, generate 3-5 short, natural reply suggestions that are:
- Engaging and conversational
- Appropriate for the post's content and tone
- Under 280 characters each
- Not overly formal or robotic
- Contextually relevant

Post: "{text}"
Hashtags: {hashtags}
Mentions: {mentions}
Author: {author}

Generate only the reply suggestions, one per line, without numbering or additional text.`

// TestPrompt is the fixed prompt used to verify an API key.
const TestPrompt = "Generate a simple test reply to: 'Hello world!'"

// BuildPrompt renders the reply-generation prompt for one post.
func BuildPrompt(content models.PostContent) string {
	replacer := strings.NewReplacer(
		"{text}", content.Text,
		"{hashtags}", orNone(strings.Join(content.Tags, ", ")),
		"{mentions}", orNone(strings.Join(content.Mentions, ", ")),
		"{author}", orDefault(content.Author, "Unknown"),
	)
	return replacer.Replace(promptTemplate)
}

func orNone(s string) string { return orDefault(s, "None") }

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

var numberedLine = regexp.MustCompile(`^\s*\d+[.)\]:]`)

// ParseCompletion splits raw completion text into usable suggestion
// lines: trimmed, non-empty, within the length limit, and free of
// numbering or meta-commentary.
func ParseCompletion(raw string, max int) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, line := range strings.Split(raw, "\n") {
		line = hostpage.CleanText(line)
		if line == "" || len(line) > models.MaxSuggestionLength {
			continue
		}
		if numberedLine.MatchString(line) {
			continue
		}
		if strings.Contains(strings.ToLower(line), "suggestion") {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
		if len(out) == max {
			break
		}
	}
	return out
}
