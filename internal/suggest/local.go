package suggest

import (
	"regexp"
	"strings"

	"github.com/replypilot/replypilot/internal/models"
)

// shortTextLimit is the boundary between "short and sweet" and
// "insightful" template sets.
const shortTextLimit = 50

var (
	questionTemplates = []string{
		"Great question! I'd love to hear more about this.",
		"That's an interesting point to consider.",
		"Thanks for bringing this up - it's worth discussing.",
	}
	positiveTemplates = []string{
		"Love this perspective! Thanks for sharing.",
		"This made my day - appreciate you posting this!",
		"Completely agree with this positive outlook.",
	}
	negativeTemplates = []string{
		"Thanks for sharing your thoughts on this.",
		"I can understand that perspective.",
		"Appreciate you bringing attention to this issue.",
	}
	hashtagTemplates = []string{
		"Love the {hashtag} vibes!",
		"Thanks for sharing this perspective.",
	}
	shortTemplates = []string{
		"Short and sweet! Thanks for sharing.",
		"Appreciate you posting this.",
	}
	insightfulTemplates = []string{
		"This is really insightful, thanks for sharing!",
		"Great point! I completely agree with you.",
	}
	mentionTemplates = []string{
		"Thanks for the mention {mention}!",
	}
	fillerTemplates = []string{
		"Great point! Thanks for sharing this.",
		"Interesting perspective on this topic.",
		"I completely agree with you on this.",
		"This is really insightful, thanks!",
		"Love the way you put this together.",
		"Thanks for bringing this up!",
		"This resonates with me completely.",
		"Appreciate you sharing your thoughts.",
	}
	minimalTemplates = []string{
		"Thanks for sharing this!",
		"Interesting perspective!",
		"Appreciate you posting this.",
	}
)

var questionLead = regexp.MustCompile(`^(what|how|why|when|where|who|which|do|does|did|can|could|would|will|should|is|are|was|were)\b`)

func isQuestion(text string) bool {
	if text == "" {
		return false
	}
	return strings.Contains(text, "?") || questionLead.MatchString(strings.ToLower(text))
}

var (
	positiveWords = []string{"good", "great", "awesome", "amazing", "love", "like", "happy", "excited", "wonderful", "fantastic"}
	negativeWords = []string{"bad", "terrible", "awful", "hate", "sad", "angry", "disappointed", "frustrated", "horrible"}
)

func detectSentiment(text string) string {
	lower := strings.ToLower(text)
	count := func(words []string) int {
		n := 0
		for _, w := range words {
			if strings.Contains(lower, w) {
				n++
			}
		}
		return n
	}
	pos, neg := count(positiveWords), count(negativeWords)
	switch {
	case pos > neg:
		return "positive"
	case neg > pos:
		return "negative"
	default:
		return "neutral"
	}
}

// LocalSuggestions computes template-based suggestions without any
// network call. Rules run in priority order; question beats everything,
// sentiment refines the non-question branches, hashtags and length pick
// the shape, and generic fillers pad the tail. The result is
// order-preserving, exactly deduplicated, and always holds at least
// min(3, max) entries.
func LocalSuggestions(content models.PostContent, max int) []string {
	if max < 1 {
		max = models.DefaultMaxSuggestions
	}
	text := content.Text
	var picked []string

	switch {
	case isQuestion(text):
		picked = append(picked, questionTemplates...)
	case len(content.Tags) > 0:
		picked = append(picked,
			strings.ReplaceAll(hashtagTemplates[0], "{hashtag}", content.Tags[0]),
			hashtagTemplates[1])
	case detectSentiment(text) == "positive":
		picked = append(picked, positiveTemplates...)
	case detectSentiment(text) == "negative":
		picked = append(picked, negativeTemplates...)
	case len(text) < shortTextLimit:
		picked = append(picked, shortTemplates...)
	default:
		picked = append(picked, insightfulTemplates...)
	}

	if len(content.Mentions) > 0 {
		picked = append(picked, strings.ReplaceAll(mentionTemplates[0], "{mention}", content.Mentions[0]))
	}
	picked = append(picked, fillerTemplates...)

	unique := dedupPreserveOrder(picked)
	if len(unique) < models.MinSuggestions {
		unique = dedupPreserveOrder(append(unique, minimalTemplates...))
	}
	if len(unique) > max {
		unique = unique[:max]
	}
	return unique
}

func dedupPreserveOrder(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
