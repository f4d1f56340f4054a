package suggest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/replypilot/replypilot/internal/models"
)

func TestBuildPrompt(t *testing.T) {
	content := models.PostContent{
		Text:     "Shipping a new release",
		Tags:     []string{"#golang", "#release"},
		Mentions: []string{"@team"},
		Author:   "Jane",
	}

	prompt := BuildPrompt(content)
	assert.Contains(t, prompt, `Post: "Shipping a new release"`)
	assert.Contains(t, prompt, "Hashtags: #golang, #release")
	assert.Contains(t, prompt, "Mentions: @team")
	assert.Contains(t, prompt, "Author: Jane")
	assert.NotContains(t, prompt, "{text}")
}

func TestBuildPrompt_EmptyFieldsUsePlaceholders(t *testing.T) {
	prompt := BuildPrompt(models.PostContent{Text: "Just text"})
	assert.Contains(t, prompt, "Hashtags: None")
	assert.Contains(t, prompt, "Mentions: None")
	assert.Contains(t, prompt, "Author: Unknown")
}

func TestParseCompletion(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		max      int
		expected []string
	}{
		{
			name:     "Plain lines pass through",
			raw:      "Great take!\nLove this.\nWell said.",
			max:      5,
			expected: []string{"Great take!", "Love this.", "Well said."},
		},
		{
			name:     "Blank lines and whitespace dropped",
			raw:      "First\n\n   \n  Second  ",
			max:      5,
			expected: []string{"First", "Second"},
		},
		{
			name:     "Numbered lines dropped",
			raw:      "1. Numbered reply\n2) Another\nClean reply",
			max:      5,
			expected: []string{"Clean reply"},
		},
		{
			name:     "Meta commentary dropped",
			raw:      "Here are some suggestions:\nActual reply",
			max:      5,
			expected: []string{"Actual reply"},
		},
		{
			name:     "Overlong lines dropped",
			raw:      strings.Repeat("x", 300) + "\nShort enough",
			max:      5,
			expected: []string{"Short enough"},
		},
		{
			name:     "Duplicates collapse",
			raw:      "Same line\nSame line\nOther line",
			max:      5,
			expected: []string{"Same line", "Other line"},
		},
		{
			name:     "Capped at max",
			raw:      "One\nTwo\nThree\nFour",
			max:      2,
			expected: []string{"One", "Two"},
		},
		{
			name:     "Nothing usable",
			raw:      "1. only numbered\n\n",
			max:      5,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseCompletion(tt.raw, tt.max))
		})
	}
}
