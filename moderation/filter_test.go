package moderation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const maskChar = '*'

// The dictionary uses specific words to avoid partial collisions
// (e.g., "he" inside "The")
func TestFilter_Clean(t *testing.T) {
	req := require.New(t)
	filter, err := NewFilter([]string{"badger", "snake", "mushroom"}, maskChar)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Simple word and space preservation",
			input:    "The badger is here",
			expected: "The ****** is here",
		},
		{
			name:     "Multiple occurrences and preserved spacing",
			input:    "badger badger badger",
			expected: "****** ****** ******",
		},
		{
			name:     "Uppercase and internal punctuation",
			input:    "S-N-A-K-E is a B.A.D.G.E.R",
			expected: "********* is a ***********",
		},
		{
			name:     "Accents around the match (UTF-8)",
			input:    "Un été avec un badger",
			expected: "Un été avec un ******",
		},
		{
			name:     "Word adjacent to trailing punctuation",
			input:    "badger!",
			expected: "******!",
		},
		{
			name:     "Clean text left untouched",
			input:    "nothing to see here",
			expected: "nothing to see here",
		},
		{
			name:     "Only punctuation",
			input:    "... !!! ...",
			expected: "... !!! ...",
		},
		{
			name:     "Empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, filter.Clean(tt.input))
		})
	}
}

func TestFilter_Empty_Word_List_Disables_Moderation(t *testing.T) {
	req := require.New(t)

	filter, err := NewFilter(nil, maskChar)

	req.NoError(err)
	req.Nil(filter)
}

func TestReadWordList_Skips_Blanks_And_Comments(t *testing.T) {
	req := require.New(t)
	input := strings.NewReader("# dictionary\nbadger\n\n  snake  \n# trailing comment\nmushroom\n")

	words, err := ReadWordList(input)

	req.NoError(err)
	req.Equal([]string{"badger", "snake", "mushroom"}, words)
}
