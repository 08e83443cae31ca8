// Package moderation masks censored words in routed message text.
package moderation

import (
	"bufio"
	"io"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Filter finds censored words with an Aho-Corasick automaton over a
// normalized view of the text (lowercased, punctuation and spacing
// stripped) and masks the matched runes in the original, so obfuscation
// through casing or inserted separators still matches.
type Filter struct {
	matcher *goahocorasick.Machine
	mask    rune
}

// NewFilter builds the automaton from words. An empty list yields a nil
// filter, meaning moderation is disabled.
func NewFilter(words []string, mask rune) (*Filter, error) {
	if len(words) == 0 {
		return nil, nil
	}

	patterns := make([][]rune, 0, len(words))
	for _, w := range words {
		if norm := normalize([]rune(w)); len(norm) > 0 {
			patterns = append(patterns, norm)
		}
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Filter{matcher: m, mask: mask}, nil
}

// ReadWordList parses one censored word per line, skipping blanks and
// '#' comments.
func ReadWordList(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	return words, scanner.Err()
}

// Clean replaces every censored span of text with the mask rune,
// preserving length and spacing of the original.
func (f *Filter) Clean(text string) string {
	orig := []rune(text)
	norm, origIdx := normalizeIndexed(orig)
	if len(norm) == 0 {
		return text
	}

	spans := f.matcher.MultiPatternSearch(norm, false)
	if len(spans) == 0 {
		return text
	}

	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			orig[i] = f.mask
		}
	}
	return string(orig)
}

func normalize(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if skippable(r) {
			continue
		}
		out = append(out, unicode.ToLower(r))
	}
	return out
}

// normalizeIndexed also records, per normalized rune, its index in the
// original text so matches can be mapped back for masking.
func normalizeIndexed(orig []rune) ([]rune, []int) {
	norm := make([]rune, 0, len(orig))
	origIdx := make([]int, 0, len(orig))
	for i, r := range orig {
		if skippable(r) {
			continue
		}
		norm = append(norm, unicode.ToLower(r))
		origIdx = append(origIdx, i)
	}
	return norm, origIdx
}

func skippable(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
