package memebot

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// partialWeight scales single-token scores so a whole-phrase match always wins
// over a match found inside a longer sentence.
const partialWeight = 0.9

// MatchResult is the closest vocabulary word for an input phrase and its
// similarity score from 0 to 100.
type MatchResult struct {
	Word       string
	Confidence int
}

// Match strips the first occurrence of trigger from the case-folded text and
// scores the remainder against every vocabulary word. It returns ErrNoTrigger
// when the text does not contain trigger. Ties go to the word declared first.
func Match(raw, trigger string, vocab []string) (MatchResult, error) {
	folded := strings.ToLower(raw)
	trigger = strings.ToLower(strings.TrimSpace(trigger))
	idx := strings.Index(folded, trigger)
	if trigger == "" || idx < 0 {
		return MatchResult{}, ErrNoTrigger
	}
	phrase := strings.TrimSpace(folded[:idx] + folded[idx+len(trigger):])

	var best MatchResult
	for i, word := range vocab {
		score := Score(phrase, word)
		if i == 0 || score > best.Confidence {
			best = MatchResult{Word: word, Confidence: score}
		}
	}
	return best, nil
}

// Score returns the similarity of query and choice from 0 to 100. Both sides
// are lowercased, punctuation is treated as whitespace and tokens are sorted
// before comparison. For multi-word queries the best single token also
// counts, weighted down by partialWeight.
func Score(query, choice string) int {
	q := tokens(query)
	c := tokens(choice)
	if len(q) == 0 || len(c) == 0 {
		return 0
	}

	joined := strings.Join(c, " ")
	best := ratio(sortedJoin(q), sortedJoin(c))
	if len(q) > 1 {
		for _, tok := range q {
			partial := int(math.Round(float64(ratio(tok, joined)) * partialWeight))
			if partial > best {
				best = partial
			}
		}
	}
	return best
}

func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func sortedJoin(toks []string) string {
	sorted := make([]string, len(toks))
	copy(sorted, toks)
	sort.Strings(sorted)
	return strings.Join(sorted, " ")
}

// ratio is the normalized Levenshtein similarity of a and b.
func ratio(a, b string) int {
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return int(math.Round(100 * float64(maxLen-dist) / float64(maxLen)))
}
