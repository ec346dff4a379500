// Package similarity provides the deterministic text comparisons used to
// decide whether two extracted items describe the same story.
package similarity

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// stopwords are excluded from keyword sets; they carry no story identity.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "this": true,
	"with": true, "from": true, "into": true, "over": true, "after": true,
	"about": true, "their": true, "them": true, "they": true, "has": true,
	"have": true, "had": true, "are": true, "was": true, "were": true,
	"will": true, "would": true, "could": true, "can": true, "its": true,
	"his": true, "her": true, "not": true, "but": true, "out": true,
	"more": true, "most": true, "than": true, "then": true, "now": true,
	"also": true, "just": true, "been": true, "being": true, "how": true,
	"why": true, "what": true, "when": true, "who": true, "you": true,
	"your": true, "our": true, "all": true, "any": true, "per": true,
}

// Normalize lowercases, applies unicode NFC and collapses whitespace.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}

// Keywords extracts the deduplicated significant tokens of a text in
// first-seen order.
func Keywords(s string) []string {
	split := func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}
	seen := make(map[string]bool)
	var out []string
	for _, tok := range strings.FieldsFunc(Normalize(s), split) {
		if len(tok) < 3 || stopwords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// TokenOverlap is the overlap coefficient of two keyword sets: shared
// tokens divided by the size of the smaller set. Returns 0 when either
// set is empty.
func TokenOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, tok := range a {
		set[tok] = true
	}
	shared := 0
	seen := make(map[string]bool, len(b))
	for _, tok := range b {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		if set[tok] {
			shared++
		}
	}
	smaller := len(a)
	if len(seen) < smaller {
		smaller = len(seen)
	}
	return float64(shared) / float64(smaller)
}

// Ratio is the Levenshtein similarity of two strings in [0, 1], computed
// over runes so multi-byte text compares correctly.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

// levenshtein computes edit distance with the two-row variant to keep
// allocations flat for the short strings compared here.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
