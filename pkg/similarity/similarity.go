// Package similarity detects typosquatted MCP server names.
// Candidate names are normalized through a fixed homoglyph table and
// compared with Levenshtein edit distance, producing a similarity ratio
// in [0,1]. A registered name of "finance-tools" and a candidate of
// "finance-too1s" normalize to the same string and score 1.0.
package similarity

import "strings"

// homoglyphRunes maps single confusable characters to the letter they
// imitate. Applied in one pass during Normalize; the table is fixed and
// never grows at runtime.
var homoglyphRunes = map[rune]rune{
	'0': 'o',
	'1': 'l',
	'3': 'e',
	'4': 'a',
	'5': 's',
	'7': 't',
	'8': 'b',
	'$': 's',
	'@': 'a',
	'!': 'i',
	'|': 'l',
}

// homoglyphPairs maps two-character confusable sequences to the single
// letter they imitate ("rn" reads as "m" in most UI fonts). Checked
// before the single-rune table so "rn" folds to "m" rather than to "rn".
var homoglyphPairs = map[string]rune{
	"rn": 'm',
	"vv": 'w',
	"cl": 'd',
}

// Normalize lowercases name and folds the homoglyph tables in a single
// left-to-right pass. Punctuation is preserved: "finance-tools" and
// "financetools" are different names and should stay different.
func Normalize(name string) string {
	lower := strings.ToLower(name)
	runes := []rune(lower)

	var b strings.Builder
	b.Grow(len(lower))
	for i := 0; i < len(runes); i++ {
		if i+1 < len(runes) {
			if folded, ok := homoglyphPairs[string(runes[i:i+2])]; ok {
				b.WriteRune(folded)
				i++
				continue
			}
		}
		if folded, ok := homoglyphRunes[runes[i]]; ok {
			b.WriteRune(folded)
			continue
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}

// Distance returns the Levenshtein edit distance between a and b with
// unit insertion, deletion, and substitution costs. Uses a two-row
// rolling table so memory stays O(min side) regardless of input size.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Similarity returns 1 - dist(norm(a), norm(b)) / max(len), a ratio in
// [0,1] where 1.0 means the normalized forms are identical. Two empty
// strings are defined as fully similar (1.0).
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	longest := len([]rune(na))
	if l := len([]rune(nb)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(Distance(na, nb))/float64(longest)
}

// Match is the result of a typosquat search.
type Match struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// BestMatch returns the registered name most similar to candidate,
// provided the score reaches threshold. Names that are an exact
// case-insensitive match are skipped: those are legitimate whitelist
// hits and are handled by the caller before typosquat detection runs.
func BestMatch(candidate string, names []string, threshold float64) (Match, bool) {
	var best Match
	found := false
	candidateLower := strings.ToLower(candidate)

	for _, name := range names {
		if strings.ToLower(name) == candidateLower {
			continue
		}
		score := Similarity(candidate, name)
		if score < threshold {
			continue
		}
		if !found || score > best.Score {
			best = Match{Name: name, Score: score}
			found = true
		}
	}
	return best, found
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
