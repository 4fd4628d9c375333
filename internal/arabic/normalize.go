// Package arabic normalizes Arabic text so that spelling variants of
// the same word compare equal. All matching in the search and learning
// layers happens on normalized forms.
package arabic

import (
	"strings"
	"unicode"

	"github.com/lawbot/backend/pkg/utils"
)

// letterFolds maps orthographic variants onto a single canonical letter.
var letterFolds = map[rune]rune{
	'أ': 'ا', // alef with hamza above
	'إ': 'ا', // alef with hamza below
	'آ': 'ا', // alef with madda
	'ٱ': 'ا', // alef wasla
	'ء': 'ا', // standalone hamza
	'ى': 'ي', // alef maqsura -> ya
	'ئ': 'ي', // ya with hamza
	'ة': 'ه', // ta marbuta -> ha
	'ؤ': 'و', // waw with hamza
}

// Normalize lowercases the input, folds hamza/alef/ya/ta-marbuta
// variants, strips tashkeel marks and collapses runs of whitespace.
func Normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))

	var b strings.Builder
	b.Grow(len(text))

	lastSpace := false
	for _, r := range text {
		if isDiacritic(r) {
			continue
		}
		if folded, ok := letterFolds[r]; ok {
			r = folded
		}
		if unicode.IsSpace(r) {
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
			}
			lastSpace = true
			continue
		}
		lastSpace = false
		b.WriteRune(r)
	}

	return strings.TrimRight(b.String(), " ")
}

// isDiacritic reports whether r is an Arabic tashkeel mark
// (fathatan through sukun, plus the dagger alef).
func isDiacritic(r rune) bool {
	return (r >= 'ً' && r <= 'ٟ') || r == 'ٰ'
}

// QuestionHash returns the digest used to key questions in the
// failed-match and chat-log tables. It intentionally hashes the raw
// lowercased text rather than the normalized form, so that digests
// stay stable even if the normalization rules evolve.
func QuestionHash(question string) string {
	return utils.HashString(strings.ToLower(strings.TrimSpace(question)))
}

// Similarity returns a 0-100 ratio of how close two words are, based
// on edit distance over runes. Identical words score 100.
func Similarity(a, b string) int {
	if a == b {
		return 100
	}

	ra := []rune(a)
	rb := []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 100
	}

	dist := levenshtein(ra, rb)
	return (longest - dist) * 100 / longest
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
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
