// Package keywords turns raw Arabic questions into ranked candidate
// keywords for title matching.
package keywords

import (
	"strings"
	"unicode/utf8"

	"github.com/lawbot/backend/internal/arabic"
)

// MaxKeywords caps how many keywords a single question contributes.
const MaxKeywords = 10

// minWordLen is the shortest token, in runes, considered meaningful.
const minWordLen = 3

// proclitics are the definite-article and conjunction/preposition
// prefixes stripped from tokens. Ordered longest first so compound
// clitics win over their single-letter components.
var proclitics = []string{
	"ولل", "بلل", "فلل", "بال", "وال", "فال", "كال",
	"ال", "لل",
	"و", "ب", "ف", "ك", "ل",
}

var punctuation = strings.NewReplacer(
	"؟", " ", "?", " ", "،", " ", ",", " ", ".", " ",
	":", " ", ";", " ", "!", " ", `"`, " ", "'", " ",
	"«", " ", "»", " ",
)

// Tokenize normalizes the question and splits it into whitespace
// tokens with punctuation removed.
func Tokenize(question string) []string {
	cleaned := arabic.Normalize(punctuation.Replace(question))
	return strings.Fields(cleaned)
}

// Extract returns up to MaxKeywords keywords for the question. Legal
// domain terms come first, followed by ordinary keywords, each group
// in question order with duplicates removed. An empty result means the
// question carried no usable signal.
func Extract(question string) []string {
	var boosted, plain []string

	for _, word := range Tokenize(question) {
		if utf8.RuneCountInString(word) < minWordLen {
			continue
		}

		stripped := StripProclitic(word)
		if utf8.RuneCountInString(stripped) < minWordLen {
			continue
		}
		if IsStopword(word) || IsStopword(stripped) {
			continue
		}

		if IsLegalTerm(stripped) {
			boosted = append(boosted, stripped)
		} else {
			plain = append(plain, stripped)
		}
	}

	result := dedupe(append(boosted, plain...))
	if len(result) > MaxKeywords {
		result = result[:MaxKeywords]
	}
	return result
}

// ExtractWithVariants returns keywords together with their unstripped
// and root forms, for callers that match against free text rather than
// curated titles.
func ExtractWithVariants(question string) []string {
	var variants []string

	for _, word := range Tokenize(question) {
		if utf8.RuneCountInString(word) < minWordLen {
			continue
		}

		stripped := StripProclitic(word)
		if utf8.RuneCountInString(stripped) < minWordLen {
			continue
		}
		if IsStopword(word) || IsStopword(stripped) {
			continue
		}

		variants = append(variants, word)
		if stripped != word {
			variants = append(variants, stripped)
		}
		if root := RootForm(stripped); root != "" && root != stripped {
			variants = append(variants, root)
		}
	}

	return dedupe(variants)
}

// StripProclitic removes the longest matching proclitic prefix,
// provided the remainder is still a meaningful word.
func StripProclitic(word string) string {
	for _, prefix := range proclitics {
		if !strings.HasPrefix(word, prefix) {
			continue
		}
		remainder := word[len(prefix):]
		if utf8.RuneCountInString(remainder) >= minWordLen {
			return remainder
		}
	}
	return word
}

// rootSuffixes are plural, nisba and attached-pronoun endings removed
// to approximate a root form.
var rootSuffixes = []string{"ات", "ون", "ين", "يه", "ان", "تي", "ني", "ها", "هم"}

// RootForm strips a known suffix when the word is long enough to keep
// a meaningful stem. Returns "" when no suffix applies.
func RootForm(word string) string {
	wordLen := utf8.RuneCountInString(word)
	for _, suffix := range rootSuffixes {
		suffixLen := utf8.RuneCountInString(suffix)
		if wordLen > suffixLen+2 && strings.HasSuffix(word, suffix) {
			return strings.TrimSuffix(word, suffix)
		}
	}
	return ""
}

func dedupe(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	result := words[:0]
	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		result = append(result, w)
	}
	return result
}
