// Package search scores the question's keywords against every indexed
// PDF title and returns the best matches.
package search

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/lawbot/backend/internal/arabic"
	"github.com/lawbot/backend/internal/index"
	"github.com/lawbot/backend/internal/keywords"
	"github.com/lawbot/backend/internal/storage/models"
	"github.com/lawbot/backend/pkg/config"
	"github.com/lawbot/backend/pkg/logger"
)

// Failure reasons distinguish an empty document base from a question
// nothing matched.
const (
	ReasonNoDocuments = "no_documents"
	ReasonNoMatches   = "no_matches"
)

// Weights holds every scoring constant so thresholds stay tunable.
type Weights struct {
	MinScore            int
	MaxResults          int
	Substring           int
	SignificantBonus    int
	SignificantFraction float64
	ExactWord           int
	WordPrefix          int
	KeywordPrefix       int
	Fuzzy               int
	FuzzyThreshold      int
	ArticleTitle        int
}

// WeightsFromConfig copies the tunable scoring constants out of the
// loaded configuration.
func WeightsFromConfig(cfg config.SearchConfig) Weights {
	return Weights{
		MinScore:            cfg.MinScore,
		MaxResults:          cfg.MaxResults,
		Substring:           cfg.SubstringScore,
		SignificantBonus:    cfg.SignificantBonus,
		SignificantFraction: cfg.SignificantFraction,
		ExactWord:           cfg.ExactWordScore,
		WordPrefix:          cfg.WordPrefixScore,
		KeywordPrefix:       cfg.KeywordPrefixScore,
		Fuzzy:               cfg.FuzzyScore,
		FuzzyThreshold:      cfg.FuzzyThreshold,
		ArticleTitle:        cfg.ArticleTitleScore,
	}
}

// FailedMatchChecker reports documents previously flagged as wrong
// answers for a question.
type FailedMatchChecker interface {
	FailedDocumentIDs(ctx context.Context, questionHash string) (map[int64]bool, error)
}

// Result is the outcome of one search pass.
type Result struct {
	Success      bool                  `json:"success"`
	Matches      []models.SearchResult `json:"matches"`
	Keywords     []string              `json:"keywords"`
	Reason       string                `json:"reason,omitempty"`
	TotalIndexed int                   `json:"total_indexed"`
}

// Engine matches questions against the title index.
type Engine struct {
	cache   *index.Cache
	failed  FailedMatchChecker
	weights Weights
}

// NewEngine builds a search engine over the given index. failed may
// be nil when no feedback store is wired.
func NewEngine(cache *index.Cache, failed FailedMatchChecker, weights Weights) *Engine {
	return &Engine{cache: cache, failed: failed, weights: weights}
}

// Search scores the question against every indexed title. kws may be
// nil, in which case keywords are extracted here; an empty extraction
// falls back to naive tokenization so short questions still match.
func (e *Engine) Search(ctx context.Context, question string, kws []string) (*Result, error) {
	if kws == nil {
		kws = keywords.Extract(question)
	}
	if len(kws) == 0 {
		kws = naiveKeywords(question)
	}

	entries, err := e.cache.Entries(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return &Result{Keywords: kws, Reason: ReasonNoDocuments}, nil
	}

	excluded := e.excludedDocuments(ctx, question)

	var matches []models.SearchResult
	for _, entry := range entries {
		score := e.scoreEntry(entry, kws)
		if score < e.weights.MinScore {
			continue
		}
		if excluded[entry.DocumentID] {
			continue
		}
		matches = append(matches, models.SearchResult{
			DocumentID:    entry.DocumentID,
			DocumentTitle: entry.DocumentTitle,
			Title:         entry.PDFTitle,
			Link:          entry.DocumentLink,
			PDFURL:        entry.PDFURL,
			Score:         score,
		})
	}

	if len(matches) == 0 {
		return &Result{Keywords: kws, Reason: ReasonNoMatches, TotalIndexed: len(entries)}, nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > e.weights.MaxResults {
		matches = matches[:e.weights.MaxResults]
	}

	return &Result{
		Success:      true,
		Matches:      matches,
		Keywords:     kws,
		TotalIndexed: len(entries),
	}, nil
}

// scoreEntry accumulates one entry's score over all keywords. Each
// keyword contributes through exactly one rule: full-substring first,
// then the first qualifying title word. The parent article title adds
// a smaller bonus per keyword and stacks.
func (e *Engine) scoreEntry(entry index.Entry, kws []string) int {
	score := 0

	for _, kw := range kws {
		kwLen := utf8.RuneCountInString(kw)
		if kwLen < 2 {
			continue
		}

		if strings.Contains(entry.TitleNorm, kw) {
			score += e.weights.Substring
			titleLen := utf8.RuneCountInString(entry.TitleNorm)
			if kwLen > 3 && titleLen > 0 && float64(kwLen)/float64(titleLen) > e.weights.SignificantFraction {
				score += e.weights.SignificantBonus
			}
			continue
		}

		for _, word := range splitTitleWords(entry.TitleNorm) {
			wordLen := utf8.RuneCountInString(word)
			if wordLen < 2 {
				continue
			}
			if word == kw {
				score += e.weights.ExactWord
				break
			}
			if strings.HasPrefix(kw, word) {
				score += e.weights.WordPrefix
				break
			}
			if strings.HasPrefix(word, kw) {
				score += e.weights.KeywordPrefix
				break
			}
			if wordLen >= 3 && kwLen >= 3 && arabic.Similarity(kw, word) >= e.weights.FuzzyThreshold {
				score += e.weights.Fuzzy
				break
			}
		}
	}

	for _, kw := range kws {
		if utf8.RuneCountInString(kw) < 2 {
			continue
		}
		if strings.Contains(entry.DocumentTitNorm, kw) {
			score += e.weights.ArticleTitle
		}
	}

	return score
}

// excludedDocuments is fail-open: a broken feedback store must not
// take search down.
func (e *Engine) excludedDocuments(ctx context.Context, question string) map[int64]bool {
	if e.failed == nil {
		return nil
	}
	excluded, err := e.failed.FailedDocumentIDs(ctx, arabic.QuestionHash(question))
	if err != nil {
		logger.Warn("Failed-match lookup unavailable", zap.Error(err))
		return nil
	}
	return excluded
}

func isTitleSeparator(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '-', '_', '.', ',', '،', '؛', ':', '(', ')':
		return true
	}
	return false
}

func splitTitleWords(title string) []string {
	return strings.FieldsFunc(title, isTitleSeparator)
}

// naiveKeywords tokenizes the normalized question keeping every token
// of at least two runes, for questions where extraction found nothing.
func naiveKeywords(question string) []string {
	separator := func(r rune) bool {
		return isTitleSeparator(r) || r == '؟' || r == '?' || r == '!'
	}

	var kws []string
	seen := make(map[string]struct{})
	for _, word := range strings.FieldsFunc(arabic.Normalize(question), separator) {
		if utf8.RuneCountInString(word) < 2 {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		kws = append(kws, word)
	}
	return kws
}
