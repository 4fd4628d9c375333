// Package learning reinforces confirmed keyword-to-document matches
// and feeds them back into search. This is pattern memory, not model
// training: repeated successes boost ranking, reported failures
// exclude documents, and session history supplies context topics.
package learning

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/lawbot/backend/internal/arabic"
	"github.com/lawbot/backend/internal/content"
	"github.com/lawbot/backend/internal/keywords"
	"github.com/lawbot/backend/internal/search"
	"github.com/lawbot/backend/internal/storage/models"
	"github.com/lawbot/backend/pkg/config"
	"github.com/lawbot/backend/pkg/logger"
)

// historyWindow is how many recent turns feed context extraction.
const historyWindow = 6

// Store is the persistence surface the engine needs.
type Store interface {
	GetAssociations(ctx context.Context, kws []string) ([]models.KeywordAssociation, error)
	UpsertKeywordAssociation(ctx context.Context, keyword string, documentID int64, title string, score float64) error
	InsertFailedMatch(ctx context.Context, questionHash string, documentID int64) error
	GetConversationHistory(ctx context.Context, sessionID string, limit int) ([]models.ConversationMessage, error)
	GetLearningStats(ctx context.Context, minBoostCount, topLimit int) (*models.LearningStats, error)
}

// Searcher runs the underlying title search.
type Searcher interface {
	Search(ctx context.Context, question string, kws []string) (*search.Result, error)
}

// Engine applies learned associations around the search pass.
type Engine struct {
	searcher Searcher
	store    Store
	docs     content.Store
	cfg      config.LearningConfig
}

// NewEngine wires the learning layer over search and storage.
func NewEngine(searcher Searcher, store Store, docs content.Store, cfg config.LearningConfig) *Engine {
	return &Engine{searcher: searcher, store: store, docs: docs, cfg: cfg}
}

type docBoost struct {
	documentID int64
	title      string
	boost      int
}

// EnhanceSearch runs the normal search and folds in learned boosts.
// On a successful search, boosted documents gain score and are
// re-ranked. On a failed search with learned matches available, up to
// the configured limit of still-published documents are suggested
// directly from the association cache.
func (e *Engine) EnhanceSearch(ctx context.Context, question string, kws []string) (*search.Result, error) {
	if kws == nil {
		kws = keywords.Extract(question)
	}

	boosts := e.boosts(ctx, kws)

	result, err := e.searcher.Search(ctx, question, kws)
	if err != nil {
		return nil, err
	}

	if result.Success {
		applyBoosts(result.Matches, boosts)
		return result, nil
	}

	if len(boosts) == 0 {
		return result, nil
	}

	suggested := e.suggestFromCache(ctx, boosts)
	if len(suggested) == 0 {
		return result, nil
	}

	return &search.Result{
		Success:      true,
		Matches:      suggested,
		Keywords:     kws,
		TotalIndexed: result.TotalIndexed,
	}, nil
}

// boosts is fail-open: without the association table search still
// runs unboosted.
func (e *Engine) boosts(ctx context.Context, kws []string) []docBoost {
	assocs, err := e.store.GetAssociations(ctx, kws)
	if err != nil {
		logger.Warn("Learning associations unavailable", zap.Error(err))
		return nil
	}

	var boosts []docBoost
	seen := make(map[int64]bool)
	for _, a := range assocs {
		if a.MatchCount < e.cfg.MinBoostCount {
			continue
		}
		// Associations arrive strongest first; keep that one per
		// document.
		if seen[a.DocumentID] {
			continue
		}
		seen[a.DocumentID] = true

		boost := a.MatchCount * e.cfg.BoostPerMatch
		if boost > e.cfg.MaxBoost {
			boost = e.cfg.MaxBoost
		}
		boosts = append(boosts, docBoost{documentID: a.DocumentID, title: a.Title, boost: boost})
	}
	return boosts
}

func applyBoosts(matches []models.SearchResult, boosts []docBoost) {
	if len(boosts) == 0 {
		return
	}

	boostMap := make(map[int64]int, len(boosts))
	for _, b := range boosts {
		boostMap[b.documentID] = b.boost
	}

	for i := range matches {
		if boost, ok := boostMap[matches[i].DocumentID]; ok {
			matches[i].Score += boost
			matches[i].Learned = true
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
}

// suggestFromCache turns learned associations into direct suggestions
// when the title search came up empty. Only documents that are still
// published qualify.
func (e *Engine) suggestFromCache(ctx context.Context, boosts []docBoost) []models.SearchResult {
	var suggested []models.SearchResult
	for _, b := range boosts {
		if len(suggested) >= e.cfg.FallbackLimit {
			break
		}

		doc, err := e.docs.Get(ctx, b.documentID)
		if err != nil || doc.Status != models.DocumentStatusPublished {
			continue
		}

		suggested = append(suggested, models.SearchResult{
			DocumentID:    b.documentID,
			DocumentTitle: content.CleanTitle(doc.Title),
			Title:         b.title,
			Link:          doc.Link,
			Score:         e.cfg.FallbackBase + b.boost,
			Learned:       true,
		})
	}
	return suggested
}

// RecordSuccess reinforces every (keyword, document) pair from a
// confirmed helpful answer.
func (e *Engine) RecordSuccess(ctx context.Context, kws []string, matches []models.SearchResult) error {
	var lastErr error
	for _, match := range matches {
		for _, kw := range kws {
			err := e.store.UpsertKeywordAssociation(ctx, kw, match.DocumentID, match.Title, float64(match.Score))
			if err != nil {
				logger.Error("Failed to record keyword association",
					zap.String("keyword", kw),
					zap.Int64("document_id", match.DocumentID),
					zap.Error(err),
				)
				lastErr = err
			}
		}
	}
	return lastErr
}

// RecordFailure flags a document as a wrong answer for the question
// so future searches skip it.
func (e *Engine) RecordFailure(ctx context.Context, question string, documentID int64) error {
	return e.store.InsertFailedMatch(ctx, arabic.QuestionHash(question), documentID)
}

// Context is what the session history contributes to a new question.
type Context struct {
	Messages []models.ConversationMessage
	Topics   []string
}

// ConversationContext loads recent session turns and extracts the
// topics the user has been asking about.
func (e *Engine) ConversationContext(ctx context.Context, sessionID string) Context {
	history, err := e.store.GetConversationHistory(ctx, sessionID, historyWindow)
	if err != nil {
		logger.Warn("Conversation history unavailable",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return Context{}
	}

	var topics []string
	seen := make(map[string]struct{})
	for _, msg := range history {
		if msg.Role != models.RoleUser {
			continue
		}
		for _, kw := range keywords.Extract(msg.Content) {
			if _, ok := seen[kw]; ok {
				continue
			}
			seen[kw] = struct{}{}
			topics = append(topics, kw)
		}
	}

	return Context{Messages: history, Topics: topics}
}

// EnrichKeywords pads a thin keyword set with the most recent context
// topics, so follow-up questions like "and what about the penalty?"
// still land on the session's subject.
func EnrichKeywords(kws []string, context Context) []string {
	if len(kws) > 2 || len(context.Topics) == 0 {
		return kws
	}

	recent := context.Topics
	if len(recent) > 2 {
		recent = recent[len(recent)-2:]
	}

	seen := make(map[string]struct{}, len(kws))
	for _, kw := range kws {
		seen[kw] = struct{}{}
	}
	for _, topic := range recent {
		if _, ok := seen[topic]; ok {
			continue
		}
		seen[topic] = struct{}{}
		kws = append(kws, topic)
	}
	return kws
}

// Stats reports association counts for the admin dashboard.
func (e *Engine) Stats(ctx context.Context) (*models.LearningStats, error) {
	return e.store.GetLearningStats(ctx, e.cfg.MinBoostCount, 10)
}
