// Package chat orchestrates one question end to end: quota, context,
// search, answer generation, persistence and learning.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lawbot/backend/internal/arabic"
	"github.com/lawbot/backend/internal/keywords"
	"github.com/lawbot/backend/internal/learning"
	"github.com/lawbot/backend/internal/llm"
	"github.com/lawbot/backend/internal/metrics"
	"github.com/lawbot/backend/internal/quota"
	"github.com/lawbot/backend/internal/search"
	"github.com/lawbot/backend/internal/storage/models"
	"github.com/lawbot/backend/pkg/logger"
)

// minQuestionRunes rejects questions too short to mean anything.
const minQuestionRunes = 3

// ErrQuestionTooShort marks invalid input; handlers map it to a 400.
var ErrQuestionTooShort = errors.New("question too short")

// Store is the persistence surface the orchestrator writes to.
type Store interface {
	InsertChatLog(ctx context.Context, log models.ChatLog) error
	UpsertMissingTopic(ctx context.Context, question string, kws []string, ip string) error
	SaveConversationMessage(ctx context.Context, msg models.ConversationMessage) error
}

// Learner is the learning engine surface used per question.
type Learner interface {
	EnhanceSearch(ctx context.Context, question string, kws []string) (*search.Result, error)
	ConversationContext(ctx context.Context, sessionID string) learning.Context
	RecordSuccess(ctx context.Context, kws []string, matches []models.SearchResult) error
}

// Limiter guards the daily allowance.
type Limiter interface {
	Check(ctx context.Context, userIdentifier string) quota.Decision
	Increment(ctx context.Context, userIdentifier string)
}

// AnswerGenerator produces the conversational answer.
type AnswerGenerator interface {
	Ask(ctx context.Context, question string, matches []models.SearchResult, history []models.ConversationMessage) (*llm.Answer, error)
}

// AnswerCache stores formatted answers keyed by question digest. May
// be nil when caching is disabled.
type AnswerCache interface {
	GetAnswer(ctx context.Context, questionHash string) (*CachedAnswer, error)
	SetAnswer(ctx context.Context, questionHash string, answer CachedAnswer) error
}

// CachedAnswer is what the answer cache holds per question.
type CachedAnswer struct {
	Message string   `json:"message"`
	Sources []Source `json:"sources"`
}

// AskRequest is one widget question.
type AskRequest struct {
	Question  string
	SessionID string
	UserID    string
	IP        string
}

// Source is one linked article in the response.
type Source struct {
	DocumentID int64  `json:"document_id"`
	Title      string `json:"title"`
	Link       string `json:"link"`
}

// AskResponse is the widget-facing result.
type AskResponse struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	Sources      []Source `json:"sources"`
	SessionID    string   `json:"session_id"`
	Remaining    int      `json:"remaining"`
	Unlimited    bool     `json:"unlimited,omitempty"`
	LimitReached bool     `json:"limit_reached,omitempty"`
	FromCache    bool     `json:"from_cache,omitempty"`
}

// Service runs the full ask pipeline.
type Service struct {
	store   Store
	learner Learner
	limiter Limiter
	llm     AnswerGenerator
	cache   AnswerCache
}

// NewService wires the orchestrator. cache may be nil.
func NewService(store Store, learner Learner, limiter Limiter, generator AnswerGenerator, cache AnswerCache) *Service {
	return &Service{store: store, learner: learner, limiter: limiter, llm: generator, cache: cache}
}

// Ask processes one question. Business outcomes (limit reached, no
// information) come back as a response; only hard failures return an
// error.
func (s *Service) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	started := time.Now()
	defer func() {
		metrics.QuestionDuration.Observe(time.Since(started).Seconds())
	}()

	if utf8.RuneCountInString(req.Question) < minQuestionRunes {
		return nil, ErrQuestionTooShort
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "sess_" + uuid.NewString()
	}
	identifier := quota.Identifier(req.UserID, req.IP)

	decision := s.limiter.Check(ctx, identifier)
	if !decision.Allowed {
		metrics.QuestionsTotal.WithLabelValues(metrics.OutcomeLimited).Inc()
		return &AskResponse{
			Message:      MsgLimitReached,
			SessionID:    sessionID,
			LimitReached: true,
		}, nil
	}

	kws := keywords.Extract(req.Question)
	convo := s.learner.ConversationContext(ctx, sessionID)
	kws = learning.EnrichKeywords(kws, convo)

	result, err := s.learner.EnhanceSearch(ctx, req.Question, kws)
	if err != nil {
		metrics.QuestionsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("search failed: %w", err)
	}

	if !result.Success {
		return s.handleNoInformation(ctx, req, sessionID, identifier, decision, result.Keywords), nil
	}

	metrics.SearchMatches.Observe(float64(len(result.Matches)))

	sources := sourcesFrom(result.Matches)
	questionHash := arabic.QuestionHash(req.Question)

	if cached := s.cachedAnswer(ctx, questionHash); cached != nil {
		s.finishAnswered(ctx, req, sessionID, identifier, result, cached.Message, nil)
		return &AskResponse{
			Success:   true,
			Message:   cached.Message,
			Sources:   cached.Sources,
			SessionID: sessionID,
			Remaining: remainingAfter(decision),
			Unlimited: decision.Unlimited,
			FromCache: true,
		}, nil
	}

	answer, err := s.llm.Ask(ctx, req.Question, result.Matches, convo.Messages)
	if err != nil {
		metrics.QuestionsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}

	formatted := FormatAnswer(answer.Text, result.Matches)
	metrics.LLMTokensTotal.Add(float64(answer.TokensUsed))

	if s.cache != nil {
		if err := s.cache.SetAnswer(ctx, questionHash, CachedAnswer{Message: formatted, Sources: sources}); err != nil {
			logger.Warn("Answer cache write failed", zap.Error(err))
		}
	}

	s.finishAnswered(ctx, req, sessionID, identifier, result, formatted, answer)

	return &AskResponse{
		Success:   true,
		Message:   formatted,
		Sources:   sources,
		SessionID: sessionID,
		Remaining: remainingAfter(decision),
		Unlimited: decision.Unlimited,
	}, nil
}

// handleNoInformation records the gap and answers honestly.
func (s *Service) handleNoInformation(ctx context.Context, req AskRequest, sessionID, identifier string, decision quota.Decision, kws []string) *AskResponse {
	metrics.QuestionsTotal.WithLabelValues(metrics.OutcomeMissing).Inc()

	if err := s.store.UpsertMissingTopic(ctx, req.Question, kws, req.IP); err != nil {
		logger.Warn("Failed to record missing topic", zap.Error(err))
	}
	if err := s.store.InsertChatLog(ctx, models.ChatLog{
		SessionID:      sessionID,
		UserIdentifier: identifier,
		Question:       req.Question,
		Keywords:       kws,
		IPAddress:      req.IP,
	}); err != nil {
		logger.Warn("Failed to log unanswered question", zap.Error(err))
	}
	s.limiter.Increment(ctx, identifier)

	return &AskResponse{
		Success:   true,
		Message:   MsgNoInformation,
		SessionID: sessionID,
		Remaining: remainingAfter(decision),
		Unlimited: decision.Unlimited,
	}
}

// finishAnswered persists everything a successful answer produces.
// Each step is independent; one failing must not lose the others.
func (s *Service) finishAnswered(ctx context.Context, req AskRequest, sessionID, identifier string, result *search.Result, formatted string, answer *llm.Answer) {
	metrics.QuestionsTotal.WithLabelValues(metrics.OutcomeMatched).Inc()

	log := models.ChatLog{
		SessionID:      sessionID,
		UserIdentifier: identifier,
		Question:       req.Question,
		Keywords:       result.Keywords,
		MatchedTitles:  matchedTitles(result.Matches),
		DocumentsFound: true,
		Answer:         formatted,
		IPAddress:      req.IP,
	}
	if answer != nil {
		log.TokensUsed = answer.TokensUsed
		log.Model = answer.Model
	}
	if err := s.store.InsertChatLog(ctx, log); err != nil {
		logger.Warn("Failed to log chat", zap.Error(err))
	}

	for _, msg := range []models.ConversationMessage{
		{SessionID: sessionID, UserIdentifier: identifier, Role: models.RoleUser, Content: req.Question},
		{SessionID: sessionID, UserIdentifier: identifier, Role: models.RoleAssistant, Content: formatted},
	} {
		if err := s.store.SaveConversationMessage(ctx, msg); err != nil {
			logger.Warn("Failed to save conversation message", zap.Error(err))
		}
	}

	if len(result.Keywords) > 0 {
		if err := s.learner.RecordSuccess(ctx, result.Keywords, result.Matches); err != nil {
			logger.Warn("Failed to record successful match", zap.Error(err))
		}
	}

	s.limiter.Increment(ctx, identifier)
}

func (s *Service) cachedAnswer(ctx context.Context, questionHash string) *CachedAnswer {
	if s.cache == nil {
		return nil
	}
	cached, err := s.cache.GetAnswer(ctx, questionHash)
	if err != nil {
		logger.Warn("Answer cache read failed", zap.Error(err))
		metrics.AnswerCacheTotal.WithLabelValues("miss").Inc()
		return nil
	}
	if cached == nil {
		metrics.AnswerCacheTotal.WithLabelValues("miss").Inc()
		return nil
	}
	metrics.AnswerCacheTotal.WithLabelValues("hit").Inc()
	return cached
}

func sourcesFrom(matches []models.SearchResult) []Source {
	sources := make([]Source, 0, len(matches))
	for _, m := range matches {
		sources = append(sources, Source{DocumentID: m.DocumentID, Title: m.Title, Link: m.Link})
	}
	return sources
}

func matchedTitles(matches []models.SearchResult) []string {
	titles := make([]string, 0, len(matches))
	for _, m := range matches {
		titles = append(titles, m.Title)
	}
	return titles
}

// remainingAfter reports the allowance left once this question is
// counted.
func remainingAfter(decision quota.Decision) int {
	if decision.Unlimited {
		return decision.Limit
	}
	remaining := decision.Remaining - 1
	if remaining < 0 {
		return 0
	}
	return remaining
}
