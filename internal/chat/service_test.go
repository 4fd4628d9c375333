package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lawbot/backend/internal/learning"
	"github.com/lawbot/backend/internal/llm"
	"github.com/lawbot/backend/internal/quota"
	"github.com/lawbot/backend/internal/search"
	"github.com/lawbot/backend/internal/storage/models"
)

type fakeChatStore struct {
	chatLogs      []models.ChatLog
	missingTopics []string
	messages      []models.ConversationMessage
}

func (s *fakeChatStore) InsertChatLog(ctx context.Context, log models.ChatLog) error {
	s.chatLogs = append(s.chatLogs, log)
	return nil
}

func (s *fakeChatStore) UpsertMissingTopic(ctx context.Context, question string, kws []string, ip string) error {
	s.missingTopics = append(s.missingTopics, question)
	return nil
}

func (s *fakeChatStore) SaveConversationMessage(ctx context.Context, msg models.ConversationMessage) error {
	s.messages = append(s.messages, msg)
	return nil
}

type fakeLearner struct {
	result    *search.Result
	searchErr error
	context   learning.Context
	successes int
}

func (l *fakeLearner) EnhanceSearch(ctx context.Context, question string, kws []string) (*search.Result, error) {
	if l.searchErr != nil {
		return nil, l.searchErr
	}
	return l.result, nil
}

func (l *fakeLearner) ConversationContext(ctx context.Context, sessionID string) learning.Context {
	return l.context
}

func (l *fakeLearner) RecordSuccess(ctx context.Context, kws []string, matches []models.SearchResult) error {
	l.successes++
	return nil
}

type fakeLimiter struct {
	decision   quota.Decision
	increments int
}

func (l *fakeLimiter) Check(ctx context.Context, userIdentifier string) quota.Decision {
	return l.decision
}

func (l *fakeLimiter) Increment(ctx context.Context, userIdentifier string) {
	l.increments++
}

type fakeGenerator struct {
	answer *llm.Answer
	err    error
	calls  int
}

func (g *fakeGenerator) Ask(ctx context.Context, question string, matches []models.SearchResult, history []models.ConversationMessage) (*llm.Answer, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.answer, nil
}

type fakeCache struct {
	answers map[string]CachedAnswer
	sets    int
}

func (c *fakeCache) GetAnswer(ctx context.Context, questionHash string) (*CachedAnswer, error) {
	if a, ok := c.answers[questionHash]; ok {
		return &a, nil
	}
	return nil, nil
}

func (c *fakeCache) SetAnswer(ctx context.Context, questionHash string, answer CachedAnswer) error {
	if c.answers == nil {
		c.answers = make(map[string]CachedAnswer)
	}
	c.answers[questionHash] = answer
	c.sets++
	return nil
}

func matchedResult() *search.Result {
	return &search.Result{
		Success:  true,
		Keywords: []string{"عقوبه", "سرقه"},
		Matches: []models.SearchResult{
			{DocumentID: 1, Title: "عقوبات السرقة", Link: "https://example.com/theft", Score: 70},
		},
	}
}

func newAskService(store *fakeChatStore, learner *fakeLearner, limiter *fakeLimiter, gen *fakeGenerator, cache AnswerCache) *Service {
	return NewService(store, learner, limiter, gen, cache)
}

func TestAskAnsweredQuestion(t *testing.T) {
	store := &fakeChatStore{}
	learner := &fakeLearner{result: matchedResult()}
	limiter := &fakeLimiter{decision: quota.Decision{Allowed: true, Remaining: 5, Limit: 5}}
	gen := &fakeGenerator{answer: &llm.Answer{Text: "إجابة تفصيلية", TokensUsed: 300, Model: "gpt-4o"}}
	service := newAskService(store, learner, limiter, gen, nil)

	resp, err := service.Ask(context.Background(), AskRequest{
		Question:  "ما هي عقوبة السرقة؟",
		SessionID: "sess_1",
		IP:        "203.0.113.9",
	})
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}

	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if !strings.HasPrefix(resp.Message, "⚖️ إجابة تفصيلية") {
		t.Errorf("answer not formatted: %q", resp.Message)
	}
	if !strings.Contains(resp.Message, "للمزيد من التفاصيل") {
		t.Error("links block missing from answer")
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Link != "https://example.com/theft" {
		t.Errorf("unexpected sources: %+v", resp.Sources)
	}
	if resp.Remaining != 4 {
		t.Errorf("remaining = %d, want 4", resp.Remaining)
	}

	if len(store.chatLogs) != 1 || !store.chatLogs[0].DocumentsFound {
		t.Errorf("chat not logged as answered: %+v", store.chatLogs)
	}
	if store.chatLogs[0].TokensUsed != 300 {
		t.Errorf("token usage not logged: %+v", store.chatLogs[0])
	}
	if len(store.messages) != 2 {
		t.Errorf("expected question and answer in memory, got %d messages", len(store.messages))
	}
	if learner.successes != 1 {
		t.Errorf("success not recorded, got %d", learner.successes)
	}
	if limiter.increments != 1 {
		t.Errorf("quota not incremented, got %d", limiter.increments)
	}
}

func TestAskNoInformation(t *testing.T) {
	store := &fakeChatStore{}
	learner := &fakeLearner{result: &search.Result{Reason: search.ReasonNoMatches, Keywords: []string{"غامض"}}}
	limiter := &fakeLimiter{decision: quota.Decision{Allowed: true, Remaining: 2, Limit: 5}}
	gen := &fakeGenerator{}
	service := newAskService(store, learner, limiter, gen, nil)

	resp, err := service.Ask(context.Background(), AskRequest{Question: "سؤال خارج النطاق", SessionID: "s"})
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}

	if !resp.Success || resp.Message != MsgNoInformation {
		t.Errorf("expected graceful no-info answer, got %+v", resp)
	}
	if len(resp.Sources) != 0 {
		t.Errorf("no-info answer should carry no sources: %+v", resp.Sources)
	}
	if len(store.missingTopics) != 1 {
		t.Errorf("missing topic not recorded: %v", store.missingTopics)
	}
	if len(store.chatLogs) != 1 || store.chatLogs[0].DocumentsFound {
		t.Errorf("unanswered question should be logged without documents: %+v", store.chatLogs)
	}
	if gen.calls != 0 {
		t.Error("answer generator should not run without content")
	}
	if limiter.increments != 1 {
		t.Errorf("unanswered questions still count against the quota, got %d increments", limiter.increments)
	}
}

func TestAskLimitReached(t *testing.T) {
	learner := &fakeLearner{result: matchedResult()}
	limiter := &fakeLimiter{decision: quota.Decision{Allowed: false, Limit: 5}}
	service := newAskService(&fakeChatStore{}, learner, limiter, &fakeGenerator{}, nil)

	resp, err := service.Ask(context.Background(), AskRequest{Question: "ما هي عقوبة السرقة؟"})
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if !resp.LimitReached || resp.Success {
		t.Errorf("expected limit response, got %+v", resp)
	}
	if resp.Message != MsgLimitReached {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if limiter.increments != 0 {
		t.Error("denied questions must not be counted")
	}
}

func TestAskQuestionTooShort(t *testing.T) {
	service := newAskService(&fakeChatStore{}, &fakeLearner{}, &fakeLimiter{}, &fakeGenerator{}, nil)

	if _, err := service.Ask(context.Background(), AskRequest{Question: "ما"}); !errors.Is(err, ErrQuestionTooShort) {
		t.Errorf("expected ErrQuestionTooShort, got %v", err)
	}
}

func TestAskGeneratesSessionID(t *testing.T) {
	learner := &fakeLearner{result: matchedResult()}
	limiter := &fakeLimiter{decision: quota.Decision{Allowed: true, Remaining: 5, Limit: 5}}
	gen := &fakeGenerator{answer: &llm.Answer{Text: "إجابة"}}
	service := newAskService(&fakeChatStore{}, learner, limiter, gen, nil)

	resp, err := service.Ask(context.Background(), AskRequest{Question: "ما هي عقوبة السرقة؟"})
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if !strings.HasPrefix(resp.SessionID, "sess_") || len(resp.SessionID) < 10 {
		t.Errorf("expected generated session id, got %q", resp.SessionID)
	}
}

func TestAskUsesAnswerCache(t *testing.T) {
	learner := &fakeLearner{result: matchedResult()}
	limiter := &fakeLimiter{decision: quota.Decision{Allowed: true, Remaining: 5, Limit: 5}}
	gen := &fakeGenerator{answer: &llm.Answer{Text: "إجابة"}}
	cache := &fakeCache{}
	service := newAskService(&fakeChatStore{}, learner, limiter, gen, cache)

	req := AskRequest{Question: "ما هي عقوبة السرقة؟", SessionID: "s"}
	first, err := service.Ask(context.Background(), req)
	if err != nil {
		t.Fatalf("first ask failed: %v", err)
	}
	if first.FromCache {
		t.Error("first answer should not come from cache")
	}
	if cache.sets != 1 {
		t.Errorf("answer not cached, sets = %d", cache.sets)
	}

	second, err := service.Ask(context.Background(), req)
	if err != nil {
		t.Fatalf("second ask failed: %v", err)
	}
	if !second.FromCache {
		t.Error("second answer should come from cache")
	}
	if second.Message != first.Message {
		t.Error("cached answer differs from original")
	}
	if gen.calls != 1 {
		t.Errorf("generator should run once, ran %d times", gen.calls)
	}
}

func TestAskGeneratorFailure(t *testing.T) {
	learner := &fakeLearner{result: matchedResult()}
	limiter := &fakeLimiter{decision: quota.Decision{Allowed: true, Remaining: 5, Limit: 5}}
	gen := &fakeGenerator{err: errors.New("upstream down")}
	service := newAskService(&fakeChatStore{}, learner, limiter, gen, nil)

	if _, err := service.Ask(context.Background(), AskRequest{Question: "ما هي عقوبة السرقة؟"}); err == nil {
		t.Error("expected error when generation fails")
	}
}

func TestFormatAnswer(t *testing.T) {
	sources := []models.SearchResult{
		{Title: "عقوبات السرقة", Link: "https://example.com/theft"},
		{Title: "بدون رابط"},
	}

	formatted := FormatAnswer("نص الإجابة", sources)
	if !strings.HasPrefix(formatted, "⚖️ نص الإجابة") {
		t.Errorf("missing prefix: %q", formatted)
	}
	if !strings.Contains(formatted, `<a href="https://example.com/theft"`) {
		t.Error("link missing from block")
	}
	if strings.Contains(formatted, "بدون رابط") {
		t.Error("source without link should be omitted from the block")
	}

	// No linkable sources, no block.
	plain := FormatAnswer("نص", nil)
	if strings.Contains(plain, "للمزيد") {
		t.Errorf("unexpected links block: %q", plain)
	}
}

func TestFormatAnswerEscapesTitles(t *testing.T) {
	sources := []models.SearchResult{{Title: `عنوان <script>`, Link: "https://example.com/x"}}
	formatted := FormatAnswer("نص", sources)
	if strings.Contains(formatted, "<script>") {
		t.Error("title not escaped")
	}
	if !strings.Contains(formatted, "&lt;script&gt;") {
		t.Error("escaped title missing")
	}
}
