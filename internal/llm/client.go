// Package llm generates the conversational Arabic answer from the
// matched legal content.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/lawbot/backend/internal/storage/models"
	"github.com/lawbot/backend/pkg/circuitbreaker"
	"github.com/lawbot/backend/pkg/config"
	"github.com/lawbot/backend/pkg/logger"
	"github.com/lawbot/backend/pkg/retry"
)

// historyWindow is how many past turns accompany the question.
const historyWindow = 6

// contentPreviewRunes caps how much of each matched item feeds the
// prompt.
const contentPreviewRunes = 800

// ErrNoAPIKey is returned when the completion backend is not
// configured.
var ErrNoAPIKey = errors.New("llm api key not configured")

// systemPrompt fixes the assistant persona. The answer language and
// structure rules live here, not in code.
const systemPrompt = `أنت مساعد قانوني محادث ذكي متخصص حصرياً في القانون الكويتي.
اسمك "المساعد القانوني" وتعمل لصالح مكتب محاماة.

🎯 هويتك:
• محامٍ كويتي خبير ودود
• تشرح القانون ببساطة للجميع
• ذكي، محادث، إنساني

💬 أسلوب الرد:
• اللغة العربية فقط
• ابدأ بتحية قصيرة
• اشرح الموضوع بتفصيل (200-300 كلمة)
• اذكر الروابط في النهاية فقط

⚠️ قواعد صارمة:
• لا تخترع معلومات غير موجودة
• لا تذكر روابط خارجية أبداً
• إذا لم تجد معلومات، قل ذلك بوضوح
• إذا كان السؤال غامضاً، اطلب توضيحاً

📋 هيكل الإجابة:
1. تحية قصيرة
2. شرح تفصيلي للموضوع
3. نقاط مهمة إن وجدت
4. سؤال توضيحي إذا لزم
5. الروابط في النهاية فقط`

// Answer is one generated completion.
type Answer struct {
	Text       string
	TokensUsed int
	Model      string
}

// Client wraps the completion API with a circuit breaker and retries.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	breaker     *circuitbreaker.CircuitBreaker
	retryCfg    retry.Config
}

// NewClient builds the completion client from configuration.
func NewClient(cfg config.LLMConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	breaker := circuitbreaker.New("llm", circuitbreaker.Config{
		MaxRequests:      3,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryCfg := retry.DefaultConfig()
	retryCfg.Logger = logger.GetLogger()

	return &Client{
		api:         openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     time.Duration(cfg.TimeoutSec) * time.Second,
		breaker:     breaker,
		retryCfg:    retryCfg,
	}, nil
}

// Ask generates the answer for a question given the matched content
// and the recent session history.
func (c *Client) Ask(ctx context.Context, question string, matches []models.SearchResult, history []models.ConversationMessage) (*Answer, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
	}

	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, msg := range history {
		role := openai.ChatMessageRoleUser
		if msg.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: buildUserPrompt(question, matches),
	})

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var resp openai.ChatCompletionResponse
	err := c.breaker.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryCfg, func() error {
			var apiErr error
			resp, apiErr = c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:       c.model,
				Messages:    messages,
				MaxTokens:   c.maxTokens,
				Temperature: c.temperature,
			})
			return apiErr
		})
	})
	if err != nil {
		logger.Error("Completion request failed",
			zap.String("model", c.model),
			zap.Error(err),
		)
		return nil, fmt.Errorf("completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("completion returned no choices")
	}

	return &Answer{
		Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
		TokensUsed: resp.Usage.TotalTokens,
		Model:      c.model,
	}, nil
}

// buildUserPrompt lays out the matched content for the model, or
// instructs it to answer honestly that nothing is available.
func buildUserPrompt(question string, matches []models.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "سؤال المستخدم: %s\n\n", question)

	if len(matches) == 0 {
		b.WriteString("⚠️ لا يوجد محتوى متاح عن هذا الموضوع.\n")
		b.WriteString("قل للمستخدم: لا توجد معلومات عن هذا الموضوع حالياً في موقعنا، وسيتم إضافتها قريباً.\n")
		return b.String()
	}

	b.WriteString("📚 المحتوى القانوني المتاح:\n")
	b.WriteString("═══════════════════════════\n\n")

	for i, match := range matches {
		fmt.Fprintf(&b, "【%d】 %s\n", i+1, match.Title)
		if preview := truncateRunes(match.Title, contentPreviewRunes); preview != "" {
			fmt.Fprintf(&b, "المحتوى: %s\n", preview)
		}
		if match.Link != "" {
			fmt.Fprintf(&b, "الرابط: %s\n", match.Link)
		}
		b.WriteString("---\n")
	}

	b.WriteString("\n📝 التعليمات:\n")
	b.WriteString("1. اشرح الموضوع بالتفصيل بناءً على المحتوى أعلاه\n")
	b.WriteString("2. كن محادثاً وودوداً\n")
	b.WriteString("3. الشرح أولاً، الروابط في النهاية فقط\n")

	return b.String()
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
