package llm

import (
	"strings"
	"testing"

	"github.com/lawbot/backend/internal/storage/models"
	"github.com/lawbot/backend/pkg/config"
)

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(config.LLMConfig{}); err != ErrNoAPIKey {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
	if _, err := NewClient(config.LLMConfig{APIKey: "sk-test", Model: "gpt-4o", TimeoutSec: 90}); err != nil {
		t.Errorf("expected client, got error %v", err)
	}
}

func TestBuildUserPromptWithMatches(t *testing.T) {
	matches := []models.SearchResult{
		{Title: "عقوبات السرقة", Link: "https://example.com/theft"},
		{Title: "أحكام الطلاق"},
	}

	prompt := buildUserPrompt("ما هي عقوبة السرقة؟", matches)

	for _, want := range []string{
		"سؤال المستخدم: ما هي عقوبة السرقة؟",
		"【1】 عقوبات السرقة",
		"【2】 أحكام الطلاق",
		"الرابط: https://example.com/theft",
		"التعليمات",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Count(prompt, "الرابط:") != 1 {
		t.Error("matches without links should not emit a link line")
	}
}

func TestBuildUserPromptWithoutMatches(t *testing.T) {
	prompt := buildUserPrompt("سؤال بلا محتوى", nil)

	if !strings.Contains(prompt, "لا يوجد محتوى متاح") {
		t.Error("no-content prompt should tell the model nothing is available")
	}
	if strings.Contains(prompt, "【1】") {
		t.Error("no-content prompt should not list items")
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("عقد", 10); got != "عقد" {
		t.Errorf("short string changed: %q", got)
	}
	long := strings.Repeat("ع", 900)
	if got := truncateRunes(long, 800); len([]rune(got)) != 800 {
		t.Errorf("expected 800 runes, got %d", len([]rune(got)))
	}
}
