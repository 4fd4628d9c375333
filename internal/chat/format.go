package chat

import (
	"fmt"
	"html"
	"strings"

	"github.com/lawbot/backend/internal/storage/models"
)

// Visitor-facing messages. The widget renders these verbatim.
const (
	MsgQuestionTooShort = "السؤال قصير جداً"
	MsgLimitReached     = "لقد وصلت إلى الحد اليومي المسموح به من الأسئلة.\n\nللحصول على عدد غير محدود من الاستفسارات، يرجى التواصل مع مكتب المحاماة."
	MsgNoInformation    = "لا توجد معلومات عن هذا الموضوع حالياً في موقعنا، وسيتم إضافتها قريباً."
	MsgAnswerFailed     = "لم نتمكن من الحصول على إجابة"
)

// FormatAnswer prefixes the generated text and appends the source
// links block the widget expects. Sources without both a title and a
// link are left out of the block.
func FormatAnswer(text string, sources []models.SearchResult) string {
	var b strings.Builder
	b.WriteString("⚖️ ")
	b.WriteString(text)

	var links []models.SearchResult
	for _, s := range sources {
		if s.Title != "" && s.Link != "" {
			links = append(links, s)
		}
	}
	if len(links) == 0 {
		return b.String()
	}

	b.WriteString("\n\n📘 <strong>للمزيد من التفاصيل:</strong>\n")
	for _, s := range links {
		fmt.Fprintf(&b,
			"• <a href=%q target=\"_blank\" style=\"color:#3b82f6;text-decoration:underline;\">%s</a>\n",
			s.Link, html.EscapeString(s.Title),
		)
	}
	return b.String()
}
