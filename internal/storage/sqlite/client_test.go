package sqlite

import (
	"context"
	"fmt"
	"testing"

	"github.com/lawbot/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestDocumentLifecycle(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	docs := []models.Document{
		{ID: 1, Title: "قانون العمل", Link: "https://example.com/labor", Status: models.DocumentStatusPublished},
		{ID: 2, Title: "مسودة داخلية", Link: "https://example.com/draft", Status: "draft"},
	}
	for _, d := range docs {
		if err := client.UpsertDocument(ctx, d); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	published, err := client.ListPublishedDocuments(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(published) != 1 || published[0].ID != 1 {
		t.Fatalf("expected only document 1 published, got %+v", published)
	}

	// Re-upsert changes the title in place.
	docs[0].Title = "قانون العمل الجديد"
	if err := client.UpsertDocument(ctx, docs[0]); err != nil {
		t.Fatalf("re-upsert failed: %v", err)
	}
	got, err := client.GetDocument(ctx, 1)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Title != "قانون العمل الجديد" {
		t.Errorf("title not updated, got %q", got.Title)
	}

	if err := client.DeleteDocument(ctx, 1); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	published, _ = client.ListPublishedDocuments(ctx)
	if len(published) != 0 {
		t.Errorf("expected no published documents after delete, got %d", len(published))
	}
}

func TestMissingTopicDeduplication(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	question := "ما هي شروط التحكيم التجاري؟"
	for i := 0; i < 3; i++ {
		if err := client.UpsertMissingTopic(ctx, question, []string{"تحكيم"}, "1.2.3.4"); err != nil {
			t.Fatalf("upsert missing topic failed: %v", err)
		}
	}

	topics, err := client.ListMissingTopics(ctx, false, 10)
	if err != nil {
		t.Fatalf("list missing topics failed: %v", err)
	}
	if len(topics) != 1 {
		t.Fatalf("expected one deduplicated topic, got %d", len(topics))
	}
	if topics[0].AskedCount != 3 {
		t.Errorf("expected asked_count 3, got %d", topics[0].AskedCount)
	}
	if len(topics[0].Keywords) != 1 || topics[0].Keywords[0] != "تحكيم" {
		t.Errorf("keywords not round-tripped: %v", topics[0].Keywords)
	}

	if err := client.MarkMissingTopicHandled(ctx, topics[0].ID, "أضيف مقال جديد"); err != nil {
		t.Fatalf("mark handled failed: %v", err)
	}
	pending, _ := client.ListMissingTopics(ctx, false, 10)
	if len(pending) != 0 {
		t.Errorf("expected no pending topics, got %d", len(pending))
	}
	handled, _ := client.ListMissingTopics(ctx, true, 10)
	if len(handled) != 1 || handled[0].AdminNotes != "أضيف مقال جديد" {
		t.Errorf("handled topic not listed correctly: %+v", handled)
	}
}

func TestConversationMemoryCap(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		msg := models.ConversationMessage{
			SessionID:      "session-1",
			UserIdentifier: "user-1",
			Role:           models.RoleUser,
			Content:        fmt.Sprintf("رسالة %d", i),
		}
		if err := client.SaveConversationMessage(ctx, msg); err != nil {
			t.Fatalf("save message %d failed: %v", i, err)
		}
	}

	history, err := client.GetConversationHistory(ctx, "session-1", 100)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != memoryLimit {
		t.Fatalf("expected session capped at %d messages, got %d", memoryLimit, len(history))
	}
	if history[len(history)-1].Content != "رسالة 24" {
		t.Errorf("newest message missing, last is %q", history[len(history)-1].Content)
	}
	if history[0].Content != "رسالة 5" {
		t.Errorf("oldest surviving message should be 5, got %q", history[0].Content)
	}
}

func TestConversationHistoryOrder(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	contents := []string{"أول", "ثاني", "ثالث", "رابع"}
	for _, content := range contents {
		err := client.SaveConversationMessage(ctx, models.ConversationMessage{
			SessionID: "s", UserIdentifier: "u", Role: models.RoleUser, Content: content,
		})
		if err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	history, err := client.GetConversationHistory(ctx, "s", 2)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 2 || history[0].Content != "ثالث" || history[1].Content != "رابع" {
		t.Errorf("expected last two in chronological order, got %+v", history)
	}
}

func TestKeywordAssociationReinforcement(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := client.UpsertKeywordAssociation(ctx, "طلاق", 7, "قانون الأحوال الشخصية", 85); err != nil {
			t.Fatalf("upsert association failed: %v", err)
		}
	}

	assocs, err := client.GetAssociations(ctx, []string{"طلاق", "ميراث"})
	if err != nil {
		t.Fatalf("get associations failed: %v", err)
	}
	if len(assocs) != 1 {
		t.Fatalf("expected one association, got %d", len(assocs))
	}
	if assocs[0].MatchCount != 4 {
		t.Errorf("expected match_count 4, got %d", assocs[0].MatchCount)
	}

	stats, err := client.GetLearningStats(ctx, 2, 5)
	if err != nil {
		t.Fatalf("learning stats failed: %v", err)
	}
	if stats.TotalAssociations != 1 || stats.ReinforcedKeywords != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestLearningStatsAggregates(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	// طلاق matched doc 7 three times and doc 8 once; ميراث matched
	// doc 7 twice.
	for i := 0; i < 3; i++ {
		if err := client.UpsertKeywordAssociation(ctx, "طلاق", 7, "قانون الأحوال الشخصية", 85); err != nil {
			t.Fatalf("upsert association failed: %v", err)
		}
	}
	if err := client.UpsertKeywordAssociation(ctx, "طلاق", 8, "إجراءات المحاكم", 60); err != nil {
		t.Fatalf("upsert association failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := client.UpsertKeywordAssociation(ctx, "ميراث", 7, "قانون الأحوال الشخصية", 70); err != nil {
			t.Fatalf("upsert association failed: %v", err)
		}
	}

	if err := client.InsertFailedMatch(ctx, "hash-a", 8); err != nil {
		t.Fatalf("insert failed match: %v", err)
	}
	if err := client.InsertFailedMatch(ctx, "hash-b", 9); err != nil {
		t.Fatalf("insert failed match: %v", err)
	}

	stats, err := client.GetLearningStats(ctx, 2, 10)
	if err != nil {
		t.Fatalf("learning stats failed: %v", err)
	}

	if stats.TotalAssociations != 3 {
		t.Errorf("TotalAssociations = %d, want 3", stats.TotalAssociations)
	}
	if stats.UniqueKeywords != 2 {
		t.Errorf("UniqueKeywords = %d, want 2", stats.UniqueKeywords)
	}
	if stats.TotalMatches != 6 {
		t.Errorf("TotalMatches = %d, want 6", stats.TotalMatches)
	}
	if stats.ReinforcedKeywords != 2 {
		t.Errorf("ReinforcedKeywords = %d, want 2", stats.ReinforcedKeywords)
	}
	if stats.FailedMatches != 2 {
		t.Errorf("FailedMatches = %d, want 2", stats.FailedMatches)
	}

	if len(stats.TopKeywords) != 2 ||
		stats.TopKeywords[0].Keyword != "طلاق" || stats.TopKeywords[0].TotalMatches != 4 ||
		stats.TopKeywords[1].Keyword != "ميراث" || stats.TopKeywords[1].TotalMatches != 2 {
		t.Errorf("unexpected top keywords: %+v", stats.TopKeywords)
	}

	if len(stats.TopDocuments) != 2 ||
		stats.TopDocuments[0].DocumentID != 7 || stats.TopDocuments[0].TotalMatches != 5 ||
		stats.TopDocuments[1].DocumentID != 8 || stats.TopDocuments[1].TotalMatches != 1 {
		t.Errorf("unexpected top documents: %+v", stats.TopDocuments)
	}
}

func TestFailedMatches(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	hash := "abc123"
	if err := client.InsertFailedMatch(ctx, hash, 10); err != nil {
		t.Fatalf("insert failed match: %v", err)
	}
	// Duplicate reports are silently absorbed.
	if err := client.InsertFailedMatch(ctx, hash, 10); err != nil {
		t.Fatalf("duplicate insert should not error: %v", err)
	}
	if err := client.InsertFailedMatch(ctx, hash, 11); err != nil {
		t.Fatalf("insert second failed match: %v", err)
	}

	excluded, err := client.FailedDocumentIDs(ctx, hash)
	if err != nil {
		t.Fatalf("failed document ids: %v", err)
	}
	if len(excluded) != 2 || !excluded[10] || !excluded[11] {
		t.Errorf("unexpected exclusion set: %v", excluded)
	}

	other, _ := client.FailedDocumentIDs(ctx, "otherhash")
	if len(other) != 0 {
		t.Errorf("expected empty set for unknown hash, got %v", other)
	}
}

func TestUsageRoundTrip(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	rec, err := client.GetUsage(ctx, "user-x")
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil for unknown user, got %+v", rec)
	}

	if err := client.SetUsage(ctx, models.UsageRecord{UserIdentifier: "user-x", QuestionCount: 3}); err != nil {
		t.Fatalf("set usage: %v", err)
	}
	rec, err = client.GetUsage(ctx, "user-x")
	if err != nil || rec == nil {
		t.Fatalf("get usage after set: %v, %+v", err, rec)
	}
	if rec.QuestionCount != 3 {
		t.Errorf("expected count 3, got %d", rec.QuestionCount)
	}
}

func TestStatistics(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	logs := []models.ChatLog{
		{SessionID: "s1", UserIdentifier: "u1", Question: "سؤال أول", Keywords: []string{"عقد"}, DocumentsFound: true},
		{SessionID: "s2", UserIdentifier: "u2", Question: "سؤال ثاني", Keywords: []string{"غامض"}},
	}
	for _, l := range logs {
		if err := client.InsertChatLog(ctx, l); err != nil {
			t.Fatalf("insert chat log: %v", err)
		}
	}
	if err := client.UpsertMissingTopic(ctx, "سؤال ثاني", []string{"غامض"}, ""); err != nil {
		t.Fatalf("upsert missing topic: %v", err)
	}

	stats, err := client.GetStatistics(ctx, 30)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.TotalQuestions != 2 || stats.MatchedQuestions != 1 {
		t.Errorf("unexpected question counts: %+v", stats)
	}
	if stats.MissingTopics != 1 || stats.UniqueUsers != 2 {
		t.Errorf("unexpected missing/users: %+v", stats)
	}
	if len(stats.TopMissing) != 1 {
		t.Errorf("expected one top missing topic, got %d", len(stats.TopMissing))
	}
}

func TestCleanup(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	// Fresh rows survive a cleanup pass.
	if err := client.InsertChatLog(ctx, models.ChatLog{SessionID: "s", UserIdentifier: "u", Question: "q", Keywords: nil}); err != nil {
		t.Fatalf("insert chat log: %v", err)
	}
	if err := client.UpsertKeywordAssociation(ctx, "عقد", 1, "عنوان", 50); err != nil {
		t.Fatalf("upsert association: %v", err)
	}

	result, err := client.Cleanup(ctx, 90, 180, 3)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if result.ChatLogs != 0 || result.WeakAssociations != 0 {
		t.Errorf("fresh rows should survive cleanup: %+v", result)
	}

	assocs, _ := client.GetAssociations(ctx, []string{"عقد"})
	if len(assocs) != 1 {
		t.Errorf("association removed by cleanup")
	}
}
