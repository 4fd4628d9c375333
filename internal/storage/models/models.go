// Package models defines the persisted records shared by the storage,
// search and learning layers.
package models

import "time"

// Document is a published legal PDF article mirrored from the CMS.
// Payload holds the raw attachment metadata in whatever encoding the
// CMS produced (JSON or legacy serialized form).
type Document struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Status    string    `json:"status"`
	Payload   string    `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentStatusPublished marks documents visible to search.
const DocumentStatusPublished = "publish"

// SearchResult is one scored PDF match for a question. Title is the
// PDF title; Link points at the parent article.
type SearchResult struct {
	DocumentID    int64  `json:"document_id"`
	DocumentTitle string `json:"document_title"`
	Title         string `json:"title"`
	Link          string `json:"link"`
	PDFURL        string `json:"pdf_url,omitempty"`
	Score         int    `json:"score"`
	Learned       bool   `json:"learned,omitempty"`
}

// ChatLog records one answered (or unanswered) question.
type ChatLog struct {
	ID             int64     `json:"id"`
	SessionID      string    `json:"session_id"`
	UserIdentifier string    `json:"user_identifier"`
	Question       string    `json:"question"`
	Keywords       []string  `json:"keywords"`
	MatchedTitles  []string  `json:"matched_titles,omitempty"`
	DocumentsFound bool      `json:"documents_found"`
	Answer         string    `json:"answer,omitempty"`
	TokensUsed     int       `json:"tokens_used"`
	Model          string    `json:"model"`
	IPAddress      string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// MissingTopic is a question the document base could not answer,
// queued for the admin content team.
type MissingTopic struct {
	ID           int64     `json:"id"`
	Question     string    `json:"question"`
	Keywords     []string  `json:"keywords"`
	AskedCount   int       `json:"asked_count"`
	FirstAskedAt time.Time `json:"first_asked_at"`
	LastAskedAt  time.Time `json:"last_asked_at"`
	IPAddress    string    `json:"-"`
	Handled      bool      `json:"handled"`
	AdminNotes   string    `json:"admin_notes,omitempty"`
}

// ConversationMessage is one turn of a widget session.
type ConversationMessage struct {
	SessionID      string    `json:"session_id"`
	UserIdentifier string    `json:"user_identifier"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// KeywordAssociation is a reinforced keyword-to-document link built
// from confirmed successful matches.
type KeywordAssociation struct {
	Keyword       string    `json:"keyword"`
	DocumentID    int64     `json:"document_id"`
	Title         string    `json:"title"`
	MatchCount    int       `json:"match_count"`
	Score         float64   `json:"score"`
	LastMatchedAt time.Time `json:"last_matched_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// UsageRecord tracks one client's daily question count.
type UsageRecord struct {
	UserIdentifier string    `json:"user_identifier"`
	QuestionCount  int       `json:"question_count"`
	LastReset      time.Time `json:"last_reset"`
}

// Statistics summarizes widget activity for the admin dashboard.
type Statistics struct {
	TotalQuestions   int            `json:"total_questions"`
	MatchedQuestions int            `json:"matched_questions"`
	MissingTopics    int            `json:"missing_topics"`
	UniqueUsers      int            `json:"unique_users"`
	TopMissing       []MissingTopic `json:"top_missing"`
}

// KeywordMatchTotal is one keyword's summed confirmed-match count.
type KeywordMatchTotal struct {
	Keyword      string `json:"keyword"`
	TotalMatches int    `json:"total_matches"`
}

// DocumentMatchTotal is one document's summed confirmed-match count
// across every keyword associated with it.
type DocumentMatchTotal struct {
	DocumentID   int64  `json:"document_id"`
	Title        string `json:"title"`
	TotalMatches int    `json:"total_matches"`
}

// LearningStats summarizes the keyword association and failed match
// tables for the admin dashboard.
type LearningStats struct {
	TotalAssociations  int                  `json:"total_associations"`
	UniqueKeywords     int                  `json:"unique_keywords"`
	ReinforcedKeywords int                  `json:"reinforced_keywords"`
	TotalMatches       int                  `json:"total_matches"`
	FailedMatches      int                  `json:"failed_matches"`
	TopKeywords        []KeywordMatchTotal  `json:"top_keywords"`
	TopDocuments       []DocumentMatchTotal `json:"top_documents"`
}
