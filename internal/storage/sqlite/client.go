// Package sqlite persists documents, chat activity and learning state
// for the assistant.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/lawbot/backend/internal/storage/models"
	"github.com/lawbot/backend/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY,
	title TEXT NOT NULL,
	link TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'publish',
	payload TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);

CREATE TABLE IF NOT EXISTS chat_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	user_identifier TEXT NOT NULL,
	question TEXT NOT NULL,
	extracted_keywords TEXT NOT NULL DEFAULT '[]',
	matched_titles TEXT,
	documents_found INTEGER NOT NULL DEFAULT 0,
	answer TEXT,
	tokens_used INTEGER NOT NULL DEFAULT 0,
	model TEXT NOT NULL DEFAULT '',
	ip_address TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_chat_logs_session ON chat_logs(session_id);
CREATE INDEX IF NOT EXISTS idx_chat_logs_user ON chat_logs(user_identifier);
CREATE INDEX IF NOT EXISTS idx_chat_logs_created ON chat_logs(created_at);

CREATE TABLE IF NOT EXISTS missing_topics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	question TEXT NOT NULL,
	extracted_keywords TEXT NOT NULL DEFAULT '[]',
	asked_count INTEGER NOT NULL DEFAULT 1,
	first_asked_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_asked_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	ip_address TEXT NOT NULL DEFAULT '',
	handled INTEGER NOT NULL DEFAULT 0,
	admin_notes TEXT
);
CREATE INDEX IF NOT EXISTS idx_missing_topics_handled ON missing_topics(handled);
CREATE INDEX IF NOT EXISTS idx_missing_topics_last_asked ON missing_topics(last_asked_at);

CREATE TABLE IF NOT EXISTS conversation_memory (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	user_identifier TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_memory_session ON conversation_memory(session_id);
CREATE INDEX IF NOT EXISTS idx_memory_created ON conversation_memory(created_at);

CREATE TABLE IF NOT EXISTS keyword_associations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	keyword TEXT NOT NULL,
	document_id INTEGER NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	match_count INTEGER NOT NULL DEFAULT 1,
	relevance_score REAL NOT NULL DEFAULT 0,
	last_matched_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(keyword, document_id)
);
CREATE INDEX IF NOT EXISTS idx_associations_keyword ON keyword_associations(keyword);
CREATE INDEX IF NOT EXISTS idx_associations_count ON keyword_associations(match_count);

CREATE TABLE IF NOT EXISTS usage_quota (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_identifier TEXT NOT NULL UNIQUE,
	question_count INTEGER NOT NULL DEFAULT 0,
	last_reset DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS failed_matches (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	question_hash TEXT NOT NULL,
	document_id INTEGER NOT NULL,
	reported_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(question_hash, document_id)
);
CREATE INDEX IF NOT EXISTS idx_failed_matches_hash ON failed_matches(question_hash);
`

// Client wraps the SQLite connection used by all persistence paths.
type Client struct {
	db *sql.DB
}

// New opens (creating if needed) the database at path and applies the
// schema.
func New(path string) (*Client, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)

	client := &Client{db: db}
	if err := client.InitSchema(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite database ready", zap.String("path", path))
	return client, nil
}

// InitSchema creates all tables and indexes if they do not exist.
func (c *Client) InitSchema() error {
	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (c *Client) Close() error {
	return c.db.Close()
}

// --- Documents ---

// UpsertDocument inserts or replaces one document row.
func (c *Client) UpsertDocument(ctx context.Context, doc models.Document) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, link, status, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			link = excluded.link,
			status = excluded.status,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		doc.ID, doc.Title, doc.Link, doc.Status, doc.Payload, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document %d: %w", doc.ID, err)
	}
	return nil
}

// ListPublishedDocuments returns every document visible to search.
func (c *Client) ListPublishedDocuments(ctx context.Context) ([]models.Document, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, title, link, status, payload, updated_at
		FROM documents WHERE status = ? ORDER BY id`,
		models.DocumentStatusPublished,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.Title, &d.Link, &d.Status, &d.Payload, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// GetDocument returns one document by id, or sql.ErrNoRows.
func (c *Client) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	var d models.Document
	err := c.db.QueryRowContext(ctx, `
		SELECT id, title, link, status, payload, updated_at
		FROM documents WHERE id = ?`, id,
	).Scan(&d.ID, &d.Title, &d.Link, &d.Status, &d.Payload, &d.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get document %d: %w", id, err)
	}
	return &d, nil
}

// DeleteDocument removes a document that is no longer published.
func (c *Client) DeleteDocument(ctx context.Context, id int64) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete document %d: %w", id, err)
	}
	return nil
}

// --- Chat logs ---

// InsertChatLog records one question/answer interaction.
func (c *Client) InsertChatLog(ctx context.Context, log models.ChatLog) error {
	keywords, err := json.Marshal(log.Keywords)
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}
	var titles any
	if len(log.MatchedTitles) > 0 {
		encoded, err := json.Marshal(log.MatchedTitles)
		if err != nil {
			return fmt.Errorf("failed to encode matched titles: %w", err)
		}
		titles = string(encoded)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO chat_logs
			(session_id, user_identifier, question, extracted_keywords,
			 matched_titles, documents_found, answer, tokens_used, model, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.SessionID, log.UserIdentifier, log.Question, string(keywords),
		titles, boolToInt(log.DocumentsFound), nullable(log.Answer),
		log.TokensUsed, log.Model, log.IPAddress, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert chat log: %w", err)
	}
	return nil
}

// --- Missing topics ---

// UpsertMissingTopic bumps the counter on an already-seen question or
// inserts a new pending topic.
func (c *Client) UpsertMissingTopic(ctx context.Context, question string, keywords []string, ip string) error {
	normalized := normalizeForLookup(question)

	var id int64
	var count int
	err := c.db.QueryRowContext(ctx, `
		SELECT id, asked_count FROM missing_topics
		WHERE question = ? OR question LIKE ? LIMIT 1`,
		question, "%"+normalized+"%",
	).Scan(&id, &count)

	switch {
	case err == sql.ErrNoRows:
		encoded, jerr := json.Marshal(keywords)
		if jerr != nil {
			return fmt.Errorf("failed to encode keywords: %w", jerr)
		}
		now := time.Now().UTC()
		_, err = c.db.ExecContext(ctx, `
			INSERT INTO missing_topics
				(question, extracted_keywords, asked_count, first_asked_at, last_asked_at, ip_address, handled)
			VALUES (?, ?, 1, ?, ?, ?, 0)`,
			question, string(encoded), now, now, ip,
		)
		if err != nil {
			return fmt.Errorf("failed to insert missing topic: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to look up missing topic: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		UPDATE missing_topics SET asked_count = ?, last_asked_at = ? WHERE id = ?`,
		count+1, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update missing topic: %w", err)
	}
	return nil
}

// ListMissingTopics returns topics by handled state, most asked first.
func (c *Client) ListMissingTopics(ctx context.Context, handled bool, limit int) ([]models.MissingTopic, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, question, extracted_keywords, asked_count,
		       first_asked_at, last_asked_at, ip_address, handled, COALESCE(admin_notes, '')
		FROM missing_topics WHERE handled = ?
		ORDER BY asked_count DESC, last_asked_at DESC LIMIT ?`,
		boolToInt(handled), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list missing topics: %w", err)
	}
	defer rows.Close()

	var topics []models.MissingTopic
	for rows.Next() {
		var t models.MissingTopic
		var keywords string
		var handledInt int
		if err := rows.Scan(&t.ID, &t.Question, &keywords, &t.AskedCount,
			&t.FirstAskedAt, &t.LastAskedAt, &t.IPAddress, &handledInt, &t.AdminNotes); err != nil {
			return nil, fmt.Errorf("failed to scan missing topic: %w", err)
		}
		t.Handled = handledInt != 0
		if err := json.Unmarshal([]byte(keywords), &t.Keywords); err != nil {
			t.Keywords = nil
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// MarkMissingTopicHandled flags a topic as covered by new content.
func (c *Client) MarkMissingTopicHandled(ctx context.Context, id int64, notes string) error {
	res, err := c.db.ExecContext(ctx, `
		UPDATE missing_topics SET handled = 1, admin_notes = ? WHERE id = ?`,
		nullable(notes), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark missing topic handled: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// --- Conversation memory ---

const memoryLimit = 20

// SaveConversationMessage appends one turn, trimming the session to
// the most recent messages.
func (c *Client) SaveConversationMessage(ctx context.Context, msg models.ConversationMessage) error {
	var count int
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversation_memory WHERE session_id = ?`, msg.SessionID,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count session messages: %w", err)
	}

	if count >= memoryLimit {
		_, err = c.db.ExecContext(ctx, `
			DELETE FROM conversation_memory WHERE id IN (
				SELECT id FROM conversation_memory
				WHERE session_id = ? ORDER BY created_at ASC, id ASC LIMIT ?
			)`, msg.SessionID, count-memoryLimit+1,
		)
		if err != nil {
			return fmt.Errorf("failed to trim session memory: %w", err)
		}
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO conversation_memory (session_id, user_identifier, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.SessionID, msg.UserIdentifier, msg.Role, msg.Content, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save conversation message: %w", err)
	}
	return nil
}

// GetConversationHistory returns the last limit turns in chronological
// order.
func (c *Client) GetConversationHistory(ctx context.Context, sessionID string, limit int) ([]models.ConversationMessage, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT session_id, user_identifier, role, content, created_at
		FROM conversation_memory WHERE session_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation history: %w", err)
	}
	defer rows.Close()

	var messages []models.ConversationMessage
	for rows.Next() {
		var m models.ConversationMessage
		if err := rows.Scan(&m.SessionID, &m.UserIdentifier, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest-first from the query, oldest-first for the caller.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// --- Keyword associations ---

// UpsertKeywordAssociation records a confirmed keyword-to-document
// match, bumping the reinforcement counter on repeats.
func (c *Client) UpsertKeywordAssociation(ctx context.Context, keyword string, documentID int64, title string, score float64) error {
	now := time.Now().UTC()
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO keyword_associations
			(keyword, document_id, title, match_count, relevance_score, last_matched_at, created_at)
		VALUES (?, ?, ?, 1, ?, ?, ?)
		ON CONFLICT(keyword, document_id) DO UPDATE SET
			match_count = match_count + 1,
			relevance_score = excluded.relevance_score,
			last_matched_at = excluded.last_matched_at`,
		keyword, documentID, title, score, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert keyword association: %w", err)
	}
	return nil
}

// GetAssociations returns learned matches for any of the keywords,
// strongest first.
func (c *Client) GetAssociations(ctx context.Context, keywords []string) ([]models.KeywordAssociation, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(keywords))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(keywords))
	for i, k := range keywords {
		args[i] = k
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT keyword, document_id, title, match_count, relevance_score, last_matched_at, created_at
		FROM keyword_associations
		WHERE keyword IN (`+placeholders+`)
		ORDER BY match_count DESC, relevance_score DESC`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query keyword associations: %w", err)
	}
	defer rows.Close()

	var assocs []models.KeywordAssociation
	for rows.Next() {
		var a models.KeywordAssociation
		if err := rows.Scan(&a.Keyword, &a.DocumentID, &a.Title, &a.MatchCount,
			&a.Score, &a.LastMatchedAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan keyword association: %w", err)
		}
		assocs = append(assocs, a)
	}
	return assocs, rows.Err()
}

// GetLearningStats summarizes the association and failed match tables.
func (c *Client) GetLearningStats(ctx context.Context, minBoostCount, topLimit int) (*models.LearningStats, error) {
	stats := &models.LearningStats{}

	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT keyword), COALESCE(SUM(match_count), 0) FROM keyword_associations`,
	).Scan(&stats.TotalAssociations, &stats.UniqueKeywords, &stats.TotalMatches)
	if err != nil {
		return nil, fmt.Errorf("failed to count associations: %w", err)
	}

	err = c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM keyword_associations WHERE match_count >= ?`, minBoostCount,
	).Scan(&stats.ReinforcedKeywords)
	if err != nil {
		return nil, fmt.Errorf("failed to count reinforced keywords: %w", err)
	}

	err = c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM failed_matches`,
	).Scan(&stats.FailedMatches)
	if err != nil {
		return nil, fmt.Errorf("failed to count failed matches: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT keyword, SUM(match_count) AS total_matches
		FROM keyword_associations
		GROUP BY keyword
		ORDER BY total_matches DESC LIMIT ?`, topLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query top keywords: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k models.KeywordMatchTotal
		if err := rows.Scan(&k.Keyword, &k.TotalMatches); err != nil {
			return nil, fmt.Errorf("failed to scan top keyword: %w", err)
		}
		stats.TopKeywords = append(stats.TopKeywords, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	docRows, err := c.db.QueryContext(ctx, `
		SELECT document_id, title, SUM(match_count) AS total_matches
		FROM keyword_associations
		GROUP BY document_id, title
		ORDER BY total_matches DESC LIMIT ?`, topLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query top documents: %w", err)
	}
	defer docRows.Close()

	for docRows.Next() {
		var d models.DocumentMatchTotal
		if err := docRows.Scan(&d.DocumentID, &d.Title, &d.TotalMatches); err != nil {
			return nil, fmt.Errorf("failed to scan top document: %w", err)
		}
		stats.TopDocuments = append(stats.TopDocuments, d)
	}
	return stats, docRows.Err()
}

// --- Failed matches ---

// InsertFailedMatch records that a document was a wrong answer for a
// question. Duplicate reports are ignored.
func (c *Client) InsertFailedMatch(ctx context.Context, questionHash string, documentID int64) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO failed_matches (question_hash, document_id, reported_at)
		VALUES (?, ?, ?)
		ON CONFLICT(question_hash, document_id) DO NOTHING`,
		questionHash, documentID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert failed match: %w", err)
	}
	return nil
}

// FailedDocumentIDs returns the set of documents previously reported
// wrong for the question.
func (c *Client) FailedDocumentIDs(ctx context.Context, questionHash string) (map[int64]bool, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT document_id FROM failed_matches WHERE question_hash = ?`, questionHash,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed matches: %w", err)
	}
	defer rows.Close()

	excluded := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan failed match: %w", err)
		}
		excluded[id] = true
	}
	return excluded, rows.Err()
}

// --- Usage quota ---

// GetUsage returns the quota row for a client, or nil if none exists.
func (c *Client) GetUsage(ctx context.Context, userIdentifier string) (*models.UsageRecord, error) {
	var rec models.UsageRecord
	err := c.db.QueryRowContext(ctx, `
		SELECT user_identifier, question_count, last_reset
		FROM usage_quota WHERE user_identifier = ?`, userIdentifier,
	).Scan(&rec.UserIdentifier, &rec.QuestionCount, &rec.LastReset)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get usage: %w", err)
	}
	return &rec, nil
}

// SetUsage writes the quota row for a client.
func (c *Client) SetUsage(ctx context.Context, rec models.UsageRecord) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO usage_quota (user_identifier, question_count, last_reset)
		VALUES (?, ?, ?)
		ON CONFLICT(user_identifier) DO UPDATE SET
			question_count = excluded.question_count,
			last_reset = excluded.last_reset`,
		rec.UserIdentifier, rec.QuestionCount, rec.LastReset,
	)
	if err != nil {
		return fmt.Errorf("failed to set usage: %w", err)
	}
	return nil
}

// --- Statistics ---

// GetStatistics summarizes recent widget activity.
func (c *Client) GetStatistics(ctx context.Context, days int) (*models.Statistics, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	stats := &models.Statistics{}

	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_logs WHERE created_at >= ?`, since,
	).Scan(&stats.TotalQuestions)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}

	err = c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_logs WHERE documents_found = 1 AND created_at >= ?`, since,
	).Scan(&stats.MatchedQuestions)
	if err != nil {
		return nil, fmt.Errorf("failed to count matched questions: %w", err)
	}

	err = c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM missing_topics WHERE handled = 0`,
	).Scan(&stats.MissingTopics)
	if err != nil {
		return nil, fmt.Errorf("failed to count missing topics: %w", err)
	}

	err = c.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT user_identifier) FROM chat_logs WHERE created_at >= ?`, since,
	).Scan(&stats.UniqueUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to count unique users: %w", err)
	}

	top, err := c.ListMissingTopics(ctx, false, 10)
	if err != nil {
		return nil, err
	}
	stats.TopMissing = top

	return stats, nil
}

// --- Maintenance ---

// CleanupResult reports rows removed by a maintenance pass.
type CleanupResult struct {
	ChatLogs         int64 `json:"chat_logs"`
	Memory           int64 `json:"conversation_memory"`
	HandledTopics    int64 `json:"handled_topics"`
	WeakAssociations int64 `json:"weak_associations"`
	FailedMatches    int64 `json:"failed_matches"`
}

// Cleanup prunes aged rows. Chat logs and conversation memory older
// than logRetentionDays go, handled topics idle for over a year go,
// weak associations older than retentionDays go, and failed-match
// reports expire after twice the retention window.
func (c *Client) Cleanup(ctx context.Context, logRetentionDays, retentionDays, minKeepCount int) (*CleanupResult, error) {
	now := time.Now().UTC()
	result := &CleanupResult{}

	steps := []struct {
		target *int64
		query  string
		args   []any
	}{
		{&result.ChatLogs,
			`DELETE FROM chat_logs WHERE created_at < ?`,
			[]any{now.AddDate(0, 0, -logRetentionDays)}},
		{&result.Memory,
			`DELETE FROM conversation_memory WHERE created_at < ?`,
			[]any{now.AddDate(0, 0, -logRetentionDays)}},
		{&result.HandledTopics,
			`DELETE FROM missing_topics WHERE handled = 1 AND last_asked_at < ?`,
			[]any{now.AddDate(0, 0, -365)}},
		{&result.WeakAssociations,
			`DELETE FROM keyword_associations WHERE match_count < ? AND last_matched_at < ?`,
			[]any{minKeepCount, now.AddDate(0, 0, -retentionDays)}},
		{&result.FailedMatches,
			`DELETE FROM failed_matches WHERE reported_at < ?`,
			[]any{now.AddDate(0, 0, -2*retentionDays)}},
	}

	for _, step := range steps {
		res, err := c.db.ExecContext(ctx, step.query, step.args...)
		if err != nil {
			return result, fmt.Errorf("cleanup step failed: %w", err)
		}
		*step.target, _ = res.RowsAffected()
	}

	return result, nil
}

// --- helpers ---

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var lookupPunctuation = strings.NewReplacer("؟", " ", "?", " ", "،", " ", ",", " ", ".", " ")

func normalizeForLookup(question string) string {
	return strings.ToLower(strings.Join(strings.Fields(lookupPunctuation.Replace(question)), " "))
}
