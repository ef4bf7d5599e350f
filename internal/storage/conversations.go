// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/util"
)

// =============================================================================
// STORED CONVERSATION TYPE
// =============================================================================

// StoredConversation represents a persisted conversation.
type StoredConversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Backend   string    `json:"backend"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []StoredMessage `json:"messages"`
}

// StoredMessage represents a persisted message.
type StoredMessage struct {
	ID          string    `json:"id"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	Annotations []string  `json:"annotations,omitempty"`
}

// ConversationMeta contains metadata for listing conversations.
type ConversationMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Backend      string    `json:"backend"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"` // First user message truncated
}

// FromConversation snapshots the completed messages of conv.
func FromConversation(conv *model.Conversation, backend string) *StoredConversation {
	msgs := conv.Snapshot()
	id, created, updated := conv.Identity()
	out := &StoredConversation{
		ID:        id,
		Title:     conv.GetTitle(),
		Backend:   backend,
		CreatedAt: created,
		UpdatedAt: updated,
		Messages:  make([]StoredMessage, 0, len(msgs)),
	}
	for _, m := range msgs {
		out.Messages = append(out.Messages, StoredMessage{
			ID:          m.ID,
			Role:        string(m.Role),
			Content:     m.Content,
			Timestamp:   m.Timestamp,
			Annotations: m.Annotations,
		})
	}
	return out
}

// ToMessages converts stored messages back to model messages.
func (c *StoredConversation) ToMessages() []model.Message {
	out := make([]model.Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		out = append(out, model.Message{
			ID:          m.ID,
			Role:        model.Role(m.Role),
			Content:     m.Content,
			Timestamp:   m.Timestamp,
			Annotations: m.Annotations,
		})
	}
	return out
}

// ToConversation rebuilds a live conversation with the stored ID.
func (c *StoredConversation) ToConversation() *model.Conversation {
	conv := model.NewConversation()
	conv.ID = c.ID
	conv.CreatedAt = c.CreatedAt
	conv.Restore(c.ToMessages())
	if c.Title != "" {
		conv.Title = c.Title
	}
	conv.UpdatedAt = c.UpdatedAt
	return conv
}

// GetPreview returns a preview string from the first user message.
func (c *StoredConversation) GetPreview() string {
	for _, msg := range c.Messages {
		if msg.Role == string(model.RoleUser) && msg.Content != "" {
			return util.TruncateRunes(util.OneLine(msg.Content), 80)
		}
	}
	return ""
}

// MessageCount returns the number of messages in the conversation.
func (c *StoredConversation) MessageCount() int {
	return len(c.Messages)
}

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// ConversationStore handles conversation persistence.
type ConversationStore struct {
	db   *sql.DB
	path string

	// MaxConversations limits stored conversations (0 = unlimited)
	MaxConversations int
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*ConversationStore, error) {
	if path == "" {
		return nil, errors.New("storage: empty database path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize metadata: %w", err)
	}

	return &ConversationStore{db: db, path: path, MaxConversations: 100}, nil
}

// Path returns the database file path.
func (s *ConversationStore) Path() string {
	return s.path
}

// Close closes the database.
func (s *ConversationStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save persists a conversation, replacing any stored version, and returns
// its ID.
func (s *ConversationStore) Save(conv *StoredConversation) (string, error) {
	if conv.ID == "" {
		conv.ID = generateConversationID()
	}
	if conv.Title == "" {
		conv.Title = generateTitle(conv)
	}
	now := time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = now
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO conversations (id, title, backend, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			backend = excluded.backend,
			updated_at = excluded.updated_at`,
		conv.ID, conv.Title, conv.Backend, conv.CreatedAt.UnixNano(), conv.UpdatedAt.UnixNano())
	if err != nil {
		return "", fmt.Errorf("save conversation: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM messages WHERE conversation_id = ?", conv.ID); err != nil {
		return "", fmt.Errorf("clear messages: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO messages (conversation_id, position, id, role, content, annotations, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare message insert: %w", err)
	}
	defer stmt.Close()

	for i, msg := range conv.Messages {
		var annotations sql.NullString
		if len(msg.Annotations) > 0 {
			b, err := json.Marshal(msg.Annotations)
			if err != nil {
				return "", fmt.Errorf("encode annotations: %w", err)
			}
			annotations = sql.NullString{String: string(b), Valid: true}
		}
		if _, err := stmt.Exec(conv.ID, i, msg.ID, msg.Role, msg.Content, annotations, msg.Timestamp.UnixNano()); err != nil {
			return "", fmt.Errorf("save message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	if s.MaxConversations > 0 {
		if err := s.enforceLimit(); err != nil {
			return conv.ID, err
		}
	}
	return conv.ID, nil
}

// generateTitle creates a title from the first user message.
func generateTitle(conv *StoredConversation) string {
	for _, msg := range conv.Messages {
		if msg.Role == string(model.RoleUser) && msg.Content != "" {
			return util.TruncateRunes(util.OneLine(msg.Content), 50)
		}
	}
	return "New conversation"
}

// enforceLimit removes the oldest conversations beyond MaxConversations.
func (s *ConversationStore) enforceLimit() error {
	_, err := s.db.Exec(`
		DELETE FROM conversations WHERE id IN (
			SELECT id FROM conversations ORDER BY updated_at DESC LIMIT -1 OFFSET ?
		)`, s.MaxConversations)
	if err != nil {
		return fmt.Errorf("enforce limit: %w", err)
	}
	_, err = s.db.Exec("DELETE FROM messages WHERE conversation_id NOT IN (SELECT id FROM conversations)")
	if err != nil {
		return fmt.Errorf("enforce limit: %w", err)
	}
	return nil
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load retrieves a conversation by ID.
func (s *ConversationStore) Load(id string) (*StoredConversation, error) {
	var conv StoredConversation
	var created, updated int64
	err := s.db.QueryRow(
		"SELECT id, title, backend, created_at, updated_at FROM conversations WHERE id = ?", id,
	).Scan(&conv.ID, &conv.Title, &conv.Backend, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	conv.CreatedAt = time.Unix(0, created)
	conv.UpdatedAt = time.Unix(0, updated)

	rows, err := s.db.Query(`
		SELECT id, role, content, annotations, timestamp
		FROM messages WHERE conversation_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	conv.Messages = make([]StoredMessage, 0)
	for rows.Next() {
		var msg StoredMessage
		var annotations sql.NullString
		var ts int64
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &annotations, &ts); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Timestamp = time.Unix(0, ts)
		if annotations.Valid && annotations.String != "" {
			if err := json.Unmarshal([]byte(annotations.String), &msg.Annotations); err != nil {
				return nil, fmt.Errorf("decode annotations: %w", err)
			}
		}
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	return &conv, nil
}

// LoadByIndex loads a conversation by its index in the list (0 = most recent).
func (s *ConversationStore) LoadByIndex(index int) (*StoredConversation, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(metas) {
		return nil, ErrConversationNotFound
	}
	return s.Load(metas[index].ID)
}

// Resolve loads a conversation by full ID, unique ID prefix, or 1-based list
// position ("1" = most recent).
func (s *ConversationStore) Resolve(ref string) (*StoredConversation, error) {
	conv, err := s.Load(ref)
	if err == nil || !errors.Is(err, ErrConversationNotFound) {
		return conv, err
	}

	metas, err := s.List()
	if err != nil {
		return nil, err
	}
	if n, convErr := strconv.Atoi(ref); convErr == nil && len(ref) < 6 {
		if n < 1 || n > len(metas) {
			return nil, ErrConversationNotFound
		}
		return s.Load(metas[n-1].ID)
	}

	var match string
	for _, m := range metas {
		if strings.HasPrefix(m.ID, ref) {
			if match != "" {
				return nil, &ConversationError{Message: "ambiguous conversation id " + strconv.Quote(ref)}
			}
			match = m.ID
		}
	}
	if match == "" {
		return nil, ErrConversationNotFound
	}
	return s.Load(match)
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

const listQuery = `
	SELECT c.id, c.title, c.backend, c.created_at, c.updated_at,
		(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id),
		COALESCE((SELECT m.content FROM messages m
			WHERE m.conversation_id = c.id AND m.role = 'user'
			ORDER BY m.position LIMIT 1), '')
	FROM conversations c`

// List returns all saved conversations (most recent first).
func (s *ConversationStore) List() ([]ConversationMeta, error) {
	return s.queryMetas(listQuery + " ORDER BY c.updated_at DESC")
}

// Search finds conversations whose title or first user message contains
// query, case-insensitively.
func (s *ConversationStore) Search(query string) ([]ConversationMeta, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(query)
	results := make([]ConversationMeta, 0)
	for _, meta := range all {
		if strings.Contains(strings.ToLower(meta.Title), query) ||
			strings.Contains(strings.ToLower(meta.Preview), query) {
			results = append(results, meta)
		}
	}
	return results, nil
}

// SearchMessages finds conversations where any message contains query.
func (s *ConversationStore) SearchMessages(query string) ([]ConversationMeta, error) {
	if query == "" {
		return s.List()
	}
	return s.queryMetas(listQuery+`
		WHERE EXISTS (SELECT 1 FROM messages m
			WHERE m.conversation_id = c.id AND instr(lower(m.content), ?) > 0)
		ORDER BY c.updated_at DESC`, strings.ToLower(query))
}

func (s *ConversationStore) queryMetas(query string, args ...any) ([]ConversationMeta, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	metas := make([]ConversationMeta, 0)
	for rows.Next() {
		var m ConversationMeta
		var created, updated int64
		if err := rows.Scan(&m.ID, &m.Title, &m.Backend, &created, &updated, &m.MessageCount, &m.Preview); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		m.CreatedAt = time.Unix(0, created)
		m.UpdatedAt = time.Unix(0, updated)
		m.Preview = util.TruncateRunes(util.OneLine(m.Preview), 80)
		metas = append(metas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return metas, nil
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a conversation by ID.
func (s *ConversationStore) Delete(id string) error {
	if _, err := s.db.Exec("DELETE FROM messages WHERE conversation_id = ?", id); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	res, err := s.db.Exec("DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// Clear removes all saved conversations.
func (s *ConversationStore) Clear() error {
	if _, err := s.db.Exec("DELETE FROM messages"); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM conversations"); err != nil {
		return fmt.Errorf("clear conversations: %w", err)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateConversationID creates a unique conversation ID.
func generateConversationID() string {
	return uuid.NewString()
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrConversationNotFound is returned when a conversation doesn't exist.
// Use errors.Is(err, ErrConversationNotFound) to check for this error.
var ErrConversationNotFound = &ConversationError{Message: "conversation not found"}

// ConversationError represents a conversation-related error.
type ConversationError struct {
	Message string
}

// Error implements the error interface.
func (e *ConversationError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing conversation errors.
func (e *ConversationError) Is(target error) bool {
	t, ok := target.(*ConversationError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// LIST FORMATTING
// =============================================================================

// FormatList formats conversations as a table for the history command.
func FormatList(metas []ConversationMeta) string {
	if len(metas) == 0 {
		return "No conversations found."
	}

	var sb strings.Builder
	sb.WriteString(formatPadded("#", 4) + formatPadded("ID", 10) + formatPadded("Updated", 18) + formatPadded("Msgs", 6) + "Title\n")
	sb.WriteString(strings.Repeat("-", 70) + "\n")

	for i, m := range metas {
		idStr := m.ID
		if len(idStr) > 8 {
			idStr = idStr[:8]
		}
		sb.WriteString(formatPadded(strconv.Itoa(i+1), 4) +
			formatPadded(idStr, 10) +
			formatPadded(m.UpdatedAt.Format("2006-01-02 15:04"), 18) +
			formatPadded(strconv.Itoa(m.MessageCount), 6) +
			util.TruncateWidth(m.Title, 32) + "\n")
	}
	return sb.String()
}

// formatPadded pads s with spaces to width terminal cells.
func formatPadded(s string, width int) string {
	w := util.StringWidth(s)
	if w >= width {
		return s + " "
	}
	return s + strings.Repeat(" ", width-w)
}
