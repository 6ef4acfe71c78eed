package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quotachat/quotachat/internal/core"
)

// ErrNotFound is returned when a conversation does not exist.
var ErrNotFound = errors.New("not found")

const defaultConversationLimit = 50

// CreateConversation inserts a new conversation with a generated ID.
func (s *Store) CreateConversation(ctx context.Context, title string) (*core.Conversation, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	now := time.Now().UTC()
	conv := &core.Conversation{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO conversations (id, title, summary, created_at, updated_at)
		VALUES (?, ?, '', ?, ?)
	`, conv.ID, conv.Title, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// GetConversation returns a conversation by ID or ErrNotFound.
func (s *Store) GetConversation(ctx context.Context, id string) (*core.Conversation, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT id, title, summary, created_at, updated_at
		FROM conversations
		WHERE id = ?
	`, strings.TrimSpace(id))

	conv, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns the most recently updated conversations first.
func (s *Store) ListConversations(ctx context.Context, limit int) ([]core.Conversation, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if limit <= 0 {
		limit = defaultConversationLimit
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, title, summary, created_at, updated_at
		FROM conversations
		ORDER BY updated_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var out []core.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, *conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return out, nil
}

// AppendMessage stores one turn and bumps the conversation's updated_at.
func (s *Store) AppendMessage(ctx context.Context, conversationID string, role core.Role, content string) (*core.Message, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	now := time.Now().UTC()
	res, err := s.DB.ExecContext(ctx, `
		UPDATE conversations SET updated_at = ? WHERE id = ?
	`, now.UnixMilli(), conversationID)
	if err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	res, err = s.DB.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, role, content, created_at)
		VALUES (?, ?, ?, ?)
	`, conversationID, string(role), content, now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	msg := &core.Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      now,
	}
	if id, err := res.LastInsertId(); err == nil {
		msg.ID = id
	}
	return msg, nil
}

// ListMessages returns a conversation's messages oldest first. A positive
// limit keeps only the most recent messages.
func (s *Store) ListMessages(ctx context.Context, conversationID string, limit int) ([]core.Message, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	query := `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY id`
	args := []any{conversationID}
	if limit > 0 {
		query = `
		SELECT id, conversation_id, role, content, created_at FROM (
			SELECT id, conversation_id, role, content, created_at
			FROM messages
			WHERE conversation_id = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id`
		args = append(args, limit)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var out []core.Message
	for rows.Next() {
		var (
			msg       core.Message
			role      string
			createdAt int64
		)
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &role, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = core.Role(role)
		msg.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return out, nil
}

// SaveSummary replaces a conversation's summary.
func (s *Store) SaveSummary(ctx context.Context, conversationID, summary string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	res, err := s.DB.ExecContext(ctx, `
		UPDATE conversations SET summary = ?, updated_at = ? WHERE id = ?
	`, summary, time.Now().UTC().UnixMilli(), conversationID)
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*core.Conversation, error) {
	var (
		conv               core.Conversation
		createdAt, updated int64
	)
	if err := row.Scan(&conv.ID, &conv.Title, &conv.Summary, &createdAt, &updated); err != nil {
		return nil, err
	}
	conv.CreatedAt = time.UnixMilli(createdAt).UTC()
	conv.UpdatedAt = time.UnixMilli(updated).UTC()
	return &conv, nil
}
