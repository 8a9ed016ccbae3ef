package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AppendMessage writes one row to the chat transcript and returns its id.
// The transcript is append-only; rows are never updated or deleted here.
func (s *Store) AppendMessage(ctx context.Context, msg ChatMessage) (string, error) {
	if msg.UserID == "" {
		return "", fmt.Errorf("user id is required")
	}
	if msg.Role != "user" && msg.Role != "model" {
		return "", fmt.Errorf("invalid role: %s", msg.Role)
	}

	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var toolCallsJSON any
	if len(msg.ToolCalls) > 0 {
		data, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return "", fmt.Errorf("failed to encode tool calls: %w", err)
		}
		toolCallsJSON = string(data)
	}

	var attachment any
	if msg.AttachmentRef != "" {
		attachment = msg.AttachmentRef
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_history (id, user_id, role, content, attachment_ref, tool_calls, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, msg.UserID, msg.Role, msg.Content, attachment, toolCallsJSON, createdAt)
	if err != nil {
		return "", fmt.Errorf("failed to append message: %w", err)
	}

	return id, nil
}

// RecentMessages returns up to limit transcript rows in chronological
// order. When after is non-zero only rows created strictly later are
// returned.
func (s *Store) RecentMessages(ctx context.Context, userID string, limit int, after time.Time) ([]ChatMessage, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, user_id, role, content, attachment_ref, tool_calls, created_at
		FROM chat_history WHERE user_id = ?`
	args := []any{userID}

	if !after.IsZero() {
		query += ` AND created_at > ?`
		args = append(args, after)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	defer rows.Close()

	var messages []ChatMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	// Reverse to chronological order for the context window
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// SearchMessages runs an FTS5 keyword query over the user's transcript.
func (s *Store) SearchMessages(ctx context.Context, userID, query string, limit int) ([]ChatMessage, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT h.id, h.user_id, h.role, h.content, h.attachment_ref, h.tool_calls, h.created_at
		FROM chat_history_fts f
		JOIN chat_history h ON h.rowid = f.rowid
		WHERE chat_history_fts MATCH ? AND h.user_id = ?
		ORDER BY rank LIMIT ?`, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	defer rows.Close()

	var messages []ChatMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// ListUsers returns every user id that has a profile row.
func (s *Store) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM user_profile ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (ChatMessage, error) {
	var msg ChatMessage
	var attachment, toolCalls *string

	if err := row.Scan(&msg.ID, &msg.UserID, &msg.Role, &msg.Content,
		&attachment, &toolCalls, &msg.CreatedAt); err != nil {
		return ChatMessage{}, fmt.Errorf("failed to scan message: %w", err)
	}
	if attachment != nil {
		msg.AttachmentRef = *attachment
	}
	if toolCalls != nil && *toolCalls != "" {
		if err := json.Unmarshal([]byte(*toolCalls), &msg.ToolCalls); err != nil {
			return ChatMessage{}, fmt.Errorf("failed to decode tool calls: %w", err)
		}
	}
	return msg, nil
}
