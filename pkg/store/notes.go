package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActiveNotes lists the user's active context notes, oldest first.
func (s *Store) ActiveNotes(ctx context.Context, userID string) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, created_at FROM context_notes
		WHERE user_id = ? AND is_active = 1
		ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		var created time.Time
		if err := rows.Scan(&n.ID, &n.Content, &created); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		n.CreatedAt = &created
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// AddNote inserts a new active note and returns its id.
func (s *Store) AddNote(ctx context.Context, userID, content string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO context_notes (id, user_id, content, is_active, created_at)
		VALUES (?, ?, ?, 1, ?)`, id, userID, content, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to add note: %w", err)
	}
	return id, nil
}

// ClearNote deactivates a single note by id.
func (s *Store) ClearNote(ctx context.Context, userID, noteID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE context_notes SET is_active = 0
		WHERE user_id = ? AND id = ?`, userID, noteID)
	if err != nil {
		return fmt.Errorf("failed to clear note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("note not found: %s", noteID)
	}
	return nil
}

// ClearAllNotes deactivates every active note for the user and returns
// how many were cleared.
func (s *Store) ClearAllNotes(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE context_notes SET is_active = 0
		WHERE user_id = ? AND is_active = 1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear notes: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
