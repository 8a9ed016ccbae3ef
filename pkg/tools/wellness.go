package tools

import (
	"context"
	"fmt"

	"github.com/amr/nutrisync/pkg/store"
	"github.com/amr/nutrisync/pkg/usercontext"
)

// RegisterWellnessTools wires sleep logging and status notes to the store.
func RegisterWellnessTools(r *Registry, st *store.Store) error {
	tools := []Tool{
		{
			Name:        "log_sleep",
			Description: "Log last night's sleep for the current functional day.",
			Parameters: []Parameter{
				{Name: "hours", Type: "number", Description: "Hours slept", Required: true},
				{Name: "quality", Type: "string", Description: "good, fair, or poor", Required: false},
			},
			Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
				entry := store.SleepLog{
					SleepDate: usercontext.FunctionalDate(usercontext.Now()),
					Hours:     argFloat(args, "hours", 0),
					Quality:   argString(args, "quality", ""),
				}
				if _, err := st.AddSleepLog(ctx, userID, entry); err != nil {
					return nil, fmt.Errorf("failed to log sleep: %w", err)
				}
				return map[string]any{"status": "logged", "sleep_date": entry.SleepDate}, nil
			},
		},
		{
			Name:        "get_sleep_history",
			Description: "Get sleep logs from the last N days.",
			Parameters: []Parameter{
				{Name: "days", Type: "integer", Description: "How many days back to look", Required: false, Default: 7},
			},
			Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
				logs, err := st.SleepHistory(ctx, userID, argInt(args, "days", 7))
				if err != nil {
					return nil, fmt.Errorf("failed to load sleep history: %w", err)
				}
				if len(logs) == 0 {
					return "No sleep logged in that period.", nil
				}
				return logs, nil
			},
		},
		{
			Name:        "set_status_note",
			Description: "Add a standing note about the user's situation, like an injury or a fast.",
			Parameters: []Parameter{
				{Name: "text", Type: "string", Description: "The note text", Required: true},
			},
			Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
				id, err := st.AddNote(ctx, userID, argString(args, "text", ""))
				if err != nil {
					return nil, fmt.Errorf("failed to add note: %w", err)
				}
				return map[string]any{"status": "added", "note_id": id}, nil
			},
		},
		{
			Name:        "clear_status_note",
			Description: "Clear one note by id, or all notes when no id is given.",
			Parameters: []Parameter{
				{Name: "note_id", Type: "string", Description: "Note id to clear; omit to clear all", Required: false},
			},
			Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
				if id := argString(args, "note_id", ""); id != "" {
					if err := st.ClearNote(ctx, userID, id); err != nil {
						return nil, fmt.Errorf("failed to clear note: %w", err)
					}
					return map[string]any{"status": "cleared", "note_id": id}, nil
				}

				n, err := st.ClearAllNotes(ctx, userID)
				if err != nil {
					return nil, fmt.Errorf("failed to clear notes: %w", err)
				}
				return map[string]any{"status": "cleared", "count": n}, nil
			},
		},
		{
			Name:        "get_active_notes",
			Description: "List the user's active status notes.",
			Parameters:  []Parameter{},
			Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
				notes, err := st.ActiveNotes(ctx, userID)
				if err != nil {
					return nil, fmt.Errorf("failed to load notes: %w", err)
				}
				if len(notes) == 0 {
					return "No active notes.", nil
				}
				return notes, nil
			},
		},
	}

	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			return err
		}
	}
	return nil
}
