package tools

import (
	"context"
	"fmt"

	"github.com/amr/nutrisync/pkg/store"
)

// RegisterHistoryTools wires transcript search to the store's full-text
// index.
func RegisterHistoryTools(r *Registry, st *store.Store) error {
	return r.Register(Tool{
		Name:        "search_history",
		Description: "Full-text search over past conversation messages.",
		Parameters: []Parameter{
			{Name: "query", Type: "string", Description: "Keywords to search for", Required: true},
			{Name: "limit", Type: "integer", Description: "Maximum results", Required: false, Default: 10},
		},
		Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
			msgs, err := st.SearchMessages(ctx, userID, argString(args, "query", ""), argInt(args, "limit", 10))
			if err != nil {
				return nil, fmt.Errorf("history search failed: %w", err)
			}
			if len(msgs) == 0 {
				return "No matching messages.", nil
			}

			results := make([]map[string]any, 0, len(msgs))
			for _, m := range msgs {
				results = append(results, map[string]any{
					"role":    m.Role,
					"content": m.Content,
					"at":      m.CreatedAt.Format("2006-01-02 15:04"),
				})
			}
			return results, nil
		},
	})
}
