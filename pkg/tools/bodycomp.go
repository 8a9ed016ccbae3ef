package tools

import (
	"context"
	"fmt"

	"github.com/amr/nutrisync/pkg/store"
	"github.com/amr/nutrisync/pkg/usercontext"
)

// RegisterBodyCompTools wires body composition tracking to the store.
func RegisterBodyCompTools(r *Registry, st *store.Store) error {
	tools := []Tool{
		{
			Name:        "log_body_comp",
			Description: "Log body composition: weight, and optionally muscle mass, body fat and resting heart rate.",
			Parameters: []Parameter{
				{Name: "weight_kg", Type: "number", Description: "Body weight in kg", Required: true},
				{Name: "muscle_kg", Type: "number", Description: "Muscle mass in kg", Required: false},
				{Name: "bf_percent", Type: "number", Description: "Body fat percentage", Required: false},
				{Name: "resting_hr", Type: "integer", Description: "Resting heart rate in bpm", Required: false},
				{Name: "notes", Type: "string", Description: "Free-text notes about the measurement", Required: false},
			},
			Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
				entry := store.BodyCompLog{
					WeightKg:  argFloat(args, "weight_kg", 0),
					MuscleKg:  argFloat(args, "muscle_kg", 0),
					BFPercent: argFloat(args, "bf_percent", 0),
					RestingHR: argInt(args, "resting_hr", 0),
					Notes:     argString(args, "notes", ""),
					CreatedAt: usercontext.LogTimestamp(usercontext.Now()),
				}
				if _, err := st.AddBodyCompLog(ctx, userID, entry); err != nil {
					return nil, fmt.Errorf("failed to log body comp: %w", err)
				}
				return map[string]any{"status": "logged", "weight_kg": entry.WeightKg}, nil
			},
		},
		{
			Name:        "get_body_comp_history",
			Description: "Get body composition measurements from the last N days.",
			Parameters: []Parameter{
				{Name: "days", Type: "integer", Description: "How many days back to look", Required: false, Default: 30},
			},
			Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
				logs, err := st.BodyCompHistory(ctx, userID, argInt(args, "days", 30))
				if err != nil {
					return nil, fmt.Errorf("failed to load body comp history: %w", err)
				}
				if len(logs) == 0 {
					return "No body composition logged in that period.", nil
				}
				return logs, nil
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
