package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/amr/nutrisync/pkg/store"
	"github.com/amr/nutrisync/pkg/usercontext"
)

// RegisterWorkoutTools wires training tools to the store.
func RegisterWorkoutTools(r *Registry, st *store.Store) error {
	tools := []Tool{
		{
			Name:        "log_workout",
			Description: "Log a completed workout session and count it toward today's goal.",
			Parameters: []Parameter{
				{Name: "description", Type: "string", Description: "What was trained", Required: true},
				{Name: "duration_min", Type: "integer", Description: "Session length in minutes", Required: false},
			},
			Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
				now := usercontext.Now()
				entry := store.WorkoutLog{
					Description: argString(args, "description", ""),
					DurationMin: argInt(args, "duration_min", 0),
					CreatedAt:   usercontext.LogTimestamp(now),
				}

				if _, err := st.AddWorkoutLog(ctx, userID, entry); err != nil {
					return nil, fmt.Errorf("failed to log workout: %w", err)
				}
				if err := st.AddWorkoutCompleted(ctx, userID, usercontext.FunctionalDate(now)); err != nil {
					return nil, fmt.Errorf("failed to update daily totals: %w", err)
				}
				return map[string]any{"status": "logged"}, nil
			},
		},
		{
			Name:        "get_workout_history",
			Description: "Get workouts from the last N days.",
			Parameters: []Parameter{
				{Name: "days", Type: "integer", Description: "How many days back to look", Required: false, Default: 7},
			},
			Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
				logs, err := st.WorkoutHistory(ctx, userID, argInt(args, "days", 7))
				if err != nil {
					return nil, fmt.Errorf("failed to load workout history: %w", err)
				}
				if len(logs) == 0 {
					return "No workouts logged in that period.", nil
				}
				return logs, nil
			},
		},
		{
			Name:        "get_next_scheduled_workout",
			Description: "Find the next day in the workout plan starting from today.",
			Parameters:  []Parameter{},
			Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
				plan, err := st.WorkoutPlan(ctx, userID)
				if err != nil {
					return nil, fmt.Errorf("failed to load workout plan: %w", err)
				}
				if len(plan) == 0 {
					return "No workout plan is set.", nil
				}
				return nextScheduledDay(plan, usercontext.Now().Weekday().String()), nil
			},
		},
		{
			Name:        "update_strength_record",
			Description: "Record a lift; only kept when it beats the existing personal best.",
			Parameters: []Parameter{
				{Name: "exercise", Type: "string", Description: "Exercise name", Required: true},
				{Name: "weight_kg", Type: "number", Description: "Weight lifted in kilograms", Required: true},
			},
			Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
				exercise := argString(args, "exercise", "")
				weight := argFloat(args, "weight_kg", 0)
				isPR, err := st.UpsertStrengthRecord(ctx, userID, exercise, weight)
				if err != nil {
					return nil, fmt.Errorf("failed to update strength record: %w", err)
				}
				if isPR {
					return map[string]any{"status": "new_record", "exercise": exercise, "weight_kg": weight}, nil
				}
				return map[string]any{"status": "below_record"}, nil
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

// nextScheduledDay scans the plan for today's weekday first, then walks
// forward through the week.
func nextScheduledDay(plan []store.PlanDay, today string) any {
	weekdays := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

	start := 0
	for i, d := range weekdays {
		if d == today {
			start = i
			break
		}
	}

	byDay := make(map[string]store.PlanDay, len(plan))
	for _, d := range plan {
		byDay[strings.ToLower(d.DayName)] = d
	}

	for offset := 0; offset < len(weekdays); offset++ {
		day := weekdays[(start+offset)%len(weekdays)]
		if d, ok := byDay[strings.ToLower(day)]; ok {
			return map[string]any{"day": d.DayName, "exercises": d.Exercises}
		}
	}

	// Plan days that do not use weekday names fall back to the first entry.
	return map[string]any{"day": plan[0].DayName, "exercises": plan[0].Exercises}
}
