package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Equipment returns the user's available equipment names.
func (s *Store) Equipment(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM equipment WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch equipment: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan equipment: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// AddEquipment records a piece of equipment; duplicates are ignored.
func (s *Store) AddEquipment(ctx context.Context, userID, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO equipment (user_id, name) VALUES (?, ?)`, userID, name)
	if err != nil {
		return fmt.Errorf("failed to add equipment: %w", err)
	}
	return nil
}

// StrengthRecords returns per-exercise personal bests.
func (s *Store) StrengthRecords(ctx context.Context, userID string) ([]StrengthRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT exercise, weight_kg FROM strength_records
		WHERE user_id = ? ORDER BY exercise`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch strength records: %w", err)
	}
	defer rows.Close()

	var records []StrengthRecord
	for rows.Next() {
		var r StrengthRecord
		if err := rows.Scan(&r.Exercise, &r.WeightKg); err != nil {
			return nil, fmt.Errorf("failed to scan strength record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// UpsertStrengthRecord writes a personal best if it beats the stored one.
// Returns true when a new record was set.
func (s *Store) UpsertStrengthRecord(ctx context.Context, userID, exercise string, weightKg float64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO strength_records (user_id, exercise, weight_kg)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, exercise) DO UPDATE SET
			weight_kg = excluded.weight_kg,
			recorded_at = CURRENT_TIMESTAMP
		WHERE excluded.weight_kg > strength_records.weight_kg`,
		userID, exercise, weightKg)
	if err != nil {
		return false, fmt.Errorf("failed to upsert strength record: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// WorkoutPlan returns the user's plan days in order.
func (s *Store) WorkoutPlan(ctx context.Context, userID string) ([]PlanDay, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day_name, exercises FROM workout_plan
		WHERE user_id = ? ORDER BY day_index`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workout plan: %w", err)
	}
	defer rows.Close()

	var plan []PlanDay
	for rows.Next() {
		var day PlanDay
		var exercisesJSON string
		if err := rows.Scan(&day.DayName, &exercisesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan plan day: %w", err)
		}
		if err := json.Unmarshal([]byte(exercisesJSON), &day.Exercises); err != nil {
			return nil, fmt.Errorf("failed to decode plan exercises: %w", err)
		}
		plan = append(plan, day)
	}
	return plan, rows.Err()
}

// SetWorkoutPlan replaces the user's plan with the given ordered days.
func (s *Store) SetWorkoutPlan(ctx context.Context, userID string, plan []PlanDay) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM workout_plan WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear plan: %w", err)
	}

	for i, day := range plan {
		exercisesJSON, err := json.Marshal(day.Exercises)
		if err != nil {
			return fmt.Errorf("failed to encode plan exercises: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO workout_plan (user_id, day_index, day_name, exercises)
			VALUES (?, ?, ?, ?)`, userID, i, day.DayName, string(exercisesJSON)); err != nil {
			return fmt.Errorf("failed to insert plan day: %w", err)
		}
	}

	return tx.Commit()
}
