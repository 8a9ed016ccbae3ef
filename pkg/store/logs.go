package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AddNutritionLog records a meal at the given timestamp.
func (s *Store) AddNutritionLog(ctx context.Context, userID string, log NutritionLog) (string, error) {
	id := uuid.NewString()
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO nutrition_logs (id, user_id, description, calories, protein_g, carbs_g, fats_g, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, log.Description, log.Calories, log.ProteinG, log.CarbsG, log.FatsG, log.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to insert nutrition log: %w", err)
	}
	return id, nil
}

// NutritionHistory returns meals within the lookback window, newest first.
func (s *Store) NutritionHistory(ctx context.Context, userID string, days int) ([]NutritionLog, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, calories, protein_g, carbs_g, fats_g, created_at
		FROM nutrition_logs
		WHERE user_id = ? AND created_at >= ?
		ORDER BY created_at DESC LIMIT 50`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nutrition history: %w", err)
	}
	defer rows.Close()

	var logs []NutritionLog
	for rows.Next() {
		var l NutritionLog
		if err := rows.Scan(&l.ID, &l.Description, &l.Calories, &l.ProteinG, &l.CarbsG, &l.FatsG, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan nutrition log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// AddWorkoutLog records a workout session.
func (s *Store) AddWorkoutLog(ctx context.Context, userID string, log WorkoutLog) (string, error) {
	id := uuid.NewString()
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workout_logs (id, user_id, description, duration_min, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, userID, log.Description, log.DurationMin, log.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to insert workout log: %w", err)
	}
	return id, nil
}

// WorkoutHistory returns workouts within the lookback window, newest first.
func (s *Store) WorkoutHistory(ctx context.Context, userID string, days int) ([]WorkoutLog, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, duration_min, created_at
		FROM workout_logs
		WHERE user_id = ? AND created_at >= ?
		ORDER BY created_at DESC LIMIT 50`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workout history: %w", err)
	}
	defer rows.Close()

	var logs []WorkoutLog
	for rows.Next() {
		var l WorkoutLog
		if err := rows.Scan(&l.ID, &l.Description, &l.DurationMin, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workout log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// AddSleepLog records one night of sleep keyed by functional date.
func (s *Store) AddSleepLog(ctx context.Context, userID string, log SleepLog) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sleep_logs (id, user_id, sleep_date, hours, quality, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, log.SleepDate, log.Hours, log.Quality, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to insert sleep log: %w", err)
	}
	return id, nil
}

// SleepHistory returns sleep logs within the lookback window, newest first.
func (s *Store) SleepHistory(ctx context.Context, userID string, days int) ([]SleepLog, error) {
	since := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02")
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sleep_date, hours, quality
		FROM sleep_logs
		WHERE user_id = ? AND sleep_date >= ?
		ORDER BY sleep_date DESC LIMIT 50`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sleep history: %w", err)
	}
	defer rows.Close()

	var logs []SleepLog
	for rows.Next() {
		var l SleepLog
		if err := rows.Scan(&l.ID, &l.SleepDate, &l.Hours, &l.Quality); err != nil {
			return nil, fmt.Errorf("failed to scan sleep log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// AddBodyCompLog records a body composition measurement. The latest
// weight is mirrored into the profile so context snapshots stay current.
func (s *Store) AddBodyCompLog(ctx context.Context, userID string, log BodyCompLog) (string, error) {
	id := uuid.NewString()
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO body_comp_logs (id, user_id, weight_kg, muscle_kg, bf_percent, resting_hr, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, log.WeightKg, log.MuscleKg, log.BFPercent, log.RestingHR, log.Notes, log.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to insert body comp log: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE user_profile SET weight_kg = ?, updated_at = CURRENT_TIMESTAMP WHERE user_id = ?`,
		log.WeightKg, userID); err != nil {
		return "", fmt.Errorf("failed to sync profile weight: %w", err)
	}

	return id, nil
}

// BodyCompHistory returns measurements within the lookback window, newest first.
func (s *Store) BodyCompHistory(ctx context.Context, userID string, days int) ([]BodyCompLog, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, weight_kg, muscle_kg, bf_percent, resting_hr, notes, created_at
		FROM body_comp_logs
		WHERE user_id = ? AND created_at >= ?
		ORDER BY created_at DESC LIMIT 50`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch body comp history: %w", err)
	}
	defer rows.Close()

	var logs []BodyCompLog
	for rows.Next() {
		var l BodyCompLog
		if err := rows.Scan(&l.ID, &l.WeightKg, &l.MuscleKg, &l.BFPercent, &l.RestingHR, &l.Notes, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan body comp log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// HasSleepLog reports whether a sleep entry exists for the given date.
func (s *Store) HasSleepLog(ctx context.Context, userID, sleepDate string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM sleep_logs WHERE user_id = ? AND sleep_date = ?`,
		userID, sleepDate).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check sleep log: %w", err)
	}
	return n > 0, nil
}
