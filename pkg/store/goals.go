package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetDailyTotals returns the pre-aggregated totals for one functional day.
// A missing row means nothing was logged yet and yields zero totals.
func (s *Store) GetDailyTotals(ctx context.Context, userID, goalDate string) (DailyTotals, error) {
	var t DailyTotals
	var calMet, woMet int

	row := s.db.QueryRowContext(ctx, `
		SELECT calories_consumed, protein_g, carbs_g, fats_g,
		       workouts_completed, calorie_target_met, workout_target_met
		FROM daily_goals WHERE user_id = ? AND goal_date = ?`, userID, goalDate)

	err := row.Scan(&t.Calories, &t.ProteinG, &t.CarbsG, &t.FatsG,
		&t.Workouts, &calMet, &woMet)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DailyTotals{}, nil
		}
		return DailyTotals{}, fmt.Errorf("failed to fetch daily totals: %w", err)
	}

	t.CalorieTargetMet = calMet != 0
	t.WorkoutTargetMet = woMet != 0
	return t, nil
}

// AddConsumption adds a meal's macros to the day's running totals and
// re-evaluates the target-met flags against the profile's targets.
func (s *Store) AddConsumption(ctx context.Context, userID, goalDate string, calories int, proteinG, carbsG, fatsG float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO daily_goals (user_id, goal_date, calories_consumed, protein_g, carbs_g, fats_g)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, goal_date) DO UPDATE SET
			calories_consumed = calories_consumed + excluded.calories_consumed,
			protein_g = protein_g + excluded.protein_g,
			carbs_g = carbs_g + excluded.carbs_g,
			fats_g = fats_g + excluded.fats_g`,
		userID, goalDate, calories, proteinG, carbsG, fatsG)
	if err != nil {
		return fmt.Errorf("failed to add consumption: %w", err)
	}

	if err := s.refreshTargetFlags(ctx, tx, userID, goalDate); err != nil {
		return err
	}

	return tx.Commit()
}

// AddWorkoutCompleted increments the day's workout counter.
func (s *Store) AddWorkoutCompleted(ctx context.Context, userID, goalDate string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO daily_goals (user_id, goal_date, workouts_completed)
		VALUES (?, ?, 1)
		ON CONFLICT(user_id, goal_date) DO UPDATE SET
			workouts_completed = workouts_completed + 1`,
		userID, goalDate)
	if err != nil {
		return fmt.Errorf("failed to add workout: %w", err)
	}

	if err := s.refreshTargetFlags(ctx, tx, userID, goalDate); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) refreshTargetFlags(ctx context.Context, tx *sql.Tx, userID, goalDate string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE daily_goals SET
			calorie_target_met = CASE WHEN
				(SELECT calorie_target FROM user_profile WHERE user_id = ?1) > 0
				AND calories_consumed >= (SELECT calorie_target FROM user_profile WHERE user_id = ?1)
				THEN 1 ELSE 0 END,
			workout_target_met = CASE WHEN workouts_completed > 0 THEN 1 ELSE 0 END
		WHERE user_id = ?1 AND goal_date = ?2`, userID, goalDate)
	if err != nil {
		return fmt.Errorf("failed to refresh target flags: %w", err)
	}
	return nil
}
