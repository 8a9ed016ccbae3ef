package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetProfile returns the user's profile, or sql.ErrNoRows if none exists.
func (s *Store) GetProfile(ctx context.Context, userID string) (Profile, error) {
	var p Profile
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, name, goal, language, sex, age, height_cm, weight_kg,
		       activity_level, calorie_target, workout_target
		FROM user_profile WHERE user_id = ?`, userID)

	err := row.Scan(&p.UserID, &p.Name, &p.Goal, &p.Language, &p.Sex, &p.Age,
		&p.HeightCm, &p.WeightKg, &p.ActivityLevel, &p.CalorieTarget, &p.WorkoutTarget)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, err
		}
		return Profile{}, fmt.Errorf("failed to fetch profile: %w", err)
	}
	return p, nil
}

// UpsertProfile creates or replaces the user's profile row.
func (s *Store) UpsertProfile(ctx context.Context, p Profile) error {
	if p.UserID == "" {
		return errors.New("user id is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profile
			(user_id, name, goal, language, sex, age, height_cm, weight_kg,
			 activity_level, calorie_target, workout_target, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			goal = excluded.goal,
			language = excluded.language,
			sex = excluded.sex,
			age = excluded.age,
			height_cm = excluded.height_cm,
			weight_kg = excluded.weight_kg,
			activity_level = excluded.activity_level,
			calorie_target = excluded.calorie_target,
			workout_target = excluded.workout_target,
			updated_at = CURRENT_TIMESTAMP`,
		p.UserID, p.Name, p.Goal, p.Language, p.Sex, p.Age, p.HeightCm,
		p.WeightKg, p.ActivityLevel, p.CalorieTarget, p.WorkoutTarget)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// GetLanguage returns the user's preferred language, defaulting to "en".
func (s *Store) GetLanguage(ctx context.Context, userID string) string {
	var lang string
	err := s.db.QueryRowContext(ctx,
		`SELECT language FROM user_profile WHERE user_id = ?`, userID).Scan(&lang)
	if err != nil || lang == "" {
		return "en"
	}
	return lang
}
