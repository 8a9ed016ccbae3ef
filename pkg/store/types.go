package store

import "time"

// Profile holds a user's goals and physical stats
type Profile struct {
	UserID        string  `json:"user_id"`
	Name          string  `json:"name"`
	Goal          string  `json:"goal"`
	Language      string  `json:"language"`
	Sex           string  `json:"sex"`
	Age           int     `json:"age"`
	HeightCm      float64 `json:"height_cm"`
	WeightKg      float64 `json:"weight_kg"`
	ActivityLevel string  `json:"activity_level"`
	CalorieTarget int     `json:"calorie_target"`
	WorkoutTarget int     `json:"workout_target"`
}

// DailyTotals aggregates a single functional day's consumption
type DailyTotals struct {
	Calories         int     `json:"calories"`
	ProteinG         float64 `json:"protein"`
	CarbsG           float64 `json:"carbs"`
	FatsG            float64 `json:"fats"`
	Workouts         int     `json:"workouts"`
	CalorieTargetMet bool    `json:"calorie_target_met"`
	WorkoutTargetMet bool    `json:"workout_target_met"`
}

// Note is an active free-text context note ("Fasting for Ramadan")
type Note struct {
	ID        string     `json:"id"`
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// StrengthRecord is a per-exercise personal best
type StrengthRecord struct {
	Exercise string  `json:"exercise"`
	WeightKg float64 `json:"weight_kg"`
}

// PlanDay is one ordered day of the workout plan
type PlanDay struct {
	DayName   string   `json:"day"`
	Exercises []string `json:"exercises"`
}

// NutritionLog is a single logged meal
type NutritionLog struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Calories    int       `json:"calories"`
	ProteinG    float64   `json:"protein_g"`
	CarbsG      float64   `json:"carbs_g"`
	FatsG       float64   `json:"fats_g"`
	CreatedAt   time.Time `json:"created_at"`
}

// WorkoutLog is a single logged workout session
type WorkoutLog struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	DurationMin int       `json:"duration_min"`
	CreatedAt   time.Time `json:"created_at"`
}

// SleepLog is one night's sleep entry
type SleepLog struct {
	ID        string  `json:"id"`
	SleepDate string  `json:"sleep_date"`
	Hours     float64 `json:"hours"`
	Quality   string  `json:"quality"`
}

// BodyCompLog is one body composition measurement
type BodyCompLog struct {
	ID        string    `json:"id"`
	WeightKg  float64   `json:"weight_kg"`
	MuscleKg  float64   `json:"muscle_kg,omitempty"`
	BFPercent float64   `json:"bf_percent,omitempty"`
	RestingHR int       `json:"resting_hr,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ToolRecord captures one tool call or tool response made during a turn
type ToolRecord struct {
	Name     string         `json:"name"`
	Args     map[string]any `json:"args,omitempty"`
	Response string         `json:"response,omitempty"`
}

// ChatMessage is one durable row of the user-visible transcript
type ChatMessage struct {
	ID            string       `json:"id"`
	UserID        string       `json:"user_id"`
	Role          string       `json:"role"` // "user" or "model"
	Content       string       `json:"content"`
	AttachmentRef string       `json:"attachment_ref,omitempty"`
	ToolCalls     []ToolRecord `json:"tool_calls,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}
