package tools

import (
	"context"
	"fmt"
	"math"

	"github.com/amr/nutrisync/pkg/store"
	"github.com/amr/nutrisync/pkg/usercontext"
)

// RegisterNutritionTools wires the meal-logging tools to the store.
func RegisterNutritionTools(r *Registry, st *store.Store) error {
	tools := []Tool{
		{
			Name:        "log_meal",
			Description: "Log a meal with its estimated macros and add it to today's totals.",
			Parameters: []Parameter{
				{Name: "description", Type: "string", Description: "What was eaten", Required: true},
				{Name: "calories", Type: "integer", Description: "Estimated calories", Required: true},
				{Name: "protein_g", Type: "number", Description: "Protein in grams", Required: false},
				{Name: "carbs_g", Type: "number", Description: "Carbs in grams", Required: false},
				{Name: "fats_g", Type: "number", Description: "Fats in grams", Required: false},
			},
			Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
				now := usercontext.Now()
				entry := store.NutritionLog{
					Description: argString(args, "description", ""),
					Calories:    argInt(args, "calories", 0),
					ProteinG:    argFloat(args, "protein_g", 0),
					CarbsG:      argFloat(args, "carbs_g", 0),
					FatsG:       argFloat(args, "fats_g", 0),
					CreatedAt:   usercontext.LogTimestamp(now),
				}

				if _, err := st.AddNutritionLog(ctx, userID, entry); err != nil {
					return nil, fmt.Errorf("failed to log meal: %w", err)
				}

				goalDate := usercontext.FunctionalDate(now)
				if err := st.AddConsumption(ctx, userID, goalDate, entry.Calories, entry.ProteinG, entry.CarbsG, entry.FatsG); err != nil {
					return nil, fmt.Errorf("failed to update daily totals: %w", err)
				}

				totals, err := st.GetDailyTotals(ctx, userID, goalDate)
				if err != nil {
					return map[string]any{"status": "logged"}, nil
				}
				return map[string]any{"status": "logged", "daily_totals": totals}, nil
			},
		},
		{
			Name:        "get_nutrition_history",
			Description: "Get logged meals from the last N days.",
			Parameters: []Parameter{
				{Name: "days", Type: "integer", Description: "How many days back to look", Required: false, Default: 7},
			},
			Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
				days := argInt(args, "days", 7)
				logs, err := st.NutritionHistory(ctx, userID, days)
				if err != nil {
					return nil, fmt.Errorf("failed to load nutrition history: %w", err)
				}
				if len(logs) == 0 {
					return "No meals logged in that period.", nil
				}
				return logs, nil
			},
		},
		{
			Name:        "calculate_macros",
			Description: "Calculate BMR, TDEE, and a macro split using Mifflin-St Jeor.",
			Parameters: []Parameter{
				{Name: "sex", Type: "string", Description: "male or female", Required: true},
				{Name: "age", Type: "integer", Description: "Age in years", Required: true},
				{Name: "height_cm", Type: "number", Description: "Height in centimeters", Required: true},
				{Name: "weight_kg", Type: "number", Description: "Weight in kilograms", Required: true},
				{Name: "activity_level", Type: "string", Description: "sedentary, light, moderate, active, or very_active", Required: false, Default: "moderate"},
				{Name: "goal", Type: "string", Description: "cut, maintain, or bulk", Required: false, Default: "maintain"},
			},
			Handler: func(ctx context.Context, userID string, args map[string]any) (any, error) {
				return calculateMacros(
					argString(args, "sex", "male"),
					argInt(args, "age", 0),
					argFloat(args, "height_cm", 0),
					argFloat(args, "weight_kg", 0),
					argString(args, "activity_level", "moderate"),
					argString(args, "goal", "maintain"),
				)
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

var activityFactors = map[string]float64{
	"sedentary":   1.2,
	"light":       1.375,
	"moderate":    1.55,
	"active":      1.725,
	"very_active": 1.9,
}

// calculateMacros is pure; it never touches the store.
func calculateMacros(sex string, age int, heightCm, weightKg float64, activity, goal string) (map[string]any, error) {
	if age <= 0 || heightCm <= 0 || weightKg <= 0 {
		return nil, fmt.Errorf("age, height_cm, and weight_kg must be positive")
	}

	bmr := 10*weightKg + 6.25*heightCm - 5*float64(age)
	switch sex {
	case "male":
		bmr += 5
	case "female":
		bmr -= 161
	default:
		return nil, fmt.Errorf("sex must be male or female")
	}

	factor, ok := activityFactors[activity]
	if !ok {
		return nil, fmt.Errorf("unknown activity level: %s", activity)
	}
	tdee := bmr * factor

	target := tdee
	switch goal {
	case "cut":
		target -= 500
	case "bulk":
		target += 300
	case "maintain":
	default:
		return nil, fmt.Errorf("goal must be cut, maintain, or bulk")
	}

	proteinG := 1.8 * weightKg
	fatsG := target * 0.25 / 9
	carbsG := (target - proteinG*4 - fatsG*9) / 4

	return map[string]any{
		"bmr":             math.Round(bmr),
		"tdee":            math.Round(tdee),
		"target_calories": math.Round(target),
		"protein_g":       math.Round(proteinG),
		"fats_g":          math.Round(fatsG),
		"carbs_g":         math.Round(carbsG),
	}, nil
}
