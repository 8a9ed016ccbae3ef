package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amr/nutrisync/pkg/store"
	"github.com/amr/nutrisync/pkg/usercontext"
)

func newToolStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(store.Config{
		Path:   filepath.Join(t.TempDir(), "tools.db"),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestLogMealUpdatesTotals(t *testing.T) {
	st := newToolStore(t)
	r := NewRegistry(zerolog.Nop())
	require.NoError(t, RegisterNutritionTools(r, st))
	ctx := context.Background()

	out, err := r.Execute(ctx, "u1", "log_meal", map[string]any{
		"description": "3 eggs and toast",
		"calories":    float64(420),
		"protein_g":   float64(22),
	})
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "logged", result["status"])

	totals, err := st.GetDailyTotals(ctx, "u1", usercontext.FunctionalDate(usercontext.Now()))
	require.NoError(t, err)
	assert.Equal(t, 420, totals.Calories)
	assert.InDelta(t, 22, totals.ProteinG, 0.01)
}

func TestGetNutritionHistoryEmpty(t *testing.T) {
	st := newToolStore(t)
	r := NewRegistry(zerolog.Nop())
	require.NoError(t, RegisterNutritionTools(r, st))

	out, err := r.Execute(context.Background(), "u1", "get_nutrition_history", map[string]any{"days": float64(7)})
	require.NoError(t, err)
	assert.Equal(t, "No meals logged in that period.", out)
}

func TestCalculateMacros(t *testing.T) {
	// 30yo male, 180cm, 80kg: BMR = 800 + 1125 - 150 + 5 = 1780.
	got, err := calculateMacros("male", 30, 180, 80, "moderate", "maintain")
	require.NoError(t, err)
	assert.Equal(t, float64(1780), got["bmr"])
	assert.Equal(t, float64(2759), got["tdee"])
	assert.Equal(t, got["tdee"], got["target_calories"])
	assert.Equal(t, float64(144), got["protein_g"])

	cut, err := calculateMacros("female", 25, 165, 60, "light", "cut")
	require.NoError(t, err)
	assert.Less(t, cut["target_calories"], cut["tdee"])
}

func TestCalculateMacrosValidation(t *testing.T) {
	_, err := calculateMacros("male", 0, 180, 80, "moderate", "maintain")
	assert.Error(t, err)

	_, err = calculateMacros("other", 30, 180, 80, "moderate", "maintain")
	assert.Error(t, err)

	_, err = calculateMacros("male", 30, 180, 80, "extreme", "maintain")
	assert.Error(t, err)

	_, err = calculateMacros("male", 30, 180, 80, "moderate", "shred")
	assert.Error(t, err)
}
