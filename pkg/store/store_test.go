package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{
		Path:   filepath.Join(t.TempDir(), "test.db"),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{Logger: zerolog.Nop()})
	assert.Error(t, err)
}

func TestProfile_UpsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := Profile{
		UserID:        "u1",
		Name:          "Amr",
		Goal:          "cut",
		Language:      "ar",
		Age:           30,
		HeightCm:      178,
		WeightKg:      82,
		CalorieTarget: 2200,
		WorkoutTarget: 4,
	}
	require.NoError(t, s.UpsertProfile(ctx, p))

	got, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	// Update overwrites
	p.WeightKg = 80
	require.NoError(t, s.UpsertProfile(ctx, p))
	got, err = s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 80.0, got.WeightKg)

	assert.Equal(t, "ar", s.GetLanguage(ctx, "u1"))
	assert.Equal(t, "en", s.GetLanguage(ctx, "missing"))
}

func TestProfile_MissingUser(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetProfile(context.Background(), "nobody")
	assert.Error(t, err)
}

func TestDailyTotals_EmptyDayIsZero(t *testing.T) {
	s := newTestStore(t)

	totals, err := s.GetDailyTotals(context.Background(), "u1", "2026-08-28")
	require.NoError(t, err)
	assert.Zero(t, totals.Calories)
	assert.False(t, totals.CalorieTargetMet)
}

func TestDailyTotals_ConsumptionAccumulates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertProfile(ctx, Profile{UserID: "u1", CalorieTarget: 1000}))

	require.NoError(t, s.AddConsumption(ctx, "u1", "2026-08-28", 600, 40, 50, 20))
	totals, err := s.GetDailyTotals(ctx, "u1", "2026-08-28")
	require.NoError(t, err)
	assert.Equal(t, 600, totals.Calories)
	assert.False(t, totals.CalorieTargetMet)

	require.NoError(t, s.AddConsumption(ctx, "u1", "2026-08-28", 500, 30, 10, 15))
	totals, err = s.GetDailyTotals(ctx, "u1", "2026-08-28")
	require.NoError(t, err)
	assert.Equal(t, 1100, totals.Calories)
	assert.Equal(t, 70.0, totals.ProteinG)
	assert.True(t, totals.CalorieTargetMet)
}

func TestDailyTotals_WorkoutFlag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddWorkoutCompleted(ctx, "u1", "2026-08-28"))
	totals, err := s.GetDailyTotals(ctx, "u1", "2026-08-28")
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Workouts)
	assert.True(t, totals.WorkoutTargetMet)
}

func TestNotes_Lifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id1, err := s.AddNote(ctx, "u1", "Fasting for Ramadan")
	require.NoError(t, err)
	_, err = s.AddNote(ctx, "u1", "Sick with flu")
	require.NoError(t, err)
	_, err = s.AddNote(ctx, "u2", "Other user note")
	require.NoError(t, err)

	notes, err := s.ActiveNotes(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "Fasting for Ramadan", notes[0].Content)
	assert.NotNil(t, notes[0].CreatedAt)

	require.NoError(t, s.ClearNote(ctx, "u1", id1))
	notes, err = s.ActiveNotes(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, notes, 1)

	cleared, err := s.ClearAllNotes(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, cleared)

	assert.Error(t, s.ClearNote(ctx, "u1", "missing-id"))
}

func TestEquipment_AddIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddEquipment(ctx, "u1", "barbell"))
	require.NoError(t, s.AddEquipment(ctx, "u1", "barbell"))
	require.NoError(t, s.AddEquipment(ctx, "u1", "dumbbells"))

	names, err := s.Equipment(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"barbell", "dumbbells"}, names)
}

func TestStrengthRecords_OnlyHigherWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	isPR, err := s.UpsertStrengthRecord(ctx, "u1", "deadlift", 140)
	require.NoError(t, err)
	assert.True(t, isPR)

	// Lower weight does not replace the record
	isPR, err = s.UpsertStrengthRecord(ctx, "u1", "deadlift", 120)
	require.NoError(t, err)
	assert.False(t, isPR)

	isPR, err = s.UpsertStrengthRecord(ctx, "u1", "deadlift", 150)
	require.NoError(t, err)
	assert.True(t, isPR)

	records, err := s.StrengthRecords(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 150.0, records[0].WeightKg)
}

func TestWorkoutPlan_OrderPreserved(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	plan := []PlanDay{
		{DayName: "Saturday", Exercises: []string{"squat", "bench"}},
		{DayName: "Monday", Exercises: []string{"deadlift"}},
		{DayName: "Wednesday", Exercises: []string{"ohp", "rows"}},
	}
	require.NoError(t, s.SetWorkoutPlan(ctx, "u1", plan))

	got, err := s.WorkoutPlan(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, plan, got)

	// Replacing drops the old days
	require.NoError(t, s.SetWorkoutPlan(ctx, "u1", plan[:1]))
	got, err = s.WorkoutPlan(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestLogs_NutritionAndWorkout(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AddNutritionLog(ctx, "u1", NutritionLog{Description: "chicken and rice", Calories: 650, ProteinG: 45})
	require.NoError(t, err)

	meals, err := s.NutritionHistory(ctx, "u1", 7)
	require.NoError(t, err)
	require.Len(t, meals, 1)
	assert.Equal(t, "chicken and rice", meals[0].Description)

	_, err = s.AddWorkoutLog(ctx, "u1", WorkoutLog{Description: "push day", DurationMin: 60})
	require.NoError(t, err)

	workouts, err := s.WorkoutHistory(ctx, "u1", 7)
	require.NoError(t, err)
	require.Len(t, workouts, 1)
	assert.Equal(t, 60, workouts[0].DurationMin)
}

func TestSleepLogs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AddSleepLog(ctx, "u1", SleepLog{SleepDate: "2026-08-27", Hours: 7.5, Quality: "good"})
	require.NoError(t, err)

	has, err := s.HasSleepLog(ctx, "u1", "2026-08-27")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = s.HasSleepLog(ctx, "u1", "2026-08-28")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestListUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertProfile(ctx, Profile{UserID: "b"}))
	require.NoError(t, s.UpsertProfile(ctx, Profile{UserID: "a"}))

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, users)
}
