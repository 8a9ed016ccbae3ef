package usercontext

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/amr/nutrisync/pkg/store"
)

// Snapshot is everything the model needs to know about one user at the
// start of a turn. Each facet has a safe zero value so a partially
// populated snapshot is still usable.
type Snapshot struct {
	UserID          string
	Profile         store.Profile
	DailyTotals     store.DailyTotals
	ActiveNotes     []store.Note
	Equipment       []string
	StrengthRecords []store.StrengthRecord
	WorkoutPlan     []store.PlanDay
	CurrentTime     string
}

// StateMap renders every facet to the string form the instruction
// template substitutes. Keys match the template placeholders.
func (s *Snapshot) StateMap() map[string]string {
	return map[string]string{
		"user_profile":     s.renderProfile(),
		"daily_totals":     s.renderTotals(),
		"active_notes":     s.renderNotes(),
		"equipment":        s.renderEquipment(),
		"strength_records": s.renderStrength(),
		"workout_plan":     s.renderPlan(),
		"current_time":     s.CurrentTime,
	}
}

func (s *Snapshot) renderProfile() string {
	if s.Profile.UserID == "" {
		return "No profile on record yet."
	}
	b, err := json.Marshal(s.Profile)
	if err != nil {
		return "No profile on record yet."
	}
	return string(b)
}

func (s *Snapshot) renderTotals() string {
	b, err := json.Marshal(s.DailyTotals)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func (s *Snapshot) renderNotes() string {
	if len(s.ActiveNotes) == 0 {
		return "None."
	}
	var sb strings.Builder
	for _, n := range s.ActiveNotes {
		if n.CreatedAt != nil {
			fmt.Fprintf(&sb, "- %s (Added: %s)\n", n.Content, n.CreatedAt.In(cairo()).Format("2006-01-02 15:04"))
		} else {
			fmt.Fprintf(&sb, "- %s\n", n.Content)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (s *Snapshot) renderEquipment() string {
	if len(s.Equipment) == 0 {
		return "None recorded."
	}
	return strings.Join(s.Equipment, ", ")
}

func (s *Snapshot) renderStrength() string {
	if len(s.StrengthRecords) == 0 {
		return "None recorded."
	}
	var sb strings.Builder
	for _, r := range s.StrengthRecords {
		fmt.Fprintf(&sb, "- %s: %.1fkg\n", r.Exercise, r.WeightKg)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (s *Snapshot) renderPlan() string {
	if len(s.WorkoutPlan) == 0 {
		return "No plan set."
	}
	var sb strings.Builder
	for _, d := range s.WorkoutPlan {
		fmt.Fprintf(&sb, "%s: %s\n", d.DayName, strings.Join(d.Exercises, ", "))
	}
	return strings.TrimRight(sb.String(), "\n")
}
