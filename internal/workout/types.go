// Package workout attaches parsed exercise data to workout sessions and
// answers session-level questions (status, finish, stats). It consumes the
// structured result of the LLM parse, validated first by Validate.
package workout

import "strings"

// Parsed is the structured workout extracted from one audio's transcript.
type Parsed struct {
	Resistance []ResistanceEntry `json:"resistance_exercises"`
	Aerobic    []AerobicEntry    `json:"aerobic_exercises"`

	// Session-level scalars; first non-nil value wins for the session.
	BodyWeightKg *float64 `json:"body_weight_kg,omitempty"`
	EnergyLevel  *int     `json:"energy_level,omitempty"` // 1-10
	Notes        string   `json:"notes,omitempty"`
}

// ResistanceEntry is one parsed resistance exercise. Reps and WeightsKg
// are per-set sequences of equal length once validated.
type ResistanceEntry struct {
	Name                string    `json:"name"`
	Sets                int       `json:"sets"`
	Reps                []int     `json:"reps"`
	WeightsKg           []float64 `json:"weights_kg"`
	RestSeconds         *int      `json:"rest_seconds,omitempty"`
	PerceivedDifficulty *int      `json:"perceived_difficulty,omitempty"`
	ExerciseType        string    `json:"exercise_type,omitempty"` // "isometric" exempts weights
	Notes               string    `json:"notes,omitempty"`
}

// AerobicEntry is one parsed aerobic exercise.
type AerobicEntry struct {
	Name            string   `json:"name"`
	DurationMinutes float64  `json:"duration_minutes"`
	DistanceKm      *float64 `json:"distance_km,omitempty"`
	IntensityLevel  string   `json:"intensity_level,omitempty"` // low, moderate, high, hiit
	CaloriesBurned  *int     `json:"calories_burned,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

// Empty reports whether the parse produced no exercises at all.
func (p *Parsed) Empty() bool {
	return len(p.Resistance) == 0 && len(p.Aerobic) == 0
}

// normalizeName is the catalog key: lower-cased, trimmed exercise name.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
