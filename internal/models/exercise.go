package models

import "encoding/json"

// Exercise type values for the shared catalog.
const (
	TypeResistance = "resistance"
	TypeAerobic    = "aerobic"
)

// Exercise is an entry in the shared exercise catalog, keyed by lower-cased
// trimmed name so that "Supino Reto" and "supino reto" resolve to one row.
type Exercise struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"size:100;not null;uniqueIndex:idx_exercise_name_type"`
	Type        string `gorm:"size:16;not null;uniqueIndex:idx_exercise_name_type"`
	MuscleGroup string `gorm:"size:50"`
	Equipment   string `gorm:"size:50"`
	Description string `gorm:"type:text"`
}

// WorkoutExercise is one resistance exercise performed within a session.
// Reps and WeightsKg are JSON arrays with one element per set.
type WorkoutExercise struct {
	ID                  uint   `gorm:"primaryKey;autoIncrement"`
	SessionID           uint   `gorm:"not null;index"`
	ExerciseID          uint   `gorm:"index"`
	OrderInWorkout      int    `gorm:"not null"`
	Sets                int
	Reps                string `gorm:"type:json"` // e.g. [12, 10, 8]
	WeightsKg           string `gorm:"type:json"` // e.g. [40, 50, 60]
	RestSeconds         *int
	PerceivedDifficulty *int // RPE 1-10
	Notes               string `gorm:"type:text"`

	Exercise Exercise `gorm:"foreignKey:ExerciseID"`
}

// AerobicExercise is one aerobic exercise performed within a session.
// Aerobic order is not tracked.
type AerobicExercise struct {
	ID              uint `gorm:"primaryKey;autoIncrement"`
	SessionID       uint `gorm:"not null;index"`
	ExerciseID      uint `gorm:"index"`
	DurationMinutes float64
	DistanceKm      *float64
	AvgHeartRate    *int
	CaloriesBurned  *int
	IntensityLevel  string `gorm:"size:20"` // low, moderate, high, hiit
	Notes           string `gorm:"type:text"`

	Exercise Exercise `gorm:"foreignKey:ExerciseID"`
}

// IntsJSON marshals a per-set integer sequence into its JSON column form.
func IntsJSON(vals []int) string {
	data, err := json.Marshal(vals)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// FloatsJSON marshals a per-set weight sequence into its JSON column form.
func FloatsJSON(vals []float64) string {
	data, err := json.Marshal(vals)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// RepsValues decodes the JSON reps column. Returns nil on malformed data.
func (w *WorkoutExercise) RepsValues() []int {
	var vals []int
	if err := json.Unmarshal([]byte(w.Reps), &vals); err != nil {
		return nil
	}
	return vals
}

// WeightValues decodes the JSON weights column. Returns nil on malformed data.
func (w *WorkoutExercise) WeightValues() []float64 {
	var vals []float64
	if err := json.Unmarshal([]byte(w.WeightsKg), &vals); err != nil {
		return nil
	}
	return vals
}
