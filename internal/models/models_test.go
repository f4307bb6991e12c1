package models

import (
	"reflect"
	"testing"
	"time"
)

func TestStartedAt(t *testing.T) {
	s := WorkoutSession{
		Date:      time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		StartTime: time.Date(2024, 6, 10, 14, 30, 15, 0, time.UTC),
	}
	want := time.Date(2024, 6, 10, 14, 30, 15, 0, time.UTC)
	if got := s.StartedAt(); !got.Equal(want) {
		t.Errorf("StartedAt = %v, want %v", got, want)
	}

	// The date column wins over whatever date rode along on the time column.
	s.StartTime = time.Date(2020, 1, 1, 9, 0, 0, 0, time.UTC)
	want = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	if got := s.StartedAt(); !got.Equal(want) {
		t.Errorf("StartedAt = %v, want %v", got, want)
	}
}

func TestRepsAndWeightsRoundTrip(t *testing.T) {
	w := WorkoutExercise{
		Reps:      IntsJSON([]int{12, 10, 8}),
		WeightsKg: FloatsJSON([]float64{40, 50, 62.5}),
	}
	if got := w.RepsValues(); !reflect.DeepEqual(got, []int{12, 10, 8}) {
		t.Errorf("RepsValues = %v, want [12 10 8]", got)
	}
	if got := w.WeightValues(); !reflect.DeepEqual(got, []float64{40, 50, 62.5}) {
		t.Errorf("WeightValues = %v, want [40 50 62.5]", got)
	}
}

func TestRepsValues_Malformed(t *testing.T) {
	w := WorkoutExercise{Reps: "not json", WeightsKg: "{"}
	if got := w.RepsValues(); got != nil {
		t.Errorf("RepsValues = %v, want nil", got)
	}
	if got := w.WeightValues(); got != nil {
		t.Errorf("WeightValues = %v, want nil", got)
	}
}
