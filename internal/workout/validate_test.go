package workout

import (
	"testing"

	"github.com/tbaldin/ferro/internal/ferr"
)

func TestValidate_NilParsed(t *testing.T) {
	if err := Validate(nil); !ferr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidate_RepsRequired(t *testing.T) {
	p := &Parsed{Resistance: []ResistanceEntry{
		{Name: "supino reto", WeightsKg: []float64{60}},
	}}
	if err := Validate(p); !ferr.IsValidation(err) {
		t.Fatalf("expected validation error for missing reps, got %v", err)
	}
}

func TestValidate_WeightsRequiredForLoaded(t *testing.T) {
	p := &Parsed{Resistance: []ResistanceEntry{
		{Name: "supino reto", Reps: []int{10, 8}},
	}}
	if err := Validate(p); !ferr.IsValidation(err) {
		t.Fatalf("expected validation error for missing weights, got %v", err)
	}
}

func TestValidate_IsometricSynthesizesWeights(t *testing.T) {
	p := &Parsed{Resistance: []ResistanceEntry{
		{Name: "prancha", Reps: []int{60, 60, 45}},
	}}
	if err := Validate(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := p.Resistance[0]
	if len(e.WeightsKg) != 3 {
		t.Fatalf("len(WeightsKg) = %d, want 3", len(e.WeightsKg))
	}
	for i, w := range e.WeightsKg {
		if w != 0 {
			t.Errorf("WeightsKg[%d] = %v, want 0", i, w)
		}
	}
	if e.Sets != 3 {
		t.Errorf("Sets = %d, want 3", e.Sets)
	}
}

func TestValidate_ExplicitIsometricType(t *testing.T) {
	p := &Parsed{Resistance: []ResistanceEntry{
		{Name: "hold estranho", ExerciseType: "isometric", Reps: []int{30}},
	}}
	if err := Validate(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Resistance[0].WeightsKg) != 1 {
		t.Errorf("expected synthesized weights for explicit isometric type")
	}
}

func TestValidate_LengthMismatch(t *testing.T) {
	p := &Parsed{Resistance: []ResistanceEntry{
		{Name: "supino reto", Reps: []int{10, 8, 6}, WeightsKg: []float64{60, 65}},
	}}
	if err := Validate(p); !ferr.IsValidation(err) {
		t.Fatalf("expected validation error for length mismatch, got %v", err)
	}
}

func TestValidate_NegativeValues(t *testing.T) {
	cases := []struct {
		name string
		p    *Parsed
	}{
		{"negative rep", &Parsed{Resistance: []ResistanceEntry{
			{Name: "supino", Reps: []int{-1}, WeightsKg: []float64{60}},
		}}},
		{"negative weight", &Parsed{Resistance: []ResistanceEntry{
			{Name: "supino", Reps: []int{10}, WeightsKg: []float64{-5}},
		}}},
		{"negative duration", &Parsed{Aerobic: []AerobicEntry{
			{Name: "corrida", DurationMinutes: -10},
		}}},
	}
	for _, tc := range cases {
		if err := Validate(tc.p); !ferr.IsValidation(err) {
			t.Errorf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestValidate_SetsOverridden(t *testing.T) {
	p := &Parsed{Resistance: []ResistanceEntry{
		{Name: "agachamento", Sets: 5, Reps: []int{10, 10}, WeightsKg: []float64{80, 80}},
	}}
	if err := Validate(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Resistance[0].Sets != 2 {
		t.Errorf("Sets = %d, want 2 (inferred from reps)", p.Resistance[0].Sets)
	}
}

func TestIsIsometric(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Prancha frontal", true},
		{"plank lateral", true},
		{"Ponte de gluteo", true},
		{"wall sit", true},
		{"Supino reto", false},
		{"Agachamento livre", false},
	}
	for _, tt := range tests {
		if got := IsIsometric(tt.name); got != tt.want {
			t.Errorf("IsIsometric(%q) = %t, want %t", tt.name, got, tt.want)
		}
	}
}
