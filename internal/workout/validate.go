package workout

import (
	"fmt"
	"strings"

	"github.com/tbaldin/ferro/internal/ferr"
)

// isometricKeywords identifies held-position exercises, which carry time
// under tension instead of external load. Matching is substring-based on
// the lower-cased name.
var isometricKeywords = []string{
	"prancha", "plank",
	"ponte", "bridge",
	"isometria", "isometric",
	"wall sit", "parede",
	"superman",
	"bird dog",
	"hollow body",
	"dead bug",
}

// IsIsometric reports whether the exercise name describes a held-position
// movement that does not require an explicit weight sequence.
func IsIsometric(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range isometricKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Validate checks and repairs a parsed workout in place. Every resistance
// entry must carry a non-empty reps sequence; isometric entries get a
// zero-filled weight sequence synthesized when absent; sets is always
// corrected to the reps length. Any failure rejects the whole parse before
// it reaches the session manager.
func Validate(p *Parsed) error {
	if p == nil {
		return ferr.Validation("parsed_data", "workout data required")
	}
	for i := range p.Resistance {
		if err := validateResistance(&p.Resistance[i]); err != nil {
			return err
		}
	}
	for i := range p.Aerobic {
		if p.Aerobic[i].DurationMinutes < 0 {
			return ferr.Validation("duration_minutes",
				fmt.Sprintf("exercise %q: duration must not be negative", p.Aerobic[i].Name))
		}
	}
	return nil
}

func validateResistance(e *ResistanceEntry) error {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		name = "unnamed exercise"
	}

	if len(e.Reps) == 0 {
		return ferr.Validation("reps",
			fmt.Sprintf("exercise %q: repetitions are required for each set", name))
	}
	for i, rep := range e.Reps {
		if rep < 0 {
			return ferr.Validation("reps",
				fmt.Sprintf("exercise %q: set %d has a negative repetition count", name, i+1))
		}
	}

	isometric := e.ExerciseType == "isometric" || IsIsometric(name)
	if len(e.WeightsKg) == 0 {
		if !isometric {
			return ferr.Validation("weights_kg",
				fmt.Sprintf("exercise %q: weights are required for each set", name))
		}
		e.WeightsKg = make([]float64, len(e.Reps))
	}

	if len(e.WeightsKg) != len(e.Reps) {
		return ferr.Validation("weights_kg",
			fmt.Sprintf("exercise %q: %d reps but %d weights", name, len(e.Reps), len(e.WeightsKg)))
	}
	for i, w := range e.WeightsKg {
		if w < 0 {
			return ferr.Validation("weights_kg",
				fmt.Sprintf("exercise %q: set %d has a negative weight", name, i+1))
		}
	}

	// Sets is always inferred from the reps sequence, overriding any
	// mismatched explicit value.
	e.Sets = len(e.Reps)
	return nil
}
