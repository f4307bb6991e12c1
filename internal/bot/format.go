package bot

import (
	"fmt"
	"strings"

	"github.com/tbaldin/ferro/internal/workout"
)

// formatMergeReply summarizes the exercises just merged into a session.
func formatMergeReply(p *workout.Parsed, reused bool) string {
	var b strings.Builder
	if reused {
		b.WriteString("Added to your current session:\n")
	} else {
		b.WriteString("Started a new session:\n")
	}

	for _, e := range p.Resistance {
		b.WriteString(fmt.Sprintf("• %s — %d sets (%s reps", e.Name, e.Sets, joinIntList(e.Reps)))
		if anyWeight(e.WeightsKg) {
			b.WriteString(fmt.Sprintf(", %s kg", joinFloatList(e.WeightsKg)))
		}
		b.WriteString(")\n")
	}
	for _, e := range p.Aerobic {
		b.WriteString(fmt.Sprintf("• %s — %.0f min", e.Name, e.DurationMinutes))
		if e.DistanceKm != nil {
			b.WriteString(fmt.Sprintf(", %.1f km", *e.DistanceKm))
		}
		b.WriteString("\n")
	}

	if p.BodyWeightKg != nil {
		b.WriteString(fmt.Sprintf("Body weight: %.1f kg\n", *p.BodyWeightKg))
	}
	if p.EnergyLevel != nil {
		b.WriteString(fmt.Sprintf("Energy: %d/10\n", *p.EnergyLevel))
	}

	b.WriteString("\nSend another note to keep logging, or /finish when you're done.")
	return b.String()
}

// formatStatus describes the user's current session state.
func formatStatus(st *workout.Status) string {
	if !st.HasSession {
		return "No workout session yet. Send a voice note to start one."
	}
	if !st.Active {
		return fmt.Sprintf("Your last session on %s is %s. Send a voice note to start a new one.",
			st.Session.Date.Format("Jan 2"), st.Session.Status)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("**Active session** started %s, last note %d min ago\n",
		st.Session.StartedAt().Format("15:04"), st.MinutesElapsed))
	b.WriteString(fmt.Sprintf("Audio notes: %d | Exercises: %d resistance, %d aerobic\n",
		st.Session.AudioCount, st.ResistanceCount, st.AerobicCount))
	b.WriteString("Use /finish to close it out.")
	return b.String()
}

// formatFinish describes the outcome of a /finish command.
func formatFinish(res *workout.FinishResult) string {
	if !res.Finished {
		if res.Reason == "session not found" {
			return "No session to finish. Send a voice note to start one."
		}
		return "Your session is already closed."
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("**Session finished** in %d minutes\n", res.DurationMinutes))
	b.WriteString(formatStats(&res.Stats))
	return b.String()
}

// formatStats renders aggregate numbers for a session.
func formatStats(st *workout.SessionStats) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Exercises: %d resistance, %d aerobic\n", st.ResistanceCount, st.AerobicCount))
	if st.TotalSets > 0 {
		b.WriteString(fmt.Sprintf("Total sets: %d | Volume: %.0f kg\n", st.TotalSets, st.TotalVolumeKg))
	}
	if st.CardioMinutes > 0 {
		b.WriteString(fmt.Sprintf("Cardio: %.0f min\n", st.CardioMinutes))
	}
	b.WriteString(fmt.Sprintf("Audio notes: %d", st.AudioCount))
	return b.String()
}

func joinIntList(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, "/")
}

func joinFloatList(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strings.TrimSuffix(strings.TrimSuffix(fmt.Sprintf("%.1f", v), "0"), ".")
	}
	return strings.Join(parts, "/")
}

func anyWeight(vals []float64) bool {
	for _, v := range vals {
		if v > 0 {
			return true
		}
	}
	return false
}
