// Package export renders a user's workout history as CSV or JSON.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tbaldin/ferro/internal/ferr"
	"github.com/tbaldin/ferro/internal/models"
	"gorm.io/gorm"
)

// Service renders workout history exports.
type Service struct {
	db *gorm.DB
}

// NewService creates a Service.
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("export: db is required")
	}
	return &Service{db: db}, nil
}

// csvHeader is the column layout for CSV exports. One row per exercise entry.
var csvHeader = []string{
	"date", "session_status", "exercise", "type", "muscle_group",
	"sets", "reps", "weights_kg", "duration_minutes", "distance_km", "notes",
}

// CSV renders the user's finished and active sessions as a CSV document,
// one row per exercise entry, oldest session first.
func (s *Service) CSV(userID string) ([]byte, error) {
	sessions, err := s.load(userID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("export: write header: %w", err)
	}

	for _, sess := range sessions {
		date := sess.Date.Format("2006-01-02")
		for _, ex := range sess.Exercises {
			row := []string{
				date, sess.Status, ex.Exercise.Name, ex.Exercise.Type, ex.Exercise.MuscleGroup,
				strconv.Itoa(ex.Sets), joinInts(ex.RepsValues()), joinFloats(ex.WeightValues()),
				"", "", ex.Notes,
			}
			if err := w.Write(row); err != nil {
				return nil, fmt.Errorf("export: write row: %w", err)
			}
		}
		for _, ae := range sess.Aerobics {
			row := []string{
				date, sess.Status, ae.Exercise.Name, ae.Exercise.Type, ae.Exercise.MuscleGroup,
				"", "", "", formatFloat(ae.DurationMinutes), formatFloatPtr(ae.DistanceKm), ae.Notes,
			}
			if err := w.Write(row); err != nil {
				return nil, fmt.Errorf("export: write row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export: flush: %w", err)
	}
	return buf.Bytes(), nil
}

// jsonSession is the export shape for a single session.
type jsonSession struct {
	Date            string         `json:"date"`
	Status          string         `json:"status"`
	DurationMinutes *int           `json:"duration_minutes,omitempty"`
	BodyWeightKg    *float64       `json:"body_weight_kg,omitempty"`
	EnergyLevel     *int           `json:"energy_level,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	AudioCount      int            `json:"audio_count"`
	Exercises       []jsonExercise `json:"exercises"`
	Aerobics        []jsonAerobic  `json:"aerobics"`
}

type jsonExercise struct {
	Name        string    `json:"name"`
	MuscleGroup string    `json:"muscle_group,omitempty"`
	Order       int       `json:"order"`
	Sets        int       `json:"sets"`
	Reps        []int     `json:"reps"`
	WeightsKg   []float64 `json:"weights_kg"`
	Notes       string    `json:"notes,omitempty"`
}

type jsonAerobic struct {
	Name            string   `json:"name"`
	DurationMinutes float64  `json:"duration_minutes"`
	DistanceKm      *float64 `json:"distance_km,omitempty"`
	IntensityLevel  string   `json:"intensity_level,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

// JSON renders the user's sessions as an indented JSON document.
func (s *Service) JSON(userID string) ([]byte, error) {
	sessions, err := s.load(userID)
	if err != nil {
		return nil, err
	}

	out := make([]jsonSession, 0, len(sessions))
	for _, sess := range sessions {
		js := jsonSession{
			Date:            sess.Date.Format("2006-01-02"),
			Status:          sess.Status,
			DurationMinutes: sess.DurationMinutes,
			BodyWeightKg:    sess.BodyWeightKg,
			EnergyLevel:     sess.EnergyLevel,
			Notes:           sess.Notes,
			AudioCount:      sess.AudioCount,
			Exercises:       []jsonExercise{},
			Aerobics:        []jsonAerobic{},
		}
		for _, ex := range sess.Exercises {
			js.Exercises = append(js.Exercises, jsonExercise{
				Name:        ex.Exercise.Name,
				MuscleGroup: ex.Exercise.MuscleGroup,
				Order:       ex.OrderInWorkout,
				Sets:        ex.Sets,
				Reps:        ex.RepsValues(),
				WeightsKg:   ex.WeightValues(),
				Notes:       ex.Notes,
			})
		}
		for _, ae := range sess.Aerobics {
			js.Aerobics = append(js.Aerobics, jsonAerobic{
				Name:            ae.Exercise.Name,
				DurationMinutes: ae.DurationMinutes,
				DistanceKm:      ae.DistanceKm,
				IntensityLevel:  ae.IntensityLevel,
				Notes:           ae.Notes,
			})
		}
		out = append(out, js)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: marshal: %w", err)
	}
	return data, nil
}

// Filename builds an export filename like "workouts_u123_2024-06-01.csv".
func Filename(userID, format string) string {
	return fmt.Sprintf("workouts_%s_%s.%s", userID, time.Now().Format("2006-01-02"), format)
}

// load fetches the user's sessions with exercises, oldest first.
func (s *Service) load(userID string) ([]models.WorkoutSession, error) {
	var sessions []models.WorkoutSession
	err := s.db.
		Preload("Exercises", func(db *gorm.DB) *gorm.DB { return db.Order("order_in_workout") }).
		Preload("Exercises.Exercise").
		Preload("Aerobics").
		Preload("Aerobics.Exercise").
		Where("user_id = ?", userID).
		Order("date, start_time").
		Find(&sessions).Error
	if err != nil {
		return nil, ferr.Database("export: load sessions", err)
	}
	return sessions, nil
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, "|")
}

func joinFloats(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, "|")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
