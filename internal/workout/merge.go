package workout

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/tbaldin/ferro/internal/ferr"
	"github.com/tbaldin/ferro/internal/models"
	"github.com/tbaldin/ferro/internal/session"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service attaches parsed exercises to existing sessions and serves
// session-level queries. It never decides session windowing; that belongs
// to the session manager.
type Service struct {
	db    *gorm.DB
	clock session.Clock
}

// ServiceOpts holds parameters for creating a Service.
type ServiceOpts struct {
	DB    *gorm.DB
	Clock session.Clock // defaults to SystemClock
}

// NewService creates a Service.
func NewService(opts ServiceOpts) (*Service, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("workout: service: db is required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = session.SystemClock()
	}
	return &Service{db: opts.DB, clock: clock}, nil
}

// AddExercises appends the parsed exercises to an existing session without
// disturbing data already recorded there. Session-level scalars follow
// first-writer-wins; notes are appended; resistance ordering continues
// from the session's current exercise count. Everything commits in one
// transaction.
//
// Returns false (with nil error) when the session does not exist — a race
// the caller should report or retry, not crash on.
func (s *Service) AddExercises(sessionID uint, parsed *Parsed, userID string) (bool, error) {
	if parsed == nil {
		return false, ferr.Validation("parsed_data", "workout data required")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, ferr.Validation("user_id", "user id required")
	}

	missing := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var ws models.WorkoutSession
		err := tx.First(&ws, sessionID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			missing = true
			return nil
		}
		if err != nil {
			return err
		}
		if ws.UserID != userID {
			return ferr.Validation("user_id", "session belongs to another user")
		}

		if err := s.applySessionScalars(tx, &ws, parsed); err != nil {
			return err
		}

		var existing int64
		err = tx.Model(&models.WorkoutExercise{}).
			Where("session_id = ?", sessionID).
			Count(&existing).Error
		if err != nil {
			return err
		}

		order := int(existing)
		for i := range parsed.Resistance {
			entry := &parsed.Resistance[i]
			name := normalizeName(entry.Name)
			if name == "" {
				continue
			}
			catalog, err := s.catalogEntry(tx, name, models.TypeResistance)
			if err != nil {
				return err
			}
			order++
			row := models.WorkoutExercise{
				SessionID:           sessionID,
				ExerciseID:          catalog.ID,
				OrderInWorkout:      order,
				Sets:                entry.Sets,
				Reps:                models.IntsJSON(entry.Reps),
				WeightsKg:           models.FloatsJSON(entry.WeightsKg),
				RestSeconds:         entry.RestSeconds,
				PerceivedDifficulty: entry.PerceivedDifficulty,
				Notes:               entry.Notes,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}

		for i := range parsed.Aerobic {
			entry := &parsed.Aerobic[i]
			name := normalizeName(entry.Name)
			if name == "" {
				continue
			}
			catalog, err := s.catalogEntry(tx, name, models.TypeAerobic)
			if err != nil {
				return err
			}
			row := models.AerobicExercise{
				SessionID:       sessionID,
				ExerciseID:      catalog.ID,
				DurationMinutes: entry.DurationMinutes,
				DistanceKm:      entry.DistanceKm,
				CaloriesBurned:  entry.CaloriesBurned,
				IntensityLevel:  entry.IntensityLevel,
				Notes:           entry.Notes,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if ferr.IsValidation(err) {
			return false, err
		}
		return false, ferr.Database("workout: add exercises", err)
	}
	if missing {
		log.Printf("workout: session %d not found, nothing merged", sessionID)
		return false, nil
	}

	log.Printf("workout: merged %d resistance + %d aerobic exercises into session %d",
		len(parsed.Resistance), len(parsed.Aerobic), sessionID)
	return true, nil
}

// applySessionScalars sets session-level fields from the parse. Body weight
// and energy level are first-writer-wins; notes accumulate.
func (s *Service) applySessionScalars(tx *gorm.DB, ws *models.WorkoutSession, parsed *Parsed) error {
	updates := map[string]interface{}{}
	setIfAbsent(updates, "body_weight_kg", ws.BodyWeightKg, parsed.BodyWeightKg)
	setIfAbsent(updates, "energy_level", ws.EnergyLevel, parsed.EnergyLevel)

	if parsed.Notes != "" {
		notes := parsed.Notes
		if ws.Notes != "" {
			notes = ws.Notes + "\n" + parsed.Notes
		}
		updates["notes"] = notes
	}

	if len(updates) == 0 {
		return nil
	}
	return tx.Model(&models.WorkoutSession{}).
		Where("id = ?", ws.ID).
		Updates(updates).Error
}

// setIfAbsent records a first-writer-wins update: the incoming value is
// applied only when the session holds no value yet. Later audios in the
// same session can never overwrite it.
func setIfAbsent[T any](updates map[string]interface{}, column string, current, incoming *T) {
	if current == nil && incoming != nil {
		updates[column] = *incoming
	}
}

// catalogEntry resolves an exercise name to its catalog row, creating it
// when absent. The insert is an idempotent upsert-by-name so concurrent
// merges for different users never create duplicate catalog entries.
func (s *Service) catalogEntry(tx *gorm.DB, name, exerciseType string) (*models.Exercise, error) {
	entry := models.Exercise{
		Name:        name,
		Type:        exerciseType,
		MuscleGroup: InferMuscleGroup(name, exerciseType),
		Equipment:   InferEquipment(name, exerciseType),
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}, {Name: "type"}},
		DoNothing: true,
	}).Create(&entry).Error
	if err != nil {
		return nil, fmt.Errorf("upsert exercise %q: %w", name, err)
	}

	// Re-read to get the canonical row whether or not the insert won.
	var out models.Exercise
	err = tx.Where("name = ? AND type = ?", name, exerciseType).First(&out).Error
	if err != nil {
		return nil, fmt.Errorf("load exercise %q: %w", name, err)
	}
	return &out, nil
}
