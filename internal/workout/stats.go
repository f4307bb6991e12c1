package workout

import (
	"errors"
	"log"
	"time"

	"github.com/tbaldin/ferro/internal/ferr"
	"github.com/tbaldin/ferro/internal/models"
	"gorm.io/gorm"
)

// Status summarizes a user's most recent session for the status command.
type Status struct {
	HasSession      bool
	Session         *models.WorkoutSession
	Active          bool
	MinutesElapsed  int
	ResistanceCount int
	AerobicCount    int
}

// SessionStatus reports the user's most recent session and whether it is
// still inside the given timeout window.
func (s *Service) SessionStatus(userID string, timeout time.Duration) (*Status, error) {
	var ws models.WorkoutSession
	err := s.db.Preload("Exercises").Preload("Aerobics").
		Where("user_id = ?", userID).
		Order("date DESC, start_time DESC").
		First(&ws).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Status{}, nil
	}
	if err != nil {
		return nil, ferr.Database("workout: session status", err)
	}

	now := s.clock.Now()
	elapsed := int(now.Sub(ws.LastUpdate).Minutes())
	return &Status{
		HasSession:      true,
		Session:         &ws,
		Active:          ws.Status == models.StatusActive && now.Sub(ws.LastUpdate) < timeout,
		MinutesElapsed:  elapsed,
		ResistanceCount: len(ws.Exercises),
		AerobicCount:    len(ws.Aerobics),
	}, nil
}

// FinishResult carries the outcome of an explicit session finish.
type FinishResult struct {
	Finished        bool
	Reason          string // set when Finished is false
	SessionID       uint
	DurationMinutes int
	Stats           SessionStats
}

// SessionStats aggregates a finished session's exercise data.
type SessionStats struct {
	AudioCount      int
	ResistanceCount int
	AerobicCount    int
	TotalSets       int
	TotalVolumeKg   float64
	CardioMinutes   float64
}

// Finish explicitly closes a session: computes its duration (handling
// sessions that cross midnight), aggregates stats, and marks it finished.
func (s *Service) Finish(sessionID uint, userID string) (*FinishResult, error) {
	var result *FinishResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var ws models.WorkoutSession
		err := tx.Preload("Exercises").Preload("Aerobics").
			Where("id = ? AND user_id = ?", sessionID, userID).
			First(&ws).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result = &FinishResult{Reason: "session not found"}
			return nil
		}
		if err != nil {
			return err
		}
		if ws.Status != models.StatusActive {
			result = &FinishResult{Reason: "session already " + ws.Status}
			return nil
		}

		now := s.clock.Now()
		start := ws.StartedAt()
		end := now
		// A finish clocked before the start time-of-day means the session
		// crossed midnight.
		if end.Before(start) {
			end = end.AddDate(0, 0, 1)
		}
		duration := int(end.Sub(start).Minutes())
		if duration < 0 {
			duration = 0
		}

		err = tx.Model(&models.WorkoutSession{}).
			Where("id = ?", ws.ID).
			Updates(map[string]interface{}{
				"status":           models.StatusFinished,
				"end_time":         now,
				"duration_minutes": duration,
			}).Error
		if err != nil {
			return err
		}

		result = &FinishResult{
			Finished:        true,
			SessionID:       ws.ID,
			DurationMinutes: duration,
			Stats:           aggregateStats(&ws),
		}
		return nil
	})
	if err != nil {
		return nil, ferr.Database("workout: finish", err)
	}

	if result.Finished {
		log.Printf("workout: session %d finished for user %s (%d min)", sessionID, userID, result.DurationMinutes)
	}
	return result, nil
}

// Stats aggregates the user's most recent session. Returns (nil, nil) when
// the user has no sessions.
func (s *Service) Stats(userID string) (*SessionStats, error) {
	var ws models.WorkoutSession
	err := s.db.Preload("Exercises").Preload("Aerobics").
		Where("user_id = ?", userID).
		Order("date DESC, start_time DESC").
		First(&ws).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, ferr.Database("workout: stats", err)
	}
	stats := aggregateStats(&ws)
	return &stats, nil
}

func aggregateStats(ws *models.WorkoutSession) SessionStats {
	stats := SessionStats{
		AudioCount:      ws.AudioCount,
		ResistanceCount: len(ws.Exercises),
		AerobicCount:    len(ws.Aerobics),
	}
	for i := range ws.Exercises {
		ex := &ws.Exercises[i]
		stats.TotalSets += ex.Sets
		reps := ex.RepsValues()
		for j, w := range ex.WeightValues() {
			if j < len(reps) {
				stats.TotalVolumeKg += w * float64(reps[j])
			}
		}
	}
	for i := range ws.Aerobics {
		stats.CardioMinutes += ws.Aerobics[i].DurationMinutes
	}
	return stats
}
