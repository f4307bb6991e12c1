// Package session implements the workout session state machine: deciding
// whether an incoming audio belongs to the user's in-progress session or
// starts a new one, reconciling stale sessions, and accumulating per-audio
// metadata.
package session

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tbaldin/ferro/internal/ferr"
	"github.com/tbaldin/ferro/internal/models"
	"gorm.io/gorm"
)

// DefaultTimeout is the maximum gap between audios for them to count as
// the same workout session.
const DefaultTimeout = 3 * time.Hour

// Manager owns the session lifecycle for all users. One long-lived
// instance per process; the per-user lock map lives inside it so tests can
// build independent managers without shared state.
type Manager struct {
	db      *gorm.DB
	clock   Clock
	timeout time.Duration
	locks   *lockRegistry
}

// ManagerOpts holds parameters for creating a Manager.
type ManagerOpts struct {
	DB      *gorm.DB
	Clock   Clock         // defaults to SystemClock
	Timeout time.Duration // defaults to DefaultTimeout
}

// NewManager creates a Manager.
func NewManager(opts ManagerOpts) (*Manager, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("session: manager: db is required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Manager{
		db:      opts.DB,
		clock:   clock,
		timeout: timeout,
		locks:   newLockRegistry(),
	}, nil
}

// Timeout returns the configured session timeout.
func (m *Manager) Timeout() time.Duration { return m.timeout }

// GetOrCreate returns the user's current session, creating a new one when
// none exists, the last one is finished or abandoned, or the last one has
// not been updated within the timeout window. The bool is true when a new
// session was created.
//
// A stale-but-active prior session is marked abandoned before the new one
// is created; failure to mark it never blocks creation. Concurrent calls
// for the same user are serialized by the per-user lock, so only one
// goroutine can observe "no active session" and create one.
func (m *Manager) GetOrCreate(userID string) (*models.WorkoutSession, bool, error) {
	normalized := strings.TrimSpace(userID)
	if normalized == "" {
		return nil, false, ferr.Validation("user_id", "user id required")
	}

	// Reclassify every other user's timed-out sessions up front. The
	// calling user's own stale session is handled below under the lock,
	// where it becomes abandoned rather than cleanly finished.
	if _, err := m.sweepExcept(normalized); err != nil {
		return nil, false, err
	}

	lock := m.locks.lockFor(normalized)
	lock.Lock()
	defer lock.Unlock()

	last, err := m.Last(normalized)
	if err != nil {
		return nil, false, err
	}

	now := m.clock.Now()
	if last != nil && last.Status == models.StatusActive && now.Sub(last.LastUpdate) < m.timeout {
		log.Printf("session: reusing session %d for user %s", last.ID, normalized)
		return last, false, nil
	}

	if last != nil && last.Status == models.StatusActive {
		m.markAbandoned(last)
	}

	created := &models.WorkoutSession{
		UserID:     normalized,
		Date:       time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
		StartTime:  now,
		Status:     models.StatusActive,
		AudioCount: 0,
		LastUpdate: now,
	}
	if err := m.db.Create(created).Error; err != nil {
		return nil, false, ferr.Database("session: create", err)
	}
	log.Printf("session: created session %d for user %s", created.ID, normalized)
	return created, true, nil
}

// markAbandoned marks a timed-out session as superseded. Best effort: a
// failure here is logged and must never prevent creating the new session.
func (m *Manager) markAbandoned(s *models.WorkoutSession) {
	deadline := s.StartedAt().Add(m.timeout)
	duration := durationMinutes(s.StartedAt(), deadline)

	result := m.db.Model(&models.WorkoutSession{}).
		Where("id = ? AND status = ?", s.ID, models.StatusActive).
		Updates(map[string]interface{}{
			"status":           models.StatusAbandoned,
			"end_time":         deadline,
			"duration_minutes": duration,
		})
	switch {
	case result.Error != nil:
		log.Printf("session: abandon session %d failed, continuing: %v", s.ID, result.Error)
	case result.RowsAffected == 0:
		log.Printf("session: abandon session %d skipped: no longer active", s.ID)
	default:
		log.Printf("session: session %d abandoned after timeout", s.ID)
	}
}

// UpdateMetadata attaches one audio's bookkeeping to the session: bumps the
// audio counter, appends the ordinal-prefixed transcription, and overwrites
// the most-recently-used processing time and model. Extra named fields that
// exist on the session schema are set directly; unknown names are ignored.
//
// Returns false (with nil error) when sessionID is zero or unknown.
func (m *Manager) UpdateMetadata(sessionID uint, transcription string, processingTime float64, modelUsed string, extra map[string]interface{}) (bool, error) {
	if sessionID == 0 {
		return false, nil
	}

	var s models.WorkoutSession
	err := m.db.First(&s, sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, ferr.Database("session: load for metadata", err)
	}

	ordinal := s.AudioCount + 1
	segment := fmt.Sprintf("--- Audio #%d ---\n%s", ordinal, transcription)
	transcript := segment
	if s.Transcription != "" {
		transcript = s.Transcription + "\n\n" + segment
	}

	updates := map[string]interface{}{
		"audio_count":   ordinal,
		"transcription": transcript,
		"last_update":   m.clock.Now(),
	}
	if processingTime > 0 {
		updates["processing_time_seconds"] = processingTime
	}
	if modelUsed != "" {
		updates["llm_model_used"] = modelUsed
	}
	for name, value := range extra {
		if sessionColumns[name] {
			updates[name] = value
		}
	}

	result := m.db.Model(&models.WorkoutSession{}).
		Where("id = ?", sessionID).
		Updates(updates)
	if result.Error != nil {
		return false, ferr.Database("session: update metadata", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// sessionColumns is the set of WorkoutSession column names that callers may
// set through UpdateMetadata's extra fields.
var sessionColumns = map[string]bool{
	"body_weight_kg":   true,
	"energy_level":     true,
	"notes":            true,
	"end_time":         true,
	"duration_minutes": true,
}

// CleanupStale finds every active session whose last update is older than
// the timeout window and marks it cleanly finished. The recorded duration
// runs from the session's start to its own deadline (start plus timeout),
// so the result does not depend on when the sweep happens to run. Returns
// the number of sessions transitioned; idempotent.
func (m *Manager) CleanupStale() (int, error) {
	return m.sweepExcept("")
}

func (m *Manager) sweepExcept(userID string) (int, error) {
	cutoff := m.clock.Now().Add(-m.timeout)

	var count int
	err := m.db.Transaction(func(tx *gorm.DB) error {
		query := tx.Where("status = ? AND last_update < ?", models.StatusActive, cutoff)
		if userID != "" {
			query = query.Where("user_id <> ?", userID)
		}

		var stale []models.WorkoutSession
		if err := query.Find(&stale).Error; err != nil {
			return fmt.Errorf("find stale: %w", err)
		}

		for i := range stale {
			s := &stale[i]
			deadline := s.StartedAt().Add(m.timeout)
			duration := durationMinutes(s.StartedAt(), deadline)

			err := tx.Model(&models.WorkoutSession{}).
				Where("id = ?", s.ID).
				Updates(map[string]interface{}{
					"status":           models.StatusFinished,
					"end_time":         deadline,
					"duration_minutes": duration,
				}).Error
			if err != nil {
				return fmt.Errorf("finish session %d: %w", s.ID, err)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, ferr.Database("session: cleanup stale", err)
	}

	if count > 0 {
		log.Printf("session: cleaned up %d stale sessions", count)
	}
	return count, nil
}

// BatchFinish marks every listed session that is currently active as
// finished with end time now, regardless of elapsed time. IDs that are
// already terminal or unknown are ignored. Returns the number changed.
func (m *Manager) BatchFinish(sessionIDs []uint) (int, error) {
	if len(sessionIDs) == 0 {
		return 0, nil
	}

	now := m.clock.Now()
	finished := 0
	err := m.db.Transaction(func(tx *gorm.DB) error {
		var active []models.WorkoutSession
		err := tx.Where("id IN ? AND status = ?", sessionIDs, models.StatusActive).
			Find(&active).Error
		if err != nil {
			return err
		}
		// Duration depends on each session's own start, so rows update
		// one at a time.
		for i := range active {
			s := &active[i]
			result := tx.Model(&models.WorkoutSession{}).
				Where("id = ? AND status = ?", s.ID, models.StatusActive).
				Updates(map[string]interface{}{
					"status":           models.StatusFinished,
					"end_time":         now,
					"duration_minutes": durationMinutes(s.StartedAt(), now),
				})
			if result.Error != nil {
				return result.Error
			}
			finished += int(result.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, ferr.Database("session: batch finish", err)
	}
	if finished > 0 {
		log.Printf("session: batch finished %d sessions", finished)
	}
	return finished, nil
}

// Last returns the user's most recent session ordered by calendar date
// then start time, or nil when the user has none.
func (m *Manager) Last(userID string) (*models.WorkoutSession, error) {
	var s models.WorkoutSession
	err := m.db.Where("user_id = ?", userID).
		Order("date DESC, start_time DESC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, ferr.Database("session: last", err)
	}
	return &s, nil
}

// ByID returns the session with the given id, or nil when not found.
// A non-empty userID restricts the lookup to that user's sessions.
func (m *Manager) ByID(sessionID uint, userID string) (*models.WorkoutSession, error) {
	query := m.db.Where("id = ?", sessionID)
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var s models.WorkoutSession
	err := query.First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, ferr.Database("session: by id", err)
	}
	return &s, nil
}

// History returns the user's most recent sessions, newest first. When
// includeActive is false only finished sessions are returned.
func (m *Manager) History(userID string, limit int, includeActive bool) ([]models.WorkoutSession, error) {
	if limit <= 0 {
		limit = 10
	}
	query := m.db.Where("user_id = ?", userID).
		Order("date DESC, start_time DESC").
		Limit(limit)
	if !includeActive {
		query = query.Where("status = ?", models.StatusFinished)
	}

	var sessions []models.WorkoutSession
	if err := query.Find(&sessions).Error; err != nil {
		return nil, ferr.Database("session: history", err)
	}
	return sessions, nil
}

// ActiveCount returns the number of sessions that are active and still
// within their timeout window. Errors are logged and reported as zero so
// health reporting never fails on this.
func (m *Manager) ActiveCount() int64 {
	cutoff := m.clock.Now().Add(-m.timeout)

	var count int64
	err := m.db.Model(&models.WorkoutSession{}).
		Where("status = ? AND last_update > ?", models.StatusActive, cutoff).
		Count(&count).Error
	if err != nil {
		log.Printf("session: count active: %v", err)
		return 0
	}
	return count
}

// durationMinutes returns whole minutes from start to end, floored at zero.
func durationMinutes(start, end time.Time) int {
	minutes := int(end.Sub(start).Minutes())
	if minutes < 0 {
		return 0
	}
	return minutes
}
