package models

import "time"

// Session status values. Transitions are one-directional: an active session
// becomes finished (explicit close or clean timeout) or abandoned (superseded
// by a new session after timing out), never active again.
const (
	StatusActive    = "active"
	StatusFinished  = "finished"
	StatusAbandoned = "abandoned"
)

// WorkoutSession is one workout episode for a user, spanning one or more
// audio messages within the session timeout window.
type WorkoutSession struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"size:50;not null;index"`
	Date      time.Time `gorm:"type:date"`
	StartTime time.Time // first audio of the session, set once at creation
	EndTime   *time.Time
	Status    string `gorm:"size:16;default:active;index"`

	BodyWeightKg    *float64
	EnergyLevel     *int // 1-10
	Notes           string `gorm:"type:text"`
	DurationMinutes *int

	// Accumulated across audios.
	Transcription         string `gorm:"type:text"` // every transcript, ordinal-prefixed
	AudioCount            int    `gorm:"default:0"`
	LLMModelUsed          string `gorm:"size:50"`
	ProcessingTimeSeconds float64

	LastUpdate time.Time `gorm:"index"`
	CreatedAt  time.Time

	Exercises []WorkoutExercise `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
	Aerobics  []AerobicExercise `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

// StartedAt returns the session's calendar date combined with its start
// time-of-day as a single instant.
func (s *WorkoutSession) StartedAt() time.Time {
	return time.Date(
		s.Date.Year(), s.Date.Month(), s.Date.Day(),
		s.StartTime.Hour(), s.StartTime.Minute(), s.StartTime.Second(), 0,
		s.StartTime.Location(),
	)
}
