package bot

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
	"github.com/tbaldin/ferro/internal/session"
)

// Sweeper runs the stale-session sweep on a cron schedule so sessions left
// open overnight get closed even when no messages arrive.
type Sweeper struct {
	cron     *cron.Cron
	sessions *session.Manager
}

// NewSweeper creates a Sweeper with a 5-field cron schedule (e.g. "0 * * * *").
func NewSweeper(sessions *session.Manager, schedule string) (*Sweeper, error) {
	if sessions == nil {
		return nil, fmt.Errorf("bot: sweeper: session manager is required")
	}

	c := cron.New()
	s := &Sweeper{cron: c, sessions: sessions}
	if _, err := c.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("bot: sweeper: invalid schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs one immediate sweep to catch sessions left over from before a
// restart, then starts the scheduler.
func (s *Sweeper) Start() {
	s.sweep()
	s.cron.Start()
}

// Stop halts the scheduler. Running sweeps finish.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}

func (s *Sweeper) sweep() {
	n, err := s.sessions.CleanupStale()
	if err != nil {
		log.Printf("bot: sweeper: cleanup: %v", err)
		return
	}
	if n > 0 {
		log.Printf("bot: sweeper: finished %d stale sessions", n)
	}
}
