package bot

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/tbaldin/ferro/internal/config"
	"github.com/tbaldin/ferro/internal/export"
	"github.com/tbaldin/ferro/internal/parse"
	"github.com/tbaldin/ferro/internal/session"
	"github.com/tbaldin/ferro/internal/transcribe"
	"github.com/tbaldin/ferro/internal/users"
	"github.com/tbaldin/ferro/internal/workout"
	"gorm.io/gorm"
)

// Daemon is the main bot process. It connects to a chat platform via an
// Adapter, pumps inbound messages through the Router, and runs the stale
// session sweeper.
type Daemon struct {
	db          *gorm.DB
	cfg         *config.Config
	adapter     Adapter
	transcriber transcribe.Transcriber
	parser      parse.Parser
	out         io.Writer
}

// DaemonOpts holds parameters for creating a new Daemon.
type DaemonOpts struct {
	DB          *gorm.DB
	Config      *config.Config
	Adapter     Adapter
	Transcriber transcribe.Transcriber // optional; defaults to the speech API client
	Parser      parse.Parser           // optional; defaults to the LLM client
	Out         io.Writer              // defaults to os.Stdout
}

// NewDaemon creates a Daemon with the given options.
func NewDaemon(opts DaemonOpts) (*Daemon, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("bot: db is required")
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("bot: config is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("bot: adapter is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Daemon{
		db:          opts.DB,
		cfg:         opts.Config,
		adapter:     opts.Adapter,
		transcriber: opts.Transcriber,
		parser:      opts.Parser,
		out:         out,
	}, nil
}

// Run starts the bot. It connects the adapter, builds all subsystems
// (Router, CommandHandler, Sweeper), and blocks until the context is
// cancelled. On shutdown it stops the sweeper and closes the adapter.
func (d *Daemon) Run(ctx context.Context) error {
	fmt.Fprintf(d.out, "Ferro connecting...\n")
	if err := d.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("bot: connect: %w", err)
	}

	// Extract bot user ID if the adapter supports it.
	var botUserID string
	if bui, ok := d.adapter.(BotUserIDer); ok {
		botUserID = bui.BotUserID()
	}

	transcriber := d.transcriber
	if transcriber == nil {
		c, err := transcribe.NewClient(transcribe.ClientOpts{
			APIKey:  d.cfg.SpeechAPIKey,
			BaseURL: d.cfg.Speech.BaseURL,
			Model:   d.cfg.Speech.WhisperModel,
		})
		if err != nil {
			d.adapter.Close()
			return fmt.Errorf("bot: build transcriber: %w", err)
		}
		transcriber = c
	}

	parser := d.parser
	if parser == nil {
		c, err := parse.NewClient(parse.ClientOpts{
			APIKey:      d.cfg.SpeechAPIKey,
			BaseURL:     d.cfg.Speech.BaseURL,
			Model:       d.cfg.Speech.LLMModel,
			Temperature: d.cfg.Speech.Temperature,
			MaxTokens:   d.cfg.Speech.MaxTokens,
		})
		if err != nil {
			d.adapter.Close()
			return fmt.Errorf("bot: build parser: %w", err)
		}
		parser = c
	}

	sessions, err := session.NewManager(session.ManagerOpts{
		DB:      d.db,
		Timeout: time.Duration(d.cfg.Session.TimeoutHours) * time.Hour,
	})
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bot: build session manager: %w", err)
	}

	workouts, err := workout.NewService(workout.ServiceOpts{DB: d.db})
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bot: build workout service: %w", err)
	}

	registry, err := users.NewService(d.db)
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bot: build users service: %w", err)
	}

	exporter, err := export.NewService(d.db)
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bot: build exporter: %w", err)
	}

	cmdHandler, err := NewCommandHandler(CommandHandlerOpts{
		Sessions: sessions,
		Workouts: workouts,
		Users:    registry,
		Exporter: exporter,
	})
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bot: build command handler: %w", err)
	}

	router, err := NewRouter(RouterOpts{
		Sessions:    sessions,
		Workouts:    workouts,
		Users:       registry,
		Transcriber: transcriber,
		Parser:      parser,
		CmdHandler:  cmdHandler,
		Adapter:     d.adapter,
		BotUserID:   botUserID,
		LLMModel:    d.cfg.Speech.LLMModel,
		Out:         d.out,
	})
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bot: build router: %w", err)
	}

	sweeper, err := NewSweeper(sessions, d.cfg.Session.SweepSchedule)
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bot: build sweeper: %w", err)
	}
	sweeper.Start()

	inbound, err := d.adapter.Listen(ctx)
	if err != nil {
		sweeper.Stop()
		d.adapter.Close()
		return fmt.Errorf("bot: listen: %w", err)
	}

	fmt.Fprintf(d.out, "Ferro online\n")

	limiterTick := time.NewTicker(limiterMaxIdle)
	defer limiterTick.Stop()

	// Main event loop: pump inbound messages until context is cancelled.
	for {
		select {
		case <-limiterTick.C:
			router.SweepLimiters()

		case <-ctx.Done():
			fmt.Fprintf(d.out, "Ferro shutting down...\n")
			sweeper.Stop()
			if err := d.adapter.Close(); err != nil {
				log.Printf("bot: close adapter: %v", err)
			}
			fmt.Fprintf(d.out, "Ferro stopped\n")
			return nil

		case msg, ok := <-inbound:
			if !ok {
				// Adapter closed the channel.
				fmt.Fprintf(d.out, "Ferro inbound channel closed\n")
				sweeper.Stop()
				return nil
			}
			router.Handle(ctx, msg)
		}
	}
}
