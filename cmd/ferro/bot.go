package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tbaldin/ferro/internal/bot"
	discordadapter "github.com/tbaldin/ferro/internal/bot/discord"
	slackadapter "github.com/tbaldin/ferro/internal/bot/slack"
	"github.com/tbaldin/ferro/internal/config"
	"github.com/tbaldin/ferro/internal/db"
	"github.com/tbaldin/ferro/internal/health"
	"github.com/tbaldin/ferro/internal/session"
)

func newBotCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the workout bot",
		Long:  "Connects to the configured chat platform and processes voice notes and commands until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	return cmd
}

func runBot(cmd *cobra.Command, configPath string) error {
	cfg, conn, err := loadConfigAndDB(configPath)
	if err != nil {
		return err
	}

	if err := db.AutoMigrate(conn); err != nil {
		return err
	}
	if err := db.SeedUsers(conn, cfg.AuthorizedUsers, cfg.AdminUsers); err != nil {
		return err
	}

	adapter, err := createAdapter(cfg)
	if err != nil {
		return err
	}

	daemon, err := bot.NewDaemon(bot.DaemonOpts{
		DB:      conn,
		Config:  cfg,
		Adapter: adapter,
		Out:     cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle OS signals for graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// The health endpoint runs alongside the bot.
	sessions, err := session.NewManager(session.ManagerOpts{DB: conn})
	if err != nil {
		return err
	}
	go health.Start(ctx, health.StartOpts{
		DB:       conn,
		Sessions: sessions,
		Port:     cfg.Health.Port,
		Version:  Version,
		Out:      cmd.OutOrStdout(),
	})

	return daemon.Run(ctx)
}

// createAdapter builds a platform adapter from the config.
func createAdapter(cfg *config.Config) (bot.Adapter, error) {
	switch cfg.Platform {
	case "discord":
		return discordadapter.New(discordadapter.AdapterOpts{
			BotToken: cfg.DiscordBotToken,
		})
	case "slack":
		return slackadapter.New(slackadapter.AdapterOpts{
			AppToken: cfg.SlackAppToken,
			BotToken: cfg.SlackBotToken,
		})
	default:
		return nil, fmt.Errorf("bot: unsupported platform %q", cfg.Platform)
	}
}
