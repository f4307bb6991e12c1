package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tbaldin/ferro/internal/health"
	"github.com/tbaldin/ferro/internal/session"
)

func newHealthCmd() *cobra.Command {
	var configPath string
	var port int

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Run the standalone health endpoint",
		Long:  "Serves /healthz and /api/stats without connecting to a chat platform.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "override the configured port")
	return cmd
}

func runHealth(cmd *cobra.Command, configPath string, port int) error {
	cfg, conn, err := loadConfigAndDB(configPath)
	if err != nil {
		return err
	}

	mgr, err := session.NewManager(session.ManagerOpts{
		DB:      conn,
		Timeout: time.Duration(cfg.Session.TimeoutHours) * time.Hour,
	})
	if err != nil {
		return err
	}

	if port == 0 {
		port = cfg.Health.Port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return health.Start(ctx, health.StartOpts{
		DB:       conn,
		Sessions: mgr,
		Port:     port,
		Version:  Version,
		Out:      cmd.OutOrStdout(),
	})
}
