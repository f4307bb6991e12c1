package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/tbaldin/ferro/internal/session"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Session maintenance commands",
	}

	cmd.AddCommand(newSessionsSweepCmd())
	cmd.AddCommand(newSessionsFinishCmd())
	cmd.AddCommand(newSessionsListCmd())
	return cmd
}

func newSessionsSweepCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Finish all stale active sessions",
		Long:  "Closes every active session whose last update is older than the session timeout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsSweep(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	return cmd
}

func runSessionsSweep(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

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

	n, err := mgr.CleanupStale()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Finished %d stale sessions\n", n)
	return nil
}

func newSessionsFinishCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "finish <session-id>...",
		Short: "Finish sessions by ID",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsFinish(cmd, configPath, args)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	return cmd
}

func runSessionsFinish(cmd *cobra.Command, configPath string, args []string) error {
	out := cmd.OutOrStdout()

	_, conn, err := loadConfigAndDB(configPath)
	if err != nil {
		return err
	}

	ids := make([]uint, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid session id %q", arg)
		}
		ids = append(ids, uint(id))
	}

	mgr, err := session.NewManager(session.ManagerOpts{DB: conn})
	if err != nil {
		return err
	}

	n, err := mgr.BatchFinish(ids)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Finished %d of %d sessions\n", n, len(ids))
	return nil
}

func newSessionsListCmd() *cobra.Command {
	var configPath string
	var userID string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's recent sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsList(cmd, configPath, userID, limit)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user ID (required)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "max sessions to show")
	cmd.MarkFlagRequired("user")
	return cmd
}

func runSessionsList(cmd *cobra.Command, configPath, userID string, limit int) error {
	out := cmd.OutOrStdout()

	_, conn, err := loadConfigAndDB(configPath)
	if err != nil {
		return err
	}

	mgr, err := session.NewManager(session.ManagerOpts{DB: conn})
	if err != nil {
		return err
	}

	sessions, err := mgr.History(userID, limit, true)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintf(out, "No sessions for user %s\n", userID)
		return nil
	}

	fmt.Fprintf(out, "%-6s %-12s %-10s %-8s %-6s\n", "ID", "DATE", "STATUS", "DURATION", "AUDIO")
	for _, s := range sessions {
		duration := "-"
		if s.DurationMinutes != nil {
			duration = fmt.Sprintf("%dm", *s.DurationMinutes)
		}
		fmt.Fprintf(out, "%-6d %-12s %-10s %-8s %-6d\n",
			s.ID, s.Date.Format("2006-01-02"), s.Status, duration, s.AudioCount)
	}
	return nil
}
