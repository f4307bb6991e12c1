package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tbaldin/ferro/internal/users"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage authorized users",
	}

	cmd.AddCommand(newUsersListCmd())
	cmd.AddCommand(newUsersAddCmd())
	cmd.AddCommand(newUsersRmCmd())
	return cmd
}

func newUsersListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersList(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	return cmd
}

func runUsersList(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	_, conn, err := loadConfigAndDB(configPath)
	if err != nil {
		return err
	}

	svc, err := users.NewService(conn)
	if err != nil {
		return err
	}

	all, err := svc.List()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Fprintln(out, "No users registered.")
		return nil
	}

	fmt.Fprintf(out, "%-16s %-14s %-6s %-6s\n", "ID", "USERNAME", "ADMIN", "ACTIVE")
	for _, u := range all {
		fmt.Fprintf(out, "%-16s %-14s %-6t %-6t\n", u.UserID, u.Username, u.IsAdmin, u.IsActive)
	}
	return nil
}

func newUsersAddCmd() *cobra.Command {
	var configPath string
	var admin bool

	cmd := &cobra.Command{
		Use:   "add <user-id>",
		Short: "Authorize a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersAdd(cmd, configPath, args[0], admin)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant admin privileges")
	return cmd
}

func runUsersAdd(cmd *cobra.Command, configPath, userID string, admin bool) error {
	_, conn, err := loadConfigAndDB(configPath)
	if err != nil {
		return err
	}

	svc, err := users.NewService(conn)
	if err != nil {
		return err
	}

	if err := svc.Add(userID, "cli", admin); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "User %s authorized (admin: %t)\n", userID, admin)
	return nil
}

func newUsersRmCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "rm <user-id>",
		Short: "Deactivate a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersRm(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	return cmd
}

func runUsersRm(cmd *cobra.Command, configPath, userID string) error {
	_, conn, err := loadConfigAndDB(configPath)
	if err != nil {
		return err
	}

	svc, err := users.NewService(conn)
	if err != nil {
		return err
	}

	if err := svc.Deactivate(userID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "User %s deactivated\n", userID)
	return nil
}
