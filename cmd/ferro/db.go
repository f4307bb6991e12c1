package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tbaldin/ferro/internal/db"
	"github.com/tbaldin/ferro/internal/models"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the database",
		Long:  "Migrates all tables and seeds the authorized users from config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, conn, err := loadConfigAndDB(configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Connected to %s database at %s\n", cfg.Database.Driver, cfg.Database.DSN)

	if err := db.AutoMigrate(conn); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	if err := db.SeedUsers(conn, cfg.AuthorizedUsers, cfg.AdminUsers); err != nil {
		return err
	}
	fmt.Fprintf(out, "Seeded %d authorized users (%d admins)\n",
		len(cfg.AuthorizedUsers), len(cfg.AdminUsers))

	fmt.Fprintln(out, "\nDatabase initialized successfully.")
	return nil
}

func newDBResetCmd() *cobra.Command {
	var configPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate all tables",
		Long:  "Destroys all workout data. Asks for confirmation unless --force is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, force)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, force bool) error {
	out := cmd.OutOrStdout()

	cfg, conn, err := loadConfigAndDB(configPath)
	if err != nil {
		return err
	}

	if !force {
		fmt.Fprintf(out, "This will DELETE all data in %s. Type 'yes' to continue: ", cfg.Database.DSN)
		reader := bufio.NewReader(cmd.InOrStdin())
		answer, _ := reader.ReadString('\n')
		if strings.TrimSpace(answer) != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	// Children first so foreign keys don't block the drops.
	drop := []interface{}{
		&models.AerobicExercise{}, &models.WorkoutExercise{},
		&models.WorkoutSession{}, &models.Exercise{}, &models.User{},
	}
	if err := conn.Migrator().DropTable(drop...); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}

	if err := db.AutoMigrate(conn); err != nil {
		return err
	}
	if err := db.SeedUsers(conn, cfg.AuthorizedUsers, cfg.AdminUsers); err != nil {
		return err
	}

	fmt.Fprintln(out, "Database reset complete.")
	return nil
}
