package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tbaldin/ferro/internal/backup"
	"github.com/tbaldin/ferro/internal/db"
	"gorm.io/gorm"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Backup and restore commands",
	}

	cmd.AddCommand(newBackupCreateCmd())
	cmd.AddCommand(newBackupListCmd())
	cmd.AddCommand(newBackupVerifyCmd())
	cmd.AddCommand(newBackupRestoreCmd())
	return cmd
}

// backupService builds the backup service from config.
func backupService(configPath string) (*backup.Service, error) {
	cfg, conn, err := loadConfigAndDB(configPath)
	if err != nil {
		return nil, err
	}
	return backup.NewService(backup.ServiceOpts{DB: conn, Dir: cfg.Backup.Dir})
}

func newBackupCreateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Snapshot the database into a gzip JSON archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := backupService(configPath)
			if err != nil {
				return err
			}
			info, err := svc.Create()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup %s written to %s (%d sessions, %d bytes)\n",
				info.ID, info.Path, info.Sessions, info.SizeBytes)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	return cmd
}

func newBackupListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List backup archives",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := backupService(configPath)
			if err != nil {
				return err
			}
			infos, err := svc.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(infos) == 0 {
				fmt.Fprintln(out, "No backups found.")
				return nil
			}
			fmt.Fprintf(out, "%-36s %-22s %-10s %s\n", "ID", "CREATED", "SESSIONS", "PATH")
			for _, info := range infos {
				fmt.Fprintf(out, "%-36s %-22s %-10d %s\n",
					info.ID, info.CreatedAt.Format("2006-01-02 15:04:05"), info.Sessions, info.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	return cmd
}

func newBackupVerifyCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "verify <path>",
		Short: "Round-trip an archive through an in-memory database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := backupService(configPath)
			if err != nil {
				return err
			}
			if err := svc.Verify(args[0], openScratchDB); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup %s verified OK\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	return cmd
}

// openScratchDB opens a migrated in-memory database for verification.
func openScratchDB() (*gorm.DB, error) {
	conn, err := db.OpenMemory()
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

func newBackupRestoreCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "restore <path>",
		Short: "Replace the live database with an archive's contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := backupService(configPath)
			if err != nil {
				return err
			}
			if err := svc.Restore(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored database from %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	return cmd
}
