package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tbaldin/ferro/internal/export"
)

func newExportCmd() *cobra.Command {
	var configPath string
	var userID string
	var format string
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a user's workout history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, configPath, userID, format, outPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user ID (required)")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "output format: csv or json")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default: generated name)")
	cmd.MarkFlagRequired("user")
	return cmd
}

func runExport(cmd *cobra.Command, configPath, userID, format, outPath string) error {
	_, conn, err := loadConfigAndDB(configPath)
	if err != nil {
		return err
	}

	svc, err := export.NewService(conn)
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case "csv":
		data, err = svc.CSV(userID)
	case "json":
		data, err = svc.JSON(userID)
	default:
		return fmt.Errorf("unsupported format %q (want csv or json)", format)
	}
	if err != nil {
		return err
	}

	if outPath == "" {
		outPath = export.Filename(userID, format)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to %s\n", len(data), outPath)
	return nil
}
