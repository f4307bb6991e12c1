package main

import (
	"fmt"

	"github.com/tbaldin/ferro/internal/config"
	"github.com/tbaldin/ferro/internal/db"
	"gorm.io/gorm"
)

// defaultConfigPath is where commands look for the config file by default.
const defaultConfigPath = "ferro.yaml"

// loadConfig reads the .env file (if present) and the YAML config.
func loadConfig(configPath string) (*config.Config, error) {
	if err := config.LoadEnv(""); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openDB connects to the configured database.
func openDB(cfg *config.Config) (*gorm.DB, error) {
	conn, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Database.DSN, err)
	}
	return conn, nil
}

// loadConfigAndDB is the common preamble for commands that need both.
func loadConfigAndDB(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	conn, err := openDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, conn, nil
}
