package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all decayd configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Ledger   LedgerConfig   `toml:"ledger"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LedgerConfig struct {
	// CheckpointInterval is how often accrued decay is flushed into the
	// stored holder records, in seconds.
	CheckpointInterval int `toml:"checkpoint_interval"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37878,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Ledger: LedgerConfig{
			CheckpointInterval: 3600,
		},
	}
}

// Load returns the defaults with any environment overrides applied. A
// .env file in the working directory is read first if present.
func Load() (Config, error) {
	// Missing .env is fine; only report real read errors.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if v := os.Getenv("DECAYD_BIND"); v != "" {
		cfg.Server.Bind = v
	}
	if v := os.Getenv("DECAYD_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("DECAYD_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("DECAYD_DB"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("DECAYD_CHECKPOINT_INTERVAL"); v != "" {
		interval, err := strconv.Atoi(v)
		if err != nil || interval < 1 {
			return Config{}, fmt.Errorf("DECAYD_CHECKPOINT_INTERVAL %q: must be a positive integer", v)
		}
		cfg.Ledger.CheckpointInterval = interval
	}
	return cfg, nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
