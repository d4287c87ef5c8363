package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"github.com/mbeoliero/inbox/pkg/constant"
	toml "github.com/pelletier/go-toml/v2"
)

// Config is read from ~/.inbox/config.toml, then INBOX_* environment
// variables (a .env file in the working directory is honored), then flags.
type Config struct {
	Server     string `toml:"server" env:"INBOX_SERVER"`
	Token      string `toml:"token" env:"INBOX_TOKEN"`
	UserId     string `toml:"user_id" env:"INBOX_USER_ID"`
	JWTSecret  string `toml:"jwt_secret" env:"INBOX_JWT_SECRET"`
	PlatformId int    `toml:"platform_id" env:"INBOX_PLATFORM_ID"`
	Window     int    `toml:"window" env:"INBOX_WINDOW"`
}

func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".inbox", "config.toml"), nil
}

// loadConfig layers the file, the environment and the flags. A missing file is not an error.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{Server: "http://localhost:8080", PlatformId: constant.PlatformIdCLI}

	if path == "" {
		p, err := defaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("cannot read config: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config: %w", err)
		}
	}

	_ = godotenv.Load()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("cannot parse environment: %w", err)
	}

	if flagServer != "" {
		cfg.Server = flagServer
	}
	if flagToken != "" {
		cfg.Token = flagToken
	}
	if flagUser != "" {
		cfg.UserId = flagUser
	}
	return cfg, nil
}

// saveConfig writes cfg to path with owner-only permissions
func saveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
