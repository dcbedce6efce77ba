package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

const defaultBaseURL = "http://localhost:8080"

// CLIConfig is the client state kept between invocations.
type CLIConfig struct {
	BaseURL      string    `json:"base_url"`
	Username     string    `json:"username,omitempty"`
	Email        string    `json:"email,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	Token        string    `json:"token,omitempty"`
	TokenExpires time.Time `json:"token_expires,omitempty"`
}

func (c *CLIConfig) loggedIn(now time.Time) bool {
	return c.Token != "" && (c.TokenExpires.IsZero() || now.Before(c.TokenExpires))
}

func configPath() (string, error) {
	if p := os.Getenv("MICROBLOG_CLI_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "locate home directory")
	}
	return filepath.Join(home, ".microblog", "config.json"), nil
}

func loadCLIConfig() (*CLIConfig, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &CLIConfig{BaseURL: defaultBaseURL}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	var cfg CLIConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &cfg, nil
}

// saveCLIConfig writes the file with owner-only permissions since it holds a token.
func saveCLIConfig(cfg *CLIConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o600), "write %s", path)
}
