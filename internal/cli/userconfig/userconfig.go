package userconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	configDirName  = "quantrack"
	configFileName = "config.json"
	cookieDirName  = "cookies"
)

// UserConfig represents the user's local configuration stored in ~/.config/quantrack/config.json
type UserConfig struct {
	SelectedProfile string `json:"selected_profile"`
	LastEmail       string `json:"last_email,omitempty"`
}

// GetConfigDir returns ~/.config/quantrack
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", configDirName), nil
}

// GetConfigPath returns the path to the user config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFileName), nil
}

// GetCookieDir returns the directory session cookies are persisted in
func GetCookieDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, cookieDirName), nil
}

// Load reads the user configuration file
func Load() (*UserConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	// If config doesn't exist, return empty config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return &UserConfig{}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}

	var cfg UserConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the user configuration to a file
func Save(cfg *UserConfig) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}

	return nil
}

// SetSelectedProfile updates the selected profile and saves the config
func SetSelectedProfile(alias string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	cfg.SelectedProfile = alias
	return Save(cfg)
}

// GetSelectedProfile returns the selected profile alias, or empty string if not set
func GetSelectedProfile() (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}

	return cfg.SelectedProfile, nil
}

// RememberEmail stores the last email used to log in, used as the prompt default
func RememberEmail(email string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	cfg.LastEmail = email
	return Save(cfg)
}
