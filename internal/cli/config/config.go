package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const ConfigFileName = "quantrack.json"

// Profile is a named Quantrack API endpoint
type Profile struct {
	Alias      string `json:"alias"`
	APIBaseURL string `json:"api_base_url"`
}

// Config represents the project configuration file
type Config struct {
	Profiles []Profile `json:"profiles"`
}

// DefaultConfig returns a configuration with one local profile
func DefaultConfig() *Config {
	return &Config{
		Profiles: []Profile{
			{
				Alias:      "local",
				APIBaseURL: "http://127.0.0.1:8000/api",
			},
		},
	}
}

// NormalizeBaseURL validates an API base URL and strips the trailing slash
func NormalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid API base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid API base URL %q: must start with http:// or https://", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid API base URL %q: missing host", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

// FindConfigFile searches for quantrack.json in current directory and parent directories
func FindConfigFile() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	// Search upwards until we find quantrack.json or reach root
	dir := currentDir
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%s not found in %s or any parent directory", ConfigFileName, currentDir)
}

// Load reads the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	for i, p := range cfg.Profiles {
		if p.APIBaseURL == "" {
			continue
		}
		normalized, err := NormalizeBaseURL(p.APIBaseURL)
		if err != nil {
			return nil, fmt.Errorf("profile %q: %w", p.Alias, err)
		}
		cfg.Profiles[i].APIBaseURL = normalized
	}

	return &cfg, nil
}

// LoadFromCurrentDir loads config from current directory or parent directories
func LoadFromCurrentDir() (*Config, error) {
	configPath, err := FindConfigFile()
	if err != nil {
		return nil, err
	}

	return Load(configPath)
}

// Save writes the configuration to a file
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetProfile returns a profile by alias or base URL
func (c *Config) GetProfile(aliasOrURL string) (*Profile, error) {
	want := strings.TrimRight(aliasOrURL, "/")
	for i := range c.Profiles {
		if c.Profiles[i].Alias == aliasOrURL || c.Profiles[i].APIBaseURL == want {
			return &c.Profiles[i], nil
		}
	}
	return nil, fmt.Errorf("profile '%s' not found", aliasOrURL)
}

// GetDefaultProfile returns the first profile in the list
func (c *Config) GetDefaultProfile() (*Profile, error) {
	if len(c.Profiles) == 0 {
		return nil, fmt.Errorf("no profiles configured in %s", ConfigFileName)
	}
	return &c.Profiles[0], nil
}

// Upsert adds a profile or replaces the one with the same alias
func (c *Config) Upsert(p Profile) {
	for i := range c.Profiles {
		if c.Profiles[i].Alias == p.Alias {
			c.Profiles[i] = p
			return
		}
	}
	c.Profiles = append(c.Profiles, p)
}
