package commands

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quantrack/quantrack/internal/cli/config"
)

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	var alias string

	cmd := &cobra.Command{
		Use:   "init <api-base-url>",
		Short: "Add a Quantrack API profile to ./quantrack.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(args[0], alias)
		},
	}

	cmd.Flags().StringVar(&alias, "alias", "", "Profile alias (defaults to the API host)")

	return cmd
}

func runInit(rawURL, alias string, opts ...Option) error {
	env := applyOptions(opts...)

	baseURL, err := config.NormalizeBaseURL(rawURL)
	if err != nil {
		return err
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath := filepath.Join(currentDir, config.ConfigFileName)

	var cfg *config.Config
	isNewConfig := false

	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		env.printf("Found existing %s\n", config.ConfigFileName)
	} else {
		cfg = &config.Config{Profiles: []config.Profile{}}
		isNewConfig = true
	}

	if existing, err := cfg.GetProfile(baseURL); err == nil && (alias == "" || alias == existing.Alias) {
		env.printf("Profile %s (%s) already exists in %s\n", existing.Alias, existing.APIBaseURL, config.ConfigFileName)
		return nil
	}

	if alias == "" {
		alias = defaultAlias(baseURL, len(cfg.Profiles))
	}
	cfg.Upsert(config.Profile{Alias: alias, APIBaseURL: baseURL})

	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	if isNewConfig {
		env.printf("✓ Created ./%s with profile %s (%s)\n", config.ConfigFileName, alias, baseURL)
	} else {
		env.printf("✓ Saved profile %s (%s) to ./%s\n", alias, baseURL, config.ConfigFileName)
	}

	env.printf("\nNext steps:\n")
	env.printf("  1. Run 'quantrack register volunteer' or 'quantrack register admin' to create an account\n")
	env.printf("  2. Run 'quantrack login' to authenticate\n")

	return nil
}

func defaultAlias(baseURL string, existing int) string {
	if u, err := url.Parse(baseURL); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return fmt.Sprintf("profile-%d", existing+1)
}
