package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantrack/quantrack/internal/cli/config"
	"github.com/quantrack/quantrack/internal/cli/profileselect"
	"github.com/quantrack/quantrack/internal/cli/userconfig"
)

// NewSelectProfileCmd creates the select-profile command
func NewSelectProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select-profile [alias-or-url]",
		Short: "Select the API profile to use for commands",
		Long: `Select the API profile to use for commands.

If no param is provided, an interactive prompt will be shown.

Examples:
  $ quantrack select-profile                             # Interactive selection
  $ quantrack select-profile production                  # Select by alias
  $ quantrack select-profile http://127.0.0.1:8000/api   # Select by URL`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var aliasOrURL string
			if len(args) > 0 {
				aliasOrURL = args[0]
			}
			return runSelectProfile(aliasOrURL)
		},
	}

	return cmd
}

func runSelectProfile(aliasOrURL string, opts ...Option) error {
	env := applyOptions(opts...)

	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return fmt.Errorf("failed to load config: %w\nRun 'quantrack init' to create a configuration file", err)
	}

	var profile *config.Profile
	if aliasOrURL != "" {
		profile, err = cfg.GetProfile(aliasOrURL)
	} else {
		profile, err = profileselect.PromptProfileSelection(cfg)
	}
	if err != nil {
		return err
	}

	if err := userconfig.SetSelectedProfile(profile.Alias); err != nil {
		return fmt.Errorf("failed to save selected profile: %w", err)
	}

	env.printf("Selected profile: %s (%s)\n", profile.Alias, profile.APIBaseURL)
	return nil
}
