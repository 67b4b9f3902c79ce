package profileselect

import (
	"fmt"
	"io"

	"github.com/manifoldco/promptui"

	"github.com/quantrack/quantrack/internal/cli/config"
	"github.com/quantrack/quantrack/internal/cli/userconfig"
)

// ResolveProfile determines which profile to use based on the following priority:
// 1. If alias is provided, use that profile
// 2. If user has a selected profile in their local config, use that
// 3. If only one profile is configured, or the session is not interactive, use the first
// 4. Otherwise, prompt user to select a profile interactively
func ResolveProfile(projectConfig *config.Config, alias string, interactive bool, warn io.Writer) (*config.Profile, error) {
	if alias != "" {
		return projectConfig.GetProfile(alias)
	}

	selected, err := userconfig.GetSelectedProfile()
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	if selected != "" {
		profile, err := projectConfig.GetProfile(selected)
		if err == nil {
			return profile, nil
		}
		// Selected profile no longer exists in project config, clear it and continue
		_ = userconfig.SetSelectedProfile("")
	}

	if len(projectConfig.Profiles) == 1 || (!interactive && len(projectConfig.Profiles) > 0) {
		return projectConfig.GetDefaultProfile()
	}

	profile, err := PromptProfileSelection(projectConfig)
	if err != nil {
		return nil, err
	}

	if err := userconfig.SetSelectedProfile(profile.Alias); err != nil {
		// Don't fail if we can't save, just continue
		fmt.Fprintf(warn, "Warning: failed to save selected profile: %v\n", err)
	}

	return profile, nil
}

// PromptProfileSelection shows an interactive prompt for the user to select a profile
func PromptProfileSelection(projectConfig *config.Config) (*config.Profile, error) {
	if len(projectConfig.Profiles) == 0 {
		return nil, fmt.Errorf("no profiles configured in %s", config.ConfigFileName)
	}

	type profileOption struct {
		Label   string
		Profile *config.Profile
	}

	options := make([]profileOption, len(projectConfig.Profiles))
	for i := range projectConfig.Profiles {
		p := &projectConfig.Profiles[i]
		options[i] = profileOption{
			Label:   fmt.Sprintf("%s (%s)", p.Alias, p.APIBaseURL),
			Profile: p,
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     "Select an API profile",
		Items:     options,
		Templates: templates,
		Size:      10,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("profile selection cancelled: %w", err)
	}

	return options[index].Profile, nil
}

// PromptChoice asks the user to pick one of items and returns it
func PromptChoice(label string, items []string) (string, error) {
	prompt := promptui.Select{
		Label: label,
		Items: items,
	}

	_, choice, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("selection cancelled: %w", err)
	}
	return choice, nil
}

// PromptText asks for a line of input with an optional default
func PromptText(label, def string) (string, error) {
	prompt := promptui.Prompt{
		Label:   label,
		Default: def,
	}

	value, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("input cancelled: %w", err)
	}
	return value, nil
}
