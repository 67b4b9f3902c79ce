package commands

import (
	"context"
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/quantrack/quantrack/internal/cli/client"
	"github.com/quantrack/quantrack/internal/cli/profileselect"
)

// NewRegisterCmd creates the register command
func NewRegisterCmd() *cobra.Command {
	var req client.RegisterRequest

	cmd := &cobra.Command{
		Use:       "register [volunteer|admin]",
		Short:     "Create a volunteer or admin account",
		ValidArgs: []string{"volunteer", "admin"},
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				req.Role = args[0]
			}
			return runRegister(cmd.Context(), req)
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Email, "email", "", "Email address")
	f.StringVar(&req.Username, "username", "", "Username")
	f.StringVar(&req.Password, "password", "", "Password (will prompt if not provided)")
	f.StringVar(&req.FirstName, "first-name", "", "First name")
	f.StringVar(&req.LastName, "last-name", "", "Last name")

	f.StringVar(&req.DateOfBirth, "dob", "", "Date of birth, YYYY-MM-DD (volunteer)")
	f.StringVar(&req.SchoolOrOrganization, "school", "", "School or organization (volunteer)")

	f.IntVar(&req.OrganizationID, "org-id", 0, "Existing organization ID (admin)")
	f.StringVar(&req.OrganizationName, "org-name", "", "New organization name (admin)")
	f.StringVar(&req.DateOfEstablishment, "established", "", "Organization founding date, YYYY-MM-DD (admin)")
	f.StringVar(&req.RegistrationNumber, "registration-number", "", "Organization registration number (admin)")
	f.StringVar(&req.OrganizationType, "org-type", "", "Organization type (admin)")
	f.StringVar(&req.Website, "website", "", "Organization website (admin)")
	f.StringVar(&req.Description, "description", "", "Organization description (admin)")
	f.StringVar(&req.Address, "address", "", "Organization address (admin)")
	f.StringVar(&req.City, "city", "", "Organization city (admin)")
	f.StringVar(&req.Country, "country", "", "Organization country (admin)")
	f.StringVar(&req.PhoneNumber, "phone", "", "Phone number (admin)")
	f.StringVar(&req.JobTitle, "job-title", "", "Job title (admin)")

	return cmd
}

func runRegister(ctx context.Context, req client.RegisterRequest, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}

	if req.Role == "" {
		if !*env.interactive {
			return fmt.Errorf("account type is required: quantrack register volunteer|admin")
		}
		if req.Role, err = profileselect.PromptChoice("Account type", []string{"volunteer", "admin"}); err != nil {
			return err
		}
	}

	if req.Email == "" && *env.interactive {
		if req.Email, err = profileselect.PromptText("Email", ""); err != nil {
			return err
		}
	}

	if req.Password == "" {
		if !*env.interactive {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag)")
		}
		if req.Password, req.ConfirmPassword, err = readNewPassword(env); err != nil {
			return err
		}
	} else if req.ConfirmPassword == "" {
		req.ConfirmPassword = req.Password
	}

	user, err := env.api.Register(ctx, req)
	if err != nil {
		return failed(err, "registration failed")
	}

	email := user.Email
	if email == "" {
		email = req.Email
	}
	env.printf("✓ Created %s account for %s\n", req.Role, email)
	env.printf("\nNext steps:\n")
	env.printf("  1. Log in with 'quantrack login --email %s'\n", email)
	env.printf("  2. Enter the code from your inbox with 'quantrack verify <code>'\n")
	return nil
}

func readNewPassword(env *cmdEnv) (string, string, error) {
	fmt.Fprint(env.out, "Password: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(env.out)
	if err != nil {
		return "", "", fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Fprint(env.out, "Confirm password: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(env.out)
	if err != nil {
		return "", "", fmt.Errorf("failed to read password: %w", err)
	}

	return string(first), string(second), nil
}
