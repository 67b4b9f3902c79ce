package commands

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/quantrack/quantrack/internal/cli/auth"
	"github.com/quantrack/quantrack/internal/cli/profileselect"
	"github.com/quantrack/quantrack/internal/cli/userconfig"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with a Quantrack server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set QUANTRACK_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set QUANTRACK_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(ctx context.Context, email, password string, opts ...Option) error {
	// Environment variables are useful for CI
	if email == "" {
		email = os.Getenv("QUANTRACK_EMAIL")
	}
	if password == "" {
		password = os.Getenv("QUANTRACK_PASSWORD")
	}

	env, err := newEnv(opts...)
	if err != nil {
		return err
	}

	if email == "" {
		if !*env.interactive {
			return fmt.Errorf("email is required (use --email flag or QUANTRACK_EMAIL env var)")
		}
		last, _ := userconfig.Load()
		def := ""
		if last != nil {
			def = last.LastEmail
		}
		if email, err = profileselect.PromptText("Email", def); err != nil {
			return err
		}
	}

	if password == "" {
		if !*env.interactive {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or QUANTRACK_PASSWORD env var)")
		}
		fmt.Fprint(env.out, "Password: ")
		bytePassword, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = string(bytePassword)
		fmt.Fprintln(env.out)
	}

	env.printf("Logging in to %s...\n", env.api.BaseURL())

	res, err := env.manager().Login(ctx, email, password)
	if err != nil {
		return failed(err, "login failed")
	}

	if err := userconfig.RememberEmail(email); err != nil {
		env.logger.Debug().Err(err).Msg("Failed to remember login email")
	}

	env.printf("✓ Login successful!\n")
	if u := res.Session.User; u != nil && u.Email != "" {
		env.printf("  User: %s\n", u.Email)
	}
	env.printf("  Role: %s\n", res.Session.Role)
	env.printf("  Dashboard: %s\n", res.Route)

	if token, err := env.tokens.LoadToken(env.api.BaseURL()); err == nil {
		if exp, ok := auth.TokenExpiry(token); ok {
			env.printf("  Token expires: %s\n", exp.Local().Format(time.RFC1123))
		}
	}

	return nil
}
