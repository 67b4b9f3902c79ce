package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quantrack/quantrack/internal/session"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.Context())
		},
	}
}

func runLogout(ctx context.Context, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}

	res := env.manager().Logout(ctx)
	env.printf("✓ Logged out of %s\n", env.api.BaseURL())
	env.printf("  Route: %s\n", res.Route)
	return nil
}

// NewWhoAmICmd creates the whoami command
func NewWhoAmICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show who the server thinks you are",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoAmI(cmd.Context())
		},
	}
}

func runWhoAmI(ctx context.Context, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}

	s := env.manager().Check(ctx)
	if !s.Authenticated() {
		env.printf("Not logged in to %s\n", env.api.BaseURL())
		env.printf("\nLog in with: quantrack login\n")
		return nil
	}

	env.printf("Logged in to %s\n", env.api.BaseURL())
	if s.User != nil {
		if s.User.Email != "" {
			env.printf("  Email: %s\n", s.User.Email)
		}
		if s.User.Username != "" {
			env.printf("  Username: %s\n", s.User.Username)
		}
	}
	env.printf("  Role: %s\n", s.Role)
	return nil
}

// NewNavCmd creates the nav command
func NewNavCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nav [path]",
		Short: "Resolve the session for a location and show the navigation and actions it grants",
		Long: `Resolve the session for a location and show the navigation and actions it grants.

Paths: /, /login, /verify-email, /admin, /volunteer`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := string(session.RouteLanding)
			if len(args) > 0 {
				path = args[0]
			}
			return runNav(cmd.Context(), path)
		},
	}
}

func runNav(ctx context.Context, path string, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}

	nav := session.NewNavigator(env.manager())
	route := session.Route(path)
	s := nav.Navigate(ctx, route)

	env.printf("Session: %s\n", s)
	if target := session.Guard(s, route); target != route {
		env.printf("Route: %s (redirected from %s)\n", target, route)
	} else {
		env.printf("Route: %s\n", target)
	}

	labels := make([]string, 0, 2)
	for _, link := range session.NavLinks(s) {
		labels = append(labels, link.Label+" "+string(link.Route))
	}
	env.printf("Navigation: %s\n", strings.Join(labels, " | "))

	actions := session.Actions(s)
	if len(actions) == 0 {
		return nil
	}
	env.printf("\nAvailable actions:\n")
	for _, a := range actions {
		env.printf("  %s\n", a)
	}
	return nil
}
