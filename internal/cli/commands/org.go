package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quantrack/quantrack/internal/cli/client"
	"github.com/quantrack/quantrack/internal/session"
)

// NewOrgCmd creates the org command group
func NewOrgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "org",
		Aliases: []string{"organization"},
		Short:   "Join, leave, register and update organizations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "join <join-code>",
		Short: "Request to join an organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrgJoin(cmd.Context(), args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "quit <join-code>",
		Short: "Leave an organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrgQuit(cmd.Context(), args[0])
		},
	})

	var reg client.OrganizationRegistration
	register := &cobra.Command{
		Use:   "register",
		Short: "Register a new organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrgRegister(cmd.Context(), reg)
		},
	}
	rf := register.Flags()
	rf.StringVar(&reg.Name, "name", "", "Organization name")
	rf.StringVar(&reg.DateOfEstablishment, "established", "", "Founding date, YYYY-MM-DD")
	rf.StringVar(&reg.RegistrationNumber, "registration-number", "", "Registration number")
	rf.StringVar(&reg.OrganizationType, "type", "", "Organization type")
	rf.StringVar(&reg.Website, "website", "", "Website")
	rf.StringVar(&reg.Description, "description", "", "Mission or description")
	rf.StringVar(&reg.Address, "address", "", "Street address")
	rf.StringVar(&reg.City, "city", "", "City")
	rf.StringVar(&reg.Country, "country", "", "Country")
	cmd.AddCommand(register)

	var upd client.OrganizationUpdate
	update := &cobra.Command{
		Use:   "update",
		Short: "Update your organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrgUpdate(cmd.Context(), upd)
		},
	}
	uf := update.Flags()
	uf.StringVar(&upd.Name, "name", "", "Organization name")
	uf.StringVar(&upd.DateOfEstablishment, "established", "", "Founding date, YYYY-MM-DD")
	uf.StringVar(&upd.RegistrationNumber, "registration-number", "", "Registration number")
	uf.StringVar(&upd.OrganizationType, "type", "", "Organization type")
	uf.StringVar(&upd.Website, "website", "", "Website")
	uf.StringVar(&upd.Description, "description", "", "Mission or description")
	uf.StringVar(&upd.Address, "address", "", "Street address")
	uf.StringVar(&upd.City, "city", "", "City")
	uf.StringVar(&upd.Country, "country", "", "Country")
	cmd.AddCommand(update)

	return cmd
}

func runOrgJoin(ctx context.Context, joinCode string, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}
	if _, err := env.require(ctx, session.ActionJoinOrganization); err != nil {
		return err
	}

	resp, err := env.api.JoinOrganization(ctx, joinCode)
	if err != nil {
		return failed(err, "failed to join organization")
	}

	env.printf("✓ %s\n", messageOr(resp.Message, "Join request sent"))
	if names := orgNames(resp.JoinedOrganizations); names != "" {
		env.printf("  Organizations: %s\n", names)
	}
	return nil
}

func runOrgQuit(ctx context.Context, joinCode string, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}
	if _, err := env.require(ctx, session.ActionQuitOrganization); err != nil {
		return err
	}

	resp, err := env.api.QuitOrganization(ctx, joinCode)
	if err != nil {
		return failed(err, "failed to leave organization")
	}

	env.printf("✓ %s\n", messageOr(resp.Message, "Left organization"))
	if names := orgNames(resp.RemainingOrganizations); names != "" {
		env.printf("  Remaining: %s\n", names)
	}
	return nil
}

func runOrgRegister(ctx context.Context, req client.OrganizationRegistration, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}

	org, err := env.api.RegisterOrganization(ctx, req)
	if err != nil {
		return failed(err, "failed to register organization")
	}

	env.printf("✓ Registered organization %s (id %d)\n", org.Name, org.ID)
	if org.JoinCode != "" {
		env.printf("  Join code: %s\n", org.JoinCode)
	}
	return nil
}

func runOrgUpdate(ctx context.Context, req client.OrganizationUpdate, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}
	if _, err := env.require(ctx, session.ActionUpdateOrganization); err != nil {
		return err
	}

	org, err := env.api.UpdateOrganization(ctx, req)
	if err != nil {
		return failed(err, "failed to update organization")
	}

	env.printf("✓ Updated organization %s\n", org.Name)
	return nil
}

func orgNames(orgs []client.OrganizationRef) string {
	names := make([]string, 0, len(orgs))
	for _, o := range orgs {
		names = append(names, o.Name)
	}
	return strings.Join(names, ", ")
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
