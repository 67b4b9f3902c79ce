package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quantrack/quantrack/internal/cli/client"
	"github.com/quantrack/quantrack/internal/session"
)

// NewProfileCmd creates the profile command group
func NewProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show and update account profiles",
	}

	var adminID, volunteerID string
	show := &cobra.Command{
		Use:   "show",
		Short: "Show your profile, or another user's with --admin or --volunteer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileShow(cmd.Context(), adminID, volunteerID)
		},
	}
	show.Flags().StringVar(&adminID, "admin", "", "Show the admin with this id")
	show.Flags().StringVar(&volunteerID, "volunteer", "", "Show the volunteer with this id")
	show.MarkFlagsMutuallyExclusive("admin", "volunteer")
	cmd.AddCommand(show)

	var in profileUpdate
	update := &cobra.Command{
		Use:   "update",
		Short: "Update your own profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileUpdate(cmd.Context(), in)
		},
	}
	uf := update.Flags()
	uf.StringVar(&in.JobTitle, "job-title", "", "Job title (admin)")
	uf.StringVar(&in.PhoneNumber, "phone", "", "Phone number (admin)")
	uf.StringVar(&in.DateOfBirth, "dob", "", "Date of birth, YYYY-MM-DD (volunteer)")
	uf.StringVar(&in.School, "school", "", "School or organization (volunteer)")
	cmd.AddCommand(update)

	return cmd
}

type profileUpdate struct {
	JobTitle    string
	PhoneNumber string
	DateOfBirth string
	School      string
}

func runProfileShow(ctx context.Context, adminID, volunteerID string, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}

	s, err := env.require(ctx, session.ActionViewProfile)
	if err != nil {
		return err
	}

	switch {
	case adminID != "":
		p, err := env.api.AdminData(ctx, adminID)
		if err != nil {
			return failed(err, "failed to load admin profile")
		}
		printAdminProfile(env, p)
	case volunteerID != "":
		p, err := env.api.VolunteerData(ctx, volunteerID)
		if err != nil {
			return failed(err, "failed to load volunteer profile")
		}
		printVolunteerProfile(env, p)
	case s.Role == session.RoleAdmin:
		p, err := env.api.MyAdminData(ctx)
		if err != nil {
			return failed(err, "failed to load your profile")
		}
		printAdminProfile(env, p)
	case s.Role == session.RoleVolunteer:
		p, err := env.api.MyVolunteerData(ctx)
		if err != nil {
			return failed(err, "failed to load your profile")
		}
		printVolunteerProfile(env, p)
	default:
		return fmt.Errorf("no profile for role %s", s.Role)
	}
	return nil
}

func runProfileUpdate(ctx context.Context, in profileUpdate, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}

	s := env.manager().Check(ctx)
	switch s.Role {
	case session.RoleAdmin:
		if err := authorize(s, session.ActionUpdateAdminProfile); err != nil {
			return err
		}
		p, err := env.api.UpdateAdminData(ctx, client.AdminProfileUpdate{
			JobTitle:    in.JobTitle,
			PhoneNumber: in.PhoneNumber,
		})
		if err != nil {
			return failed(err, "failed to update profile")
		}
		env.printf("✓ Profile updated\n\n")
		printAdminProfile(env, p)
	default:
		if err := authorize(s, session.ActionUpdateVolunteerProfile); err != nil {
			return err
		}
		p, err := env.api.UpdateVolunteerData(ctx, client.VolunteerProfileUpdate{
			DateOfBirth:          in.DateOfBirth,
			SchoolOrOrganization: in.School,
		})
		if err != nil {
			return failed(err, "failed to update profile")
		}
		env.printf("✓ Profile updated\n\n")
		printVolunteerProfile(env, p)
	}
	return nil
}

func printAdminProfile(env *cmdEnv, p *client.AdminProfile) {
	env.printf("Admin %s\n", displayName(p.User))
	env.printf("  Email: %s\n", p.User.Email)
	if p.Organization.Name != "" {
		env.printf("  Organization: %s\n", p.Organization.Name)
	} else if p.Organization.ID != 0 {
		env.printf("  Organization: #%d\n", p.Organization.ID)
	}
	if p.Organization.JoinCode != "" {
		env.printf("  Join code: %s\n", p.Organization.JoinCode)
	}
	env.printf("  Job title: %s\n", p.JobTitle)
	env.printf("  Phone: %s\n", p.PhoneNumber)
}

func printVolunteerProfile(env *cmdEnv, p *client.VolunteerProfile) {
	env.printf("Volunteer %s\n", displayName(p.User))
	env.printf("  Email: %s\n", p.User.Email)
	env.printf("  Date of birth: %s\n", p.DateOfBirth)
	env.printf("  School/organization: %s\n", p.SchoolOrOrganization)
	if len(p.OrganizationsNames) > 0 {
		env.printf("  Member of: %s\n", strings.Join(p.OrganizationsNames, ", "))
	}
}

func displayName(u client.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}
