package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quantrack/quantrack/internal/cli/auth"
	"github.com/quantrack/quantrack/internal/cli/client"
	"github.com/quantrack/quantrack/internal/dashboard"
	"github.com/quantrack/quantrack/internal/session"
)

// NewDashCmd creates the dash command
func NewDashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dash",
		Short: "Show the dashboard for your role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDash(cmd.Context())
		},
	}

	return cmd
}

func runDash(ctx context.Context, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}

	s := env.manager().Check(ctx)
	if !s.Authenticated() {
		return auth.ErrNotAuthenticated
	}

	route, err := session.RouteFor(s.Role, *env.strict)
	if err != nil {
		return fmt.Errorf("%w %q", err, s.Role)
	}

	if route == session.RouteAdmin {
		d, err := dashboard.LoadAdmin(ctx, env.api)
		if err != nil {
			return failed(err, "failed to load the admin dashboard")
		}
		printAdminDashboard(env, d)
		return nil
	}

	d, err := dashboard.LoadVolunteer(ctx, env.api)
	if err != nil {
		return failed(err, "failed to load the volunteer dashboard")
	}
	printVolunteerDashboard(env, d)
	return nil
}

func printAdminDashboard(env *cmdEnv, d *dashboard.Admin) {
	env.printf("Admin dashboard")
	if org := d.Profile.Organization; org.Name != "" {
		env.printf(" for %s", org.Name)
	}
	env.printf("\n\n")

	env.printf("Events managed: %d   Participations: %d   Completed: %d\n\n",
		d.Stats.TotalEventsManaged, d.Stats.TotalParticipations, d.Stats.CompletedParticipations)

	printEvents(env, d.Events)
	env.printf("\n")
	printPendingMembers(env, d.Pending)
}

func printVolunteerDashboard(env *cmdEnv, d *dashboard.Volunteer) {
	env.printf("Volunteer dashboard")
	if d.Profile.User.Username != "" {
		env.printf(" for %s", d.Profile.User.Username)
	}
	env.printf("\n\n")

	env.printf("Hours: %s   Events joined: %d   Completed: %d   Certificates: %d\n\n",
		d.Stats.TotalHours, d.Stats.EventsJoined, d.Stats.EventsCompleted, d.Stats.CertificatesEarned)

	printEvents(env, d.Events)
	env.printf("\n")
	printParticipations(env, d.Participations)

	if completed := d.Completed(); len(completed) > 0 {
		env.printf("\nDownload a certificate with: quantrack certificate <participation-id>\n")
	}
}

func printEvents(env *cmdEnv, events []client.Event) {
	if len(events) == 0 {
		env.printf("No events found.\n")
		return
	}

	w := tabwriter.NewWriter(env.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDATE\tLOCATION\tHOURS\tPUBLIC")
	fmt.Fprintln(w, "──\t────\t────\t────────\t─────\t──────")
	for _, e := range events {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%t\n", e.ID, e.Name, e.Date, e.Location, e.ServiceHours, e.IsPublic)
	}
	w.Flush()
}

func printPendingMembers(env *cmdEnv, members []client.PendingMember) {
	if len(members) == 0 {
		env.printf("No pending members.\n")
		return
	}

	w := tabwriter.NewWriter(env.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MEMBERSHIP\tVOLUNTEER\tEMAIL\tREQUESTED")
	fmt.Fprintln(w, "──────────\t─────────\t─────\t─────────")
	for _, m := range members {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", m.MembershipID, m.VolunteerName, m.VolunteerEmail, m.JoinDate)
	}
	w.Flush()
}

func printParticipations(env *cmdEnv, records []client.ParticipationRecord) {
	if len(records) == 0 {
		env.printf("No participations found.\n")
		return
	}

	w := tabwriter.NewWriter(env.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEVENT\tVOLUNTEER\tSTATUS\tHOURS")
	fmt.Fprintln(w, "──\t─────\t─────────\t──────\t─────")
	for _, p := range records {
		event := p.EventName
		if event == "" && p.Event != 0 {
			event = fmt.Sprintf("#%d", p.Event)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", p.ID, event, p.VolunteerName, p.Status, p.HoursCompleted)
	}
	w.Flush()
}
