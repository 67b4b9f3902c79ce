package commands

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quantrack/quantrack/internal/dashboard"
	"github.com/quantrack/quantrack/internal/session"
)

// NewAnalyticsCmd creates the analytics command
func NewAnalyticsCmd() *cobra.Command {
	var exportPath, format string

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show organization analytics, optionally exporting them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if exportPath == "" && format != "" {
				exportPath = dashboard.DefaultExportFile
			}
			return runAnalytics(cmd.Context(), exportPath, format)
		},
	}

	cmd.Flags().StringVar(&exportPath, "export", "", "Write analytics to this file instead of printing them")
	cmd.Flags().StringVar(&format, "format", "", "Export format: json or yaml (default from the file extension; exports to "+dashboard.DefaultExportFile+" when --export is not given)")

	return cmd
}

func runAnalytics(ctx context.Context, exportPath, format string, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}
	if _, err := env.require(ctx, session.ActionViewAnalytics); err != nil {
		return err
	}

	a, err := dashboard.LoadAnalytics(ctx, env.api)
	if err != nil {
		return failed(err, "failed to load analytics")
	}

	if exportPath != "" {
		f := dashboard.FormatForFile(exportPath)
		if format != "" {
			if f, err = dashboard.ParseFormat(format); err != nil {
				return err
			}
		}
		return exportAnalytics(env, a, exportPath, f)
	}

	printAnalytics(env, a)
	return nil
}

func exportAnalytics(env *cmdEnv, a *dashboard.Analytics, path string, format dashboard.Format) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	if err := a.Export(file, format); err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}

	env.printf("✓ Exported analytics to %s\n", path)
	return nil
}

func printAnalytics(env *cmdEnv, a *dashboard.Analytics) {
	o, v, e := a.Organization, a.Volunteers, a.Events

	env.printf("Organization\n")
	env.printf("  Members: %d   Active volunteers: %d   Events: %d   Completed events: %d\n\n",
		o.TotalMembers, o.ActiveVolunteers, o.TotalEvents, o.CompletedEvents)

	env.printf("Volunteers\n")
	env.printf("  Service hours: %s   Avg hours/volunteer: %s   Certificates: %d\n",
		v.TotalServiceHours, v.AvgHoursPerVolunteer, v.CertificatesIssued)
	if len(v.TopVolunteers) > 0 {
		env.printf("\n")
		w := tabwriter.NewWriter(env.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "VOLUNTEER\tEVENTS\tHOURS\tCERTIFICATES")
		fmt.Fprintln(w, "─────────\t──────\t─────\t────────────")
		for _, tv := range v.TopVolunteers {
			fmt.Fprintf(w, "%s\t%d\t%s\t%d\n", tv.Name, tv.EventsCount, tv.TotalHours, tv.CertificatesCount)
		}
		w.Flush()
	}

	env.printf("\nEvents\n")
	env.printf("  Upcoming: %d   Participations: %d   Avg participants: %s   Completion rate: %s%%\n",
		e.UpcomingEvents, e.TotalParticipations, e.AvgParticipantsPerEvent, e.CompletionRate)

	if len(e.ParticipationByMonth) > 0 {
		months := make([]string, 0, len(e.ParticipationByMonth))
		for m := range e.ParticipationByMonth {
			months = append(months, m)
		}
		sort.Strings(months)

		env.printf("\n")
		w := tabwriter.NewWriter(env.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "MONTH\tPARTICIPATIONS")
		fmt.Fprintln(w, "─────\t──────────────")
		for _, m := range months {
			fmt.Fprintf(w, "%s\t%d\n", m, e.ParticipationByMonth[m])
		}
		w.Flush()
	}
}
