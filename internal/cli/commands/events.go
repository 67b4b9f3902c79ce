package commands

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/quantrack/quantrack/internal/cli/client"
	"github.com/quantrack/quantrack/internal/session"
)

// NewEventsCmd creates the events command group
func NewEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "events",
		Aliases: []string{"event"},
		Short:   "List, create and join events",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List the events visible to you",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEventsList(cmd.Context())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <event-id>",
		Short: "Show one event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEventShow(cmd.Context(), args[0])
		},
	})

	var in client.EventInput
	var maxParticipants int
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an event in your organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("max") {
				in.MaxParticipants = &maxParticipants
			}
			return runEventCreate(cmd.Context(), in)
		},
	}
	cf := create.Flags()
	cf.StringVar(&in.Name, "name", "", "Event name")
	cf.StringVar(&in.Description, "description", "", "Description")
	cf.StringVar(&in.Date, "date", "", "Date, YYYY-MM-DD")
	cf.StringVar(&in.Time, "time", "", "Start time, HH:MM")
	cf.StringVar(&in.Location, "location", "", "Location")
	cf.BoolVar(&in.IsPublic, "public", false, "Visible to volunteers outside the organization")
	cf.Float64Var(&in.ServiceHours, "hours", 0, "Service hours credited on completion")
	cf.IntVar(&maxParticipants, "max", 0, "Maximum participants")
	cmd.AddCommand(create)

	update := &cobra.Command{
		Use:   "update <event-id>",
		Short: "Update an event; only the flags given are changed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEventUpdate(cmd.Context(), args[0], eventPatchFromFlags(cmd.Flags()))
		},
	}
	uf := update.Flags()
	uf.String("name", "", "Event name")
	uf.String("description", "", "Description")
	uf.String("date", "", "Date, YYYY-MM-DD")
	uf.String("time", "", "Start time, HH:MM")
	uf.String("location", "", "Location")
	uf.Bool("public", false, "Visible to volunteers outside the organization")
	uf.Float64("hours", 0, "Service hours credited on completion")
	uf.Int("max", 0, "Maximum participants")
	cmd.AddCommand(update)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <event-id>",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEventDelete(cmd.Context(), args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "join <event-id>",
		Short: "Sign up for an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEventJoin(cmd.Context(), args[0])
		},
	})

	return cmd
}

// eventPatchFromFlags sets only the fields whose flags were given
func eventPatchFromFlags(fs *pflag.FlagSet) client.EventPatch {
	var p client.EventPatch
	str := func(name string) *string {
		if !fs.Changed(name) {
			return nil
		}
		v, _ := fs.GetString(name)
		return &v
	}

	p.Name = str("name")
	p.Description = str("description")
	p.Date = str("date")
	p.Time = str("time")
	p.Location = str("location")
	if fs.Changed("public") {
		v, _ := fs.GetBool("public")
		p.IsPublic = &v
	}
	if fs.Changed("hours") {
		v, _ := fs.GetFloat64("hours")
		p.ServiceHours = &v
	}
	if fs.Changed("max") {
		v, _ := fs.GetInt("max")
		p.MaxParticipants = &v
	}
	return p
}

func runEventsList(ctx context.Context, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}

	s, err := env.require(ctx, session.ActionViewEvents)
	if err != nil {
		return err
	}

	var events []client.Event
	if s.Role == session.RoleAdmin {
		events, err = env.api.EventsAsAdmin(ctx)
	} else {
		events, err = env.api.EventsAsVolunteer(ctx)
	}
	if err != nil {
		return failed(err, "failed to load events")
	}

	if len(events) == 0 {
		env.printf("No events found.\n")
		if s.Role == session.RoleAdmin {
			env.printf("\nCreate one with: quantrack events create --name ... --date YYYY-MM-DD\n")
		}
		return nil
	}

	printEvents(env, events)
	return nil
}

func runEventShow(ctx context.Context, eventID string, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}
	if _, err := env.require(ctx, session.ActionViewEvents); err != nil {
		return err
	}

	e, err := env.api.Event(ctx, eventID)
	if err != nil {
		return failed(err, "failed to load event")
	}

	env.printf("%s (#%d)\n", e.Name, e.ID)
	env.printf("  Date: %s %s\n", e.Date, e.Time)
	env.printf("  Location: %s\n", e.Location)
	env.printf("  Service hours: %s\n", e.ServiceHours)
	env.printf("  Public: %t\n", e.IsPublic)
	if e.MaxParticipants != nil {
		env.printf("  Max participants: %d\n", *e.MaxParticipants)
	}
	if e.Description != "" {
		env.printf("\n%s\n", e.Description)
	}
	return nil
}

func runEventCreate(ctx context.Context, in client.EventInput, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}
	if _, err := env.require(ctx, session.ActionCreateEvent); err != nil {
		return err
	}

	e, err := env.api.CreateEvent(ctx, in)
	if err != nil {
		return failed(err, "failed to create event")
	}

	env.printf("✓ Created event %s (#%d)\n", e.Name, e.ID)
	return nil
}

func runEventUpdate(ctx context.Context, eventID string, patch client.EventPatch, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}
	if _, err := env.require(ctx, session.ActionUpdateEvent); err != nil {
		return err
	}

	e, err := env.api.UpdateEvent(ctx, eventID, patch)
	if err != nil {
		return failed(err, "failed to update event")
	}

	env.printf("✓ Updated event %s (#%d)\n", e.Name, e.ID)
	return nil
}

func runEventDelete(ctx context.Context, eventID string, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}
	if _, err := env.require(ctx, session.ActionDeleteEvent); err != nil {
		return err
	}

	if err := env.api.DeleteEvent(ctx, eventID); err != nil {
		return failed(err, "failed to delete event")
	}

	env.printf("✓ Deleted event #%s\n", eventID)
	return nil
}

func runEventJoin(ctx context.Context, eventID string, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}
	if _, err := env.require(ctx, session.ActionJoinEvent); err != nil {
		return err
	}

	p, err := env.api.JoinEvent(ctx, eventID)
	if err != nil {
		return failed(err, "failed to join event")
	}

	env.printf("✓ Joined event #%s (participation %d, status %s)\n", eventID, p.ID, p.Status)
	return nil
}
