package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quantrack/quantrack/internal/cli/client"
	"github.com/quantrack/quantrack/internal/session"
)

// NewParticipationsCmd creates the participations command group
func NewParticipationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "participations",
		Short: "List and complete event participations",
	}

	var eventID string
	ls := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List your participations, or an event's with --event",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParticipationsList(cmd.Context(), eventID)
		},
	}
	ls.Flags().StringVar(&eventID, "event", "", "Event id (admins)")
	cmd.AddCommand(ls)

	cmd.AddCommand(&cobra.Command{
		Use:   "complete <participation-id>",
		Short: "Mark a participation as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParticipationComplete(cmd.Context(), args[0])
		},
	})

	return cmd
}

func runParticipationsList(ctx context.Context, eventID string, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}

	if eventID == "" {
		if _, err := env.require(ctx, session.ActionListParticipations); err != nil {
			return err
		}
		records, err := env.api.ParticipationsAsVolunteer(ctx)
		if err != nil {
			return failed(err, "failed to load participations")
		}
		printParticipations(env, records)
		return nil
	}

	if _, err := env.require(ctx, session.ActionViewParticipants); err != nil {
		return err
	}
	resp, err := env.api.ParticipationsAsAdmin(ctx, eventID)
	if err != nil {
		return failed(err, "failed to load participations")
	}
	if resp.Event != nil {
		env.printf("Participants of %s (#%d)\n\n", resp.Event.Name, resp.Event.ID)
	}
	printParticipations(env, resp.Participations)
	return nil
}

func runParticipationComplete(ctx context.Context, participationID string, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}
	if _, err := env.require(ctx, session.ActionCompleteParticipant); err != nil {
		return err
	}

	if err := env.api.CompleteParticipation(ctx, participationID); err != nil {
		return failed(err, "failed to complete participation")
	}

	env.printf("✓ Participation %s marked as completed\n", participationID)
	return nil
}

// NewCertificateCmd creates the certificate command
func NewCertificateCmd() *cobra.Command {
	var dir string
	var usePost bool

	cmd := &cobra.Command{
		Use:   "certificate <participation-id>",
		Short: "Download the certificate for a completed participation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCertificate(cmd.Context(), args[0], dir, usePost)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to save the certificate in")
	cmd.Flags().BoolVar(&usePost, "post", false, "Request the certificate with POST")

	return cmd
}

func runCertificate(ctx context.Context, participationID, dir string, usePost bool, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}
	if _, err := env.require(ctx, session.ActionDownloadCertificate); err != nil {
		return err
	}

	method := "GET"
	if usePost {
		method = "POST"
	}

	blob, err := env.api.DownloadCertificate(ctx, participationID, method)
	if err != nil {
		return failed(err, "failed to download certificate")
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	name := filepath.Base(blob.Filename)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		name = client.CertificateFilename(participationID)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, blob.Data, 0644); err != nil {
		return fmt.Errorf("failed to save certificate: %w", err)
	}

	env.printf("✓ Saved certificate to %s (%d bytes)\n", path, len(blob.Data))
	return nil
}
