package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/quantrack/quantrack/internal/session"
)

// NewMembersCmd creates the members command group
func NewMembersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Review membership requests for your organization",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "pending",
		Short: "List membership requests awaiting approval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMembersPending(cmd.Context())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "approve <membership-id>",
		Short: "Approve a membership request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMemberDecision(cmd.Context(), args[0], true)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reject <membership-id>",
		Short: "Reject a membership request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMemberDecision(cmd.Context(), args[0], false)
		},
	})

	return cmd
}

func runMembersPending(ctx context.Context, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}
	if _, err := env.require(ctx, session.ActionListPendingMembers); err != nil {
		return err
	}

	members, err := env.api.PendingMembers(ctx)
	if err != nil {
		return failed(err, "failed to load pending members")
	}

	printPendingMembers(env, members)
	return nil
}

func runMemberDecision(ctx context.Context, membershipID string, approve bool, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}

	action, verb := session.ActionRejectMember, "Rejected"
	if approve {
		action, verb = session.ActionApproveMember, "Approved"
	}
	if _, err := env.require(ctx, action); err != nil {
		return err
	}

	if approve {
		err = env.api.ApproveMembership(ctx, membershipID)
	} else {
		err = env.api.RejectMembership(ctx, membershipID)
	}
	if err != nil {
		return failed(err, "failed to update membership")
	}

	env.printf("✓ %s membership %s\n", verb, membershipID)
	return nil
}
