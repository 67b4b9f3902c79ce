package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantrack/quantrack/internal/cli/client"
)

// NewVerifyCmd creates the verify command
func NewVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <code>",
		Short: "Verify your email address with the emailed code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), args[0])
		},
	}
}

func runVerify(ctx context.Context, code string, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}

	if err := env.api.VerifyEmail(ctx, code); err != nil {
		return failed(err, "invalid or expired code, please try again")
	}

	env.printf("✓ Email verified. You can now log in.\n")
	return nil
}

// NewResendCodeCmd creates the resend-code command
func NewResendCodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resend-code",
		Short: "Send a new email verification code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResendCode(cmd.Context())
		},
	}
}

func runResendCode(ctx context.Context, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}

	if err := env.api.ResendVerificationCode(ctx); err != nil {
		return failed(err, "could not resend code, please try again")
	}

	env.printf("✓ Verification code resent. Please check your email.\n")
	return nil
}

// NewPasswordCmd creates the password command group
func NewPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Reset a forgotten password",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "reset <email>",
		Short: "Email a password reset link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPasswordReset(cmd.Context(), args[0])
		},
	})

	var req client.PasswordResetConfirmRequest
	confirm := &cobra.Command{
		Use:   "confirm",
		Short: "Set a new password using the values from the reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPasswordConfirm(cmd.Context(), req)
		},
	}
	confirm.Flags().StringVar(&req.UIDB64, "uid", "", "User id from the reset link")
	confirm.Flags().StringVar(&req.Token, "token", "", "Token from the reset link")
	confirm.Flags().StringVar(&req.Password, "password", "", "New password")
	cmd.AddCommand(confirm)

	return cmd
}

func runPasswordReset(ctx context.Context, email string, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}

	if err := env.api.RequestPasswordReset(ctx, email); err != nil {
		return failed(err, "could not send the reset link")
	}

	env.printf("✓ If an account exists for %s, a reset link is on its way.\n", email)
	return nil
}

func runPasswordConfirm(ctx context.Context, req client.PasswordResetConfirmRequest, opts ...Option) error {
	env, err := newEnv(opts...)
	if err != nil {
		return err
	}

	if req.Password == "" {
		if !*env.interactive {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag)")
		}
		password, confirm, err := readNewPassword(env)
		if err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}
		req.Password = password
	}

	if err := env.api.ConfirmPasswordReset(ctx, req); err != nil {
		return failed(err, "password reset failed")
	}

	env.printf("✓ Password updated. You can now log in.\n")
	return nil
}
