package workers

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/quantrack/quantrack/internal/tasks"
)

// HandleSendVerificationCode delivers a queued verification code
func HandleSendVerificationCode(ctx context.Context, t *asynq.Task, mailer Mailer, logger zerolog.Logger) error {
	payload, err := tasks.ParseMailPayload(t)
	if err != nil {
		logger.Error().Err(err).Msg("Dropping malformed mail task")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	return mailer.SendVerificationCode(ctx, payload.Email, payload.Code)
}

// HandleSendPasswordReset delivers a queued password reset link
func HandleSendPasswordReset(ctx context.Context, t *asynq.Task, mailer Mailer, logger zerolog.Logger) error {
	payload, err := tasks.ParseMailPayload(t)
	if err != nil {
		logger.Error().Err(err).Msg("Dropping malformed mail task")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	return mailer.SendPasswordReset(ctx, payload.Email, payload.UIDB64, payload.Token)
}

// NewMailMux routes mail tasks to mailer
func NewMailMux(mailer Mailer, logger zerolog.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSendVerificationCode, func(ctx context.Context, t *asynq.Task) error {
		return HandleSendVerificationCode(ctx, t, mailer, logger)
	})
	mux.HandleFunc(tasks.TypeSendPasswordReset, func(ctx context.Context, t *asynq.Task) error {
		return HandleSendPasswordReset(ctx, t, mailer, logger)
	})
	return mux
}
