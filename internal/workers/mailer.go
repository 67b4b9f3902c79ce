package workers

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/quantrack/quantrack/internal/tasks"
)

// Mailer delivers account emails
type Mailer interface {
	SendVerificationCode(ctx context.Context, email, code string) error
	SendPasswordReset(ctx context.Context, email, uidb64, token string) error
}

// LogMailer "delivers" mail by writing it to the log. The dev server uses it
// when no queue is configured, and the worker uses it as its final sink.
type LogMailer struct {
	log zerolog.Logger
}

// NewLogMailer creates a LogMailer
func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendVerificationCode(ctx context.Context, email, code string) error {
	m.log.Info().
		Str("to", email).
		Str("template", "verification_code").
		Str("code", code).
		Msg("Mail delivered")
	return nil
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, email, uidb64, token string) error {
	m.log.Info().
		Str("to", email).
		Str("template", "password_reset").
		Str("uidb64", uidb64).
		Str("token", token).
		Msg("Mail delivered")
	return nil
}

// Enqueuer is the part of *asynq.Client the queue mailer needs
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueMailer hands mail to the worker through the task queue
type QueueMailer struct {
	client Enqueuer
	log    zerolog.Logger
}

// NewQueueMailer creates a QueueMailer on top of an asynq client
func NewQueueMailer(client Enqueuer, log zerolog.Logger) *QueueMailer {
	return &QueueMailer{client: client, log: log}
}

func (m *QueueMailer) SendVerificationCode(ctx context.Context, email, code string) error {
	task, err := tasks.NewSendVerificationCodeTask(email, code)
	if err != nil {
		return err
	}
	return m.enqueue(ctx, task)
}

func (m *QueueMailer) SendPasswordReset(ctx context.Context, email, uidb64, token string) error {
	task, err := tasks.NewSendPasswordResetTask(email, uidb64, token)
	if err != nil {
		return err
	}
	return m.enqueue(ctx, task)
}

func (m *QueueMailer) enqueue(ctx context.Context, task *asynq.Task) error {
	info, err := m.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", task.Type(), err)
	}

	m.log.Debug().
		Str("task_id", info.ID).
		Str("task_type", task.Type()).
		Str("queue", info.Queue).
		Msg("Mail task enqueued")
	return nil
}
