package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TypeSendVerificationCode = "mail:verification_code"
	TypeSendPasswordReset    = "mail:password_reset"
)

// Queue mail tasks run on
const QueueMail = "mail"

// MailPayload is the common payload for all mail tasks
type MailPayload struct {
	Email  string `json:"email"`
	Code   string `json:"code,omitempty"`
	UIDB64 string `json:"uidb64,omitempty"`
	Token  string `json:"token,omitempty"`
}

// NewSendVerificationCodeTask creates a task that mails a verification code
func NewSendVerificationCodeTask(email, code string) (*asynq.Task, error) {
	payload, err := json.Marshal(MailPayload{
		Email: email,
		Code:  code,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeSendVerificationCode, payload, asynq.Queue(QueueMail), asynq.MaxRetry(5)), nil
}

// NewSendPasswordResetTask creates a task that mails a password reset link
func NewSendPasswordResetTask(email, uidb64, token string) (*asynq.Task, error) {
	payload, err := json.Marshal(MailPayload{
		Email:  email,
		UIDB64: uidb64,
		Token:  token,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeSendPasswordReset, payload, asynq.Queue(QueueMail), asynq.MaxRetry(5)), nil
}

// ParseMailPayload parses the payload of a mail task
func ParseMailPayload(task *asynq.Task) (MailPayload, error) {
	var payload MailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if payload.Email == "" {
		return payload, fmt.Errorf("mail task %s has no recipient", task.Type())
	}
	return payload, nil
}
