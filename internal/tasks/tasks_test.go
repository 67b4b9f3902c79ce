package tasks

import (
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerificationCodeTask(t *testing.T) {
	task, err := NewSendVerificationCodeTask("sam@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, TypeSendVerificationCode, task.Type())

	payload, err := ParseMailPayload(task)
	require.NoError(t, err)
	assert.Equal(t, MailPayload{Email: "sam@example.com", Code: "123456"}, payload)
}

func TestPasswordResetTask(t *testing.T) {
	task, err := NewSendPasswordResetTask("sam@example.com", "MDFI", "abc")
	require.NoError(t, err)
	assert.Equal(t, TypeSendPasswordReset, task.Type())

	payload, err := ParseMailPayload(task)
	require.NoError(t, err)
	assert.Equal(t, "MDFI", payload.UIDB64)
	assert.Equal(t, "abc", payload.Token)
}

func TestParseMailPayload_Invalid(t *testing.T) {
	_, err := ParseMailPayload(asynq.NewTask(TypeSendVerificationCode, []byte("not json")))
	assert.Error(t, err)

	_, err = ParseMailPayload(asynq.NewTask(TypeSendVerificationCode, []byte(`{"code":"1"}`)))
	assert.Error(t, err, "a task without recipient cannot be delivered")
}
