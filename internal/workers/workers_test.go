package workers

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/quantrack/quantrack/internal/models"
	"github.com/quantrack/quantrack/internal/tasks"
)

type sentMail struct {
	to, code, uidb64, token string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) SendVerificationCode(ctx context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: email, code: code})
	return nil
}

func (m *recordingMailer) SendPasswordReset(ctx context.Context, email, uidb64, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: email, uidb64: uidb64, token: token})
	return nil
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Queue: tasks.QueueMail, Type: task.Type()}, nil
}

func TestQueueMailer(t *testing.T) {
	queue := &fakeEnqueuer{}
	mailer := NewQueueMailer(queue, zerolog.Nop())

	require.NoError(t, mailer.SendVerificationCode(context.Background(), "sam@example.com", "123456"))
	require.NoError(t, mailer.SendPasswordReset(context.Background(), "sam@example.com", "uid", "tok"))

	require.Len(t, queue.tasks, 2)
	assert.Equal(t, tasks.TypeSendVerificationCode, queue.tasks[0].Type())
	assert.Equal(t, tasks.TypeSendPasswordReset, queue.tasks[1].Type())
}

func TestQueueMailer_EnqueueFails(t *testing.T) {
	mailer := NewQueueMailer(&fakeEnqueuer{err: errors.New("redis down")}, zerolog.Nop())

	err := mailer.SendVerificationCode(context.Background(), "sam@example.com", "123456")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
}

// TestMailMux tests that queued tasks reach the mailer the worker delivers with
func TestMailMux(t *testing.T) {
	mailer := &recordingMailer{}
	mux := NewMailMux(mailer, zerolog.Nop())

	task, err := tasks.NewSendVerificationCodeTask("sam@example.com", "654321")
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(context.Background(), task))

	task, err = tasks.NewSendPasswordResetTask("ana@example.com", "uid", "tok")
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(context.Background(), task))

	assert.Equal(t, []sentMail{
		{to: "sam@example.com", code: "654321"},
		{to: "ana@example.com", uidb64: "uid", token: "tok"},
	}, mailer.sent)

	err = mux.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeSendVerificationCode, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry), "malformed tasks must not be retried")
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	mailer := NewLogMailer(zerolog.New(&buf))

	require.NoError(t, mailer.SendVerificationCode(context.Background(), "sam@example.com", "123456"))
	assert.Contains(t, buf.String(), `"code":"123456"`)
	assert.Contains(t, buf.String(), `"to":"sam@example.com"`)
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "workers.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestPurgeExpiredResets(t *testing.T) {
	db := openDB(t)
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	used := now.Add(-time.Minute)

	resets := []models.PasswordReset{
		{UserID: "u1", Token: "expired", ExpiresAt: now.Add(-time.Hour)},
		{UserID: "u1", Token: "used", ExpiresAt: now.Add(time.Hour), UsedAt: &used},
		{UserID: "u1", Token: "live", ExpiresAt: now.Add(time.Hour)},
	}
	require.NoError(t, db.Create(&resets).Error)

	deleted, err := PurgeExpiredResets(db, now, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var left []models.PasswordReset
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, "live", left[0].Token)
}

func TestStartJanitor(t *testing.T) {
	db := openDB(t)

	_, err := StartJanitor("every tuesday", db, zerolog.Nop())
	assert.Error(t, err)

	c, err := StartJanitor("@every 1h", db, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, c.Entries(), 1)
	<-c.Stop().Done()
}
