package devserver

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrack/quantrack/internal/models"
)

type mail struct {
	kind, to, code, uidb64, token string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail
	err  error
}

func (m *recordingMailer) SendVerificationCode(ctx context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mail{kind: "verification", to: email, code: code})
	return m.err
}

func (m *recordingMailer) SendPasswordReset(ctx context.Context, email, uidb64, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mail{kind: "reset", to: email, uidb64: uidb64, token: token})
	return m.err
}

func TestMail(t *testing.T) {
	srv := newTestServer(t)
	mailer := &recordingMailer{}
	srv.mailer = mailer

	token := signUpVolunteer(t, srv, "sam@example.com", "sam")

	var user models.User
	require.NoError(t, srv.DB().Where("email = ?", "sam@example.com").First(&user).Error)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, mail{kind: "verification", to: "sam@example.com", code: user.VerificationCode}, mailer.sent[0])

	rec := doJSON(t, srv, http.MethodPost, "/api/resend-verification-code/", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, srv.DB().First(&user, "id = ?", user.ID).Error)
	require.Len(t, mailer.sent, 2)
	assert.Equal(t, user.VerificationCode, mailer.sent[1].code)

	rec = doJSON(t, srv, http.MethodPost, "/api/password-reset/", "", map[string]any{"email": "nobody@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, mailer.sent, 2, "unknown emails get no mail")

	rec = doJSON(t, srv, http.MethodPost, "/api/password-reset/", "", map[string]any{"email": "sam@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, mailer.sent, 3)

	var reset models.PasswordReset
	require.NoError(t, srv.DB().First(&reset).Error)
	assert.Equal(t, mail{kind: "reset", to: "sam@example.com", uidb64: encodeUID(user.ID), token: reset.Token}, mailer.sent[2])
}

func TestMail_DeliveryFailureDoesNotFailRequest(t *testing.T) {
	srv := newTestServer(t)
	srv.mailer = &recordingMailer{err: errors.New("queue unavailable")}

	signUpVolunteer(t, srv, "sam@example.com", "sam")

	rec := doJSON(t, srv, http.MethodPost, "/api/password-reset/", "", map[string]any{"email": "sam@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSystemInfo(t *testing.T) {
	srv := newTestServer(t)
	adminToken := signUpAdmin(t, srv)
	volunteerToken := signUpVolunteer(t, srv, "sam@example.com", "sam")

	rec := doJSON(t, srv, http.MethodGet, "/api/system/info", volunteerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/system/info", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, false, body["mail_queue"])

	counts := body["counts"].(map[string]any)
	assert.Equal(t, float64(2), counts["users"])
	assert.Equal(t, float64(1), counts["organizations"])
	assert.Equal(t, float64(0), counts["events"])

	host := body["host"].(map[string]any)
	assert.Positive(t, host["cpu_count"])
}
