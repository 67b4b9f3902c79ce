package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrack/quantrack/internal/cli/auth"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/api/", opts...)
	require.NoError(t, err)
	return c, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	_, err := New("ftp://example.com/api")
	assert.Error(t, err)

	c, err := New("http://127.0.0.1:8000/api/")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8000/api", c.BaseURL())
}

func TestBearerToken_AttachedOnlyWhenStored(t *testing.T) {
	var seen []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "user": map[string]any{"role": "admin"}})
	})

	store := auth.NewMemoryStore()
	c, _ := newTestClient(t, handler, WithTokenStore(store))

	_, err := c.WhoAmI(context.Background())
	require.NoError(t, err)

	require.NoError(t, store.SaveToken(c.BaseURL(), "tok-123"))
	_, err = c.WhoAmI(context.Background())
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, "", seen[0])
	assert.Equal(t, "Bearer tok-123", seen[1])
}

func TestCookies_SentOnEveryRequest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "cookie-tok", Path: "/", HttpOnly: true})
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": map[string]any{"role": "volunteer"}})
	})
	mux.HandleFunc("/api/authenticated/", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("access_token")
		if err != nil || cookie.Value != "cookie-tok" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		writeJSON(w, http.StatusOK, "authenticated")
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	c, _ := newTestClient(t, mux, WithCookieJar(jar))

	resp, err := c.Login(context.Background(), "vol@example.com", "password123")
	require.NoError(t, err)
	assert.True(t, resp.Accepted())
	assert.Equal(t, "volunteer", resp.Role())

	who, err := c.WhoAmI(context.Background())
	require.NoError(t, err)
	assert.True(t, who.Authenticated)
	assert.Equal(t, "", who.Role())
}

func TestErrors_MessageExtraction(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		kind     ErrorKind
		expected string
	}{
		{"error field", http.StatusBadRequest, `{"error":"Invalid join code"}`, KindValidation, "Invalid join code"},
		{"detail field", http.StatusForbidden, `{"detail":"Not an admin"}`, KindValidation, "Not an admin"},
		{"message list", http.StatusBadRequest, `{"message":["a","b"]}`, KindValidation, "a; b"},
		{"unauthorized", http.StatusUnauthorized, `{"detail":"Token expired"}`, KindUnauthorized, "Token expired"},
		{"no message", http.StatusBadRequest, `{"name":["This field is required."]}`, KindUnexpected, "request failed (400)"},
		{"server error", http.StatusInternalServerError, `oops`, KindUnexpected, "request failed (500)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			c, _ := newTestClient(t, handler)

			_, err := c.MyAdminData(context.Background())
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.expected, apiErr.Message)
			assert.Equal(t, tt.status, StatusCode(err))
		})
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, networkMessage, UserMessage(&APIError{Kind: KindNetwork}, "fallback"))
	assert.Equal(t, "Invalid code", UserMessage(&APIError{Kind: KindValidation, Message: "Invalid code"}, "fallback"))
	assert.Equal(t, "fallback", UserMessage(&APIError{Kind: KindUnexpected, Message: "request failed (500)"}, "fallback"))
	assert.Equal(t, "fallback", UserMessage(errors.New("boom"), "fallback"))
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL + "/api"
	srv.Close()

	c, err := New(base)
	require.NoError(t, err)

	_, err = c.EventsAsVolunteer(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.False(t, IsUnauthorized(err))
	assert.Equal(t, 0, StatusCode(err))
}

func TestUnauthorized_DoesNotRetryOrClearToken(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid"})
	})

	store := auth.NewMemoryStore()
	c, _ := newTestClient(t, handler, WithTokenStore(store))
	require.NoError(t, store.SaveToken(c.BaseURL(), "stale"))

	_, err := c.MyVolunteerData(context.Background())
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, int32(1), calls.Load())

	token, err := store.LoadToken(c.BaseURL())
	require.NoError(t, err)
	assert.Equal(t, "stale", token)
}

func TestRegister_SentWithoutCredentials(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/register/", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Empty(t, r.Cookies())

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "volunteer", body["role"])
		writeJSON(w, http.StatusCreated, map[string]any{"id": "u-1", "email": body["email"], "role": "volunteer"})
	})

	store := auth.NewMemoryStore()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	c, srv := newTestClient(t, handler, WithTokenStore(store), WithCookieJar(jar))

	u, _ := url.Parse(srv.URL)
	jar.SetCookies(u, []*http.Cookie{{Name: "access_token", Value: "x", Path: "/"}})
	require.NoError(t, store.SaveToken(c.BaseURL(), "tok"))

	user, err := c.Register(context.Background(), RegisterRequest{
		Email:           "new@example.com",
		Password:        "password123",
		ConfirmPassword: "password123",
		Role:            "volunteer",
		DateOfBirth:     "2001-04-02",
	})
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
}

func TestWithoutCredentials(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, "ok")
	})

	store := auth.NewMemoryStore()
	c, _ := newTestClient(t, handler, WithTokenStore(store), WithoutCredentials())
	require.NoError(t, store.SaveToken(c.BaseURL(), "tok"))

	_, err := c.WhoAmI(context.Background())
	require.NoError(t, err)
}

func TestRequestValidation_NothingSent(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{})
	})
	c, _ := newTestClient(t, handler)

	_, err := c.Register(context.Background(), RegisterRequest{
		Email:           "admin@example.com",
		Password:        "password123",
		ConfirmPassword: "different1",
		Role:            "admin",
	})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindValidation, apiErr.Kind)
	assert.Contains(t, apiErr.Message, "confirm_password does not match")
	assert.Contains(t, apiErr.Message, "organization_name is required for admin registration")

	_, err = c.JoinOrganization(context.Background(), "")
	assert.Error(t, err)

	_, err = c.Login(context.Background(), "not-an-email", "pw")
	assert.Error(t, err)

	assert.Equal(t, int32(0), calls.Load())
}

func TestResponseSchema(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/get-my-events-as-admin/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":1,"name":"Beach cleanup","service_hours":"2.50","date":"2026-05-01"}]`)
	})
	mux.HandleFunc("/api/get-my-events-as-volunteer/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"events":[{"id":7,"name":"Food bank","service_hours":3}]}`)
	})
	mux.HandleFunc("/api/my-admin-data/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"profile_id":"p-1","user":{"id":"u-1","role":"admin"},"organization":4}`)
	})
	mux.HandleFunc("/api/my-volunteer-data/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"user":{"id":"u-2"}}`)
	})
	mux.HandleFunc("/api/list_pending_members/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	})
	c, _ := newTestClient(t, mux)
	ctx := context.Background()

	events, err := c.EventsAsAdmin(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, Decimal(2.5), events[0].ServiceHours)

	events, err = c.EventsAsVolunteer(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 7, events[0].ID)

	admin, err := c.MyAdminData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, admin.Organization.ID)

	// Missing profile_id
	_, err = c.MyVolunteerData(ctx)
	require.Error(t, err)
	assert.Equal(t, "unexpected response shape from server", err.Error())

	_, err = c.PendingMembers(ctx)
	require.Error(t, err)
	assert.Equal(t, "invalid response from server", err.Error())
}

func TestDownloadCertificate(t *testing.T) {
	pdf := []byte("%PDF-1.4\n%%EOF\n")
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate-certificate/12/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		if r.Method == http.MethodPost {
			w.Header().Set("Content-Disposition", `attachment; filename="cert-12.pdf"`)
		}
		_, _ = w.Write(pdf)
	})
	mux.HandleFunc("/api/generate-certificate/13/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Participation is not completed"})
	})
	c, _ := newTestClient(t, mux)
	ctx := context.Background()

	blob, err := c.DownloadCertificate(ctx, "12", "")
	require.NoError(t, err)
	assert.Equal(t, pdf, blob.Data)
	assert.Equal(t, "application/pdf", blob.ContentType)
	assert.Equal(t, "Certificate_12.pdf", blob.Filename)

	blob, err = c.DownloadCertificate(ctx, "12", http.MethodPost)
	require.NoError(t, err)
	assert.Equal(t, "cert-12.pdf", blob.Filename)

	_, err = c.DownloadCertificate(ctx, "12", http.MethodPut)
	assert.Error(t, err)

	_, err = c.DownloadCertificate(ctx, "13", "")
	require.Error(t, err)
	assert.Equal(t, "Participation is not completed", UserMessage(err, "download failed"))
}

func TestMembershipActions(t *testing.T) {
	var paths []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "ok"})
	})
	c, _ := newTestClient(t, handler)
	ctx := context.Background()

	require.NoError(t, c.ApproveMembership(ctx, "3"))
	require.NoError(t, c.RejectMembership(ctx, "4"))
	require.NoError(t, c.CompleteParticipation(ctx, "5"))
	require.NoError(t, c.DeleteEvent(ctx, "6"))

	resp, err := c.JoinOrganization(ctx, "ABC123")
	require.NoError(t, err)
	assert.True(t, resp.Success)

	assert.Equal(t, []string{
		"PATCH /api/approve_membership/3/",
		"PATCH /api/reject_membership/4/",
		"PATCH /api/participations/5/complete/",
		"DELETE /api/delete-event/6/",
		"POST /api/organizations/join/",
	}, paths)
}
