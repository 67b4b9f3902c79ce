package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quantrack/quantrack/internal/cli/auth"
	"github.com/quantrack/quantrack/internal/cli/client"
)

// API is the part of the API client the session layer needs
type API interface {
	BaseURL() string
	Login(ctx context.Context, email, password string) (*client.LoginResponse, error)
	WhoAmI(ctx context.Context) (*client.WhoAmIResponse, error)
	Logout(ctx context.Context) error
}

// CookieClearer forgets the session cookies stored for a base URL
type CookieClearer interface {
	Clear(baseURL string) error
}

// Result is the outcome of a login or logout
type Result struct {
	Session Session
	Route   Route
}

// Manager drives login, session checks and logout
type Manager struct {
	api     API
	tokens  auth.TokenStore
	cookies CookieClearer
	strict  bool
	logger  zerolog.Logger
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithTokenStore sets where issued tokens are saved
func WithTokenStore(store auth.TokenStore) ManagerOption {
	return func(m *Manager) { m.tokens = store }
}

// WithCookieClearer sets the cookie store cleared on logout
func WithCookieClearer(cookies CookieClearer) ManagerOption {
	return func(m *Manager) { m.cookies = cookies }
}

// WithStrictRoles makes unrecognized roles fail login instead of falling
// back to the volunteer view
func WithStrictRoles(strict bool) ManagerOption {
	return func(m *Manager) { m.strict = strict }
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a Manager on top of api
func NewManager(api API, opts ...ManagerOption) *Manager {
	m := &Manager{
		api:    api,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login authenticates and picks the dashboard for the resolved role
func (m *Manager) Login(ctx context.Context, email, password string) (Result, error) {
	resp, err := m.api.Login(ctx, email, password)
	if err != nil {
		return Result{Session: Anonymous, Route: RouteLogin}, err
	}

	if !resp.Accepted() {
		msg := resp.Error
		if msg == "" {
			msg = resp.Message
		}
		if msg == "" {
			msg = "login failed"
		}
		return Result{Session: Anonymous, Route: RouteLogin}, &client.APIError{Kind: client.KindValidation, Message: msg}
	}

	if token := resp.BearerToken(); token != "" && m.tokens != nil {
		if err := m.tokens.SaveToken(m.api.BaseURL(), token); err != nil {
			return Result{Session: Anonymous, Route: RouteLogin}, fmt.Errorf("failed to save token: %w", err)
		}
	}

	user := resp.User
	roleName := resp.Role()
	if roleName == "" {
		who, err := m.api.WhoAmI(ctx)
		if err != nil {
			m.logger.Debug().Err(err).Msg("Who-am-I after login failed")
		} else if who.User != nil {
			user = who.User
			roleName = who.Role()
		}
	}

	role := ParseRole(roleName)
	route, err := RouteFor(role, m.strict)
	if err != nil {
		return Result{Session: Anonymous, Route: route}, fmt.Errorf("%w %q", err, roleName)
	}

	m.logger.Debug().Str("role", string(role)).Str("route", string(route)).Msg("Logged in")

	return Result{
		Session: Session{State: StateAuthenticated, Role: role, User: user},
		Route:   route,
	}, nil
}

// Check resolves the current session with one who-am-I call. Any failure,
// including 401, yields an anonymous session.
func (m *Manager) Check(ctx context.Context) Session {
	who, err := m.api.WhoAmI(ctx)
	if err != nil {
		m.logger.Debug().Err(err).Msg("Session check failed, treating as anonymous")
		return Anonymous
	}
	if !who.Authenticated {
		return Anonymous
	}
	return Session{
		State: StateAuthenticated,
		Role:  ParseRole(who.Role()),
		User:  who.User,
	}
}

// Logout ends the server session and always clears local credentials, even
// when the logout call fails
func (m *Manager) Logout(ctx context.Context) Result {
	if err := m.api.Logout(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("Logout request failed")
	}

	baseURL := m.api.BaseURL()
	if m.tokens != nil {
		if err := m.tokens.DeleteToken(baseURL); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to delete stored token")
		}
	}
	if m.cookies != nil {
		if err := m.cookies.Clear(baseURL); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to clear stored cookies")
		}
	}

	return Result{Session: Anonymous, Route: RouteLanding}
}
