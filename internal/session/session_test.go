package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrack/quantrack/internal/cli/auth"
	"github.com/quantrack/quantrack/internal/cli/client"
)

const testBaseURL = "http://127.0.0.1:8000/api"

type fakeAPI struct {
	loginResp  *client.LoginResponse
	loginErr   error
	whoResp    *client.WhoAmIResponse
	whoErr     error
	logoutErr  error
	whoCalls   int
	logoutCall int
}

func (f *fakeAPI) BaseURL() string { return testBaseURL }

func (f *fakeAPI) Login(ctx context.Context, email, password string) (*client.LoginResponse, error) {
	return f.loginResp, f.loginErr
}

func (f *fakeAPI) WhoAmI(ctx context.Context) (*client.WhoAmIResponse, error) {
	f.whoCalls++
	return f.whoResp, f.whoErr
}

func (f *fakeAPI) Logout(ctx context.Context) error {
	f.logoutCall++
	return f.logoutErr
}

type fakeCookies struct {
	cleared []string
}

func (f *fakeCookies) Clear(baseURL string) error {
	f.cleared = append(f.cleared, baseURL)
	return nil
}

func loginWithRole(role string) *client.LoginResponse {
	return &client.LoginResponse{Success: true, User: &client.User{ID: "u-1", Email: "a@b.com", Role: role}}
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("admin"))
	assert.Equal(t, RoleAdmin, ParseRole(" ADMIN "))
	assert.Equal(t, RoleVolunteer, ParseRole("Volunteer"))
	assert.Equal(t, RoleUnknown, ParseRole("superuser"))
	assert.Equal(t, RoleUnknown, ParseRole(""))
}

func TestRouteFor(t *testing.T) {
	route, err := RouteFor(RoleAdmin, false)
	require.NoError(t, err)
	assert.Equal(t, RouteAdmin, route)

	route, err = RouteFor(RoleVolunteer, true)
	require.NoError(t, err)
	assert.Equal(t, RouteVolunteer, route)

	route, err = RouteFor(RoleUnknown, false)
	require.NoError(t, err)
	assert.Equal(t, RouteVolunteer, route)

	_, err = RouteFor(RoleUnknown, true)
	assert.ErrorIs(t, err, ErrUnrecognizedRole)
}

func TestLogin_RoutesByRole(t *testing.T) {
	tests := []struct {
		role     string
		expected Route
	}{
		{"admin", RouteAdmin},
		{"volunteer", RouteVolunteer},
		{"coordinator", RouteVolunteer},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			api := &fakeAPI{loginResp: loginWithRole(tt.role)}
			m := NewManager(api, WithTokenStore(auth.NewMemoryStore()))

			// Repeating the login yields the same route
			for i := 0; i < 2; i++ {
				res, err := m.Login(context.Background(), "a@b.com", "x")
				require.NoError(t, err)
				assert.Equal(t, tt.expected, res.Route)
				assert.True(t, res.Session.Authenticated())
			}
			assert.Equal(t, 0, api.whoCalls)
		})
	}
}

func TestLogin_StrictRolesRejectsUnknown(t *testing.T) {
	api := &fakeAPI{loginResp: loginWithRole("coordinator")}
	m := NewManager(api, WithStrictRoles(true))

	res, err := m.Login(context.Background(), "a@b.com", "x")
	assert.ErrorIs(t, err, ErrUnrecognizedRole)
	assert.False(t, res.Session.Authenticated())
}

func TestLogin_MissingRoleAsksWhoAmI(t *testing.T) {
	api := &fakeAPI{
		loginResp: &client.LoginResponse{Access: "jwt-abc"},
		whoResp:   &client.WhoAmIResponse{Authenticated: true, User: &client.User{Role: "admin"}},
	}
	tokens := auth.NewMemoryStore()
	m := NewManager(api, WithTokenStore(tokens))

	res, err := m.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)
	assert.Equal(t, RouteAdmin, res.Route)
	assert.Equal(t, RoleAdmin, res.Session.Role)
	assert.Equal(t, 1, api.whoCalls)

	token, err := tokens.LoadToken(testBaseURL)
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", token)
}

func TestLogin_MissingRoleAndFailedWhoAmIFallsBackToVolunteer(t *testing.T) {
	api := &fakeAPI{
		loginResp: &client.LoginResponse{Token: "jwt-abc"},
		whoErr:    &client.APIError{Kind: client.KindNetwork},
	}
	m := NewManager(api)

	res, err := m.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)
	assert.Equal(t, RouteVolunteer, res.Route)
	assert.Equal(t, RoleUnknown, res.Session.Role)
}

func TestLogin_Rejected(t *testing.T) {
	api := &fakeAPI{loginResp: &client.LoginResponse{Success: false, Error: "Invalid credentials"}}
	tokens := auth.NewMemoryStore()
	m := NewManager(api, WithTokenStore(tokens))

	res, err := m.Login(context.Background(), "a@b.com", "x")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", client.UserMessage(err, "login failed"))
	assert.Equal(t, RouteLogin, res.Route)

	// success without user data is not a login either
	api.loginResp = &client.LoginResponse{Success: true}
	_, err = m.Login(context.Background(), "a@b.com", "x")
	require.Error(t, err)
	assert.Equal(t, "login failed", err.Error())

	_, err = tokens.LoadToken(testBaseURL)
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestLogin_TransportError(t *testing.T) {
	api := &fakeAPI{loginErr: &client.APIError{Kind: client.KindUnauthorized, Status: 401, Message: "No active account"}}
	m := NewManager(api)

	_, err := m.Login(context.Background(), "a@b.com", "x")
	assert.True(t, client.IsUnauthorized(err))
}

func TestCheck(t *testing.T) {
	api := &fakeAPI{whoErr: &client.APIError{Kind: client.KindUnauthorized, Status: 401}}
	m := NewManager(api)

	s := m.Check(context.Background())
	assert.Equal(t, Anonymous, s)
	assert.Equal(t, []Link{{"Login", RouteLogin}, {"Verify", RouteVerify}}, NavLinks(s))

	api.whoErr = &client.APIError{Kind: client.KindNetwork}
	assert.Equal(t, Anonymous, m.Check(context.Background()))

	api.whoErr = nil
	api.whoResp = &client.WhoAmIResponse{Authenticated: false}
	assert.Equal(t, Anonymous, m.Check(context.Background()))

	api.whoResp = &client.WhoAmIResponse{Authenticated: true, User: &client.User{Role: "admin"}}
	s = m.Check(context.Background())
	assert.Equal(t, StateAuthenticated, s.State)
	assert.Equal(t, RoleAdmin, s.Role)
	assert.Equal(t, []Link{{"Dashboard", RouteAdmin}, {"Logout", RouteLanding}}, NavLinks(s))
}

func TestLogout_ClearsEvenWhenRequestFails(t *testing.T) {
	api := &fakeAPI{logoutErr: &client.APIError{Kind: client.KindNetwork}}
	tokens := auth.NewMemoryStore()
	require.NoError(t, tokens.SaveToken(testBaseURL, "tok"))
	cookies := &fakeCookies{}
	m := NewManager(api, WithTokenStore(tokens), WithCookieClearer(cookies))

	res := m.Logout(context.Background())
	assert.Equal(t, RouteLanding, res.Route)
	assert.Equal(t, Anonymous, res.Session)
	assert.Equal(t, 1, api.logoutCall)
	assert.Equal(t, []string{testBaseURL}, cookies.cleared)

	_, err := tokens.LoadToken(testBaseURL)
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestGuard(t *testing.T) {
	admin := Session{State: StateAuthenticated, Role: RoleAdmin}
	volunteer := Session{State: StateAuthenticated, Role: RoleVolunteer}
	unknown := Session{State: StateAuthenticated, Role: RoleUnknown}

	assert.Equal(t, RouteLogin, Guard(Anonymous, RouteAdmin))
	assert.Equal(t, RouteLogin, Guard(Anonymous, RouteVolunteer))
	assert.Equal(t, RouteLanding, Guard(Anonymous, RouteLanding))
	assert.Equal(t, RouteAdmin, Guard(admin, RouteAdmin))
	assert.Equal(t, RouteAdmin, Guard(admin, RouteVolunteer))
	assert.Equal(t, RouteVolunteer, Guard(volunteer, RouteAdmin))
	assert.Equal(t, RouteVolunteer, Guard(unknown, RouteAdmin))
}

func TestActions_NeverCrossRoles(t *testing.T) {
	admin := Session{State: StateAuthenticated, Role: RoleAdmin}
	volunteer := Session{State: StateAuthenticated, Role: RoleVolunteer}
	unknown := Session{State: StateAuthenticated, Role: RoleUnknown}

	for _, a := range Actions(admin) {
		assert.NotEqual(t, RoleVolunteer, RequiredRole(a), "admin granted %s", a)
	}
	for _, a := range Actions(volunteer) {
		assert.NotEqual(t, RoleAdmin, RequiredRole(a), "volunteer granted %s", a)
	}
	for _, a := range Actions(unknown) {
		assert.Equal(t, RoleUnknown, RequiredRole(a), "unknown role granted %s", a)
	}

	assert.True(t, Allows(admin, ActionCreateEvent))
	assert.False(t, Allows(volunteer, ActionCreateEvent))
	assert.True(t, Allows(volunteer, ActionJoinEvent))
	assert.False(t, Allows(admin, ActionJoinEvent))
	assert.True(t, Allows(admin, ActionDownloadCertificate))
	assert.True(t, Allows(volunteer, ActionDownloadCertificate))
	assert.True(t, Allows(unknown, ActionViewEvents))
	assert.Empty(t, Actions(Anonymous))
}

type checkerFunc func(ctx context.Context) Session

func (f checkerFunc) Check(ctx context.Context) Session { return f(ctx) }

func TestNavigator_StaleCheckIsDropped(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex

	checker := checkerFunc(func(ctx context.Context) Session {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()

		if n == 1 {
			close(started)
			<-ctx.Done()
			<-release
			// A late answer that must not be published
			return Session{State: StateAuthenticated, Role: RoleAdmin}
		}
		return Session{State: StateAuthenticated, Role: RoleVolunteer}
	})

	nav := NewNavigator(checker)
	assert.Equal(t, StateUnknown, nav.Current().State)

	done := make(chan Session)
	go func() {
		done <- nav.Navigate(context.Background(), RouteAdmin)
	}()
	<-started
	assert.Equal(t, StateChecking, nav.Current().State)

	second := nav.Navigate(context.Background(), RouteVolunteer)
	assert.Equal(t, RoleVolunteer, second.Role)
	close(release)

	first := <-done
	assert.Equal(t, RoleVolunteer, first.Role)
	assert.Equal(t, RoleVolunteer, nav.Current().Role)
	assert.Equal(t, RouteVolunteer, nav.Route())
}

func TestNavigator_SignOut(t *testing.T) {
	nav := NewNavigator(checkerFunc(func(ctx context.Context) Session {
		return Session{State: StateAuthenticated, Role: RoleAdmin}
	}))

	s := nav.Navigate(context.Background(), RouteAdmin)
	assert.True(t, s.Authenticated())

	nav.SignOut()
	assert.Equal(t, Anonymous, nav.Current())
	assert.Equal(t, RouteLanding, nav.Route())
}

func TestNavigator_CancelledParentContext(t *testing.T) {
	api := &fakeAPI{whoErr: context.Canceled}
	nav := NewNavigator(NewManager(api))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := nav.Navigate(ctx, RouteAdmin)
	assert.Equal(t, Anonymous, s)
	assert.Equal(t, 1, api.whoCalls)
}
