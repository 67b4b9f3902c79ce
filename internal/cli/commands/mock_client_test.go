package commands

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/quantrack/quantrack/internal/cli/auth"
	"github.com/quantrack/quantrack/internal/cli/client"
)

const testBaseURL = "http://quantrack.test/api"

// mockClient simulates the API client. Methods a test does not set up panic
// through the embedded nil interface.
type mockClient struct {
	apiClient

	loginResp *client.LoginResponse
	loginErr  error
	who       *client.WhoAmIResponse
	whoErr    error
	logoutErr error
	logouts   int

	adminEvents     []client.Event
	volunteerEvents []client.Event
	pending         []client.PendingMember
	participations  []client.ParticipationRecord
	eventParts      *client.EventParticipations
	adminProfile    *client.AdminProfile
	volProfile      *client.VolunteerProfile
	adminStats      *client.AdminStats
	myStats         *client.MyVolunteerStats
	volStats        *client.VolunteerStats
	eventStats      *client.EventParticipationStats
	orgStats        *client.OrganizationStats
	blob            *client.Blob
	failOn          string

	mu    sync.Mutex
	calls []string
}

// record is called from concurrent dashboard loads
func (m *mockClient) record(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
	if m.failOn == name {
		return &client.APIError{Kind: client.KindUnexpected, Status: 500, Message: name + " exploded"}
	}
	return nil
}

func (m *mockClient) called(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calls {
		if c == name {
			return true
		}
	}
	return false
}

func (m *mockClient) BaseURL() string { return testBaseURL }

func (m *mockClient) Login(ctx context.Context, email, password string) (*client.LoginResponse, error) {
	m.record("Login")
	return m.loginResp, m.loginErr
}

func (m *mockClient) WhoAmI(ctx context.Context) (*client.WhoAmIResponse, error) {
	m.record("WhoAmI")
	if m.whoErr != nil {
		return nil, m.whoErr
	}
	if m.who == nil {
		return nil, &client.APIError{Kind: client.KindUnauthorized, Status: 401, Message: "not logged in"}
	}
	return m.who, nil
}

func (m *mockClient) Logout(ctx context.Context) error {
	m.logouts++
	return m.logoutErr
}

func (m *mockClient) EventsAsAdmin(ctx context.Context) ([]client.Event, error) {
	if err := m.record("EventsAsAdmin"); err != nil {
		return nil, err
	}
	return m.adminEvents, nil
}

func (m *mockClient) EventsAsVolunteer(ctx context.Context) ([]client.Event, error) {
	if err := m.record("EventsAsVolunteer"); err != nil {
		return nil, err
	}
	return m.volunteerEvents, nil
}

func (m *mockClient) CreateEvent(ctx context.Context, req client.EventInput) (*client.Event, error) {
	if err := m.record("CreateEvent"); err != nil {
		return nil, err
	}
	return &client.Event{ID: 7, Name: req.Name}, nil
}

func (m *mockClient) UpdateEvent(ctx context.Context, eventID string, req client.EventPatch) (*client.Event, error) {
	if err := m.record("UpdateEvent"); err != nil {
		return nil, err
	}
	name := "Unchanged"
	if req.Name != nil {
		name = *req.Name
	}
	return &client.Event{ID: 7, Name: name}, nil
}

func (m *mockClient) DeleteEvent(ctx context.Context, eventID string) error {
	return m.record("DeleteEvent")
}

func (m *mockClient) JoinEvent(ctx context.Context, eventID string) (*client.ParticipationRecord, error) {
	if err := m.record("JoinEvent"); err != nil {
		return nil, err
	}
	return &client.ParticipationRecord{ID: 11, Status: "registered"}, nil
}

func (m *mockClient) PendingMembers(ctx context.Context) ([]client.PendingMember, error) {
	if err := m.record("PendingMembers"); err != nil {
		return nil, err
	}
	return m.pending, nil
}

func (m *mockClient) ApproveMembership(ctx context.Context, membershipID string) error {
	return m.record("ApproveMembership")
}

func (m *mockClient) RejectMembership(ctx context.Context, membershipID string) error {
	return m.record("RejectMembership")
}

func (m *mockClient) ParticipationsAsAdmin(ctx context.Context, eventID string) (*client.EventParticipations, error) {
	if err := m.record("ParticipationsAsAdmin"); err != nil {
		return nil, err
	}
	return m.eventParts, nil
}

func (m *mockClient) ParticipationsAsVolunteer(ctx context.Context) ([]client.ParticipationRecord, error) {
	if err := m.record("ParticipationsAsVolunteer"); err != nil {
		return nil, err
	}
	return m.participations, nil
}

func (m *mockClient) CompleteParticipation(ctx context.Context, participationID string) error {
	return m.record("CompleteParticipation")
}

func (m *mockClient) DownloadCertificate(ctx context.Context, participationID, method string) (*client.Blob, error) {
	if err := m.record("DownloadCertificate " + method); err != nil {
		return nil, err
	}
	return m.blob, nil
}

func (m *mockClient) MyAdminData(ctx context.Context) (*client.AdminProfile, error) {
	if err := m.record("MyAdminData"); err != nil {
		return nil, err
	}
	return m.adminProfile, nil
}

func (m *mockClient) MyVolunteerData(ctx context.Context) (*client.VolunteerProfile, error) {
	if err := m.record("MyVolunteerData"); err != nil {
		return nil, err
	}
	return m.volProfile, nil
}

func (m *mockClient) MyAdminStats(ctx context.Context) (*client.AdminStats, error) {
	if err := m.record("MyAdminStats"); err != nil {
		return nil, err
	}
	return m.adminStats, nil
}

func (m *mockClient) MyVolunteerStats(ctx context.Context) (*client.MyVolunteerStats, error) {
	if err := m.record("MyVolunteerStats"); err != nil {
		return nil, err
	}
	return m.myStats, nil
}

func (m *mockClient) VolunteerStats(ctx context.Context) (*client.VolunteerStats, error) {
	if err := m.record("VolunteerStats"); err != nil {
		return nil, err
	}
	return m.volStats, nil
}

func (m *mockClient) EventParticipationStats(ctx context.Context) (*client.EventParticipationStats, error) {
	if err := m.record("EventParticipationStats"); err != nil {
		return nil, err
	}
	return m.eventStats, nil
}

func (m *mockClient) MyOrganizationStats(ctx context.Context) (*client.OrganizationStats, error) {
	if err := m.record("MyOrganizationStats"); err != nil {
		return nil, err
	}
	return m.orgStats, nil
}

func (m *mockClient) JoinOrganization(ctx context.Context, joinCode string) (*client.MembershipChangeResponse, error) {
	if err := m.record("JoinOrganization"); err != nil {
		return nil, err
	}
	return &client.MembershipChangeResponse{Success: true, Message: "Request sent"}, nil
}

func (m *mockClient) Register(ctx context.Context, req client.RegisterRequest) (*client.User, error) {
	if err := m.record("Register " + req.Role); err != nil {
		return nil, err
	}
	return &client.User{Email: req.Email, Role: req.Role}, nil
}

// signedIn returns a mock whose session check reports role
func signedIn(role string) *mockClient {
	return &mockClient{
		who: &client.WhoAmIResponse{
			Authenticated: true,
			User:          &client.User{ID: "u1", Email: role + "@example.com", Role: role},
		},
	}
}

// fakeCookies records which base URLs were cleared
type fakeCookies struct {
	cleared []string
}

func (f *fakeCookies) Clear(baseURL string) error {
	f.cleared = append(f.cleared, baseURL)
	return nil
}

// testOptions wires a mock client with no keyring, config or terminal
func testOptions(api *mockClient, out *bytes.Buffer, extra ...Option) []Option {
	opts := []Option{
		WithAPIClient(api),
		WithOutput(out),
		WithStrictRoles(false),
		WithInteractive(false),
		WithTokenStore(auth.NewMemoryStore()),
		WithCookieStore(&fakeCookies{}),
	}
	return append(opts, extra...)
}

var errBoom = errors.New("connection refused")
