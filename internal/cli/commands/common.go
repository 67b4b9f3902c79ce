package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/quantrack/quantrack/internal/cli/auth"
	"github.com/quantrack/quantrack/internal/cli/client"
	"github.com/quantrack/quantrack/internal/cli/config"
	"github.com/quantrack/quantrack/internal/cli/profileselect"
	"github.com/quantrack/quantrack/internal/cli/userconfig"
	appconfig "github.com/quantrack/quantrack/internal/config"
	"github.com/quantrack/quantrack/internal/logger"
	"github.com/quantrack/quantrack/internal/session"
)

// GlobalOptions are the persistent flags of the root command
type GlobalOptions struct {
	APIBaseURL string
	Profile    string
	LogLevel   string
}

// Globals is bound to the root command's persistent flags
var Globals GlobalOptions

// apiClient is the full Quantrack API surface used by commands
type apiClient interface {
	session.API

	RefreshToken(ctx context.Context) error
	Register(ctx context.Context, req client.RegisterRequest) (*client.User, error)
	VerifyEmail(ctx context.Context, code string) error
	ResendVerificationCode(ctx context.Context) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, req client.PasswordResetConfirmRequest) error

	JoinOrganization(ctx context.Context, joinCode string) (*client.MembershipChangeResponse, error)
	QuitOrganization(ctx context.Context, joinCode string) (*client.MembershipChangeResponse, error)
	RegisterOrganization(ctx context.Context, req client.OrganizationRegistration) (*client.Organization, error)
	UpdateOrganization(ctx context.Context, req client.OrganizationUpdate) (*client.Organization, error)

	MyAdminData(ctx context.Context) (*client.AdminProfile, error)
	UpdateAdminData(ctx context.Context, req client.AdminProfileUpdate) (*client.AdminProfile, error)
	AdminData(ctx context.Context, adminID string) (*client.AdminProfile, error)
	MyVolunteerData(ctx context.Context) (*client.VolunteerProfile, error)
	UpdateVolunteerData(ctx context.Context, req client.VolunteerProfileUpdate) (*client.VolunteerProfile, error)
	VolunteerData(ctx context.Context, volunteerID string) (*client.VolunteerProfile, error)

	EventsAsAdmin(ctx context.Context) ([]client.Event, error)
	EventsAsVolunteer(ctx context.Context) ([]client.Event, error)
	Event(ctx context.Context, eventID string) (*client.Event, error)
	CreateEvent(ctx context.Context, req client.EventInput) (*client.Event, error)
	UpdateEvent(ctx context.Context, eventID string, req client.EventPatch) (*client.Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
	JoinEvent(ctx context.Context, eventID string) (*client.ParticipationRecord, error)

	PendingMembers(ctx context.Context) ([]client.PendingMember, error)
	ApproveMembership(ctx context.Context, membershipID string) error
	RejectMembership(ctx context.Context, membershipID string) error

	ParticipationsAsAdmin(ctx context.Context, eventID string) (*client.EventParticipations, error)
	ParticipationsAsVolunteer(ctx context.Context) ([]client.ParticipationRecord, error)
	CompleteParticipation(ctx context.Context, participationID string) error
	DownloadCertificate(ctx context.Context, participationID, method string) (*client.Blob, error)

	MyAdminStats(ctx context.Context) (*client.AdminStats, error)
	VolunteerStats(ctx context.Context) (*client.VolunteerStats, error)
	EventParticipationStats(ctx context.Context) (*client.EventParticipationStats, error)
	MyOrganizationStats(ctx context.Context) (*client.OrganizationStats, error)
	MyVolunteerStats(ctx context.Context) (*client.MyVolunteerStats, error)
}

// cmdEnv carries what a command needs. Tests inject fakes through Options;
// anything left unset is built from configuration.
type cmdEnv struct {
	api         apiClient
	tokens      auth.TokenStore
	cookies     session.CookieClearer
	strict      *bool
	out         io.Writer
	logger      *zerolog.Logger
	interactive *bool
}

// Option configures a command run
type Option func(*cmdEnv)

// WithAPIClient sets the API client
func WithAPIClient(api apiClient) Option {
	return func(r *cmdEnv) { r.api = api }
}

// WithTokenStore sets the token store
func WithTokenStore(store auth.TokenStore) Option {
	return func(r *cmdEnv) { r.tokens = store }
}

// WithCookieStore sets the cookie store cleared on logout
func WithCookieStore(cookies session.CookieClearer) Option {
	return func(r *cmdEnv) { r.cookies = cookies }
}

// WithStrictRoles overrides QUANTRACK_STRICT_ROLES
func WithStrictRoles(strict bool) Option {
	return func(r *cmdEnv) { r.strict = &strict }
}

// WithOutput sets where command output is written
func WithOutput(w io.Writer) Option {
	return func(r *cmdEnv) { r.out = w }
}

// WithInteractive overrides terminal detection for prompts
func WithInteractive(interactive bool) Option {
	return func(r *cmdEnv) { r.interactive = &interactive }
}

// applyOptions builds an env without touching configuration, for commands
// that never call the API
func applyOptions(opts ...Option) *cmdEnv {
	r := &cmdEnv{}
	for _, opt := range opts {
		opt(r)
	}
	if r.out == nil {
		r.out = os.Stdout
	}
	return r
}

func newEnv(opts ...Option) (*cmdEnv, error) {
	r := applyOptions(opts...)
	if r.logger == nil {
		l := logger.GetLogger()
		r.logger = &l
	}
	if r.interactive == nil {
		interactive := term.IsTerminal(int(syscall.Stdin))
		r.interactive = &interactive
	}

	if r.api != nil && r.strict != nil {
		if r.tokens == nil {
			r.tokens = auth.NewMemoryStore()
		}
		return r, nil
	}

	cfg, err := appconfig.Load()
	if err != nil {
		return nil, err
	}
	if r.strict == nil {
		r.strict = &cfg.API.StrictRoles
	}
	if r.api != nil {
		if r.tokens == nil {
			r.tokens = auth.NewMemoryStore()
		}
		return r, nil
	}

	baseURL, err := resolveBaseURL(cfg, *r.interactive, r.out)
	if err != nil {
		return nil, err
	}

	if r.tokens == nil {
		r.tokens = auth.NewKeyringStore(cfg.API.KeyringService)
	}

	cookieDir, err := userconfig.GetCookieDir()
	if err != nil {
		return nil, err
	}
	cookieStore := auth.NewCookieStore(cookieDir, auth.WithCookieLogger(*r.logger))
	if r.cookies == nil {
		r.cookies = cookieStore
	}

	jar, err := cookieStore.Jar(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load session cookies: %w", err)
	}

	c, err := client.New(baseURL,
		client.WithTokenStore(r.tokens),
		client.WithCookieJar(jar),
		client.WithLogger(*r.logger),
		client.WithTimeout(cfg.API.Timeout),
	)
	if err != nil {
		return nil, err
	}
	r.api = c

	return r, nil
}

// resolveBaseURL applies --api > QUANTRACK_API_BASE_URL > selected profile > default
func resolveBaseURL(cfg *appconfig.Config, interactive bool, out io.Writer) (string, error) {
	if Globals.APIBaseURL != "" || cfg.API.BaseURL != "" {
		return config.NormalizeBaseURL(cfg.ResolveBaseURL(Globals.APIBaseURL, ""))
	}

	projectConfig, err := config.LoadFromCurrentDir()
	if err != nil {
		if Globals.Profile != "" {
			return "", fmt.Errorf("failed to load config: %w\nRun 'quantrack init' to create a configuration file", err)
		}
		return appconfig.DefaultAPIBaseURL, nil
	}

	profile, err := profileselect.ResolveProfile(projectConfig, Globals.Profile, interactive, out)
	if err != nil {
		return "", err
	}
	return config.NormalizeBaseURL(cfg.ResolveBaseURL("", profile.APIBaseURL))
}

func (r *cmdEnv) manager() *session.Manager {
	return session.NewManager(r.api,
		session.WithTokenStore(r.tokens),
		session.WithCookieClearer(r.cookies),
		session.WithStrictRoles(*r.strict),
		session.WithLogger(*r.logger),
	)
}

// require resolves the session and refuses actions its role does not grant.
// The backend still enforces authorization; this only keeps the surface
// honest.
func (r *cmdEnv) require(ctx context.Context, action session.Action) (session.Session, error) {
	s := r.manager().Check(ctx)
	return s, authorize(s, action)
}

func authorize(s session.Session, action session.Action) error {
	if !s.Authenticated() {
		return auth.ErrNotAuthenticated
	}
	if !session.Allows(s, action) {
		return fmt.Errorf("%s is only available to %s accounts (signed in as %s)",
			action, session.RequiredRole(action), s.Role)
	}
	return nil
}

func (r *cmdEnv) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// requestError carries the message shown for a failed request
type requestError struct {
	msg string
	err error
}

func (e *requestError) Error() string { return e.msg }
func (e *requestError) Unwrap() error { return e.err }

// failed turns a request error into the one-line message printed to the user:
// the server's message when it sent one, fallback otherwise.
func failed(err error, fallback string) error {
	if err == nil {
		return nil
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w", fallback, err)
	}
	return &requestError{msg: client.UserMessage(err, fallback), err: err}
}
