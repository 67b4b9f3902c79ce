// Package session resolves who the caller is and which views and actions
// that grants.
package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/quantrack/quantrack/internal/cli/client"
)

// State is the client-perceived authentication state
type State int

const (
	StateUnknown State = iota
	StateChecking
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Role is the role the backend reports for the caller
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleVolunteer Role = "volunteer"
	RoleUnknown   Role = "unknown"
)

// ParseRole maps a server role string onto a Role. Matching ignores case and
// surrounding space; anything else is RoleUnknown.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleVolunteer:
		return RoleVolunteer
	default:
		return RoleUnknown
	}
}

// Session is a snapshot of the caller's authentication state. It is never
// persisted.
type Session struct {
	State State
	Role  Role
	User  *client.User
}

// Anonymous is the session of a caller who is not logged in
var Anonymous = Session{State: StateAnonymous, Role: RoleUnknown}

// Authenticated reports whether the session belongs to a logged-in caller
func (s Session) Authenticated() bool {
	return s.State == StateAuthenticated
}

func (s Session) String() string {
	if !s.Authenticated() {
		return s.State.String()
	}
	return fmt.Sprintf("%s (%s)", s.State, s.Role)
}

// Route is a client-side location
type Route string

const (
	RouteLanding   Route = "/"
	RouteLogin     Route = "/login"
	RouteVerify    Route = "/verify-email"
	RouteAdmin     Route = "/admin"
	RouteVolunteer Route = "/volunteer"
)

// ErrUnrecognizedRole is returned by RouteFor in strict mode when the role is
// neither admin nor volunteer
var ErrUnrecognizedRole = errors.New("unrecognized role")

// RouteFor returns the dashboard a role lands on after login. Unknown roles
// get the volunteer view unless strict is set.
func RouteFor(role Role, strict bool) (Route, error) {
	switch role {
	case RoleAdmin:
		return RouteAdmin, nil
	case RoleVolunteer:
		return RouteVolunteer, nil
	}
	if strict {
		return RouteLogin, ErrUnrecognizedRole
	}
	return RouteVolunteer, nil
}

// Guard returns where a session that asked for route actually ends up.
// Dashboards require authentication; the admin dashboard requires the admin
// role.
func Guard(s Session, route Route) Route {
	switch route {
	case RouteAdmin, RouteVolunteer:
	default:
		return route
	}

	if !s.Authenticated() {
		return RouteLogin
	}
	if route == RouteAdmin && s.Role != RoleAdmin {
		return RouteVolunteer
	}
	if route == RouteVolunteer && s.Role == RoleAdmin {
		return RouteAdmin
	}
	return route
}
