package session

import "slices"

// Link is an entry of the navigation bar
type Link struct {
	Label string
	Route Route
}

// NavLinks returns the navigation bar for a session: Login and Verify for
// anyone not logged in, the role's dashboard and Logout otherwise.
func NavLinks(s Session) []Link {
	if !s.Authenticated() {
		return []Link{
			{Label: "Login", Route: RouteLogin},
			{Label: "Verify", Route: RouteVerify},
		}
	}

	dashboard := RouteVolunteer
	if s.Role == RoleAdmin {
		dashboard = RouteAdmin
	}
	return []Link{
		{Label: "Dashboard", Route: dashboard},
		{Label: "Logout", Route: RouteLanding},
	}
}

// Action is something a command or view lets the caller do
type Action string

// Admin-only actions
const (
	ActionCreateEvent         Action = "create-event"
	ActionUpdateEvent         Action = "update-event"
	ActionDeleteEvent         Action = "delete-event"
	ActionListPendingMembers  Action = "list-pending-members"
	ActionApproveMember       Action = "approve-member"
	ActionRejectMember        Action = "reject-member"
	ActionViewParticipants    Action = "view-participants"
	ActionCompleteParticipant Action = "complete-participation"
	ActionUpdateOrganization  Action = "update-organization"
	ActionUpdateAdminProfile  Action = "update-admin-profile"
	ActionViewAnalytics       Action = "view-analytics"
)

// Volunteer-only actions
const (
	ActionJoinOrganization       Action = "join-organization"
	ActionQuitOrganization       Action = "quit-organization"
	ActionJoinEvent              Action = "join-event"
	ActionListParticipations     Action = "list-participations"
	ActionUpdateVolunteerProfile Action = "update-volunteer-profile"
)

// Actions open to any logged-in caller
const (
	ActionViewEvents  Action = "view-events"
	ActionViewProfile Action = "view-profile"

	// Admins download for any participation in their organization,
	// volunteers for their own
	ActionDownloadCertificate Action = "download-certificate"
)

var adminActions = []Action{
	ActionCreateEvent,
	ActionUpdateEvent,
	ActionDeleteEvent,
	ActionListPendingMembers,
	ActionApproveMember,
	ActionRejectMember,
	ActionViewParticipants,
	ActionCompleteParticipant,
	ActionUpdateOrganization,
	ActionUpdateAdminProfile,
	ActionViewAnalytics,
}

var volunteerActions = []Action{
	ActionJoinOrganization,
	ActionQuitOrganization,
	ActionJoinEvent,
	ActionListParticipations,
	ActionUpdateVolunteerProfile,
}

var commonActions = []Action{
	ActionViewEvents,
	ActionViewProfile,
	ActionDownloadCertificate,
}

// Actions lists what the session may do. An unknown role only gets the
// actions shared by both roles, even though it lands on the volunteer view.
func Actions(s Session) []Action {
	if !s.Authenticated() {
		return nil
	}

	actions := append([]Action{}, commonActions...)
	switch s.Role {
	case RoleAdmin:
		actions = append(actions, adminActions...)
	case RoleVolunteer:
		actions = append(actions, volunteerActions...)
	}
	return actions
}

// Allows reports whether the session may perform action
func Allows(s Session, action Action) bool {
	return slices.Contains(Actions(s), action)
}

// RequiredRole returns the role an action is reserved for, or RoleUnknown
// when any logged-in caller may perform it
func RequiredRole(action Action) Role {
	switch {
	case slices.Contains(adminActions, action):
		return RoleAdmin
	case slices.Contains(volunteerActions, action):
		return RoleVolunteer
	default:
		return RoleUnknown
	}
}
