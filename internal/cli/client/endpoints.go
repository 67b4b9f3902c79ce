package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

func idPath(format, id string) string {
	return fmt.Sprintf(format, url.PathEscape(id))
}

// anonymous returns a copy of the client that sends neither cookies nor a
// bearer token
func (c *Client) anonymous() *Client {
	clone := *c
	hc := *c.httpClient
	hc.Jar = nil
	clone.httpClient = &hc
	clone.credentialed = false
	return &clone
}

// Login posts credentials to the token endpoint
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	req := LoginRequest{Email: email, Password: password}
	if err := c.checkRequest(req); err != nil {
		return nil, err
	}

	var resp LoginResponse
	if err := c.Do(ctx, http.MethodPost, "/token/", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RefreshToken asks the backend to rotate the access cookie
func (c *Client) RefreshToken(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/token/refresh/", nil, nil)
}

// WhoAmI queries the authentication status of the caller
func (c *Client) WhoAmI(ctx context.Context) (*WhoAmIResponse, error) {
	var resp WhoAmIResponse
	if err := c.Do(ctx, http.MethodGet, "/authenticated/", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout clears the server session
func (c *Client) Logout(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/logout/", nil, nil)
}

// Register creates an account. It is sent without credentials.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if err := c.checkRequest(req); err != nil {
		return nil, err
	}

	var user User
	if err := c.anonymous().Do(ctx, http.MethodPost, "/register/", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// VerifyEmail submits the emailed verification code
func (c *Client) VerifyEmail(ctx context.Context, code string) error {
	req := VerifyEmailRequest{Code: code}
	if err := c.checkRequest(req); err != nil {
		return err
	}
	return c.Do(ctx, http.MethodPost, "/verify-email/", req, nil)
}

// ResendVerificationCode asks for a new verification email
func (c *Client) ResendVerificationCode(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/resend-verification-code/", nil, nil)
}

// RequestPasswordReset sends a reset link to email
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	req := PasswordResetRequest{Email: email}
	if err := c.checkRequest(req); err != nil {
		return err
	}
	return c.Do(ctx, http.MethodPost, "/password-reset/", req, nil)
}

// ConfirmPasswordReset sets a new password using the reset link parameters
func (c *Client) ConfirmPasswordReset(ctx context.Context, req PasswordResetConfirmRequest) error {
	if err := c.checkRequest(req); err != nil {
		return err
	}
	return c.Do(ctx, http.MethodPost, "/password-reset-confirm/", req, nil)
}

// JoinOrganization requests membership using a join code
func (c *Client) JoinOrganization(ctx context.Context, joinCode string) (*MembershipChangeResponse, error) {
	return c.membershipChange(ctx, "/organizations/join/", joinCode)
}

// QuitOrganization leaves the organization identified by joinCode
func (c *Client) QuitOrganization(ctx context.Context, joinCode string) (*MembershipChangeResponse, error) {
	return c.membershipChange(ctx, "/organizations/quit/", joinCode)
}

func (c *Client) membershipChange(ctx context.Context, path, joinCode string) (*MembershipChangeResponse, error) {
	req := JoinCodeRequest{JoinCode: joinCode}
	if err := c.checkRequest(req); err != nil {
		return nil, err
	}

	var resp MembershipChangeResponse
	if err := c.Do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RegisterOrganization creates an organization
func (c *Client) RegisterOrganization(ctx context.Context, req OrganizationRegistration) (*Organization, error) {
	if err := c.checkRequest(req); err != nil {
		return nil, err
	}

	var org Organization
	if err := c.Do(ctx, http.MethodPost, "/register-organization/", req, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// UpdateOrganization patches the caller's organization
func (c *Client) UpdateOrganization(ctx context.Context, req OrganizationUpdate) (*Organization, error) {
	if err := c.checkRequest(req); err != nil {
		return nil, err
	}

	var org Organization
	if err := c.Do(ctx, http.MethodPatch, "/update-organization/", req, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// MyAdminData returns the caller's admin profile
func (c *Client) MyAdminData(ctx context.Context) (*AdminProfile, error) {
	var profile AdminProfile
	if err := c.Do(ctx, http.MethodGet, "/my-admin-data/", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateAdminData patches the caller's admin profile
func (c *Client) UpdateAdminData(ctx context.Context, req AdminProfileUpdate) (*AdminProfile, error) {
	if err := c.checkRequest(req); err != nil {
		return nil, err
	}

	var profile AdminProfile
	if err := c.Do(ctx, http.MethodPatch, "/update-admin-data/", req, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// AdminData returns another admin's profile
func (c *Client) AdminData(ctx context.Context, adminID string) (*AdminProfile, error) {
	var profile AdminProfile
	if err := c.Do(ctx, http.MethodGet, idPath("/get-admin-data/%s/", adminID), nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// MyVolunteerData returns the caller's volunteer profile
func (c *Client) MyVolunteerData(ctx context.Context) (*VolunteerProfile, error) {
	var profile VolunteerProfile
	if err := c.Do(ctx, http.MethodGet, "/my-volunteer-data/", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateVolunteerData patches the caller's volunteer profile
func (c *Client) UpdateVolunteerData(ctx context.Context, req VolunteerProfileUpdate) (*VolunteerProfile, error) {
	if err := c.checkRequest(req); err != nil {
		return nil, err
	}

	var profile VolunteerProfile
	if err := c.Do(ctx, http.MethodPatch, "/update-volunteer-data/", req, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// VolunteerData returns a volunteer's profile
func (c *Client) VolunteerData(ctx context.Context, volunteerID string) (*VolunteerProfile, error) {
	var profile VolunteerProfile
	if err := c.Do(ctx, http.MethodGet, idPath("/get-volunteer-data/%s/", volunteerID), nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// EventsAsAdmin lists events of the admin's organization
func (c *Client) EventsAsAdmin(ctx context.Context) ([]Event, error) {
	var list EventList
	if err := c.Do(ctx, http.MethodGet, "/get-my-events-as-admin/", nil, &list); err != nil {
		return nil, err
	}
	return list.Events, nil
}

// EventsAsVolunteer lists events visible to the volunteer
func (c *Client) EventsAsVolunteer(ctx context.Context) ([]Event, error) {
	var list EventList
	if err := c.Do(ctx, http.MethodGet, "/get-my-events-as-volunteer/", nil, &list); err != nil {
		return nil, err
	}
	return list.Events, nil
}

// Event returns one event
func (c *Client) Event(ctx context.Context, eventID string) (*Event, error) {
	var event Event
	if err := c.Do(ctx, http.MethodGet, idPath("/events/%s/", eventID), nil, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// CreateEvent creates an event in the admin's organization
func (c *Client) CreateEvent(ctx context.Context, req EventInput) (*Event, error) {
	if err := c.checkRequest(req); err != nil {
		return nil, err
	}

	var event Event
	if err := c.Do(ctx, http.MethodPost, "/create-event/", req, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// UpdateEvent patches an event
func (c *Client) UpdateEvent(ctx context.Context, eventID string, req EventPatch) (*Event, error) {
	if err := c.checkRequest(req); err != nil {
		return nil, err
	}

	var event Event
	if err := c.Do(ctx, http.MethodPatch, idPath("/update-event/%s/", eventID), req, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// DeleteEvent deletes an event
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	return c.Do(ctx, http.MethodDelete, idPath("/delete-event/%s/", eventID), nil, nil)
}

// JoinEvent signs the volunteer up for an event
func (c *Client) JoinEvent(ctx context.Context, eventID string) (*ParticipationRecord, error) {
	var record ParticipationRecord
	if err := c.Do(ctx, http.MethodPost, idPath("/events/%s/join/", eventID), nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// PendingMembers lists memberships awaiting approval
func (c *Client) PendingMembers(ctx context.Context) ([]PendingMember, error) {
	var members []PendingMember
	if err := c.Do(ctx, http.MethodGet, "/list_pending_members/", nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// ApproveMembership approves a pending membership
func (c *Client) ApproveMembership(ctx context.Context, membershipID string) error {
	return c.Do(ctx, http.MethodPatch, idPath("/approve_membership/%s/", membershipID), struct{}{}, nil)
}

// RejectMembership rejects a pending membership
func (c *Client) RejectMembership(ctx context.Context, membershipID string) error {
	return c.Do(ctx, http.MethodPatch, idPath("/reject_membership/%s/", membershipID), struct{}{}, nil)
}

// ParticipationsAsAdmin lists the participants of one event
func (c *Client) ParticipationsAsAdmin(ctx context.Context, eventID string) (*EventParticipations, error) {
	var resp EventParticipations
	if err := c.Do(ctx, http.MethodGet, idPath("/participations-as-admin/%s/", eventID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ParticipationsAsVolunteer lists the caller's participations
func (c *Client) ParticipationsAsVolunteer(ctx context.Context) ([]ParticipationRecord, error) {
	var list ParticipationList
	if err := c.Do(ctx, http.MethodGet, "/participations-as-volunteer/", nil, &list); err != nil {
		return nil, err
	}
	return list.Participations, nil
}

// CompleteParticipation marks a participation as completed
func (c *Client) CompleteParticipation(ctx context.Context, participationID string) error {
	return c.Do(ctx, http.MethodPatch, idPath("/participations/%s/complete/", participationID), struct{}{}, nil)
}

// CertificateFilename is the file name used when the server does not
// suggest one
func CertificateFilename(participationID string) string {
	return fmt.Sprintf("Certificate_%s.pdf", participationID)
}

// DownloadCertificate fetches the certificate for a completed participation.
// method is GET or POST; empty means GET.
func (c *Client) DownloadCertificate(ctx context.Context, participationID, method string) (*Blob, error) {
	switch method {
	case "":
		method = http.MethodGet
	case http.MethodGet, http.MethodPost:
	default:
		return nil, &APIError{Kind: KindUnexpected, Message: fmt.Sprintf("unsupported method %s for certificate download", method)}
	}

	blob, err := c.Download(ctx, method, idPath("/generate-certificate/%s/", participationID), nil)
	if err != nil {
		return nil, err
	}
	if blob.Filename == "" {
		blob.Filename = CertificateFilename(participationID)
	}
	return blob, nil
}

// MyAdminStats returns the admin dashboard summary
func (c *Client) MyAdminStats(ctx context.Context) (*AdminStats, error) {
	var stats AdminStats
	if err := c.Do(ctx, http.MethodGet, "/analytics/my-admin-stats/", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// VolunteerStats returns volunteer analytics for the admin's organization
func (c *Client) VolunteerStats(ctx context.Context) (*VolunteerStats, error) {
	var stats VolunteerStats
	if err := c.Do(ctx, http.MethodGet, "/analytics/volunteer-stats/", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// EventParticipationStats returns event attendance analytics
func (c *Client) EventParticipationStats(ctx context.Context) (*EventParticipationStats, error) {
	var stats EventParticipationStats
	if err := c.Do(ctx, http.MethodGet, "/analytics/event-participation-stats/", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// MyOrganizationStats returns the organization summary
func (c *Client) MyOrganizationStats(ctx context.Context) (*OrganizationStats, error) {
	var stats OrganizationStats
	if err := c.Do(ctx, http.MethodGet, "/analytics/my-organization-stats/", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// MyVolunteerStats returns the calling volunteer's own totals
func (c *Client) MyVolunteerStats(ctx context.Context) (*MyVolunteerStats, error) {
	var stats MyVolunteerStats
	if err := c.Do(ctx, http.MethodGet, "/analytics/my-volunteer-stats/", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
