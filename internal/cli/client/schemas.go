package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Decimal accepts a JSON number or a numeric string. The backend serializes
// decimal fields such as service_hours as strings.
type Decimal float64

func (d *Decimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		return nil
	}

	s := strings.Trim(string(data), `"`)
	if s == "" {
		*d = 0
		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid decimal %s: %w", string(data), err)
	}
	*d = Decimal(f)
	return nil
}

func (d Decimal) String() string {
	return strconv.FormatFloat(float64(d), 'f', -1, 64)
}

// User is the account embedded in login and profile responses
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active,omitempty"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents the login response. The backend may return a
// token, a success flag with user data, or both.
type LoginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Token   string `json:"token,omitempty"`
	Access  string `json:"access,omitempty"`
	Refresh string `json:"refresh,omitempty"`
	User    *User  `json:"user,omitempty"`
}

// BearerToken returns the issued token, if any
func (r *LoginResponse) BearerToken() string {
	if r.Token != "" {
		return r.Token
	}
	return r.Access
}

// Accepted reports whether the response counts as a successful login
func (r *LoginResponse) Accepted() bool {
	return r.BearerToken() != "" || (r.Success && r.User != nil)
}

// Role returns the role carried by the response, or ""
func (r *LoginResponse) Role() string {
	if r.User == nil {
		return ""
	}
	return r.User.Role
}

// WhoAmIResponse is the result of GET /authenticated/. The endpoint answers
// either a bare string or an object carrying the user and role.
type WhoAmIResponse struct {
	Authenticated bool
	User          *User
}

func (w *WhoAmIResponse) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		w.Authenticated = true
		return nil
	}

	var obj struct {
		Authenticated *bool  `json:"authenticated"`
		User          *User  `json:"user"`
		Role          string `json:"role"`
		Email         string `json:"email"`
		ID            string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid who-am-I response: %w", err)
	}

	w.Authenticated = obj.Authenticated == nil || *obj.Authenticated
	w.User = obj.User
	if w.User == nil && (obj.Role != "" || obj.Email != "" || obj.ID != "") {
		w.User = &User{ID: obj.ID, Email: obj.Email, Role: obj.Role}
	}
	if w.User != nil && w.User.Role == "" {
		w.User.Role = obj.Role
	}
	return nil
}

// Role returns the role carried by the response, or ""
func (w *WhoAmIResponse) Role() string {
	if w.User == nil {
		return ""
	}
	return w.User.Role
}

// RegisterRequest is the signup payload for either role. Admin signups
// carry the organization they create.
type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Username        string `json:"username,omitempty"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"required,oneof=volunteer admin"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`

	// Volunteer fields
	DateOfBirth          string `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	SchoolOrOrganization string `json:"school_or_organization,omitempty"`

	// Admin + organization fields
	OrganizationID      int    `json:"organization_id,omitempty"`
	OrganizationName    string `json:"organization_name,omitempty"`
	DateOfEstablishment string `json:"date_of_establishment,omitempty" validate:"omitempty,datetime=2006-01-02"`
	RegistrationNumber  string `json:"registration_number,omitempty"`
	OrganizationType    string `json:"organization_type,omitempty"`
	Website             string `json:"website,omitempty" validate:"omitempty,url"`
	Description         string `json:"description,omitempty"`
	Address             string `json:"address,omitempty"`
	City                string `json:"city,omitempty"`
	Country             string `json:"country,omitempty"`
	PhoneNumber         string `json:"phone_number,omitempty"`
	JobTitle            string `json:"job_title,omitempty"`
}

// VerifyEmailRequest carries the emailed verification code
type VerifyEmailRequest struct {
	Code string `json:"code" validate:"required"`
}

// PasswordResetRequest asks for a reset link
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest sets a new password from a reset link
type PasswordResetConfirmRequest struct {
	UIDB64   string `json:"uidb64" validate:"required"`
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// JoinCodeRequest identifies an organization by its join code
type JoinCodeRequest struct {
	JoinCode string `json:"join_code" validate:"required,max=10"`
}

// OrganizationRef is the short form of an organization
type OrganizationRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MembershipChangeResponse answers join and quit requests
type MembershipChangeResponse struct {
	Success                bool              `json:"success"`
	Message                string            `json:"message"`
	JoinedOrganizations    []OrganizationRef `json:"joined_organizations,omitempty"`
	RemainingOrganizations []OrganizationRef `json:"remaining_organizations,omitempty"`
}

// OrganizationAdmin lists an admin of an organization
type OrganizationAdmin struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Organization is a team that volunteers join with a join code
type Organization struct {
	ID                  int                 `json:"id"`
	Name                string              `json:"name"`
	DateOfEstablishment string              `json:"date_of_establishment"`
	RegistrationNumber  string              `json:"registration_number"`
	OrganizationType    string              `json:"organization_type"`
	Website             string              `json:"website"`
	Description         string              `json:"description"`
	Logo                string              `json:"logo"`
	Address             string              `json:"address"`
	City                string              `json:"city"`
	Country             string              `json:"country"`
	JoinCode            string              `json:"join_code"`
	Admins              []OrganizationAdmin `json:"admins,omitempty"`
}

// OrganizationField holds an organization that the backend serializes
// either as a primary key or as a nested object.
type OrganizationField struct {
	Organization
}

func (o *OrganizationField) UnmarshalJSON(data []byte) error {
	var id int
	if err := json.Unmarshal(data, &id); err == nil {
		o.ID = id
		return nil
	}
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}
	return json.Unmarshal(data, &o.Organization)
}

// OrganizationRegistration is the payload for POST /register-organization/
type OrganizationRegistration struct {
	Name                string `json:"name" validate:"required,max=100"`
	DateOfEstablishment string `json:"date_of_establishment" validate:"required,datetime=2006-01-02"`
	RegistrationNumber  string `json:"registration_number,omitempty"`
	OrganizationType    string `json:"organization_type" validate:"required"`
	Website             string `json:"website,omitempty" validate:"omitempty,url"`
	Description         string `json:"description,omitempty" validate:"max=500"`
	Address             string `json:"address" validate:"required"`
	City                string `json:"city" validate:"required"`
	Country             string `json:"country" validate:"required"`
}

// OrganizationUpdate is the partial payload for PATCH /update-organization/
type OrganizationUpdate struct {
	Name                string `json:"name,omitempty" validate:"max=100"`
	DateOfEstablishment string `json:"date_of_establishment,omitempty" validate:"omitempty,datetime=2006-01-02"`
	RegistrationNumber  string `json:"registration_number,omitempty"`
	OrganizationType    string `json:"organization_type,omitempty"`
	Website             string `json:"website,omitempty" validate:"omitempty,url"`
	Description         string `json:"description,omitempty" validate:"max=500"`
	Address             string `json:"address,omitempty"`
	City                string `json:"city,omitempty"`
	Country             string `json:"country,omitempty"`
}

// AdminProfile is an admin's own profile
type AdminProfile struct {
	ProfileID    string            `json:"profile_id" validate:"required"`
	User         User              `json:"user"`
	Organization OrganizationField `json:"organization"`
	JobTitle     string            `json:"job_title"`
	PhoneNumber  string            `json:"phone_number"`
}

// AdminProfileUpdate is the partial payload for PATCH /update-admin-data/
type AdminProfileUpdate struct {
	JobTitle    string `json:"job_title,omitempty" validate:"max=100"`
	PhoneNumber string `json:"phone_number,omitempty" validate:"max=15"`
}

// VolunteerProfile is a volunteer's profile
type VolunteerProfile struct {
	ProfileID            string   `json:"profile_id" validate:"required"`
	User                 User     `json:"user"`
	DateOfBirth          string   `json:"date_of_birth"`
	SchoolOrOrganization string   `json:"school_or_organization"`
	Organizations        []int    `json:"organizations"`
	OrganizationsNames   []string `json:"organizations_names"`
}

// VolunteerProfileUpdate is the partial payload for PATCH /update-volunteer-data/
type VolunteerProfileUpdate struct {
	DateOfBirth          string `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	SchoolOrOrganization string `json:"school_or_organization,omitempty" validate:"max=100"`
}

// Event is a volunteering event run by an organization
type Event struct {
	ID              int     `json:"id" validate:"required"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Date            string  `json:"date"`
	Time            string  `json:"time,omitempty"`
	Location        string  `json:"location"`
	IsPublic        bool    `json:"is_public"`
	ServiceHours    Decimal `json:"service_hours"`
	MaxParticipants *int    `json:"max_participants,omitempty"`
}

// EventInput is the payload for POST /create-event/
type EventInput struct {
	Name            string  `json:"name" validate:"required,max=100"`
	Description     string  `json:"description" validate:"required"`
	Date            string  `json:"date" validate:"required,datetime=2006-01-02"`
	Time            string  `json:"time,omitempty"`
	Location        string  `json:"location" validate:"required,max=200"`
	IsPublic        bool    `json:"is_public"`
	ServiceHours    float64 `json:"service_hours" validate:"gte=0,lt=1000"`
	MaxParticipants *int    `json:"max_participants,omitempty" validate:"omitempty,gt=0"`
}

// EventPatch is the partial payload for PATCH /update-event/:id/
type EventPatch struct {
	Name            *string  `json:"name,omitempty" validate:"omitempty,max=100"`
	Description     *string  `json:"description,omitempty"`
	Date            *string  `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Time            *string  `json:"time,omitempty"`
	Location        *string  `json:"location,omitempty" validate:"omitempty,max=200"`
	IsPublic        *bool    `json:"is_public,omitempty"`
	ServiceHours    *float64 `json:"service_hours,omitempty" validate:"omitempty,gte=0,lt=1000"`
	MaxParticipants *int     `json:"max_participants,omitempty" validate:"omitempty,gt=0"`
}

// EventList accepts either a bare array or an {"events": [...]} envelope
type EventList struct {
	Events []Event `json:"events" validate:"dive"`
}

func (l *EventList) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		return json.Unmarshal(data, &l.Events)
	}
	var env struct {
		Events []Event `json:"events"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	l.Events = env.Events
	return nil
}

// PendingMember is a membership awaiting admin approval
type PendingMember struct {
	MembershipID   int    `json:"membership_id" validate:"required"`
	VolunteerID    string `json:"volunteer_id"`
	VolunteerName  string `json:"volunteer_name"`
	VolunteerEmail string `json:"volunteer_email,omitempty"`
	JoinDate       string `json:"join_date"`
}

// ParticipationRecord is a volunteer's attendance of an event
type ParticipationRecord struct {
	ID               int     `json:"id" validate:"required"`
	Volunteer        string  `json:"volunteer,omitempty"`
	VolunteerName    string  `json:"volunteer_name"`
	VolunteerEmail   string  `json:"volunteer_email,omitempty"`
	Event            int     `json:"event,omitempty"`
	EventName        string  `json:"event_name,omitempty"`
	DateParticipated string  `json:"date_participated,omitempty"`
	JoinDate         string  `json:"join_date,omitempty"`
	HoursCompleted   Decimal `json:"hours_completed"`
	Status           string  `json:"status"`
}

// Completed reports whether the participation is eligible for a certificate
func (p ParticipationRecord) Completed() bool {
	return strings.EqualFold(p.Status, "completed")
}

// EventParticipations is the admin view of one event's participants
type EventParticipations struct {
	Event          *Event                `json:"event,omitempty" validate:"-"`
	Participations []ParticipationRecord `json:"participations" validate:"dive"`
}

// ParticipationList accepts either a bare array or a {"participations": [...]} envelope
type ParticipationList struct {
	Participations []ParticipationRecord `json:"participations" validate:"dive"`
}

func (l *ParticipationList) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		return json.Unmarshal(data, &l.Participations)
	}
	var env struct {
		Participations []ParticipationRecord `json:"participations"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	l.Participations = env.Participations
	return nil
}

// AdminStats is the admin dashboard summary
type AdminStats struct {
	TotalEventsManaged      int `json:"total_events_managed" yaml:"total_events_managed"`
	TotalParticipations     int `json:"total_participations" yaml:"total_participations"`
	CompletedParticipations int `json:"completed_participations" yaml:"completed_participations"`
}

// TopVolunteer is a leaderboard row
type TopVolunteer struct {
	Name              string  `json:"name" yaml:"name"`
	EventsCount       int     `json:"events_count" yaml:"events_count"`
	TotalHours        Decimal `json:"total_hours" yaml:"total_hours"`
	CertificatesCount int     `json:"certificates_count" yaml:"certificates_count"`
}

// VolunteerStats aggregates volunteer activity for an organization
type VolunteerStats struct {
	TotalServiceHours    Decimal        `json:"total_service_hours" yaml:"total_service_hours"`
	ActiveVolunteers     int            `json:"active_volunteers" yaml:"active_volunteers"`
	AvgHoursPerVolunteer Decimal        `json:"avg_hours_per_volunteer" yaml:"avg_hours_per_volunteer"`
	CertificatesIssued   int            `json:"certificates_issued" yaml:"certificates_issued"`
	TopVolunteers        []TopVolunteer `json:"top_volunteers,omitempty" yaml:"top_volunteers,omitempty"`
}

// TopEvent is an event ranked by participants
type TopEvent struct {
	Name         string `json:"name" yaml:"name"`
	Participants int    `json:"participants" yaml:"participants"`
}

// EventParticipationStats aggregates event attendance
type EventParticipationStats struct {
	UpcomingEvents          int            `json:"upcoming_events" yaml:"upcoming_events"`
	TotalParticipations     int            `json:"total_participations" yaml:"total_participations"`
	AvgParticipantsPerEvent Decimal        `json:"avg_participants_per_event" yaml:"avg_participants_per_event"`
	CompletionRate          Decimal        `json:"completion_rate" yaml:"completion_rate"`
	ParticipationByMonth    map[string]int `json:"participation_by_month,omitempty" yaml:"participation_by_month,omitempty"`
	TopEvents               []TopEvent     `json:"top_events,omitempty" yaml:"top_events,omitempty"`
}

// OrganizationStats summarises the admin's organization
type OrganizationStats struct {
	TotalMembers     int `json:"total_members" yaml:"total_members"`
	ActiveVolunteers int `json:"active_volunteers" yaml:"active_volunteers"`
	TotalEvents      int `json:"total_events" yaml:"total_events"`
	CompletedEvents  int `json:"completed_events" yaml:"completed_events"`
}

// MyVolunteerStats summarises the calling volunteer's own activity
type MyVolunteerStats struct {
	TotalHours         Decimal `json:"total_hours"`
	EventsJoined       int     `json:"events_joined"`
	EventsCompleted    int     `json:"events_completed"`
	CertificatesEarned int     `json:"certificates_earned"`
	Organizations      int     `json:"organizations"`
}
