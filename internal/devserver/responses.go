package devserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quantrack/quantrack/internal/models"
)

// decimal renders as a two-place numeric string, the way decimal columns
// travel over the API.
type decimal float64

func (d decimal) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatFloat(float64(d), 'f', 2, 64))), nil
}

type userDetail struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

func newUserDetail(u models.User) userDetail {
	return userDetail{ID: u.ID, Email: u.Email, Username: u.Username, Role: u.Role, IsActive: u.EmailVerified}
}

type organizationRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type organizationAdmin struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type organizationDetail struct {
	ID                  uint                `json:"id"`
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
	Admins              []organizationAdmin `json:"admins"`
}

func newOrganizationDetail(o models.Organization) organizationDetail {
	d := organizationDetail{
		ID:                  o.ID,
		Name:                o.Name,
		DateOfEstablishment: o.DateOfEstablishment,
		RegistrationNumber:  o.RegistrationNumber,
		OrganizationType:    o.OrganizationType,
		Website:             o.Website,
		Description:         o.Description,
		Address:             o.Address,
		City:                o.City,
		Country:             o.Country,
		JoinCode:            o.JoinCode,
		Admins:              []organizationAdmin{},
	}
	for _, a := range o.Admins {
		d.Admins = append(d.Admins, organizationAdmin{ID: a.User.ID, Username: a.User.Username, Email: a.User.Email})
	}
	return d
}

type adminProfileDetail struct {
	ProfileID    string             `json:"profile_id"`
	User         userDetail         `json:"user"`
	Organization organizationDetail `json:"organization"`
	JobTitle     string             `json:"job_title"`
	PhoneNumber  string             `json:"phone_number"`
}

func newAdminProfileDetail(p models.AdminProfile) adminProfileDetail {
	return adminProfileDetail{
		ProfileID:    p.ID,
		User:         newUserDetail(p.User),
		Organization: newOrganizationDetail(p.Organization),
		JobTitle:     p.JobTitle,
		PhoneNumber:  p.PhoneNumber,
	}
}

type volunteerProfileDetail struct {
	ProfileID            string     `json:"profile_id"`
	User                 userDetail `json:"user"`
	DateOfBirth          string     `json:"date_of_birth"`
	SchoolOrOrganization string     `json:"school_or_organization"`
	Organizations        []uint     `json:"organizations"`
	OrganizationsNames   []string   `json:"organizations_names"`
}

// newVolunteerProfileDetail lists only approved memberships as organizations
func newVolunteerProfileDetail(p models.VolunteerProfile) volunteerProfileDetail {
	d := volunteerProfileDetail{
		ProfileID:            p.ID,
		User:                 newUserDetail(p.User),
		DateOfBirth:          p.DateOfBirth,
		SchoolOrOrganization: p.SchoolOrOrganization,
		Organizations:        []uint{},
		OrganizationsNames:   []string{},
	}
	for _, m := range p.Memberships {
		if m.Status != models.MembershipApproved {
			continue
		}
		d.Organizations = append(d.Organizations, m.OrganizationID)
		d.OrganizationsNames = append(d.OrganizationsNames, m.Organization.Name)
	}
	return d
}

type eventDetail struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Date            string  `json:"date"`
	Time            string  `json:"time,omitempty"`
	Location        string  `json:"location"`
	IsPublic        bool    `json:"is_public"`
	ServiceHours    decimal `json:"service_hours"`
	MaxParticipants *int    `json:"max_participants,omitempty"`
}

func newEventDetail(e models.Event) eventDetail {
	return eventDetail{
		ID:              e.ID,
		Name:            e.Name,
		Description:     e.Description,
		Date:            e.Date,
		Time:            e.Time,
		Location:        e.Location,
		IsPublic:        e.IsPublic,
		ServiceHours:    decimal(e.ServiceHours),
		MaxParticipants: e.MaxParticipants,
	}
}

type participationDetail struct {
	ID               uint    `json:"id"`
	Volunteer        string  `json:"volunteer"`
	VolunteerName    string  `json:"volunteer_name"`
	VolunteerEmail   string  `json:"volunteer_email"`
	Event            uint    `json:"event"`
	EventName        string  `json:"event_name"`
	DateParticipated string  `json:"date_participated,omitempty"`
	JoinDate         string  `json:"join_date"`
	HoursCompleted   decimal `json:"hours_completed"`
	Status           string  `json:"status"`
}

// newParticipationDetail expects Event and Volunteer.User to be loaded
func newParticipationDetail(p models.Participation) participationDetail {
	return participationDetail{
		ID:               p.ID,
		Volunteer:        p.VolunteerID,
		VolunteerName:    p.Volunteer.User.Username,
		VolunteerEmail:   p.Volunteer.User.Email,
		Event:            p.EventID,
		EventName:        p.Event.Name,
		DateParticipated: p.DateParticipated,
		JoinDate:         p.CreatedAt.UTC().Format(dateLayout),
		HoursCompleted:   decimal(p.HoursCompleted),
		Status:           p.Status,
	}
}

// idParam parses the :id path parameter, answering 404 when it is not a number
func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found."})
		return 0, false
	}
	return uint(id), true
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// currentAdmin loads the caller's admin profile with its user and organization
func (s *Server) currentAdmin(c *gin.Context) (*models.AdminProfile, bool) {
	session, _ := GetSessionData(c)

	var profile models.AdminProfile
	err := s.db.Preload("User").Preload("Organization.Admins.User").
		Where("user_id = ?", session.UserID).First(&profile).Error
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Admin profile not found"})
		} else {
			s.internalError(c, err, "Failed to load admin profile")
		}
		return nil, false
	}
	return &profile, true
}

// currentVolunteer loads the caller's volunteer profile with its memberships
func (s *Server) currentVolunteer(c *gin.Context) (*models.VolunteerProfile, bool) {
	session, _ := GetSessionData(c)

	var profile models.VolunteerProfile
	err := s.db.Preload("User").Preload("Memberships.Organization").
		Where("user_id = ?", session.UserID).First(&profile).Error
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Volunteer profile not found"})
		} else {
			s.internalError(c, err, "Failed to load volunteer profile")
		}
		return nil, false
	}
	return &profile, true
}

// approvedOrganizationIDs returns the organizations a volunteer belongs to
func approvedOrganizationIDs(p *models.VolunteerProfile) []uint {
	ids := []uint{}
	for _, m := range p.Memberships {
		if m.Status == models.MembershipApproved {
			ids = append(ids, m.OrganizationID)
		}
	}
	return ids
}
