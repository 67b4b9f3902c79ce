package devserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quantrack/quantrack/internal/models"
)

// JoinCodeRequest identifies an organization by its join code
type JoinCodeRequest struct {
	JoinCode string `json:"join_code" validate:"required,joincode"`
}

// OrganizationRequest is the payload for POST /register-organization/
type OrganizationRequest struct {
	Name                string `json:"name" binding:"required,max=100"`
	DateOfEstablishment string `json:"date_of_establishment" binding:"required,datetime=2006-01-02"`
	RegistrationNumber  string `json:"registration_number"`
	OrganizationType    string `json:"organization_type" binding:"required"`
	Website             string `json:"website" binding:"omitempty,url"`
	Description         string `json:"description" binding:"max=500"`
	Address             string `json:"address" binding:"required"`
	City                string `json:"city" binding:"required"`
	Country             string `json:"country" binding:"required"`
}

// OrganizationPatch is the partial payload for PATCH /update-organization/
type OrganizationPatch struct {
	Name                *string `json:"name" binding:"omitempty,min=1,max=100"`
	DateOfEstablishment *string `json:"date_of_establishment" binding:"omitempty,datetime=2006-01-02"`
	RegistrationNumber  *string `json:"registration_number"`
	OrganizationType    *string `json:"organization_type"`
	Website             *string `json:"website" binding:"omitempty,url"`
	Description         *string `json:"description" binding:"omitempty,max=500"`
	Address             *string `json:"address"`
	City                *string `json:"city"`
	Country             *string `json:"country"`
}

func (p OrganizationPatch) updates() map[string]any {
	u := map[string]any{}
	set := func(column string, v *string) {
		if v != nil {
			u[column] = *v
		}
	}
	set("name", p.Name)
	set("date_of_establishment", p.DateOfEstablishment)
	set("registration_number", p.RegistrationNumber)
	set("organization_type", p.OrganizationType)
	set("website", p.Website)
	set("description", p.Description)
	set("address", p.Address)
	set("city", p.City)
	set("country", p.Country)
	return u
}

// bindJoinCode reads and validates the join code, answering 400 on failure
func (s *Server) bindJoinCode(c *gin.Context) (string, bool) {
	var req JoinCodeRequest
	_ = c.ShouldBindJSON(&req)
	req.JoinCode = strings.ToUpper(strings.TrimSpace(req.JoinCode))

	if req.JoinCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Join code is required"})
		return "", false
	}
	if err := s.validator.Struct(req); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid join code"})
		return "", false
	}
	return req.JoinCode, true
}

func (s *Server) organizationByJoinCode(c *gin.Context, code string) (*models.Organization, bool) {
	var org models.Organization
	if err := s.db.Where("join_code = ?", code).First(&org).Error; err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invalid join code"})
		} else {
			s.internalError(c, err, "Failed to load organization")
		}
		return nil, false
	}
	return &org, true
}

// approvedRefs lists the organizations a volunteer is an approved member of
func (s *Server) approvedRefs(volunteerID string) ([]organizationRef, error) {
	var memberships []models.Membership
	err := s.db.Preload("Organization").
		Where("volunteer_id = ? AND status = ?", volunteerID, models.MembershipApproved).
		Order("id").Find(&memberships).Error
	if err != nil {
		return nil, err
	}

	refs := []organizationRef{}
	for _, m := range memberships {
		refs = append(refs, organizationRef{ID: m.OrganizationID, Name: m.Organization.Name})
	}
	return refs, nil
}

// joinOrganization files a pending membership for the caller
func (s *Server) joinOrganization(c *gin.Context) {
	code, ok := s.bindJoinCode(c)
	if !ok {
		return
	}
	volunteer, ok := s.currentVolunteer(c)
	if !ok {
		return
	}
	org, ok := s.organizationByJoinCode(c, code)
	if !ok {
		return
	}

	var membership models.Membership
	err := s.db.Where("volunteer_id = ? AND organization_id = ?", volunteer.ID, org.ID).First(&membership).Error
	switch {
	case err == nil && membership.Status == models.MembershipApproved:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Already a member of %s", org.Name)})
		return
	case err == nil && membership.Status == models.MembershipPending:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Your request to join %s is already pending", org.Name)})
		return
	case err == nil:
		// A rejected volunteer may ask again
		if err := s.db.Model(&membership).Update("status", models.MembershipPending).Error; err != nil {
			s.internalError(c, err, "Failed to update membership")
			return
		}
	case isNotFound(err):
		membership = models.Membership{VolunteerID: volunteer.ID, OrganizationID: org.ID, Status: models.MembershipPending}
		if err := s.db.Create(&membership).Error; err != nil {
			s.internalError(c, err, "Failed to create membership")
			return
		}
	default:
		s.internalError(c, err, "Failed to load membership")
		return
	}

	joined, err := s.approvedRefs(volunteer.ID)
	if err != nil {
		s.internalError(c, err, "Failed to list organizations")
		return
	}

	s.logger.Info().Str("volunteer_id", volunteer.ID).Uint("organization_id", org.ID).Msg("Membership requested")

	c.JSON(http.StatusOK, gin.H{
		"success":              true,
		"message":              fmt.Sprintf("Requested to join %s; an admin must approve the membership", org.Name),
		"joined_organizations": joined,
	})
}

func (s *Server) quitOrganization(c *gin.Context) {
	code, ok := s.bindJoinCode(c)
	if !ok {
		return
	}
	volunteer, ok := s.currentVolunteer(c)
	if !ok {
		return
	}
	org, ok := s.organizationByJoinCode(c, code)
	if !ok {
		return
	}

	result := s.db.Where("volunteer_id = ? AND organization_id = ?", volunteer.ID, org.ID).Delete(&models.Membership{})
	if result.Error != nil {
		s.internalError(c, result.Error, "Failed to delete membership")
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("You are not a member of %s", org.Name)})
		return
	}

	remaining, err := s.approvedRefs(volunteer.ID)
	if err != nil {
		s.internalError(c, err, "Failed to list organizations")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":                 true,
		"message":                 fmt.Sprintf("You have quit %s", org.Name),
		"remaining_organizations": remaining,
	})
}

func (s *Server) registerOrganization(c *gin.Context) {
	var req OrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	org := models.Organization{
		Name:                req.Name,
		DateOfEstablishment: req.DateOfEstablishment,
		RegistrationNumber:  req.RegistrationNumber,
		OrganizationType:    req.OrganizationType,
		Website:             req.Website,
		Description:         req.Description,
		Address:             req.Address,
		City:                req.City,
		Country:             req.Country,
	}
	if err := s.db.Create(&org).Error; err != nil {
		s.internalError(c, err, "Failed to create organization")
		return
	}

	s.logger.Info().Uint("organization_id", org.ID).Str("name", org.Name).Msg("Organization registered")
	c.JSON(http.StatusCreated, newOrganizationDetail(org))
}

func (s *Server) updateOrganization(c *gin.Context) {
	var req OrganizationPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	admin, ok := s.currentAdmin(c)
	if !ok {
		return
	}

	if updates := req.updates(); len(updates) > 0 {
		if err := s.db.Model(&models.Organization{}).Where("id = ?", admin.OrganizationID).Updates(updates).Error; err != nil {
			s.internalError(c, err, "Failed to update organization")
			return
		}
	}

	var org models.Organization
	if err := models.FindByIDWithPreload(s.db, admin.OrganizationID, &org, "Admins.User"); err != nil {
		s.internalError(c, err, "Failed to load organization")
		return
	}
	c.JSON(http.StatusOK, newOrganizationDetail(org))
}

// pendingMembers lists membership requests waiting on the admin's organization
func (s *Server) pendingMembers(c *gin.Context) {
	admin, ok := s.currentAdmin(c)
	if !ok {
		return
	}

	var memberships []models.Membership
	err := s.db.Preload("Volunteer.User").
		Where("organization_id = ? AND status = ?", admin.OrganizationID, models.MembershipPending).
		Order("id").Find(&memberships).Error
	if err != nil {
		s.internalError(c, err, "Failed to list pending members")
		return
	}

	out := make([]gin.H, 0, len(memberships))
	for _, m := range memberships {
		out = append(out, gin.H{
			"membership_id":   m.ID,
			"volunteer_id":    m.VolunteerID,
			"volunteer_name":  m.Volunteer.User.Username,
			"volunteer_email": m.Volunteer.User.Email,
			"join_date":       m.CreatedAt.UTC().Format(dateLayout),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) approveMembership(c *gin.Context) {
	s.decideMembership(c, models.MembershipApproved)
}

func (s *Server) rejectMembership(c *gin.Context) {
	s.decideMembership(c, models.MembershipRejected)
}

// decideMembership moves a pending membership of the admin's organization
// to status
func (s *Server) decideMembership(c *gin.Context, status string) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	admin, ok := s.currentAdmin(c)
	if !ok {
		return
	}

	var membership models.Membership
	err := s.db.Where("id = ? AND organization_id = ?", id, admin.OrganizationID).First(&membership).Error
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Membership not found"})
		} else {
			s.internalError(c, err, "Failed to load membership")
		}
		return
	}
	if membership.Status != models.MembershipPending {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Membership is already %s", membership.Status)})
		return
	}

	if err := s.db.Model(&membership).Update("status", status).Error; err != nil {
		s.internalError(c, err, "Failed to update membership")
		return
	}

	s.logger.Info().Uint("membership_id", membership.ID).Str("status", status).Msg("Membership decided")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": fmt.Sprintf("Membership %s", status)})
}
