package devserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quantrack/quantrack/internal/models"
)

// AdminProfilePatch is the partial payload for PATCH /update-admin-data/
type AdminProfilePatch struct {
	JobTitle    *string `json:"job_title" binding:"omitempty,max=100"`
	PhoneNumber *string `json:"phone_number" binding:"omitempty,max=15"`
}

// VolunteerProfilePatch is the partial payload for PATCH /update-volunteer-data/
type VolunteerProfilePatch struct {
	DateOfBirth          *string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	SchoolOrOrganization *string `json:"school_or_organization" binding:"omitempty,max=100"`
}

func (s *Server) myAdminData(c *gin.Context) {
	admin, ok := s.currentAdmin(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newAdminProfileDetail(*admin))
}

func (s *Server) updateAdminData(c *gin.Context) {
	var req AdminProfilePatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	admin, ok := s.currentAdmin(c)
	if !ok {
		return
	}

	updates := map[string]any{}
	if req.JobTitle != nil {
		updates["job_title"] = *req.JobTitle
		admin.JobTitle = *req.JobTitle
	}
	if req.PhoneNumber != nil {
		updates["phone_number"] = *req.PhoneNumber
		admin.PhoneNumber = *req.PhoneNumber
	}
	if len(updates) > 0 {
		if err := s.db.Model(&models.AdminProfile{}).Where("id = ?", admin.ID).Updates(updates).Error; err != nil {
			s.internalError(c, err, "Failed to update admin profile")
			return
		}
	}

	c.JSON(http.StatusOK, newAdminProfileDetail(*admin))
}

// adminData lets a volunteer look up an admin profile by ID
func (s *Server) adminData(c *gin.Context) {
	var profile models.AdminProfile
	err := models.FindByIDWithPreload(s.db, c.Param("id"), &profile, "User", "Organization.Admins.User")
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Admin not found"})
		} else {
			s.internalError(c, err, "Failed to load admin profile")
		}
		return
	}
	c.JSON(http.StatusOK, newAdminProfileDetail(profile))
}

func (s *Server) myVolunteerData(c *gin.Context) {
	volunteer, ok := s.currentVolunteer(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newVolunteerProfileDetail(*volunteer))
}

func (s *Server) updateVolunteerData(c *gin.Context) {
	var req VolunteerProfilePatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	volunteer, ok := s.currentVolunteer(c)
	if !ok {
		return
	}

	updates := map[string]any{}
	if req.DateOfBirth != nil {
		updates["date_of_birth"] = *req.DateOfBirth
		volunteer.DateOfBirth = *req.DateOfBirth
	}
	if req.SchoolOrOrganization != nil {
		updates["school_or_organization"] = *req.SchoolOrOrganization
		volunteer.SchoolOrOrganization = *req.SchoolOrOrganization
	}
	if len(updates) > 0 {
		if err := s.db.Model(&models.VolunteerProfile{}).Where("id = ?", volunteer.ID).Updates(updates).Error; err != nil {
			s.internalError(c, err, "Failed to update volunteer profile")
			return
		}
	}

	c.JSON(http.StatusOK, newVolunteerProfileDetail(*volunteer))
}

// volunteerData lets an admin look up a volunteer profile by ID
func (s *Server) volunteerData(c *gin.Context) {
	var profile models.VolunteerProfile
	err := models.FindByIDWithPreload(s.db, c.Param("id"), &profile, "User", "Memberships.Organization")
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Volunteer not found"})
		} else {
			s.internalError(c, err, "Failed to load volunteer profile")
		}
		return
	}
	c.JSON(http.StatusOK, newVolunteerProfileDetail(profile))
}
