package devserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quantrack/quantrack/internal/models"
)

// EventRequest is the payload for POST /create-event/
type EventRequest struct {
	Name            string  `json:"name" binding:"required,max=100"`
	Description     string  `json:"description" binding:"required"`
	Date            string  `json:"date" binding:"required,datetime=2006-01-02"`
	Time            string  `json:"time"`
	Location        string  `json:"location" binding:"required,max=200"`
	IsPublic        bool    `json:"is_public"`
	ServiceHours    float64 `json:"service_hours" binding:"gte=0,lt=1000"`
	MaxParticipants *int    `json:"max_participants" binding:"omitempty,gt=0"`
}

// EventPatch is the partial payload for PATCH /update-event/:id/
type EventPatch struct {
	Name            *string  `json:"name" binding:"omitempty,min=1,max=100"`
	Description     *string  `json:"description"`
	Date            *string  `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Time            *string  `json:"time"`
	Location        *string  `json:"location" binding:"omitempty,max=200"`
	IsPublic        *bool    `json:"is_public"`
	ServiceHours    *float64 `json:"service_hours" binding:"omitempty,gte=0,lt=1000"`
	MaxParticipants *int     `json:"max_participants" binding:"omitempty,gt=0"`
}

func (p EventPatch) apply(e *models.Event) {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Time != nil {
		e.Time = *p.Time
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.IsPublic != nil {
		e.IsPublic = *p.IsPublic
	}
	if p.ServiceHours != nil {
		e.ServiceHours = *p.ServiceHours
	}
	if p.MaxParticipants != nil {
		e.MaxParticipants = p.MaxParticipants
	}
}

// visibleEvents scopes a query to public events and events of the
// volunteer's organizations
func visibleEvents(db *gorm.DB, volunteer *models.VolunteerProfile) *gorm.DB {
	orgIDs := approvedOrganizationIDs(volunteer)
	if len(orgIDs) == 0 {
		return db.Where("is_public = ?", true)
	}
	return db.Where("is_public = ? OR organization_id IN ?", true, orgIDs)
}

func eventDetails(events []models.Event) []eventDetail {
	out := make([]eventDetail, 0, len(events))
	for _, e := range events {
		out = append(out, newEventDetail(e))
	}
	return out
}

func participationDetails(ps []models.Participation) []participationDetail {
	out := make([]participationDetail, 0, len(ps))
	for _, p := range ps {
		out = append(out, newParticipationDetail(p))
	}
	return out
}

// adminEvent loads an event owned by the admin's organization
func (s *Server) adminEvent(c *gin.Context, admin *models.AdminProfile, id uint) (*models.Event, bool) {
	var event models.Event
	err := s.db.Where("id = ? AND organization_id = ?", id, admin.OrganizationID).First(&event).Error
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		} else {
			s.internalError(c, err, "Failed to load event")
		}
		return nil, false
	}
	return &event, true
}

func (s *Server) eventsAsAdmin(c *gin.Context) {
	admin, ok := s.currentAdmin(c)
	if !ok {
		return
	}

	var events []models.Event
	if err := s.db.Where("organization_id = ?", admin.OrganizationID).Order("date, id").Find(&events).Error; err != nil {
		s.internalError(c, err, "Failed to list events")
		return
	}
	c.JSON(http.StatusOK, eventDetails(events))
}

func (s *Server) eventsAsVolunteer(c *gin.Context) {
	volunteer, ok := s.currentVolunteer(c)
	if !ok {
		return
	}

	var events []models.Event
	if err := visibleEvents(s.db, volunteer).Order("date, id").Find(&events).Error; err != nil {
		s.internalError(c, err, "Failed to list events")
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": eventDetails(events)})
}

// getEvent returns one event the caller can see
func (s *Server) getEvent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	session, _ := GetSessionData(c)

	var query *gorm.DB
	switch session.Role {
	case models.RoleAdmin:
		admin, ok := s.currentAdmin(c)
		if !ok {
			return
		}
		query = s.db.Where("organization_id = ?", admin.OrganizationID)
	case models.RoleVolunteer:
		volunteer, ok := s.currentVolunteer(c)
		if !ok {
			return
		}
		query = visibleEvents(s.db, volunteer)
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to perform this action."})
		return
	}

	var event models.Event
	if err := query.Where("id = ?", id).First(&event).Error; err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		} else {
			s.internalError(c, err, "Failed to load event")
		}
		return
	}
	c.JSON(http.StatusOK, newEventDetail(event))
}

func (s *Server) createEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	admin, ok := s.currentAdmin(c)
	if !ok {
		return
	}

	event := models.Event{
		OrganizationID:  admin.OrganizationID,
		Name:            req.Name,
		Description:     req.Description,
		Date:            req.Date,
		Time:            req.Time,
		Location:        req.Location,
		IsPublic:        req.IsPublic,
		ServiceHours:    req.ServiceHours,
		MaxParticipants: req.MaxParticipants,
	}
	if err := s.db.Create(&event).Error; err != nil {
		s.internalError(c, err, "Failed to create event")
		return
	}

	s.logger.Info().Uint("event_id", event.ID).Uint("organization_id", event.OrganizationID).Msg("Event created")
	c.JSON(http.StatusCreated, newEventDetail(event))
}

func (s *Server) updateEvent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req EventPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	admin, ok := s.currentAdmin(c)
	if !ok {
		return
	}
	event, ok := s.adminEvent(c, admin, id)
	if !ok {
		return
	}

	req.apply(event)
	if err := s.db.Omit(clause.Associations).Save(event).Error; err != nil {
		s.internalError(c, err, "Failed to update event")
		return
	}
	c.JSON(http.StatusOK, newEventDetail(*event))
}

func (s *Server) deleteEvent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	admin, ok := s.currentAdmin(c)
	if !ok {
		return
	}
	event, ok := s.adminEvent(c, admin, id)
	if !ok {
		return
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", event.ID).Delete(&models.Participation{}).Error; err != nil {
			return err
		}
		return tx.Delete(event).Error
	})
	if err != nil {
		s.internalError(c, err, "Failed to delete event")
		return
	}

	s.logger.Info().Uint("event_id", event.ID).Msg("Event deleted")
	c.Status(http.StatusNoContent)
}

// joinEvent registers the calling volunteer for a visible event
func (s *Server) joinEvent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	volunteer, ok := s.currentVolunteer(c)
	if !ok {
		return
	}

	var event models.Event
	if err := visibleEvents(s.db, volunteer).Where("id = ?", id).First(&event).Error; err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		} else {
			s.internalError(c, err, "Failed to load event")
		}
		return
	}

	var existing int64
	if err := s.db.Model(&models.Participation{}).
		Where("event_id = ? AND volunteer_id = ?", event.ID, volunteer.ID).Count(&existing).Error; err != nil {
		s.internalError(c, err, "Failed to check participation")
		return
	}
	if existing > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You have already joined this event"})
		return
	}

	if event.MaxParticipants != nil {
		var taken int64
		if err := s.db.Model(&models.Participation{}).Where("event_id = ?", event.ID).Count(&taken).Error; err != nil {
			s.internalError(c, err, "Failed to count participants")
			return
		}
		if taken >= int64(*event.MaxParticipants) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Event is full"})
			return
		}
	}

	participation := models.Participation{
		EventID:     event.ID,
		VolunteerID: volunteer.ID,
		Status:      models.ParticipationRegistered,
	}
	if err := s.db.Create(&participation).Error; err != nil {
		s.internalError(c, err, "Failed to join event")
		return
	}
	participation.Event = event
	participation.Volunteer = *volunteer

	c.JSON(http.StatusCreated, newParticipationDetail(participation))
}

func (s *Server) participationsAsAdmin(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	admin, ok := s.currentAdmin(c)
	if !ok {
		return
	}
	event, ok := s.adminEvent(c, admin, id)
	if !ok {
		return
	}

	var participations []models.Participation
	err := s.db.Preload("Event").Preload("Volunteer.User").
		Where("event_id = ?", event.ID).Order("id").Find(&participations).Error
	if err != nil {
		s.internalError(c, err, "Failed to list participations")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"event":          newEventDetail(*event),
		"participations": participationDetails(participations),
	})
}

func (s *Server) participationsAsVolunteer(c *gin.Context) {
	volunteer, ok := s.currentVolunteer(c)
	if !ok {
		return
	}

	var participations []models.Participation
	err := s.db.Preload("Event").Preload("Volunteer.User").
		Where("volunteer_id = ?", volunteer.ID).Order("id").Find(&participations).Error
	if err != nil {
		s.internalError(c, err, "Failed to list participations")
		return
	}
	c.JSON(http.StatusOK, participationDetails(participations))
}

// completeParticipation credits the event's service hours to the volunteer
func (s *Server) completeParticipation(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	admin, ok := s.currentAdmin(c)
	if !ok {
		return
	}

	var participation models.Participation
	err := s.db.Preload("Event").Preload("Volunteer.User").Where("id = ?", id).First(&participation).Error
	if err != nil || participation.Event.OrganizationID != admin.OrganizationID {
		if err == nil || isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Participation not found"})
		} else {
			s.internalError(c, err, "Failed to load participation")
		}
		return
	}
	if participation.Completed() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Participation is already completed"})
		return
	}

	participation.Status = models.ParticipationCompleted
	participation.HoursCompleted = participation.Event.ServiceHours
	participation.DateParticipated = participation.Event.Date
	participation.CertificateCode = ulid.Make().String()

	err = s.db.Model(&models.Participation{}).Where("id = ?", participation.ID).Updates(map[string]any{
		"status":            participation.Status,
		"hours_completed":   participation.HoursCompleted,
		"date_participated": participation.DateParticipated,
		"certificate_code":  participation.CertificateCode,
	}).Error
	if err != nil {
		s.internalError(c, err, "Failed to complete participation")
		return
	}

	s.logger.Info().Uint("participation_id", participation.ID).Float64("hours", participation.HoursCompleted).Msg("Participation completed")
	c.JSON(http.StatusOK, newParticipationDetail(participation))
}

// generateCertificate renders a PDF certificate for a completed
// participation. Admins reach any participation in their organization's
// events, volunteers only their own.
func (s *Server) generateCertificate(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	session, _ := GetSessionData(c)

	query := s.db.Preload("Event.Organization").Preload("Volunteer.User")
	switch session.Role {
	case models.RoleAdmin:
		admin, ok := s.currentAdmin(c)
		if !ok {
			return
		}
		query = query.Joins("JOIN events ON events.id = participations.event_id").
			Where("events.organization_id = ?", admin.OrganizationID)
	case models.RoleVolunteer:
		volunteer, ok := s.currentVolunteer(c)
		if !ok {
			return
		}
		query = query.Where("participations.volunteer_id = ?", volunteer.ID)
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to perform this action."})
		return
	}

	var participation models.Participation
	err := query.Where("participations.id = ?", id).First(&participation).Error
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Participation not found"})
		} else {
			s.internalError(c, err, "Failed to load participation")
		}
		return
	}
	if !participation.Completed() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Certificates are only available for completed participations"})
		return
	}

	pdf := renderCertificate(Certificate{
		VolunteerName:    participation.Volunteer.User.Username,
		EventName:        participation.Event.Name,
		OrganizationName: participation.Event.Organization.Name,
		Date:             participation.DateParticipated,
		Hours:            participation.HoursCompleted,
		Code:             participation.CertificateCode,
	})

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="certificate_%d.pdf"`, participation.ID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
