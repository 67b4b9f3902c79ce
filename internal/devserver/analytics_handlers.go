package devserver

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/quantrack/quantrack/internal/models"
)

const leaderboardSize = 5

type topVolunteer struct {
	Name              string  `json:"name"`
	EventsCount       int     `json:"events_count"`
	TotalHours        decimal `json:"total_hours"`
	CertificatesCount int     `json:"certificates_count"`
}

type topEvent struct {
	Name         string `json:"name"`
	Participants int    `json:"participants"`
}

// organizationActivity is everything the admin statistics are computed from
type organizationActivity struct {
	events         []models.Event
	participations []models.Participation
}

func (s *Server) loadActivity(c *gin.Context) (*models.AdminProfile, *organizationActivity, bool) {
	admin, ok := s.currentAdmin(c)
	if !ok {
		return nil, nil, false
	}

	var activity organizationActivity
	if err := s.db.Where("organization_id = ?", admin.OrganizationID).Order("date, id").Find(&activity.events).Error; err != nil {
		s.internalError(c, err, "Failed to load events")
		return nil, nil, false
	}

	err := s.db.Preload("Event").Preload("Volunteer.User").
		Joins("JOIN events ON events.id = participations.event_id").
		Where("events.organization_id = ?", admin.OrganizationID).
		Order("participations.id").
		Find(&activity.participations).Error
	if err != nil {
		s.internalError(c, err, "Failed to load participations")
		return nil, nil, false
	}

	return admin, &activity, true
}

func (a *organizationActivity) completed() int {
	n := 0
	for _, p := range a.participations {
		if p.Completed() {
			n++
		}
	}
	return n
}

func (a *organizationActivity) activeVolunteers() int {
	seen := map[string]bool{}
	for _, p := range a.participations {
		seen[p.VolunteerID] = true
	}
	return len(seen)
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func (s *Server) myAdminStats(c *gin.Context) {
	_, activity, ok := s.loadActivity(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_events_managed":     len(activity.events),
		"total_participations":     len(activity.participations),
		"completed_participations": activity.completed(),
	})
}

// volunteerStats aggregates completed service per volunteer
func (s *Server) volunteerStats(c *gin.Context) {
	_, activity, ok := s.loadActivity(c)
	if !ok {
		return
	}

	rows := map[string]*topVolunteer{}
	var totalHours float64
	for _, p := range activity.participations {
		row, ok := rows[p.VolunteerID]
		if !ok {
			row = &topVolunteer{Name: p.Volunteer.User.Username}
			rows[p.VolunteerID] = row
		}
		row.EventsCount++
		if p.Completed() {
			row.TotalHours += decimal(p.HoursCompleted)
			row.CertificatesCount++
			totalHours += p.HoursCompleted
		}
	}

	top := make([]topVolunteer, 0, len(rows))
	for _, row := range rows {
		top = append(top, *row)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].TotalHours != top[j].TotalHours {
			return top[i].TotalHours > top[j].TotalHours
		}
		return top[i].Name < top[j].Name
	})
	if len(top) > leaderboardSize {
		top = top[:leaderboardSize]
	}

	active := activity.activeVolunteers()
	c.JSON(http.StatusOK, gin.H{
		"total_service_hours":     decimal(totalHours),
		"active_volunteers":       active,
		"avg_hours_per_volunteer": decimal(ratio(totalHours, float64(active))),
		"certificates_issued":     activity.completed(),
		"top_volunteers":          top,
	})
}

func (s *Server) eventParticipationStats(c *gin.Context) {
	_, activity, ok := s.loadActivity(c)
	if !ok {
		return
	}
	today := s.today()

	upcoming := 0
	for _, e := range activity.events {
		if e.Date >= today {
			upcoming++
		}
	}

	byMonth := map[string]int{}
	perEvent := map[uint]int{}
	for _, p := range activity.participations {
		if len(p.Event.Date) >= 7 {
			byMonth[p.Event.Date[:7]]++
		}
		perEvent[p.EventID]++
	}

	top := make([]topEvent, 0, len(activity.events))
	for _, e := range activity.events {
		top = append(top, topEvent{Name: e.Name, Participants: perEvent[e.ID]})
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Participants > top[j].Participants })
	if len(top) > leaderboardSize {
		top = top[:leaderboardSize]
	}

	total := len(activity.participations)
	c.JSON(http.StatusOK, gin.H{
		"upcoming_events":            upcoming,
		"total_participations":       total,
		"avg_participants_per_event": decimal(ratio(float64(total), float64(len(activity.events)))),
		"completion_rate":            decimal(100 * ratio(float64(activity.completed()), float64(total))),
		"participation_by_month":     byMonth,
		"top_events":                 top,
	})
}

func (s *Server) myOrganizationStats(c *gin.Context) {
	admin, activity, ok := s.loadActivity(c)
	if !ok {
		return
	}

	var members int64
	err := s.db.Model(&models.Membership{}).
		Where("organization_id = ? AND status = ?", admin.OrganizationID, models.MembershipApproved).
		Count(&members).Error
	if err != nil {
		s.internalError(c, err, "Failed to count members")
		return
	}

	today := s.today()
	completedEvents := 0
	for _, e := range activity.events {
		if e.Date < today {
			completedEvents++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"total_members":     members,
		"active_volunteers": activity.activeVolunteers(),
		"total_events":      len(activity.events),
		"completed_events":  completedEvents,
	})
}

func (s *Server) myVolunteerStats(c *gin.Context) {
	volunteer, ok := s.currentVolunteer(c)
	if !ok {
		return
	}

	var participations []models.Participation
	if err := s.db.Where("volunteer_id = ?", volunteer.ID).Find(&participations).Error; err != nil {
		s.internalError(c, err, "Failed to load participations")
		return
	}

	var hours float64
	completed := 0
	for _, p := range participations {
		if p.Completed() {
			hours += p.HoursCompleted
			completed++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"total_hours":         decimal(hours),
		"events_joined":       len(participations),
		"events_completed":    completed,
		"certificates_earned": completed,
		"organizations":       len(approvedOrganizationIDs(volunteer)),
	})
}
