// Package dashboard loads the data behind the admin, volunteer and analytics
// views. Every loader fetches its resources concurrently and returns either
// all of them or an error.
package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/quantrack/quantrack/internal/cli/client"
)

// AdminAPI is what the admin dashboard reads
type AdminAPI interface {
	MyAdminData(ctx context.Context) (*client.AdminProfile, error)
	EventsAsAdmin(ctx context.Context) ([]client.Event, error)
	PendingMembers(ctx context.Context) ([]client.PendingMember, error)
	MyAdminStats(ctx context.Context) (*client.AdminStats, error)
}

// VolunteerAPI is what the volunteer dashboard reads
type VolunteerAPI interface {
	MyVolunteerData(ctx context.Context) (*client.VolunteerProfile, error)
	EventsAsVolunteer(ctx context.Context) ([]client.Event, error)
	ParticipationsAsVolunteer(ctx context.Context) ([]client.ParticipationRecord, error)
	MyVolunteerStats(ctx context.Context) (*client.MyVolunteerStats, error)
}

// AnalyticsAPI is what the analytics view reads
type AnalyticsAPI interface {
	VolunteerStats(ctx context.Context) (*client.VolunteerStats, error)
	EventParticipationStats(ctx context.Context) (*client.EventParticipationStats, error)
	MyOrganizationStats(ctx context.Context) (*client.OrganizationStats, error)
}

// Admin is the admin dashboard
type Admin struct {
	Profile *client.AdminProfile
	Events  []client.Event
	Pending []client.PendingMember
	Stats   *client.AdminStats
}

// Volunteer is the volunteer dashboard
type Volunteer struct {
	Profile        *client.VolunteerProfile
	Events         []client.Event
	Participations []client.ParticipationRecord
	Stats          *client.MyVolunteerStats
}

// Completed returns the participations a certificate can be downloaded for
func (v *Volunteer) Completed() []client.ParticipationRecord {
	var out []client.ParticipationRecord
	for _, p := range v.Participations {
		if p.Completed() {
			out = append(out, p)
		}
	}
	return out
}

// LoadAdmin fetches the admin dashboard. The first failure cancels the
// remaining requests and nothing is returned.
func LoadAdmin(ctx context.Context, api AdminAPI) (*Admin, error) {
	var d Admin
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		d.Profile, err = api.MyAdminData(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Events, err = api.EventsAsAdmin(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Pending, err = api.PendingMembers(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Stats, err = api.MyAdminStats(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadVolunteer fetches the volunteer dashboard
func LoadVolunteer(ctx context.Context, api VolunteerAPI) (*Volunteer, error) {
	var d Volunteer
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		d.Profile, err = api.MyVolunteerData(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Events, err = api.EventsAsVolunteer(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Participations, err = api.ParticipationsAsVolunteer(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Stats, err = api.MyVolunteerStats(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}
