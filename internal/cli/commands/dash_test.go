package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/quantrack/quantrack/internal/cli/auth"
	"github.com/quantrack/quantrack/internal/cli/client"
)

func adminWithDashboard() *mockClient {
	api := signedIn("admin")
	api.adminProfile = &client.AdminProfile{
		ProfileID:    "p1",
		User:         client.User{Email: "admin@example.com", Username: "alex"},
		Organization: client.OrganizationField{Organization: client.Organization{ID: 3, Name: "Shore Crew"}},
	}
	api.adminEvents = []client.Event{{ID: 1, Name: "Beach cleanup"}}
	api.pending = []client.PendingMember{{MembershipID: 8, VolunteerName: "Sam"}}
	api.adminStats = &client.AdminStats{TotalEventsManaged: 1, TotalParticipations: 4, CompletedParticipations: 2}
	return api
}

func volunteerWithDashboard() *mockClient {
	api := signedIn("volunteer")
	api.volProfile = &client.VolunteerProfile{ProfileID: "p2", User: client.User{Email: "v@example.com", Username: "sam"}}
	api.volunteerEvents = []client.Event{{ID: 1, Name: "Beach cleanup"}}
	api.participations = []client.ParticipationRecord{{ID: 5, EventName: "Beach cleanup", Status: "completed"}}
	api.myStats = &client.MyVolunteerStats{TotalHours: 3, EventsJoined: 1, EventsCompleted: 1}
	return api
}

// TestDash_ByRole tests that each role sees its own dashboard
func TestDash_ByRole(t *testing.T) {
	var out bytes.Buffer
	admin := adminWithDashboard()
	if err := runDash(context.Background(), testOptions(admin, &out)...); err != nil {
		t.Fatalf("dash failed: %v", err)
	}
	for _, want := range []string{"Admin dashboard", "Shore Crew", "Beach cleanup", "Sam"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %q in admin dashboard, got:\n%s", want, out.String())
		}
	}
	if admin.called("MyVolunteerData") {
		t.Error("admin dashboard should not load volunteer data")
	}

	out.Reset()
	volunteer := volunteerWithDashboard()
	if err := runDash(context.Background(), testOptions(volunteer, &out)...); err != nil {
		t.Fatalf("dash failed: %v", err)
	}
	if !strings.Contains(out.String(), "Volunteer dashboard") || !strings.Contains(out.String(), "sam") {
		t.Errorf("unexpected volunteer dashboard:\n%s", out.String())
	}
	if volunteer.called("PendingMembers") {
		t.Error("volunteer dashboard should not load pending members")
	}
}

// TestDash_AllOrNothing tests that one failed resource fails the whole view
func TestDash_AllOrNothing(t *testing.T) {
	for _, failing := range []string{"MyAdminData", "EventsAsAdmin", "PendingMembers", "MyAdminStats"} {
		t.Run(failing, func(t *testing.T) {
			api := adminWithDashboard()
			api.failOn = failing

			var out bytes.Buffer
			err := runDash(context.Background(), testOptions(api, &out)...)
			if err == nil {
				t.Fatal("expected dashboard to fail")
			}
			if strings.Contains(out.String(), "Admin dashboard") {
				t.Errorf("expected no partial dashboard, got:\n%s", out.String())
			}
		})
	}
}

// TestDash_NotLoggedIn tests the anonymous case
func TestDash_NotLoggedIn(t *testing.T) {
	var out bytes.Buffer
	err := runDash(context.Background(), testOptions(&mockClient{}, &out)...)
	if !errors.Is(err, auth.ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
}

func adminWithAnalytics() *mockClient {
	api := signedIn("admin")
	api.volStats = &client.VolunteerStats{
		TotalServiceHours: 42.5,
		ActiveVolunteers:  6,
		TopVolunteers:     []client.TopVolunteer{{Name: "Ana", EventsCount: 3, TotalHours: 12}},
	}
	api.eventStats = &client.EventParticipationStats{
		UpcomingEvents:       2,
		TotalParticipations:  18,
		ParticipationByMonth: map[string]int{"2025-02": 5, "2025-01": 13},
	}
	api.orgStats = &client.OrganizationStats{TotalMembers: 9, ActiveVolunteers: 6, TotalEvents: 4}
	return api
}

// TestAnalytics_Print tests the analytics summary
func TestAnalytics_Print(t *testing.T) {
	var out bytes.Buffer
	if err := runAnalytics(context.Background(), "", "", testOptions(adminWithAnalytics(), &out)...); err != nil {
		t.Fatalf("analytics failed: %v", err)
	}

	s := out.String()
	for _, want := range []string{"Members: 9", "Service hours: 42.5", "Ana", "Upcoming: 2"} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %q in output, got:\n%s", want, s)
		}
	}
	if strings.Index(s, "2025-01") > strings.Index(s, "2025-02") {
		t.Errorf("expected months in order, got:\n%s", s)
	}
}

// TestAnalytics_Export tests JSON and YAML export files
func TestAnalytics_Export(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "stats.json")
	var out bytes.Buffer
	if err := runAnalytics(context.Background(), jsonPath, "", testOptions(adminWithAnalytics(), &out)...); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("export file missing: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("export is not JSON: %v", err)
	}
	if _, ok := decoded["organization_stats"]; !ok {
		t.Errorf("expected organization_stats in export, got %s", data)
	}

	yamlPath := filepath.Join(dir, "stats.out")
	if err := runAnalytics(context.Background(), yamlPath, "yaml", testOptions(adminWithAnalytics(), &out)...); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	data, err = os.ReadFile(yamlPath)
	if err != nil {
		t.Fatalf("export file missing: %v", err)
	}
	decoded = nil
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("export is not YAML: %v", err)
	}
	if _, ok := decoded["volunteer_stats"]; !ok {
		t.Errorf("expected volunteer_stats in export, got %s", data)
	}
}

// TestAnalytics_VolunteerRefused tests that analytics are admin only
func TestAnalytics_VolunteerRefused(t *testing.T) {
	api := signedIn("volunteer")
	var out bytes.Buffer

	if err := runAnalytics(context.Background(), "", "", testOptions(api, &out)...); err == nil {
		t.Error("expected volunteer to be refused")
	}
	if api.called("VolunteerStats") {
		t.Error("expected no analytics request")
	}
}
