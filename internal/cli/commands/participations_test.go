package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quantrack/quantrack/internal/cli/client"
)

// TestMembers tests the pending list and approve/reject decisions
func TestMembers(t *testing.T) {
	api := signedIn("admin")
	api.pending = []client.PendingMember{{MembershipID: 4, VolunteerName: "Sam", JoinDate: "2025-01-02"}}

	var out bytes.Buffer
	if err := runMembersPending(context.Background(), testOptions(api, &out)...); err != nil {
		t.Fatalf("pending failed: %v", err)
	}
	if !strings.Contains(out.String(), "Sam") {
		t.Errorf("expected pending member in output, got:\n%s", out.String())
	}

	out.Reset()
	if err := runMemberDecision(context.Background(), "4", true, testOptions(api, &out)...); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if !api.called("ApproveMembership") || !strings.Contains(out.String(), "Approved membership 4") {
		t.Errorf("expected approval, calls %v, output:\n%s", api.calls, out.String())
	}

	out.Reset()
	if err := runMemberDecision(context.Background(), "5", false, testOptions(api, &out)...); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if !api.called("RejectMembership") || !strings.Contains(out.String(), "Rejected membership 5") {
		t.Errorf("expected rejection, calls %v, output:\n%s", api.calls, out.String())
	}

	volunteer := signedIn("volunteer")
	if err := runMemberDecision(context.Background(), "4", true, testOptions(volunteer, &out)...); err == nil {
		t.Error("expected volunteer to be refused")
	}
}

// TestParticipationsList tests the volunteer and per-event admin listings
func TestParticipationsList(t *testing.T) {
	volunteer := signedIn("volunteer")
	volunteer.participations = []client.ParticipationRecord{{ID: 1, EventName: "Beach cleanup", Status: "completed", HoursCompleted: 3}}

	var out bytes.Buffer
	if err := runParticipationsList(context.Background(), "", testOptions(volunteer, &out)...); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out.String(), "Beach cleanup") {
		t.Errorf("expected participation in output, got:\n%s", out.String())
	}

	admin := signedIn("admin")
	admin.eventParts = &client.EventParticipations{
		Event:          &client.Event{ID: 9, Name: "Food drive"},
		Participations: []client.ParticipationRecord{{ID: 2, VolunteerName: "Ana", Status: "registered"}},
	}
	out.Reset()
	if err := runParticipationsList(context.Background(), "9", testOptions(admin, &out)...); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out.String(), "Participants of Food drive (#9)") || !strings.Contains(out.String(), "Ana") {
		t.Errorf("unexpected admin output:\n%s", out.String())
	}

	// A volunteer cannot see an event's participant list
	if err := runParticipationsList(context.Background(), "9", testOptions(signedIn("volunteer"), &out)...); err == nil {
		t.Error("expected volunteer to be refused the per-event list")
	}
}

// TestParticipationComplete tests marking a participation completed
func TestParticipationComplete(t *testing.T) {
	api := signedIn("admin")
	var out bytes.Buffer

	if err := runParticipationComplete(context.Background(), "2", testOptions(api, &out)...); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if !api.called("CompleteParticipation") {
		t.Error("expected CompleteParticipation to be called")
	}
}

// TestCertificateCommand_CommandStructure tests the command structure
func TestCertificateCommand_CommandStructure(t *testing.T) {
	cmd := NewCertificateCmd()

	if cmd.Use != "certificate <participation-id>" {
		t.Errorf("expected Use to be 'certificate <participation-id>', got %s", cmd.Use)
	}
	if err := cmd.Args(cmd, []string{}); err == nil {
		t.Error("expected error when no arguments provided, got nil")
	}
	if cmd.Flags().Lookup("dir") == nil || cmd.Flags().Lookup("post") == nil {
		t.Error("expected --dir and --post flags")
	}
}

// TestCertificate_SavesFile tests that the downloaded PDF lands in the directory
func TestCertificate_SavesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	pdf := []byte("%PDF-1.4 fake")

	api := signedIn("volunteer")
	api.blob = &client.Blob{Data: pdf, ContentType: "application/pdf", Filename: "Certificate_12.pdf"}

	var out bytes.Buffer
	if err := runCertificate(context.Background(), "12", dir, true, testOptions(api, &out)...); err != nil {
		t.Fatalf("certificate failed: %v", err)
	}

	if !api.called("DownloadCertificate POST") {
		t.Errorf("expected POST download, calls: %v", api.calls)
	}

	data, err := os.ReadFile(filepath.Join(dir, "Certificate_12.pdf"))
	if err != nil {
		t.Fatalf("certificate was not saved: %v", err)
	}
	if !bytes.Equal(data, pdf) {
		t.Errorf("expected saved bytes to match, got %q", data)
	}
}

// TestCertificate_FilenameCannotEscapeDirectory tests a hostile server filename
func TestCertificate_FilenameCannotEscapeDirectory(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "certs")

	api := signedIn("volunteer")
	api.blob = &client.Blob{Data: []byte("x"), Filename: "../../escape.pdf"}

	var out bytes.Buffer
	if err := runCertificate(context.Background(), "12", dir, false, testOptions(api, &out)...); err != nil {
		t.Fatalf("certificate failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.pdf")); err != nil {
		t.Errorf("expected file inside target dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "escape.pdf")); err == nil {
		t.Error("expected no file outside target dir")
	}
}

// TestCertificate_Admin tests that admins download certificates for their
// organization's participants
func TestCertificate_Admin(t *testing.T) {
	dir := t.TempDir()
	api := signedIn("admin")
	api.blob = &client.Blob{Data: []byte("%PDF-1.4"), Filename: "Certificate_12.pdf"}
	var out bytes.Buffer

	if err := runCertificate(context.Background(), "12", dir, false, testOptions(api, &out)...); err != nil {
		t.Fatalf("certificate failed: %v", err)
	}
	if !api.called("DownloadCertificate GET") {
		t.Error("expected a download request")
	}
	if _, err := os.Stat(filepath.Join(dir, "Certificate_12.pdf")); err != nil {
		t.Errorf("expected saved certificate: %v", err)
	}
}

// TestCertificate_UnusableFilename tests that a server filename naming a
// directory falls back to the default name
func TestCertificate_UnusableFilename(t *testing.T) {
	for _, name := range []string{"..", ".", "/", ""} {
		dir := t.TempDir()
		api := signedIn("volunteer")
		api.blob = &client.Blob{Data: []byte("x"), Filename: name}
		var out bytes.Buffer

		if err := runCertificate(context.Background(), "12", dir, false, testOptions(api, &out)...); err != nil {
			t.Fatalf("filename %q: certificate failed: %v", name, err)
		}
		if _, err := os.Stat(filepath.Join(dir, client.CertificateFilename("12"))); err != nil {
			t.Errorf("filename %q: expected fallback file: %v", name, err)
		}
	}
}
