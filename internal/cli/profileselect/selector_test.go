package profileselect

import (
	"io"
	"testing"

	"github.com/quantrack/quantrack/internal/cli/config"
	"github.com/quantrack/quantrack/internal/cli/userconfig"
)

func testConfig() *config.Config {
	return &config.Config{Profiles: []config.Profile{
		{Alias: "local", APIBaseURL: "http://127.0.0.1:8000/api"},
		{Alias: "prod", APIBaseURL: "https://quantrack.example/api"},
	}}
}

func TestResolveProfile_ExplicitAlias(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	p, err := ResolveProfile(testConfig(), "prod", false, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Alias != "prod" {
		t.Errorf("expected prod, got %q", p.Alias)
	}

	if _, err := ResolveProfile(testConfig(), "staging", false, io.Discard); err == nil {
		t.Error("expected error for unknown alias")
	}
}

func TestResolveProfile_SelectedProfile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := userconfig.SetSelectedProfile("prod"); err != nil {
		t.Fatalf("failed to save selection: %v", err)
	}

	p, err := ResolveProfile(testConfig(), "", false, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Alias != "prod" {
		t.Errorf("expected prod, got %q", p.Alias)
	}
}

func TestResolveProfile_StaleSelectionIsCleared(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := userconfig.SetSelectedProfile("gone"); err != nil {
		t.Fatalf("failed to save selection: %v", err)
	}

	p, err := ResolveProfile(testConfig(), "", false, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Alias != "local" {
		t.Errorf("expected first profile, got %q", p.Alias)
	}

	selected, err := userconfig.GetSelectedProfile()
	if err != nil {
		t.Fatal(err)
	}
	if selected != "" {
		t.Errorf("expected stale selection to be cleared, got %q", selected)
	}
}
