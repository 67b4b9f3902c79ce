package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    string
		shouldError bool
	}{
		{
			name:     "trailing slash stripped",
			input:    "http://127.0.0.1:8000/api/",
			expected: "http://127.0.0.1:8000/api",
		},
		{
			name:     "https kept",
			input:    " https://quantrack.example/api ",
			expected: "https://quantrack.example/api",
		},
		{
			name:        "missing scheme",
			input:       "quantrack.example/api",
			shouldError: true,
		},
		{
			name:        "unsupported scheme",
			input:       "ftp://quantrack.example",
			shouldError: true,
		},
		{
			name:        "missing host",
			input:       "http:///api",
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeBaseURL(tt.input)
			if tt.shouldError {
				if err == nil {
					t.Errorf("expected error for %q, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("NormalizeBaseURL(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)

	cfg := &Config{Profiles: []Profile{
		{Alias: "local", APIBaseURL: "http://127.0.0.1:8000/api/"},
		{Alias: "prod", APIBaseURL: "https://quantrack.example/api"},
	}}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}

	if len(loaded.Profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(loaded.Profiles))
	}
	if loaded.Profiles[0].APIBaseURL != "http://127.0.0.1:8000/api" {
		t.Errorf("expected normalized URL, got %q", loaded.Profiles[0].APIBaseURL)
	}
}

func TestLoad_InvalidProfileURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	data := `{"profiles":[{"alias":"broken","api_base_url":"not a url"}]}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid profile URL")
	}
}

func TestGetProfile(t *testing.T) {
	cfg := &Config{Profiles: []Profile{
		{Alias: "local", APIBaseURL: "http://127.0.0.1:8000/api"},
		{Alias: "prod", APIBaseURL: "https://quantrack.example/api"},
	}}

	p, err := cfg.GetProfile("prod")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.APIBaseURL != "https://quantrack.example/api" {
		t.Errorf("unexpected profile: %+v", p)
	}

	p, err = cfg.GetProfile("http://127.0.0.1:8000/api/")
	if err != nil {
		t.Fatalf("lookup by URL failed: %v", err)
	}
	if p.Alias != "local" {
		t.Errorf("expected local, got %q", p.Alias)
	}

	if _, err := cfg.GetProfile("staging"); err == nil {
		t.Error("expected error for unknown profile")
	}

	def, err := cfg.GetDefaultProfile()
	if err != nil || def.Alias != "local" {
		t.Errorf("expected local as default, got %+v (%v)", def, err)
	}

	if _, err := (&Config{}).GetDefaultProfile(); err == nil {
		t.Error("expected error when no profiles are configured")
	}
}

func TestUpsert(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Upsert(Profile{Alias: "local", APIBaseURL: "http://localhost:9000/api"})
	cfg.Upsert(Profile{Alias: "prod", APIBaseURL: "https://quantrack.example/api"})

	if len(cfg.Profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(cfg.Profiles))
	}
	if cfg.Profiles[0].APIBaseURL != "http://localhost:9000/api" {
		t.Errorf("expected local to be replaced, got %q", cfg.Profiles[0].APIBaseURL)
	}
}

func TestFindConfigFile_WalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := Save(filepath.Join(root, ConfigFileName), DefaultConfig()); err != nil {
		t.Fatal(err)
	}

	t.Chdir(nested)

	path, err := FindConfigFile()
	if err != nil {
		t.Fatalf("expected config to be found: %v", err)
	}
	if filepath.Base(path) != ConfigFileName {
		t.Errorf("unexpected path %q", path)
	}
}
