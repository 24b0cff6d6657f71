package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if mode, err := cfg.ParsedDirMode(); err != nil || mode != 0o755 {
		t.Errorf("ParsedDirMode = %v, %v; want 0755, nil", mode, err)
	}
	if mode, err := cfg.ParsedFileMode(); err != nil || mode != 0o644 {
		t.Errorf("ParsedFileMode = %v, %v; want 0644, nil", mode, err)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wplocal.yaml")
	content := []byte("web_root: /srv/www\nsite_owner: deploy\nwp_allow_root: false\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.WebRoot != "/srv/www" {
		t.Errorf("WebRoot = %q, want /srv/www", cfg.WebRoot)
	}
	if cfg.SiteOwner != "deploy" {
		t.Errorf("SiteOwner = %q, want deploy", cfg.SiteOwner)
	}
	if cfg.WPAllowRoot {
		t.Error("WPAllowRoot should be overridden to false")
	}
	// Untouched fields keep defaults.
	if cfg.HostsFile != "/etc/hosts" {
		t.Errorf("HostsFile = %q, want /etc/hosts", cfg.HostsFile)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty web root", "web_root: \"\"\n"},
		{"bad dir mode", "dir_mode: \"rwxr-xr-x\"\n"},
		{"bad telemetry level", "telemetry:\n  logging:\n    level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "wplocal.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/wplocal.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
	// Empty path means defaults only.
	if _, err := Load(""); err != nil {
		t.Fatalf("empty path should load defaults: %v", err)
	}
}
