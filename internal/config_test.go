package internal

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Index.Backend != BackendJSON {
		t.Errorf("backend = %q, want json default", cfg.Index.Backend)
	}
	if !cfg.Index.AutoRebuild {
		t.Error("auto rebuild should default on")
	}
}

func TestConfigValidate_BadBackend(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Index.Backend = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestConfigValidate_BadPort(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.HTTP.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for port 0")
	}
}

func TestConfigValidate_TokenModeRequiresToken(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = AuthModeToken
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty token")
	}
	cfg.Auth.Token = "secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Auth.AuthEnabled() {
		t.Error("token mode should report auth enabled")
	}
}

func TestArtifactPath(t *testing.T) {
	cfg := IndexConfig{Backend: BackendJSON}
	if got := cfg.ArtifactPath("/data/journal"); got != filepath.Join("/data/journal", "index.json") {
		t.Errorf("path = %q", got)
	}
	cfg.Backend = BackendSQLite
	if got := cfg.ArtifactPath("/data/journal"); got != filepath.Join("/data/journal", "index.db") {
		t.Errorf("path = %q", got)
	}
	cfg.Path = "/elsewhere/custom.db"
	if got := cfg.ArtifactPath("/data/journal"); got != "/elsewhere/custom.db" {
		t.Errorf("override ignored: %q", got)
	}
}
