package internal

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenMode(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}

	cfg = AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("token mode with empty token: err = %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if !cfg.Catalog.Enabled {
		t.Error("catalog should be enabled by default")
	}
	if cfg.Graph.Timeout != 60*time.Second {
		t.Errorf("timeout = %v", cfg.Graph.Timeout)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"auth", func(c *Config) { c.Auth.Mode = "token" }, "token is empty"},
		{"port", func(c *Config) { c.App.HTTP.Port = 70000 }, "Port"},
		{"base url", func(c *Config) { c.Graph.BaseURL = "not a url" }, "graph"},
		{"output", func(c *Config) { c.Export.Output = "" }, "export"},
		{"format", func(c *Config) { c.Export.Formats = []string{"docx", "wav"} }, "export"},
		{"index only without notebook", func(c *Config) { c.Sync.IndexOnly = true }, "index_only"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestCatalogPath(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Export.Output = "out"
	if got, want := cfg.CatalogPath(), filepath.Join("out", "catalog.sqlite"); got != want {
		t.Errorf("CatalogPath = %q, want %q", got, want)
	}
	cfg.Catalog.Path = "/var/lib/noteport.db"
	if got := cfg.CatalogPath(); got != "/var/lib/noteport.db" {
		t.Errorf("explicit CatalogPath = %q", got)
	}
}
