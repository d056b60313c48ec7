package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("hue:\n  bridge: 10.0.42.2\n"))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Hue.Bridge != "10.0.42.2" {
		t.Errorf("bridge = %q", cfg.Hue.Bridge)
	}
	if cfg.Hue.Timeout.Duration() != 10*time.Second {
		t.Errorf("hue.timeout = %v", cfg.Hue.Timeout.Duration())
	}
	if len(cfg.Hue.Lights) != 2 || cfg.Hue.Lights[0] != "Dining Room 1" {
		t.Errorf("hue.lights = %v", cfg.Hue.Lights)
	}
	if !cfg.Names.IsEnabled() {
		t.Error("names should be enabled by default")
	}
	if cfg.Names.Timeout.Duration() != 5*time.Second {
		t.Errorf("names.timeout = %v", cfg.Names.Timeout.Duration())
	}
	if len(cfg.Names.Endpoints) != 3 {
		t.Errorf("names.endpoints = %v", cfg.Names.Endpoints)
	}
	if cfg.Server.Addr() != "127.0.0.1:8080" {
		t.Errorf("server addr = %q", cfg.Server.Addr())
	}
	if cfg.Ledger.Retention() != 30*24*time.Hour {
		t.Errorf("retention = %v", cfg.Ledger.Retention())
	}
	if cfg.Database.Path != "./lightboard.sqlite" {
		t.Errorf("database.path = %q", cfg.Database.Path)
	}
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("LIGHTBOARD_TOKEN", "secret")

	data := `
hue:
  token: ${LIGHTBOARD_TOKEN}
  timeout: 2s
  lights: ["Desk", "Shelf"]
names:
  enabled: false
  cache_ttl: 24h
server:
  host: ${LIGHTBOARD_HOST:0.0.0.0}
  port: 9000
log:
  json: true
`
	cfg, err := Parse([]byte(data))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Hue.Token != "secret" {
		t.Errorf("token = %q", cfg.Hue.Token)
	}
	if cfg.Hue.Timeout.Duration() != 2*time.Second {
		t.Errorf("timeout = %v", cfg.Hue.Timeout.Duration())
	}
	if cfg.Hue.Lights[1] != "Shelf" {
		t.Errorf("lights = %v", cfg.Hue.Lights)
	}
	if cfg.Names.IsEnabled() {
		t.Error("names.enabled: false ignored")
	}
	if cfg.Names.CacheTTL.Duration() != 24*time.Hour {
		t.Errorf("cache_ttl = %v", cfg.Names.CacheTTL.Duration())
	}
	if cfg.Server.Addr() != "0.0.0.0:9000" {
		t.Errorf("addr = %q", cfg.Server.Addr())
	}
	if !cfg.Log.JSON {
		t.Error("log.json ignored")
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"one_light", "hue:\n  lights: [\"Solo\"]\n"},
		{"blank_light", "hue:\n  lights: [\"A\", \" \"]\n"},
		{"bad_duration", "hue:\n  timeout: soon\n"},
		{"bad_port", "server:\n  port: 70000\n"},
		{"negative_cleanup", "ledger:\n  cleanup_interval: -1h\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("database:\n  path: /tmp/x.sqlite\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.Path != "/tmp/x.sqlite" {
		t.Errorf("database.path = %q", cfg.Database.Path)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("LB_SET", "value")
	os.Unsetenv("LB_UNSET")

	tests := []struct {
		in, want string
	}{
		{"${LB_SET}", "value"},
		{"${LB_UNSET:fallback}", "fallback"},
		{"${LB_UNSET}", ""},
		{"plain", "plain"},
		{"a ${LB_SET} b", "a value b"},
	}
	for _, tt := range tests {
		if got := expandEnvVars(tt.in); got != tt.want {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
