package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		input string
		want  Policy
	}{
		{"edge", PolicyEdge},
		{"level", PolicyLevel},
		{"invalid", PolicyEdge}, // Default
		{"", PolicyEdge},        // Default
	}

	for _, tt := range tests {
		if got := ParsePolicy(tt.input); got != tt.want {
			t.Errorf("ParsePolicy(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Server.Addr != DefaultHTTPAddr {
		t.Errorf("Server.Addr = %s, want %s", cfg.Server.Addr, DefaultHTTPAddr)
	}
	if cfg.Database.Path == "" {
		t.Error("Database.Path should not be empty")
	}
	if cfg.Simulator.ProbeInterval.Duration() != 500*time.Millisecond {
		t.Errorf("ProbeInterval = %s, want 500ms", cfg.Simulator.ProbeInterval.Duration())
	}
	if cfg.Labs.Debounce.Duration() != DefaultLabDebounce || cfg.Labs.WatchDir != "" {
		t.Errorf("Labs = %+v, want default debounce and no watch dir", cfg.Labs)
	}
	if cfg.Simulator.PC.Gateway != "192.168.1.1" {
		t.Errorf("PC.Gateway = %s, want 192.168.1.1", cfg.Simulator.PC.Gateway)
	}
	if cfg.Milestones.Policy != PolicyEdge {
		t.Errorf("Milestones.Policy = %s, want %s", cfg.Milestones.Policy, PolicyEdge)
	}
	if cfg.SSH.Enabled {
		t.Error("SSH should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad http addr", func(c *Config) { c.Server.Addr = "3000" }, "server.addr"},
		{"bad ssh addr", func(c *Config) { c.SSH.Enabled = true; c.SSH.Addr = "nope" }, "ssh.addr"},
		{"negative interval", func(c *Config) { c.Simulator.ProbeInterval = Duration(-time.Second) }, "probe_interval"},
		{"bad pc ip", func(c *Config) { c.Simulator.PC.IP = "192.168.1" }, "simulator.pc.ip"},
		{"ipv6 gateway", func(c *Config) { c.Simulator.PC.Gateway = "::1" }, "simulator.pc.gateway"},
		{"unknown policy", func(c *Config) { c.Milestones.Policy = "sometimes" }, "milestones.policy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}

	t.Run("disabled ssh ignores addr", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SSH.Addr = "nope"
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.SSH.Enabled = true
	cfg.SSH.Password = "cisco"
	cfg.Simulator.ProbeInterval = Duration(250 * time.Millisecond)
	cfg.Simulator.RouterHostname = "Edge"
	cfg.Milestones.Policy = PolicyLevel
	cfg.Milestones.RouterPing = "FLAG{ping}"

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, path, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if path != configPath {
		t.Errorf("path = %s, want %s", path, configPath)
	}

	if !loaded.SSH.Enabled || loaded.SSH.Password != "cisco" {
		t.Errorf("SSH = %+v", loaded.SSH)
	}
	if loaded.Simulator.ProbeInterval.Duration() != 250*time.Millisecond {
		t.Errorf("ProbeInterval = %s, want 250ms", loaded.Simulator.ProbeInterval.Duration())
	}
	if loaded.Simulator.RouterHostname != "Edge" {
		t.Errorf("RouterHostname = %s, want Edge", loaded.Simulator.RouterHostname)
	}
	if loaded.Milestones.Policy != PolicyLevel || loaded.Milestones.RouterPing != "FLAG{ping}" {
		t.Errorf("Milestones = %+v", loaded.Milestones)
	}
}

func TestLoadFromPathPartial(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	data := "simulator:\n  probe_interval: 1s\nmilestones:\n  policy: level\n"
	if err := os.WriteFile(configPath, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, _, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if cfg.Simulator.ProbeInterval.Duration() != time.Second {
		t.Errorf("ProbeInterval = %s, want 1s", cfg.Simulator.ProbeInterval.Duration())
	}
	if cfg.Simulator.PC.IP != "192.168.1.10" {
		t.Errorf("expected PC defaults to be applied, got %+v", cfg.Simulator.PC)
	}
	if cfg.Milestones.InterfaceUp == "" {
		t.Error("expected default tokens to be applied")
	}
}

func TestLoadFromPathErrors(t *testing.T) {
	tmpDir := t.TempDir()

	if _, _, err := LoadFromPath(filepath.Join(tmpDir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	badDuration := filepath.Join(tmpDir, "duration.yaml")
	os.WriteFile(badDuration, []byte("simulator:\n  probe_interval: soon\n"), 0644)
	if _, _, err := LoadFromPath(badDuration); err == nil {
		t.Error("expected error for unparseable duration")
	}

	badPolicy := filepath.Join(tmpDir, "policy.yaml")
	os.WriteFile(badPolicy, []byte("milestones:\n  policy: sometimes\n"), 0644)
	if _, _, err := LoadFromPath(badPolicy); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestFindConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	cfg := DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	found := FindConfigPath()
	if found == "" {
		t.Error("FindConfigPath() should find config in working directory")
	}

	// Explicit path doesn't exist, should fall back
	t.Setenv(EnvConfigPath, "/nonexistent/path.yaml")
	found = FindConfigPath()
	if found == "" {
		t.Error("FindConfigPath() should fall back when env path doesn't exist")
	}

	explicit := filepath.Join(t.TempDir(), "explicit.yaml")
	if err := cfg.Save(explicit); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	t.Setenv(EnvConfigPath, explicit)
	if found = FindConfigPath(); found != explicit {
		t.Errorf("FindConfigPath() = %s, want %s", found, explicit)
	}
}

func TestSearchPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "xdg"))
	t.Setenv(EnvConfigPath, "/srv/lab.yaml")

	want := []string{
		"/srv/lab.yaml",
		ConfigFileName,
		filepath.Join(home, "xdg", "intratel", "config.yaml"),
		filepath.Join(home, ".config", "intratel", "config.yaml"),
		"/etc/intratel/config.yaml",
	}
	got := SearchPaths()
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("SearchPaths() = %v, want %v", got, want)
	}

	// Unset env and an XDG root equal to ~/.config collapse
	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	if got := SearchPaths(); len(got) != 3 {
		t.Errorf("SearchPaths() = %v, want 3 entries", got)
	}
	if got := DefaultConfigPath(); got != filepath.Join(home, ".config", "intratel", "config.yaml") {
		t.Errorf("DefaultConfigPath() = %s", got)
	}
}

func TestDuration(t *testing.T) {
	d := Duration(5 * time.Minute)

	if d.Duration() != 5*time.Minute {
		t.Errorf("Duration() = %s, want 5m", d.Duration())
	}

	marshaled, err := d.MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML() error: %v", err)
	}
	if marshaled != "5m0s" {
		t.Errorf("MarshalYAML() = %v, want 5m0s", marshaled)
	}
}
