// Package config provides configuration management for IntraTEL.
//
// Config file locations (priority order):
//  1. $INTRATEL_CONFIG
//  2. ./intratel.yaml
//  3. $XDG_CONFIG_HOME/intratel/config.yaml
//  4. ~/.config/intratel/config.yaml
//  5. /etc/intratel/config.yaml
package config

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultHTTPAddr       = ":3000"
	DefaultSSHAddr        = ":2222"
	DefaultDatabasePath   = "./intratel.db"
	DefaultLabDebounce    = 500 * time.Millisecond
	DefaultProbeInterval  = 500 * time.Millisecond
	DefaultRouterHostname = "Router"
	DefaultPCHostname     = "PC1"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultHTTPAddr
	}
	if c.SSH.Addr == "" {
		c.SSH.Addr = DefaultSSHAddr
	}
	if c.Database.Path == "" {
		c.Database.Path = DefaultDatabasePath
	}
	if c.Labs.Debounce == 0 {
		c.Labs.Debounce = Duration(DefaultLabDebounce)
	}

	sim := &c.Simulator
	if sim.ProbeInterval == 0 {
		sim.ProbeInterval = Duration(DefaultProbeInterval)
	}
	if sim.RouterHostname == "" {
		sim.RouterHostname = DefaultRouterHostname
	}
	if sim.PCHostname == "" {
		sim.PCHostname = DefaultPCHostname
	}
	if sim.PC.IP == "" {
		sim.PC.IP = "192.168.1.10"
	}
	if sim.PC.Mask == "" {
		sim.PC.Mask = "255.255.255.0"
	}
	if sim.PC.Gateway == "" {
		sim.PC.Gateway = "192.168.1.1"
	}

	m := &c.Milestones
	if m.Policy == "" {
		m.Policy = PolicyEdge
	}
	if m.InterfaceUp == "" {
		m.InterfaceUp = "INTRATEL{fa0_0_is_up}"
	}
	if m.RouterPing == "" {
		m.RouterPing = "INTRATEL{router_reaches_pc}"
	}
	if m.PCObjective == "" {
		m.PCObjective = "INTRATEL{pc_reaches_gateway}"
	}
}

// Validate checks listen addresses, PC addressing and the milestone policy
func (c *Config) Validate() error {
	var errs []error

	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		errs = append(errs, fmt.Errorf("server.addr: %w", err))
	}
	if c.SSH.Enabled {
		if _, _, err := net.SplitHostPort(c.SSH.Addr); err != nil {
			errs = append(errs, fmt.Errorf("ssh.addr: %w", err))
		}
	}
	if c.Simulator.ProbeInterval < 0 {
		errs = append(errs, errors.New("simulator.probe_interval must not be negative"))
	}
	if c.Labs.Debounce < 0 {
		errs = append(errs, errors.New("labs.debounce must not be negative"))
	}

	pc := c.Simulator.PC
	for _, f := range []struct{ name, value string }{
		{"ip", pc.IP}, {"mask", pc.Mask}, {"gateway", pc.Gateway},
	} {
		addr, err := netip.ParseAddr(f.value)
		if err != nil || !addr.Is4() {
			errs = append(errs, fmt.Errorf("simulator.pc.%s: invalid IPv4 address %q", f.name, f.value))
		}
	}

	if !c.Milestones.Policy.Valid() {
		errs = append(errs, fmt.Errorf("milestones.policy: unknown policy %q", c.Milestones.Policy))
	}

	return errors.Join(errs...)
}
