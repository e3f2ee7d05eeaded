package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version    int              `yaml:"version"`
	Server     ServerConfig     `yaml:"server"`
	SSH        SSHConfig        `yaml:"ssh"`
	Database   DatabaseConfig   `yaml:"database"`
	Labs       LabsConfig       `yaml:"labs"`
	Simulator  SimulatorConfig  `yaml:"simulator"`
	Milestones MilestonesConfig `yaml:"milestones"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// SSHConfig holds the SSH console server settings
type SSHConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Addr        string `yaml:"addr"`
	HostKeyPath string `yaml:"host_key_path,omitempty"` // generated in memory when empty
	Password    string `yaml:"password,omitempty"`      // empty = no authentication
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LabsConfig holds the lab directory settings
type LabsConfig struct {
	// WatchDir holds yaml/json lab files kept in sync with the database while serving
	WatchDir string   `yaml:"watch_dir,omitempty"`
	Debounce Duration `yaml:"debounce"`
}

// SimulatorConfig holds console engine settings
type SimulatorConfig struct {
	ProbeInterval  Duration `yaml:"probe_interval"`
	RouterHostname string   `yaml:"router_hostname"`
	PCHostname     string   `yaml:"pc_hostname"`
	PC             PCConfig `yaml:"pc"`
}

// PCConfig is the PC's static addressing
type PCConfig struct {
	IP      string `yaml:"ip"`
	Mask    string `yaml:"mask"`
	Gateway string `yaml:"gateway"`
}

// MilestonesConfig holds milestone tokens and repeat policy
type MilestonesConfig struct {
	Policy      Policy `yaml:"policy"`
	InterfaceUp string `yaml:"interface_up"`
	RouterPing  string `yaml:"router_ping"`
	PCObjective string `yaml:"pc_objective"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
