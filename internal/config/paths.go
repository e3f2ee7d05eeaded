package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file
	EnvConfigPath = "INTRATEL_CONFIG"
	// ConfigFileName is looked up in the working directory
	ConfigFileName = "intratel.yaml"
	// ConfigDirName is the directory under the user and system config roots
	ConfigDirName = "intratel"
)

// SearchPaths lists the candidate config files in lookup order:
// $INTRATEL_CONFIG, ./intratel.yaml, $XDG_CONFIG_HOME/intratel/config.yaml,
// ~/.config/intratel/config.yaml and /etc/intratel/config.yaml.
// Unset variables contribute nothing and duplicates are dropped.
func SearchPaths() []string {
	candidates := []string{os.Getenv(EnvConfigPath), ConfigFileName}
	for _, root := range userConfigRoots() {
		candidates = append(candidates, filepath.Join(root, ConfigDirName, "config.yaml"))
	}
	candidates = append(candidates, filepath.Join("/etc", ConfigDirName, "config.yaml"))

	paths := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, p := range candidates {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		paths = append(paths, p)
	}
	return paths
}

// FindConfigPath returns the first existing file from SearchPaths,
// or "" when there is none. A working-directory hit is made absolute.
func FindConfigPath() string {
	for _, p := range SearchPaths() {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		if p == ConfigFileName {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
		}
		return p
	}
	return ""
}

// DefaultConfigPath is where `config init` writes when no path is given
func DefaultConfigPath() string {
	if roots := userConfigRoots(); len(roots) > 0 {
		return filepath.Join(roots[0], ConfigDirName, "config.yaml")
	}
	return ConfigFileName
}

// userConfigRoots returns $XDG_CONFIG_HOME and ~/.config, whichever are known
func userConfigRoots() []string {
	var roots []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		roots = append(roots, xdg)
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		roots = append(roots, filepath.Join(home, ".config"))
	}
	return roots
}

// EnsureConfigDir creates the directory that will hold configPath
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0o755)
}
