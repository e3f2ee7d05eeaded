package main

import (
	"fmt"
	"log"

	"intratel/internal/config"
	"intratel/internal/console"
	"intratel/internal/repository/sqlite"
	"intratel/internal/service"

	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every command
type rootOptions struct {
	configPath string
	dbPath     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "intratel",
		Short: "IntraTEL network console simulator",
		Long: `IntraTEL simulates a small lab network: a router, a switch and a PC.
Cable the devices, configure the router's interface from its CLI and ping
the gateway from the PC.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: search $INTRATEL_CONFIG, ./intratel.yaml, ~/.config/intratel)")
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides config)")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newConsoleCmd(opts),
		newLabCmd(opts),
		newConfigCmd(opts),
	)
	return rootCmd
}

// loadConfig reads the config file named by --config or found on the search path
func (o *rootOptions) loadConfig() (*config.Config, error) {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if o.configPath != "" {
		cfg, path, err = config.LoadFromPath(o.configPath)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if path != "" {
		log.Printf("Config loaded from %s", path)
	}
	if o.dbPath != "" {
		cfg.Database.Path = o.dbPath
	}
	return cfg, nil
}

// openRepository opens the lab database named in cfg
func openRepository(cfg *config.Config) (*sqlite.Repository, error) {
	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.Database.Path, err)
	}
	return repo, nil
}

// settingsFrom maps the simulator and milestone config onto session settings
func settingsFrom(cfg *config.Config) service.Settings {
	settings := service.DefaultSettings()
	settings.ProbeInterval = cfg.Simulator.ProbeInterval.Duration()
	settings.RouterHostname = cfg.Simulator.RouterHostname
	settings.PCHostname = cfg.Simulator.PCHostname
	settings.PC = console.NetConfig{
		IP:      cfg.Simulator.PC.IP,
		Mask:    cfg.Simulator.PC.Mask,
		Gateway: cfg.Simulator.PC.Gateway,
	}
	settings.Milestones.Policy = console.ParseMilestonePolicy(string(cfg.Milestones.Policy))
	if cfg.Milestones.InterfaceUp != "" {
		settings.Milestones.InterfaceUp = cfg.Milestones.InterfaceUp
	}
	if cfg.Milestones.RouterPing != "" {
		settings.Milestones.RouterPing = cfg.Milestones.RouterPing
	}
	if cfg.Milestones.PCObjective != "" {
		settings.Milestones.PCObjective = cfg.Milestones.PCObjective
	}
	return settings
}
