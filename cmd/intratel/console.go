package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"intratel/internal/repository"
	"intratel/internal/service"
	"intratel/internal/shell"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

func newConsoleCmd(opts *rootOptions) *cobra.Command {
	var noDB bool

	cmd := &cobra.Command{
		Use:   "console [router|pc]",
		Short: "Open a local console on a fresh lab session",
		Long: `Open an interactive console on a new session. Besides the device's own
commands the console understands:

  link R1:0 S1:0      cable two ports
  unlink R1:0         remove a cable
  topo                show the topology
  connect router|pc   switch consoles
  reset               start over
  lab list|save|load  saved labs
  logout              leave`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"router", "pc"},
		RunE: func(cmd *cobra.Command, args []string) error {
			device := service.DeviceRouter
			if len(args) == 1 {
				d, err := service.ParseDevice(args[0])
				if err != nil {
					return err
				}
				device = d
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			var labs repository.LabRepository
			if !noDB {
				repo, err := openRepository(cfg)
				if err != nil {
					log.Printf("Labs unavailable: %v", err)
				} else {
					defer repo.Close()
					labs = repo
				}
			}

			sessions := service.NewSessionService(settingsFrom(cfg), labs, nil)
			defer sessions.Close()

			return runConsole(sessions, device)
		},
	}

	cmd.Flags().BoolVar(&noDB, "no-db", false, "run without the lab database")
	return cmd
}

var consoleCompleter = readline.NewPrefixCompleter(
	readline.PcItem("link"),
	readline.PcItem("unlink"),
	readline.PcItem("topo"),
	readline.PcItem("connect", readline.PcItem("router"), readline.PcItem("pc")),
	readline.PcItem("reset"),
	readline.PcItem("lab", readline.PcItem("list"), readline.PcItem("save"), readline.PcItem("load")),
	readline.PcItem("enable"),
	readline.PcItem("configure", readline.PcItem("terminal")),
	readline.PcItem("interface", readline.PcItem("fa0/0"), readline.PcItem("fa0/1")),
	readline.PcItem("ip", readline.PcItem("address")),
	readline.PcItem("no", readline.PcItem("shutdown")),
	readline.PcItem("show",
		readline.PcItem("ip", readline.PcItem("interface", readline.PcItem("brief")), readline.PcItem("route")),
		readline.PcItem("running-config"),
		readline.PcItem("interfaces"),
		readline.PcItem("version"),
	),
	readline.PcItem("ping"),
	readline.PcItem("ipconfig"),
	readline.PcItem("logout"),
)

func runConsole(sessions *service.SessionService, device service.Device) error {
	sess := sessions.Create()

	rl, err := readline.NewEx(&readline.Config{
		AutoComplete:    consoleCompleter,
		InterruptPrompt: "^C",
		EOFPrompt:       "logout",
	})
	if err != nil {
		return fmt.Errorf("readline init: %w", err)
	}
	defer rl.Close()
	log.SetOutput(rl.Stderr())

	sh := shell.New(sessions, sess, device, rl.Stdout())
	fmt.Fprintln(rl.Stdout(), sh.Banner())

	for {
		rl.SetPrompt(sh.Prompt())
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Ctrl+C stops a running ping
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		err = sh.Run(ctx, line)
		stop()
		if err != nil {
			if errors.Is(err, shell.ErrQuit) {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(rl.Stdout(), "^C")
				continue
			}
			fmt.Fprintf(rl.Stderr(), "error: %v\n", err)
		}
	}
}
