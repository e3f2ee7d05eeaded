package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intratel/internal/handler"
	"intratel/internal/hub"
	"intratel/internal/service"
	"intratel/internal/sshconsole"
	"intratel/internal/watcher"

	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		addr    string
		sshAddr string
		noSSH   bool
		labsDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the SSH console server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if sshAddr != "" {
				cfg.SSH.Enabled = true
				cfg.SSH.Addr = sshAddr
			}
			if noSSH {
				cfg.SSH.Enabled = false
			}
			if labsDir != "" {
				cfg.Labs.WatchDir = labsDir
			}

			log.Println("Starting IntraTEL server...")

			repo, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer repo.Close()
			log.Printf("Database opened: %s", cfg.Database.Path)

			eventBus := service.NewEventBus()

			sseHub := hub.New()
			go sseHub.Run()

			// Connect event bus to SSE hub; lab events go to everyone
			eventChan := make(chan service.Event, 100)
			eventBus.Subscribe(eventChan)
			go func() {
				for event := range eventChan {
					sseHub.BroadcastTo(event.SessionID, event)
				}
			}()

			sessions := service.NewSessionService(settingsFrom(cfg), repo, eventBus)
			defer sessions.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if cfg.Labs.WatchDir != "" {
				labDir := watcher.NewLabDir(cfg.Labs.WatchDir, sessions).WithDebounce(cfg.Labs.Debounce.Duration())
				go func() {
					if err := labDir.Run(ctx); err != nil {
						log.Printf("Lab directory sync stopped: %v", err)
					}
				}()
			}

			mux := http.NewServeMux()
			handler.NewSessionHandler(sessions).Register(mux)
			handler.NewLabHandler(sessions).Register(mux)
			mux.Handle("GET /events", sseHub)

			finalHandler := handler.Chain(mux,
				handler.Recover,
				handler.CORS,
				handler.Logger,
			)

			server := &http.Server{
				Addr:        cfg.Server.Addr,
				Handler:     finalHandler,
				ReadTimeout: 10 * time.Second,
				// No WriteTimeout: /events responses stay open
				IdleTimeout: 60 * time.Second,
			}

			go func() {
				log.Printf("Server listening on %s", cfg.Server.Addr)
				if err := server.ListenAndServe(); err != http.ErrServerClosed {
					log.Fatalf("Server error: %v", err)
				}
			}()

			var sshServer *sshconsole.Server
			if cfg.SSH.Enabled {
				sshServer, err = sshconsole.New(sshconsole.Config{
					Addr:        cfg.SSH.Addr,
					HostKeyPath: cfg.SSH.HostKeyPath,
					Password:    cfg.SSH.Password,
				}, sessions)
				if err != nil {
					return err
				}
				go func() {
					if err := sshServer.ListenAndServe(); err != nil && !errors.Is(err, sshconsole.ErrServerClosed) {
						log.Fatalf("SSH server error: %v", err)
					}
				}()
			}

			// Wait for interrupt signal
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			log.Println("Shutting down server...")

			if sshServer != nil {
				sshServer.Close()
			}
			sseHub.Stop()
			cancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("Server shutdown error: %v", err)
			}

			eventBus.Unsubscribe(eventChan)
			log.Println("Server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	cmd.Flags().StringVar(&sshAddr, "ssh", "", "enable the SSH console on this address")
	cmd.Flags().BoolVar(&noSSH, "no-ssh", false, "disable the SSH console")
	cmd.Flags().StringVar(&labsDir, "watch-labs", "", "import lab files from this directory and watch it for changes")
	return cmd
}
