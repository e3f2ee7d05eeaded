// Package sshconsole serves the lab consoles over SSH.
//
// The login name picks the device: "ssh router@host" attaches to the router
// CLI, "ssh pc@host" to the PC shell. Every connection gets its own session
// on the seed topology, deleted when the connection closes. An exec request
// runs its command through the same session, with ";" separating lines.
package sshconsole

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"

	"intratel/internal/service"
	"intratel/internal/shell"

	"golang.org/x/crypto/ssh"
	"golang.org/x/term"
)

// ErrServerClosed is returned by Serve after Close
var ErrServerClosed = errors.New("sshconsole: server closed")

const deviceExtension = "intratel-device"

// Config configures the SSH server
type Config struct {
	Addr        string
	HostKeyPath string
	// Password, when set, is required for every login
	Password string
}

// Server accepts SSH connections and attaches each to a fresh session
type Server struct {
	cfg    Config
	svc    *service.SessionService
	config *ssh.ServerConfig

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	conns     map[net.Conn]struct{}
	closed    bool
	wg        sync.WaitGroup
}

// New creates a server, loading or generating its host key
func New(cfg Config, svc *service.SessionService) (*Server, error) {
	signer, err := LoadOrCreateHostKey(cfg.HostKeyPath)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       cfg,
		svc:       svc,
		listeners: make(map[net.Listener]struct{}),
		conns:     make(map[net.Conn]struct{}),
	}

	config := &ssh.ServerConfig{ServerVersion: "SSH-2.0-IntraTEL"}
	if cfg.Password == "" {
		config.NoClientAuth = true
		config.NoClientAuthCallback = func(meta ssh.ConnMetadata) (*ssh.Permissions, error) {
			return permissionsFor(meta.User())
		}
	} else {
		config.PasswordCallback = func(meta ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if subtle.ConstantTimeCompare(password, []byte(cfg.Password)) != 1 {
				return nil, fmt.Errorf("password rejected for %q", meta.User())
			}
			return permissionsFor(meta.User())
		}
	}
	config.AddHostKey(signer)
	s.config = config

	return s, nil
}

// permissionsFor accepts only logins that name a device
func permissionsFor(user string) (*ssh.Permissions, error) {
	device, err := service.ParseDevice(user)
	if err != nil {
		return nil, fmt.Errorf("login as router or pc: %w", err)
	}
	return &ssh.Permissions{Extensions: map[string]string{deviceExtension: string(device)}}, nil
}

// ListenAndServe listens on the configured address and serves connections
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Close
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.listeners[ln] = struct{}{}
	s.mu.Unlock()

	log.Printf("SSH console listening on %s", ln.Addr())
	for {
		nc, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return ErrServerClosed
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			nc.Close()
			return ErrServerClosed
		}
		s.conns[nc] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go func() {
			defer s.wg.Done()
			defer func() {
				s.mu.Lock()
				delete(s.conns, nc)
				s.mu.Unlock()
			}()
			s.handleConn(nc)
		}()
	}
}

// Close stops the listeners, drops open connections and waits for them
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	for ln := range s.listeners {
		ln.Close()
	}
	for nc := range s.conns {
		nc.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *Server) handleConn(nc net.Conn) {
	defer nc.Close()

	conn, chans, reqs, err := ssh.NewServerConn(nc, s.config)
	if err != nil {
		log.Printf("SSH handshake from %s failed: %v", nc.RemoteAddr(), err)
		return
	}
	defer conn.Close()
	go ssh.DiscardRequests(reqs)

	device := service.Device(conn.Permissions.Extensions[deviceExtension])
	sess := s.svc.Create()
	log.Printf("SSH %s@%s attached to session %s", conn.User(), conn.RemoteAddr(), sess.ID)
	defer func() {
		if err := s.svc.Delete(sess.ID); err != nil {
			log.Printf("SSH cleanup of session %s: %v", sess.ID, err)
		}
		log.Printf("SSH %s@%s disconnected", conn.User(), conn.RemoteAddr())
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			newCh.Reject(ssh.UnknownChannelType, "only session channels are supported")
			continue
		}
		ch, chReqs, err := newCh.Accept()
		if err != nil {
			log.Printf("SSH accept channel: %v", err)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleChannel(ctx, ch, chReqs, sess, device)
		}()
	}
	cancel()
	wg.Wait()
}

type ptyRequest struct {
	Term    string
	Columns uint32
	Rows    uint32
	Width   uint32
	Height  uint32
	Modes   string
}

type windowChange struct {
	Columns uint32
	Rows    uint32
	Width   uint32
	Height  uint32
}

type execRequest struct {
	Command string
}

type exitStatus struct {
	Status uint32
}

// handleChannel serves one session channel: an interactive shell or an exec
func (s *Server) handleChannel(ctx context.Context, ch ssh.Channel, reqs <-chan *ssh.Request, sess *service.Session, device service.Device) {
	defer func() {
		ch.Close()
		go ssh.DiscardRequests(reqs)
	}()

	var (
		cols, rows = 80, 24
		terminal   *term.Terminal
		started    bool
		done       = make(chan struct{})
	)

	for {
		select {
		case <-done:
			return
		case req, ok := <-reqs:
			if !ok {
				if started {
					<-done
				}
				return
			}

			switch req.Type {
			case "pty-req":
				var p ptyRequest
				if err := ssh.Unmarshal(req.Payload, &p); err == nil {
					cols, rows = int(p.Columns), int(p.Rows)
				}
				req.Reply(true, nil)

			case "window-change":
				var wc windowChange
				if err := ssh.Unmarshal(req.Payload, &wc); err == nil && terminal != nil {
					terminal.SetSize(int(wc.Columns), int(wc.Rows))
				}

			case "shell":
				if started {
					req.Reply(false, nil)
					continue
				}
				started = true
				terminal = term.NewTerminal(ch, "")
				terminal.SetSize(cols, rows)
				req.Reply(true, nil)
				go func() {
					defer close(done)
					runShell(ctx, terminal, shell.New(s.svc, sess, device, terminal))
					sendExit(ch, 0)
				}()

			case "exec":
				if started {
					req.Reply(false, nil)
					continue
				}
				var e execRequest
				if err := ssh.Unmarshal(req.Payload, &e); err != nil {
					req.Reply(false, nil)
					continue
				}
				started = true
				req.Reply(true, nil)
				go func() {
					defer close(done)
					sendExit(ch, runExec(ctx, ch, shell.New(s.svc, sess, device, ch), e.Command))
				}()

			default:
				if req.WantReply {
					req.Reply(false, nil)
				}
			}
		}
	}
}

// runShell reads lines until logout, EOF or the connection ends
func runShell(ctx context.Context, t *term.Terminal, sh *shell.Shell) {
	fmt.Fprintln(t, sh.Banner())
	for {
		t.SetPrompt(sh.Prompt())
		line, err := t.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("SSH read: %v", err)
			}
			return
		}
		if err := sh.Run(ctx, line); err != nil {
			if errors.Is(err, shell.ErrQuit) || ctx.Err() != nil {
				return
			}
			fmt.Fprintf(t, "%% %v\n", err)
		}
	}
}

// runExec runs each ";"-separated line of command and returns the exit status
func runExec(ctx context.Context, w io.Writer, sh *shell.Shell, command string) uint32 {
	lines := strings.FieldsFunc(command, func(r rune) bool { return r == ';' || r == '\n' })
	for _, line := range lines {
		if err := sh.Run(ctx, strings.TrimSpace(line)); err != nil {
			if errors.Is(err, shell.ErrQuit) {
				return 0
			}
			fmt.Fprintf(w, "%% %v\n", err)
			return 1
		}
	}
	return 0
}

func sendExit(ch ssh.Channel, status uint32) {
	if _, err := ch.SendRequest("exit-status", false, ssh.Marshal(exitStatus{Status: status})); err != nil && !errors.Is(err, io.EOF) {
		log.Printf("SSH exit-status: %v", err)
	}
}
