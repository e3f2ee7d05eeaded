package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"intratel/internal/console"
	"intratel/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownDevice   = errors.New("unknown device")
	ErrLinkNotFound    = errors.New("link not found")
	ErrSessionStopping = errors.New("session is stopping")
)

// Device selects one of the two consoles of a session
type Device string

const (
	DeviceRouter Device = "router"
	DevicePC     Device = "pc"
)

// ParseDevice converts a string to Device
func ParseDevice(s string) (Device, error) {
	switch strings.ToLower(s) {
	case "router", "r1":
		return DeviceRouter, nil
	case "pc", "pc1":
		return DevicePC, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDevice, s)
	}
}

// Settings configures the consoles of every new session
type Settings struct {
	ProbeInterval  time.Duration
	RouterHostname string
	PCHostname     string
	PC             console.NetConfig
	Milestones     console.Milestones
}

// DefaultSettings returns the stock console settings
func DefaultSettings() Settings {
	return Settings{
		ProbeInterval:  console.DefaultProbeInterval,
		RouterHostname: "Router",
		PCHostname:     "PC1",
		PC:             console.DefaultPCNetConfig(),
		Milestones:     console.DefaultMilestones(),
	}
}

// Session is one lab: a topology and the two consoles wired to it
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.RWMutex
	topology *domain.Topology
	router   *console.Router
	pc       *console.PC

	// consoles report unlocks while holding their own locks
	unlockMu sync.Mutex
	unlocks  []console.Unlock

	// ctx is cancelled on reset and delete, stopping in-flight pings.
	// stopping is set under mu before cancel so no command registers on wg
	// while stop waits.
	ctx      context.Context
	cancel   context.CancelFunc
	stopping bool
	wg       sync.WaitGroup
}

// SessionInfo is the JSON view of a session
type SessionInfo struct {
	ID           string           `json:"id"`
	CreatedAt    time.Time        `json:"created_at"`
	RouterPrompt string           `json:"router_prompt"`
	RouterMode   console.Mode     `json:"router_mode"`
	PCPrompt     string           `json:"pc_prompt"`
	CablingOK    bool             `json:"cabling_ok"`
	Unlocks      []console.Unlock `json:"unlocks"`
}

func newSession(id string, settings Settings, onUnlock func(*Session, console.Unlock)) *Session {
	s := &Session{ID: id, CreatedAt: time.Now()}
	s.build(settings, onUnlock)
	return s
}

// build wires a fresh topology and consoles. Callers hold s.mu or own s exclusively.
func (s *Session) build(settings Settings, onUnlock func(*Session, console.Unlock)) {
	milestones := settings.Milestones
	milestones.OnUnlock = func(u console.Unlock) {
		s.recordUnlock(u)
		if onUnlock != nil {
			onUnlock(s, u)
		}
	}

	topo := domain.NewSeedTopology()
	s.topology = topo
	s.router = console.NewRouter(topo, console.RouterConfig{
		Hostname:      settings.RouterHostname,
		NodeID:        domain.SeedRouterID,
		Peer:          settings.PC,
		ProbeInterval: settings.ProbeInterval,
		Milestones:    milestones,
	})
	s.pc = console.NewPC(topo, console.PCConfig{
		Hostname:      settings.PCHostname,
		Net:           settings.PC,
		ProbeInterval: settings.ProbeInterval,
		Milestones:    milestones,
	})
	s.unlockMu.Lock()
	s.unlocks = nil
	s.unlockMu.Unlock()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.stopping = false
}

func (s *Session) recordUnlock(u console.Unlock) {
	s.unlockMu.Lock()
	defer s.unlockMu.Unlock()
	s.unlocks = append(s.unlocks, u)
}

// Unlocks returns the milestones reached so far
func (s *Session) Unlocks() []console.Unlock {
	s.unlockMu.Lock()
	defer s.unlockMu.Unlock()
	out := make([]console.Unlock, len(s.unlocks))
	copy(out, s.unlocks)
	return out
}

// Topology returns the session's topology
func (s *Session) Topology() *domain.Topology {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topology
}

// Router returns the router console
func (s *Session) Router() *console.Router {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.router
}

// PC returns the PC console
func (s *Session) PC() *console.PC {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pc
}

// Console returns the console for d
func (s *Session) Console(d Device) (console.Console, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch d {
	case DeviceRouter:
		return s.router, nil
	case DevicePC:
		return s.pc, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, d)
	}
}

// Info returns a JSON-friendly summary
func (s *Session) Info() SessionInfo {
	router := s.Router()
	return SessionInfo{
		ID:           s.ID,
		CreatedAt:    s.CreatedAt,
		RouterPrompt: router.Prompt(),
		RouterMode:   router.Mode(),
		PCPrompt:     s.PC().Prompt(),
		CablingOK:    s.Topology().CablingOK(),
		Unlocks:      s.Unlocks(),
	}
}

// Execute runs line on device d and blocks until any ping stream finishes,
// writing all output to sink. The run stops early when ctx is done or the
// session is reset.
func (s *Session) Execute(ctx context.Context, d Device, line string, sink console.Sink) (console.Reply, error) {
	sessionCtx, done, err := s.begin()
	if err != nil {
		return console.Reply{}, err
	}
	defer done()

	c, err := s.Console(d)
	if err != nil {
		return console.Reply{}, err
	}
	runCtx, stop := streamContext(ctx, sessionCtx)
	defer stop()
	return console.Execute(runCtx, c, line, sink)
}

// begin registers a command that stop waits for and returns the session
// context it runs under. done must be called when the command and any
// stream it started are finished. begin fails once stop has started.
func (s *Session) begin() (context.Context, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return nil, nil, fmt.Errorf("%w: %s", ErrSessionStopping, s.ID)
	}
	s.wg.Add(1)
	return s.ctx, s.wg.Done, nil
}

// streamContext derives a context that ends with either ctx or sessionCtx
func streamContext(ctx, sessionCtx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(ctx)
	stopAfter := context.AfterFunc(sessionCtx, cancel)
	return runCtx, func() {
		stopAfter()
		cancel()
	}
}

// stop cancels in-flight streams and waits for them to finish
func (s *Session) stop() {
	s.mu.Lock()
	s.stopping = true
	cancel := s.cancel
	s.mu.Unlock()
	cancel()
	s.wg.Wait()
}

func newSessionID() string {
	return uuid.NewString()
}
