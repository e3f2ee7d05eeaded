package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"

	"intratel/internal/codec"
	"intratel/internal/console"
	"intratel/internal/domain"
	"intratel/internal/repository"
)

// SessionService provides business logic for lab sessions
type SessionService struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	settings Settings
	labs     repository.LabRepository
	eventBus *EventBus
}

// NewSessionService creates a new session service. labs may be nil, in which
// case lab operations fail.
func NewSessionService(settings Settings, labs repository.LabRepository, eventBus *EventBus) *SessionService {
	if eventBus == nil {
		eventBus = NewEventBus()
	}
	return &SessionService{
		sessions: make(map[string]*Session),
		settings: settings,
		labs:     labs,
		eventBus: eventBus,
	}
}

// onUnlock publishes a reached milestone
func (s *SessionService) onUnlock(sess *Session, u console.Unlock) {
	log.Printf("session %s: %s reached %s", sess.ID, u.Device, u.Milestone)
	s.eventBus.Publish(Event{
		Type:      EventMilestoneUnlocked,
		SessionID: sess.ID,
		Payload:   u,
	})
}

// Create starts a new session on the seed topology
func (s *SessionService) Create() *Session {
	sess := newSession(newSessionID(), s.settings, s.onUnlock)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	log.Printf("session %s: created", sess.ID)
	s.eventBus.Publish(Event{
		Type:      EventSessionCreated,
		SessionID: sess.ID,
		Payload:   sess.Info(),
	})
	return sess
}

// Get retrieves a session by ID
func (s *SessionService) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// List returns all sessions, oldest first
func (s *SessionService) List() []SessionInfo {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	infos := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, sess.Info())
	}
	return infos
}

// Delete stops a session's pings and removes it
func (s *SessionService) Delete(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	sess.stop()
	log.Printf("session %s: deleted", id)
	s.eventBus.Publish(Event{Type: EventSessionDeleted, SessionID: id})
	return nil
}

// Close stops every session
func (s *SessionService) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.stop()
	}
}

// Reset cancels in-flight pings and returns the session to the seed topology
// with fresh consoles. The session ID is kept.
func (s *SessionService) Reset(id string) (*Session, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	sess.stop()
	sess.mu.Lock()
	sess.build(s.settings, s.onUnlock)
	sess.mu.Unlock()

	log.Printf("session %s: reset", id)
	s.eventBus.Publish(Event{
		Type:      EventSessionReset,
		SessionID: id,
		Payload:   sess.Info(),
	})
	return sess, nil
}

// Topology returns a snapshot of the session's topology
func (s *SessionService) Topology(id string) (*domain.Snapshot, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.Topology().Snapshot(), nil
}

func (s *SessionService) publishTopology(sess *Session) {
	s.eventBus.Publish(Event{
		Type:      EventTopologyUpdated,
		SessionID: sess.ID,
		Payload:   sess.Topology().Snapshot(),
	})
}

// AddLink cables two ports
func (s *SessionService) AddLink(id, nodeA string, portA int, nodeB string, portB int) (domain.Link, error) {
	sess, err := s.Get(id)
	if err != nil {
		return domain.Link{}, err
	}

	link, err := sess.Topology().AddLink(nodeA, portA, nodeB, portB)
	if err != nil {
		return domain.Link{}, err
	}

	s.publishTopology(sess)
	return link, nil
}

// RemoveLink removes a cable by link ID
func (s *SessionService) RemoveLink(id, linkID string) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}

	if !sess.Topology().RemoveLink(linkID) {
		return fmt.Errorf("%w: %s", ErrLinkNotFound, linkID)
	}

	s.publishTopology(sess)
	return nil
}

// MoveNode updates a node's rendering position
func (s *SessionService) MoveNode(id, nodeID string, pos domain.Position) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := sess.Topology().MoveNode(nodeID, pos); err != nil {
		return err
	}
	s.publishTopology(sess)
	return nil
}

// MovePort updates a port's rendering offset
func (s *SessionService) MovePort(id, nodeID string, port int, offset domain.Position) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := sess.Topology().MovePort(nodeID, port, offset); err != nil {
		return err
	}
	s.publishTopology(sess)
	return nil
}

// ExecResult is the immediate outcome of one console command
type ExecResult struct {
	Device    Device   `json:"device"`
	Lines     []string `json:"lines"`
	Clear     bool     `json:"clear"`
	Streaming bool     `json:"streaming"`
	Prompt    string   `json:"prompt"`
}

// ConsoleOutput is the payload of console_output events
type ConsoleOutput struct {
	Device Device   `json:"device"`
	Lines  []string `json:"lines,omitempty"`
	Done   bool     `json:"done,omitempty"`
	Prompt string   `json:"prompt,omitempty"`
}

// Exec runs one command line and returns its immediate output. When the
// command starts a ping, the probes and summary are published later as
// console_output events; the last one has Done set.
func (s *SessionService) Exec(id string, device Device, line string) (*ExecResult, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	sessionCtx, done, err := sess.begin()
	if err != nil {
		return nil, err
	}
	c, err := sess.Console(device)
	if err != nil {
		done()
		return nil, err
	}

	before := routerPorts(sess.Topology())
	reply := c.Exec(line)
	if !portsEqual(before, routerPorts(sess.Topology())) {
		s.publishTopology(sess)
	}

	result := &ExecResult{
		Device:    device,
		Lines:     reply.Lines,
		Clear:     reply.Clear,
		Streaming: reply.Stream != nil,
		Prompt:    c.Prompt(),
	}
	if result.Lines == nil {
		result.Lines = []string{}
	}

	if reply.Stream != nil {
		s.runStream(sess, sessionCtx, done, device, c, reply.Stream)
	} else {
		done()
	}
	return result, nil
}

// ExecuteStream runs one command line and blocks until any ping finishes,
// writing all output to sink instead of publishing it. Used by terminals
// that own their output.
func (s *SessionService) ExecuteStream(ctx context.Context, id string, device Device, line string, sink console.Sink) (console.Reply, error) {
	sess, err := s.Get(id)
	if err != nil {
		return console.Reply{}, err
	}

	before := routerPorts(sess.Topology())
	reply, err := sess.Execute(ctx, device, line, sink)
	if !portsEqual(before, routerPorts(sess.Topology())) {
		s.publishTopology(sess)
	}
	return reply, err
}

// runStream delivers a ping in the background until it ends or the session
// stops. done is the registration from Session.begin; the goroutine owns it.
func (s *SessionService) runStream(sess *Session, sessionCtx context.Context, done func(), device Device, c console.Console, stream *console.Stream) {
	ctx, stop := streamContext(context.Background(), sessionCtx)
	go func() {
		defer done()
		defer stop()

		err := stream.Run(ctx, func(lines []string) {
			s.eventBus.Publish(Event{
				Type:      EventConsoleOutput,
				SessionID: sess.ID,
				Payload:   ConsoleOutput{Device: device, Lines: lines},
			})
		})
		if err != nil {
			log.Printf("session %s: %s ping stopped: %v", sess.ID, device, err)
			return
		}
		s.eventBus.Publish(Event{
			Type:      EventConsoleOutput,
			SessionID: sess.ID,
			Payload:   ConsoleOutput{Device: device, Done: true, Prompt: c.Prompt()},
		})
	}()
}

func routerPorts(topo *domain.Topology) []domain.Port {
	n, ok := topo.Node(domain.SeedRouterID)
	if !ok {
		return nil
	}
	return n.Ports
}

func portsEqual(a, b []domain.Port) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Labs

// ErrNoLabStore is returned by lab operations when no repository is configured
var ErrNoLabStore = errors.New("lab storage is not configured")

// SaveLab stores the session's current topology under name
func (s *SessionService) SaveLab(ctx context.Context, id, name, description string) (*domain.Lab, error) {
	if s.labs == nil {
		return nil, ErrNoLabStore
	}
	if name == "" {
		return nil, errors.New("lab name required")
	}
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	lab := &domain.Lab{
		Name:        name,
		Description: description,
		Snapshot:    sess.Topology().Snapshot(),
	}
	if err := s.labs.SaveLab(ctx, lab); err != nil {
		return nil, err
	}

	log.Printf("session %s: saved lab %q (%d links)", id, name, lab.LinkCount())
	s.eventBus.Publish(Event{
		Type:    EventLabSaved,
		Payload: map[string]string{"name": name, "session_id": id},
	})
	return lab, nil
}

// StoreLab validates a lab built outside a session and saves it.
// An existing lab keeps its description when lab has none.
func (s *SessionService) StoreLab(ctx context.Context, lab *domain.Lab) error {
	if s.labs == nil {
		return ErrNoLabStore
	}
	if lab.Name == "" {
		return errors.New("lab name required")
	}
	if lab.Snapshot == nil {
		return fmt.Errorf("lab %s has no topology", lab.Name)
	}
	if err := domain.NewSeedTopology().Restore(lab.Snapshot); err != nil {
		return fmt.Errorf("invalid lab %s: %w", lab.Name, err)
	}
	if lab.Description == "" {
		if existing, err := s.labs.GetLab(ctx, lab.Name); err == nil {
			lab.Description = existing.Description
		} else if !errors.Is(err, repository.ErrLabNotFound) {
			return err
		}
	}
	if err := s.labs.SaveLab(ctx, lab); err != nil {
		return err
	}

	s.eventBus.Publish(Event{
		Type:    EventLabSaved,
		Payload: map[string]string{"name": lab.Name},
	})
	return nil
}

// LoadLab replaces the session's cabling and layout with a saved lab.
// The router's running configuration stays authoritative for its ports.
func (s *SessionService) LoadLab(ctx context.Context, id, name string) error {
	if s.labs == nil {
		return ErrNoLabStore
	}
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	lab, err := s.labs.GetLab(ctx, name)
	if err != nil {
		return err
	}
	if err := s.restore(sess, lab.Snapshot); err != nil {
		return fmt.Errorf("load lab %s: %w", name, err)
	}
	log.Printf("session %s: loaded lab %q", id, name)
	return nil
}

// ListLabs returns all saved labs
func (s *SessionService) ListLabs(ctx context.Context) ([]domain.Lab, error) {
	if s.labs == nil {
		return nil, ErrNoLabStore
	}
	return s.labs.ListLabs(ctx)
}

// DeleteLab removes a saved lab
func (s *SessionService) DeleteLab(ctx context.Context, name string) error {
	if s.labs == nil {
		return ErrNoLabStore
	}
	if err := s.labs.DeleteLab(ctx, name); err != nil {
		return err
	}
	s.eventBus.Publish(Event{
		Type:    EventLabDeleted,
		Payload: map[string]string{"name": name},
	})
	return nil
}

// ExportTopology writes the session's topology in format
func (s *SessionService) ExportTopology(id, format string, w io.Writer) error {
	exporter, err := codec.ExporterFor(format)
	if err != nil {
		return err
	}
	snap, err := s.Topology(id)
	if err != nil {
		return err
	}
	return exporter.Export(snap, w)
}

// ImportTopology replaces the session's cabling and layout with a document in format
func (s *SessionService) ImportTopology(id, format string, r io.Reader) error {
	importer, err := codec.ImporterFor(format)
	if err != nil {
		return err
	}
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	snap, err := importer.Parse(r)
	if err != nil {
		return err
	}
	if err := s.restore(sess, snap); err != nil {
		return fmt.Errorf("import %s: %w", importer.Format(), err)
	}
	return nil
}

func (s *SessionService) restore(sess *Session, snap *domain.Snapshot) error {
	if err := sess.Topology().Restore(snap); err != nil {
		return err
	}
	sess.Router().Resync()
	s.publishTopology(sess)
	return nil
}
