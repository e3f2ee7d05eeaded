// Package shell drives a session's consoles from a line-oriented terminal.
//
// Lines are passed to the attached device console unless they name one of
// the shell's own commands, which stand in for the drag-and-drop canvas:
//
//	link R1:0 S1:0      cable two ports
//	unlink R1:0         remove the cable on a port (or unlink <link-id>)
//	topo                show nodes, ports and links
//	connect router|pc   attach to the other console
//	reset               return the session to the seed topology
//	lab list|save|load  manage saved labs
//	logout              end the shell
//
// The SSH server and the local REPL both run a Shell per session.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"intratel/internal/domain"
	"intratel/internal/service"
)

// ErrQuit is returned by Run when the user ends the shell
var ErrQuit = errors.New("quit")

// ClearScreen homes the cursor and erases the display
const ClearScreen = "\x1b[H\x1b[2J"

// Shell runs lines against one session
type Shell struct {
	svc    *service.SessionService
	sess   *service.Session
	device service.Device
	out    io.Writer
}

// New creates a shell attached to device, writing output to out
func New(svc *service.SessionService, sess *service.Session, device service.Device, out io.Writer) *Shell {
	return &Shell{svc: svc, sess: sess, device: device, out: out}
}

// Device returns the attached console
func (s *Shell) Device() service.Device {
	return s.device
}

// Session returns the shell's session
func (s *Shell) Session() *service.Session {
	return s.sess
}

// Prompt returns the attached console's prompt
func (s *Shell) Prompt() string {
	c, err := s.sess.Console(s.device)
	if err != nil {
		return "> "
	}
	return c.Prompt() + " "
}

// Banner returns the greeting shown when the shell starts
func (s *Shell) Banner() string {
	return fmt.Sprintf("IntraTEL lab %s, attached to %s. Type 'topo' for the topology, 'logout' to leave.", shortID(s.sess.ID), s.device)
}

// Run executes one line. Ping output is written as it streams; Run returns
// when the ping finishes or ctx is done.
func (s *Shell) Run(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) > 0 {
		name, args := strings.ToLower(fields[0]), fields[1:]
		if cmd, ok := builtins[name]; ok {
			return cmd(s, ctx, args)
		}
	}

	reply, err := s.svc.ExecuteStream(ctx, s.sess.ID, s.device, line, s.writeLines)
	if reply.Clear {
		io.WriteString(s.out, ClearScreen)
	}
	return err
}

func (s *Shell) writeLines(lines []string) {
	for _, l := range lines {
		fmt.Fprintln(s.out, l)
	}
}

func (s *Shell) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format+"\n", args...)
}

type builtin func(s *Shell, ctx context.Context, args []string) error

var builtins = map[string]builtin{
	"link":    (*Shell).cmdLink,
	"unlink":  (*Shell).cmdUnlink,
	"topo":    (*Shell).cmdTopo,
	"connect": (*Shell).cmdConnect,
	"reset":   (*Shell).cmdReset,
	"lab":     (*Shell).cmdLab,
	"logout":  (*Shell).cmdQuit,
	"quit":    (*Shell).cmdQuit,
}

func (s *Shell) cmdQuit(context.Context, []string) error {
	return ErrQuit
}

func (s *Shell) cmdLink(_ context.Context, args []string) error {
	if len(args) != 2 {
		s.printf("Usage: link NODE:PORT NODE:PORT")
		return nil
	}
	a, err := domain.ParseEndpoint(args[0])
	if err != nil {
		s.printf("%% %v", err)
		return nil
	}
	b, err := domain.ParseEndpoint(args[1])
	if err != nil {
		s.printf("%% %v", err)
		return nil
	}

	link, err := s.svc.AddLink(s.sess.ID, a.NodeID, a.Port, b.NodeID, b.Port)
	if err != nil {
		s.printf("%% %v", err)
		return nil
	}
	s.printf("Linked %s <-> %s [%s]", link.A, link.B, link.ID)
	if !link.OK {
		s.printf("Warning: this cable carries no signal; only router-switch and pc-switch links work.")
	}
	return nil
}

func (s *Shell) cmdUnlink(_ context.Context, args []string) error {
	if len(args) != 1 {
		s.printf("Usage: unlink NODE:PORT | unlink LINK-ID")
		return nil
	}

	id := args[0]
	if e, err := domain.ParseEndpoint(args[0]); err == nil {
		id = ""
		for _, l := range s.sess.Topology().Links() {
			if l.Touches(e.NodeID, e.Port) {
				id = l.ID
				break
			}
		}
		if id == "" {
			s.printf("%% No cable on %s", e)
			return nil
		}
	}

	if err := s.svc.RemoveLink(s.sess.ID, id); err != nil {
		s.printf("%% %v", err)
		return nil
	}
	s.printf("Removed link %s", id)
	return nil
}

func (s *Shell) cmdTopo(context.Context, []string) error {
	topo := s.sess.Topology()
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "NODE\tTYPE\tPORT\tINTERFACE\tADDRESS\tSTATUS\tCABLE")
	for _, n := range topo.Nodes() {
		for i, p := range n.Ports {
			addr := ""
			if p.IP != "" {
				addr = p.IP + "/" + p.Mask
			}
			cable := "-"
			for _, l := range topo.Links() {
				if !l.Touches(n.ID, i) {
					continue
				}
				peer := l.B
				if l.B.NodeID == n.ID && l.B.Port == i {
					peer = l.A
				}
				cable = peer.String()
				if !l.OK {
					cable += " (no signal)"
				}
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n", n.ID, n.Type, i, p.Name, addr, p.Status, cable)
		}
	}
	tw.Flush()

	if topo.CablingOK() {
		s.printf("Cabling OK")
	} else {
		s.printf("Cabling incomplete: cable R1 and PC1 to S1")
	}
	return nil
}

func (s *Shell) cmdConnect(_ context.Context, args []string) error {
	if len(args) != 1 {
		s.printf("Usage: connect router|pc")
		return nil
	}
	d, err := service.ParseDevice(args[0])
	if err != nil {
		s.printf("%% %v", err)
		return nil
	}
	s.device = d
	s.printf("Attached to %s", d)
	return nil
}

func (s *Shell) cmdReset(context.Context, []string) error {
	if _, err := s.svc.Reset(s.sess.ID); err != nil {
		s.printf("%% %v", err)
		return nil
	}
	s.printf("Session reset to the starting topology")
	return nil
}

func (s *Shell) cmdLab(ctx context.Context, args []string) error {
	if len(args) == 0 {
		s.printf("Usage: lab list | lab save NAME [DESCRIPTION] | lab load NAME")
		return nil
	}

	switch strings.ToLower(args[0]) {
	case "list":
		labs, err := s.svc.ListLabs(ctx)
		if err != nil {
			s.printf("%% %v", err)
			return nil
		}
		if len(labs) == 0 {
			s.printf("No saved labs")
			return nil
		}
		for _, lab := range labs {
			s.printf("%-20s %d links  %s", lab.Name, lab.LinkCount(), lab.Description)
		}
	case "save":
		if len(args) < 2 {
			s.printf("Usage: lab save NAME [DESCRIPTION]")
			return nil
		}
		lab, err := s.svc.SaveLab(ctx, s.sess.ID, args[1], strings.Join(args[2:], " "))
		if err != nil {
			s.printf("%% %v", err)
			return nil
		}
		s.printf("Saved lab %s (%d links)", lab.Name, lab.LinkCount())
	case "load":
		if len(args) != 2 {
			s.printf("Usage: lab load NAME")
			return nil
		}
		if err := s.svc.LoadLab(ctx, s.sess.ID, args[1]); err != nil {
			s.printf("%% %v", err)
			return nil
		}
		s.printf("Loaded lab %s", args[1])
	default:
		s.printf("%% Unknown lab command %q", args[0])
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
