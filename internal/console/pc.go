package console

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"intratel/internal/domain"
)

// PCConfig configures a PC console
type PCConfig struct {
	Hostname      string
	Net           NetConfig
	ProbeInterval time.Duration
	Milestones    Milestones
}

// DefaultPCConfig returns the stock PC configuration
func DefaultPCConfig() PCConfig {
	return PCConfig{
		Hostname:      "PC1",
		Net:           DefaultPCNetConfig(),
		ProbeInterval: DefaultProbeInterval,
		Milestones:    DefaultMilestones(),
	}
}

// PC is the single-mode PC shell. Its addressing never changes; only what it
// can reach through the topology does.
type PC struct {
	cfg        PCConfig
	topo       *domain.Topology
	dispatcher *Dispatcher

	mu       sync.Mutex
	unlocked bool
}

// NewPC creates a PC console over topo. topo may be nil.
func NewPC(topo *domain.Topology, cfg PCConfig) *PC {
	if cfg.Hostname == "" {
		cfg.Hostname = "PC1"
	}
	if cfg.Net == (NetConfig{}) {
		cfg.Net = DefaultPCNetConfig()
	}

	pc := &PC{cfg: cfg, topo: topo}

	d := NewDispatcher(func(line string) Reply {
		word := strings.Fields(line)[0]
		return say(fmt.Sprintf("'%s' is not recognized as an internal or external command.", word))
	})
	d.Handle(pc.cmdIPConfig, "ipconfig")
	d.Handle(pc.cmdPing, "ping")
	d.Handle(pc.cmdTracert, "tracert")
	d.Handle(pc.cmdHelp, "help", "?")
	d.Handle(pc.cmdClear, "cls")
	d.Handle(pc.cmdRefresh, "refresh")
	pc.dispatcher = d

	return pc
}

// Exec runs one command line
func (pc *PC) Exec(line string) Reply {
	return pc.dispatcher.Dispatch(line)
}

// Prompt returns "hostname$"
func (pc *PC) Prompt() string {
	return pc.cfg.Hostname + "$"
}

// Config returns the PC's static network configuration
func (pc *PC) Config() NetConfig {
	return pc.cfg.Net
}

// Unlocked reports whether the PC objective has fired
func (pc *PC) Unlocked() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.unlocked
}

func (pc *PC) cmdIPConfig(string) Reply {
	return say(
		"",
		"Ethernet adapter Ethernet0:",
		"",
		"   IPv4 Address. . . . . . . . . . . : "+pc.cfg.Net.IP,
		"   Subnet Mask . . . . . . . . . . . : "+pc.cfg.Net.Mask,
		"   Default Gateway . . . . . . . . . : "+pc.cfg.Net.Gateway,
	)
}

// gatewayFailures lists why the gateway is unreachable; empty means reachable.
// Only the router port actually cabled to the switch is inspected.
func (pc *PC) gatewayFailures() []string {
	uplink, ok := pc.topo.GatewayPath()
	if !ok {
		return []string{"Hint: connect both the PC and the router to the switch."}
	}
	if uplink.IP != pc.cfg.Net.Gateway || uplink.Mask != pc.cfg.Net.Mask || uplink.Status != domain.PortStatusUp {
		name := uplink.Name
		if name == "" {
			name = "the router interface"
		}
		return []string{fmt.Sprintf(
			"Hint: %s is cabled to the switch; configure it with %s %s and 'no shutdown'.",
			name, pc.cfg.Net.Gateway, pc.cfg.Net.Mask)}
	}
	return nil
}

func (pc *PC) cmdPing(args string) Reply {
	if args == "" {
		return say("Usage: ping <target>")
	}
	target := strings.Fields(args)[0]
	if target != pc.cfg.Net.Gateway {
		return say(fmt.Sprintf("Ping request could not find host %s. Please check the name and try again.", target))
	}

	header := []string{"", fmt.Sprintf("Pinging %s with 32 bytes of data:", target)}
	stats := fmt.Sprintf("Ping statistics for %s:", target)

	if hints := pc.gatewayFailures(); len(hints) > 0 {
		summary := append([]string{"", stats, formatSummary(ProbeCount, 0)}, hints...)
		return Reply{
			Lines:  header,
			Stream: newStream("Request timed out.", summary, pc.cfg.ProbeInterval, nil),
		}
	}

	summary := []string{
		"",
		stats,
		formatSummary(ProbeCount, ProbeCount),
		"Approximate round trip times in milli-seconds:",
		"    Minimum = 0ms, Maximum = 1ms, Average = 0ms",
	}
	return Reply{
		Lines: header,
		Stream: newStream(
			fmt.Sprintf("Reply from %s: bytes=32 time<1ms TTL=255", target),
			summary, pc.cfg.ProbeInterval, pc.unlockObjective),
	}
}

// unlockObjective fires the PC objective at most once per engine lifetime
func (pc *PC) unlockObjective() []string {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.unlocked {
		return nil
	}
	pc.unlocked = true

	token := pc.cfg.Milestones.PCObjective
	pc.cfg.Milestones.notify("pc", MilestonePCObjective, token)
	return []string{
		"",
		"*** Objective complete: the PC reaches its default gateway ***",
		"Objective token: " + token,
	}
}

func (pc *PC) cmdTracert(args string) Reply {
	if args == "" {
		return say("Usage: tracert <target>")
	}
	target := strings.Fields(args)[0]
	if target != pc.cfg.Net.Gateway {
		return say(fmt.Sprintf("Unable to resolve target system name %s.", target))
	}

	out := []string{
		"",
		fmt.Sprintf("Tracing route to %s over a maximum of 30 hops", target),
		"",
	}
	if len(pc.gatewayFailures()) == 0 {
		out = append(out, fmt.Sprintf("  1    <1 ms    <1 ms    <1 ms  %s", target))
	} else {
		out = append(out, "  1     *        *        *     Request timed out.")
	}
	return Reply{Lines: append(out, "", "Trace complete.")}
}

func (pc *PC) cmdHelp(string) Reply {
	return say(
		"Available commands:",
		"  ipconfig           Show the network configuration",
		"  ping <target>      Send echo requests",
		"  tracert <target>   Trace the route to a host",
		"  refresh            Re-check the cabling",
		"  cls                Clear the screen",
		"  help | ?           Show this help",
	)
}

func (pc *PC) cmdClear(string) Reply {
	return Reply{Clear: true}
}

func (pc *PC) cmdRefresh(string) Reply {
	return Reply{Lines: cablingReport(pc.topo)}
}
