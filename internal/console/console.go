// Package console implements the simulated device consoles: a router CLI with
// user/enable/config/interface modes and a single-mode PC shell.
//
// Both consoles read the shared domain.Topology to decide reachability. Every
// command answers with displayable lines; nothing a user types produces a Go
// error. Pings return a Stream whose four probes and summary are delivered to
// a Sink over time.
package console

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"intratel/internal/domain"
)

// Console is a device console that turns typed lines into output
type Console interface {
	Prompt() string
	Exec(line string) Reply
}

// Execute runs one line against c, writing the immediate reply and any
// streamed output to sink in order. It blocks until a stream finishes.
func Execute(ctx context.Context, c Console, line string, sink Sink) (Reply, error) {
	reply := c.Exec(line)
	if len(reply.Lines) > 0 {
		sink(reply.Lines)
	}
	if reply.Stream != nil {
		return reply, reply.Stream.Run(ctx, sink)
	}
	return reply, nil
}

// Lab addressing
const (
	GatewayIP        = "192.168.1.1"
	SubnetMask       = "255.255.255.0"
	DefaultPCAddress = "192.168.1.10"
)

// NetConfig is a static host network configuration
type NetConfig struct {
	IP      string `json:"ip" yaml:"ip"`
	Mask    string `json:"mask" yaml:"mask"`
	Gateway string `json:"gateway" yaml:"gateway"`
}

// DefaultPCNetConfig returns the PC addressing used by the lab
func DefaultPCNetConfig() NetConfig {
	return NetConfig{
		IP:      DefaultPCAddress,
		Mask:    SubnetMask,
		Gateway: GatewayIP,
	}
}

// MilestonePolicy controls when the interface-up token is repeated
type MilestonePolicy string

const (
	// MilestoneEdge emits the token only when the condition becomes true
	MilestoneEdge MilestonePolicy = "edge"
	// MilestoneLevel emits the token every time the command runs while the condition holds
	MilestoneLevel MilestonePolicy = "level"
)

// ParseMilestonePolicy converts a string to a policy, defaulting to MilestoneEdge
func ParseMilestonePolicy(s string) MilestonePolicy {
	if MilestonePolicy(s) == MilestoneLevel {
		return MilestoneLevel
	}
	return MilestoneEdge
}

// Milestone identifiers
const (
	MilestoneInterfaceUp = "interface_up"
	MilestoneRouterPing  = "router_ping"
	MilestonePCObjective = "pc_objective"
)

// Unlock describes a reached milestone
type Unlock struct {
	Device    string    `json:"device"`
	Milestone string    `json:"milestone"`
	Token     string    `json:"token"`
	At        time.Time `json:"at"`
}

// UnlockFunc is notified of reached milestones.
// It may run while the console holds its lock and must not call back into it.
type UnlockFunc func(Unlock)

// Milestones configures tokens and repeat policy
type Milestones struct {
	Policy      MilestonePolicy
	InterfaceUp string
	RouterPing  string
	PCObjective string
	OnUnlock    UnlockFunc
}

// DefaultMilestones returns the stock tokens
func DefaultMilestones() Milestones {
	return Milestones{
		Policy:      MilestoneEdge,
		InterfaceUp: "INTRATEL{fa0_0_is_up}",
		RouterPing:  "INTRATEL{router_reaches_pc}",
		PCObjective: "INTRATEL{pc_reaches_gateway}",
	}
}

func (m Milestones) notify(device, milestone, token string) {
	if m.OnUnlock == nil {
		return
	}
	m.OnUnlock(Unlock{
		Device:    device,
		Milestone: milestone,
		Token:     token,
		At:        time.Now(),
	})
}

// cablingReport describes the cabling gate for the refresh command
func cablingReport(topo *domain.Topology) []string {
	if topo.CablingOK() {
		return []string{"Cabling OK: router-switch and pc-switch links detected."}
	}

	out := []string{"Cabling incomplete:"}
	if !topo.HasPathOfType(domain.NodeTypeRouter, domain.NodeTypeSwitch) {
		out = append(out, "  - no working router-switch link")
	}
	if !topo.HasPathOfType(domain.NodeTypePC, domain.NodeTypeSwitch) {
		out = append(out, "  - no working pc-switch link")
	}
	if hasDeadLink(topo) {
		out = append(out, "  - a cable joins devices that cannot be connected directly")
	}
	return out
}

func hasDeadLink(topo *domain.Topology) bool {
	for _, l := range topo.Links() {
		if !l.OK {
			return true
		}
	}
	return false
}

// parseIPv4 validates a dotted-quad address
func parseIPv4(s string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return netip.Addr{}, false
	}
	return addr, true
}

// maskBits returns the prefix length of a contiguous dotted-quad mask
func maskBits(mask string) (int, bool) {
	addr, ok := parseIPv4(mask)
	if !ok {
		return 0, false
	}
	b := addr.As4()
	v := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	ones := 0
	for v&(1<<31) != 0 {
		ones++
		v <<= 1
	}
	if v != 0 {
		return 0, false
	}
	return ones, true
}

// networkOf returns the connected prefix for ip/mask, e.g. 192.168.1.0/24
func networkOf(ip, mask string) (netip.Prefix, bool) {
	addr, ok := parseIPv4(ip)
	if !ok {
		return netip.Prefix{}, false
	}
	bits, ok := maskBits(mask)
	if !ok {
		return netip.Prefix{}, false
	}
	p, err := addr.Prefix(bits)
	if err != nil {
		return netip.Prefix{}, false
	}
	return p, true
}

func formatSummary(sent, received int) string {
	lost := sent - received
	return fmt.Sprintf("    Packets: Sent = %d, Received = %d, Lost = %d (%d%% loss),",
		sent, received, lost, lost*100/sent)
}
