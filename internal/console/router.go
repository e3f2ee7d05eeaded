package console

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"intratel/internal/domain"
)

// Mode is the router CLI mode
type Mode string

const (
	ModeUser      Mode = "user"
	ModeEnable    Mode = "enable"
	ModeConfig    Mode = "config"
	ModeInterface Mode = "int"
)

func (m Mode) promptSuffix() string {
	switch m {
	case ModeEnable:
		return "#"
	case ModeConfig:
		return "(config)#"
	case ModeInterface:
		return "(config-if)#"
	default:
		return ">"
	}
}

func (m Mode) description() string {
	switch m {
	case ModeEnable:
		return "privileged EXEC mode"
	case ModeConfig:
		return "global configuration mode"
	case ModeInterface:
		return "interface configuration mode"
	default:
		return "user EXEC mode"
	}
}

// atLeastEnable reports whether m is enable or any configuration mode
func (m Mode) atLeastEnable() bool {
	return m == ModeEnable || m == ModeConfig || m == ModeInterface
}

// InterfaceState is the router-side configuration of one interface
type InterfaceState struct {
	IP   string `json:"ip"`
	Mask string `json:"mask"`
	Up   bool   `json:"up"`
}

func (s InterfaceState) portStatus() domain.PortStatus {
	if s.Up {
		return domain.PortStatusUp
	}
	return domain.PortStatusDown
}

// routerInterfaces is the closed set of configurable interfaces, in display order
var routerInterfaces = []string{domain.InterfaceFa00, domain.InterfaceFa01}

// interfaceAliases maps accepted spellings to canonical interface names
var interfaceAliases = map[string]string{
	"fa0/0":            domain.InterfaceFa00,
	"f0/0":             domain.InterfaceFa00,
	"fastethernet0/0":  domain.InterfaceFa00,
	"fastethernet 0/0": domain.InterfaceFa00,
	"fa0/1":            domain.InterfaceFa01,
	"f0/1":             domain.InterfaceFa01,
	"fastethernet0/1":  domain.InterfaceFa01,
	"fastethernet 0/1": domain.InterfaceFa01,
}

// longName renders "fa0/0" as "FastEthernet0/0"
func longName(name string) string {
	return "FastEthernet" + strings.TrimPrefix(name, "fa")
}

const (
	msgUnknownCommand = "% Unknown command or computer name, or unable to find computer address"
	msgIncomplete     = "% Incomplete command."
)

// RouterConfig configures a router console
type RouterConfig struct {
	Hostname      string
	NodeID        string
	Peer          NetConfig
	ProbeInterval time.Duration
	Milestones    Milestones
}

// DefaultRouterConfig returns the stock router configuration
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Hostname:      "Router",
		NodeID:        domain.SeedRouterID,
		Peer:          DefaultPCNetConfig(),
		ProbeInterval: DefaultProbeInterval,
		Milestones:    DefaultMilestones(),
	}
}

// Router is the router console engine. One instance per session.
type Router struct {
	mu         sync.Mutex
	cfg        RouterConfig
	topo       *domain.Topology
	hostname   string
	mode       Mode
	currentInt string
	interfaces map[string]*InterfaceState
	dispatcher *Dispatcher

	// milestoneShown is set once the interface-up token was emitted while the
	// milestone condition holds; it clears when the condition stops holding.
	milestoneShown bool
}

// NewRouter creates a router console over topo. topo may be nil, in which case
// nothing is ever cabled.
func NewRouter(topo *domain.Topology, cfg RouterConfig) *Router {
	if cfg.Hostname == "" {
		cfg.Hostname = "Router"
	}
	if cfg.NodeID == "" {
		cfg.NodeID = domain.SeedRouterID
	}
	if cfg.Peer == (NetConfig{}) {
		cfg.Peer = DefaultPCNetConfig()
	}

	r := &Router{
		cfg:        cfg,
		topo:       topo,
		hostname:   cfg.Hostname,
		mode:       ModeUser,
		interfaces: make(map[string]*InterfaceState, len(routerInterfaces)),
	}
	for _, name := range routerInterfaces {
		r.interfaces[name] = &InterfaceState{}
	}
	r.dispatcher = r.buildDispatcher()
	return r
}

func (r *Router) buildDispatcher() *Dispatcher {
	d := NewDispatcher(func(string) Reply { return say(msgUnknownCommand) })

	d.Handle(r.cmdRefresh, "refresh")
	d.Handle(r.cmdHelp, "help", "?")
	d.Handle(r.cmdEnable, "enable", "en")
	d.Handle(r.cmdDisable, "disable", "dis")
	d.Handle(r.cmdEnd, "end")
	d.Handle(r.cmdExit, "exit", "ex")
	d.Handle(r.cmdConfigure, "configure terminal", "conf t", "config t", "conf term", "configure t")
	d.Handle(r.cmdHostname, "hostname", "host")
	d.Handle(r.cmdInterface, "interface", "int")
	d.Handle(r.cmdIPAddress, "ip address", "ip addr")
	d.Handle(r.cmdNoShutdown, "no shutdown", "no shut")
	d.Handle(r.cmdShutdown, "shutdown", "shut")
	d.Handle(r.cmdShowIPIntBrief, "show ip interface brief", "show ip int brief", "show ip int br", "sh ip int br", "sh ip int brief")
	d.Handle(r.cmdShowIPRoute, "show ip route", "sh ip route", "sh ip ro", "show ip ro")
	d.Handle(r.cmdShowRun, "show running-config", "show run", "sh run")
	d.Handle(r.cmdShowInterfaces, "show interfaces", "show int", "sh int")
	d.Handle(r.cmdShowVersion, "show version", "show ver", "sh ver")
	d.Handle(r.cmdPing, "ping")
	d.Handle(r.cmdTraceroute, "traceroute", "tracert", "trace")
	d.Handle(r.cmdWrite, "copy run start", "copy running-config startup-config", "write", "wr")
	d.Handle(r.cmdClear, "cls", "clear")
	d.Handle(r.cmdReload, "reload")
	return d
}

// Exec runs one command line
func (r *Router) Exec(line string) Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dispatcher.Dispatch(line)
}

// Prompt returns the mode-dependent prompt, e.g. "Router(config-if)#"
func (r *Router) Prompt() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostname + r.mode.promptSuffix()
}

// Mode returns the current CLI mode
func (r *Router) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// Hostname returns the configured hostname
func (r *Router) Hostname() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostname
}

// CurrentInterface returns the interface being configured; empty outside interface mode
func (r *Router) CurrentInterface() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentInt
}

// Interface returns a copy of the named interface state
func (r *Router) Interface(name string) (InterfaceState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.interfaces[name]
	if !ok {
		return InterfaceState{}, false
	}
	return *st, true
}

// Resync pushes every interface state into the topology, e.g. after the
// topology was restored from a saved lab.
func (r *Router) Resync() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range routerInterfaces {
		r.syncInterface(name)
	}
}

// syncInterface mirrors one interface into the router node's port fields
func (r *Router) syncInterface(name string) {
	if r.topo == nil {
		return
	}
	st := r.interfaces[name]
	// The closed interface set always matches the router node's named ports.
	_ = r.topo.SetPortConfig(r.cfg.NodeID, name, st.IP, st.Mask, st.portStatus())
}

func rejectMode(command string, required Mode) Reply {
	return say(fmt.Sprintf("%% '%s' is only available in %s", command, required.description()))
}

// Mode transitions

func (r *Router) cmdEnable(string) Reply {
	switch r.mode {
	case ModeUser:
		r.mode = ModeEnable
		return Reply{}
	case ModeEnable:
		return say("% Already in privileged EXEC mode")
	default:
		return rejectMode("enable", ModeUser)
	}
}

func (r *Router) cmdDisable(string) Reply {
	r.mode = ModeUser
	r.currentInt = ""
	return Reply{}
}

func (r *Router) cmdEnd(string) Reply {
	if r.mode == ModeUser {
		return say("% 'end' is not available in user EXEC mode")
	}
	r.mode = ModeEnable
	r.currentInt = ""
	return Reply{}
}

func (r *Router) cmdExit(string) Reply {
	switch r.mode {
	case ModeConfig:
		r.mode = ModeEnable
		return Reply{}
	case ModeInterface:
		r.mode = ModeConfig
		r.currentInt = ""
		return Reply{}
	default:
		return say("% 'exit' leaves configuration modes only; use 'disable' to return to user EXEC mode")
	}
}

func (r *Router) cmdConfigure(string) Reply {
	if r.mode != ModeEnable {
		return rejectMode("configure terminal", ModeEnable)
	}
	r.mode = ModeConfig
	return say("Enter configuration commands, one per line.  End with CNTL/Z.")
}

// Global configuration

func (r *Router) cmdHostname(args string) Reply {
	if r.mode != ModeConfig {
		return rejectMode("hostname", ModeConfig)
	}
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return say(msgIncomplete)
	}
	if len(fields) > 1 || !validHostname(fields[0]) {
		return say("% Invalid hostname: use letters, digits and hyphens, starting with a letter")
	}
	r.hostname = fields[0]
	return Reply{}
}

func validHostname(name string) bool {
	if len(name) == 0 || len(name) > 63 {
		return false
	}
	for i, c := range name {
		switch {
		case i == 0 && !unicode.IsLetter(c):
			return false
		case c > unicode.MaxASCII:
			return false
		case !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '-':
			return false
		}
	}
	return true
}

func (r *Router) cmdInterface(args string) Reply {
	if r.mode != ModeConfig {
		return rejectMode("interface", ModeConfig)
	}
	if args == "" {
		return say(msgIncomplete)
	}
	name, ok := interfaceAliases[strings.ToLower(args)]
	if !ok {
		return say(fmt.Sprintf("%% Invalid interface '%s'. Available: %s", args, strings.Join(routerInterfaces, ", ")))
	}
	r.mode = ModeInterface
	r.currentInt = name
	return Reply{}
}

// Interface configuration

func (r *Router) cmdIPAddress(args string) Reply {
	if r.mode != ModeInterface {
		return rejectMode("ip address", ModeInterface)
	}
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return say("% Usage: ip address <ip> <mask>")
	}
	if _, ok := parseIPv4(fields[0]); !ok {
		return say(fmt.Sprintf("%% Invalid IP address '%s'", fields[0]))
	}
	if _, ok := maskBits(fields[1]); !ok {
		return say(fmt.Sprintf("%% Invalid subnet mask '%s'", fields[1]))
	}

	st := r.interfaces[r.currentInt]
	st.IP = fields[0]
	st.Mask = fields[1]
	r.syncInterface(r.currentInt)
	r.rearmMilestone()
	return Reply{}
}

func (r *Router) cmdNoShutdown(string) Reply {
	if r.mode != ModeInterface {
		return rejectMode("no shutdown", ModeInterface)
	}

	name := r.currentInt
	st := r.interfaces[name]
	wasUp := st.Up

	st.Up = true
	r.syncInterface(name)

	var out []string
	if !wasUp {
		out = append(out,
			fmt.Sprintf("%%LINK-5-CHANGED: Interface %s, changed state to up", longName(name)),
			fmt.Sprintf("%%LINEPROTO-5-UPDOWN: Line protocol on Interface %s, changed state to up", longName(name)),
		)
	}

	// Milestone post-condition, checked separately from generic activation.
	if r.milestoneReached(name) && (r.cfg.Milestones.Policy == MilestoneLevel || !r.milestoneShown) {
		r.milestoneShown = true
		token := r.cfg.Milestones.InterfaceUp
		out = append(out,
			"",
			fmt.Sprintf("*** %s is up with %s %s ***", longName(name), st.IP, st.Mask),
			"Milestone token: "+token,
		)
		r.cfg.Milestones.notify("router", MilestoneInterfaceUp, token)
	}
	return Reply{Lines: out}
}

// milestoneReached reports whether name is fa0/0 configured as the lab gateway and up
func (r *Router) milestoneReached(name string) bool {
	if name != domain.InterfaceFa00 {
		return false
	}
	st := r.interfaces[name]
	return st.Up && st.IP == r.cfg.Peer.Gateway && st.Mask == r.cfg.Peer.Mask
}

// rearmMilestone clears milestoneShown once fa0/0 leaves the milestone configuration
func (r *Router) rearmMilestone() {
	if !r.milestoneReached(domain.InterfaceFa00) {
		r.milestoneShown = false
	}
}

func (r *Router) cmdShutdown(string) Reply {
	if r.mode != ModeInterface {
		return rejectMode("shutdown", ModeInterface)
	}

	name := r.currentInt
	st := r.interfaces[name]
	wasUp := st.Up
	st.Up = false
	r.syncInterface(name)
	r.rearmMilestone()

	if !wasUp {
		return Reply{}
	}
	return say(
		fmt.Sprintf("%%LINK-5-CHANGED: Interface %s, changed state to administratively down", longName(name)),
		fmt.Sprintf("%%LINEPROTO-5-UPDOWN: Line protocol on Interface %s, changed state to down", longName(name)),
	)
}

// Any mode

func (r *Router) cmdRefresh(string) Reply {
	return Reply{Lines: cablingReport(r.topo)}
}

func (r *Router) cmdHelp(string) Reply {
	out := []string{fmt.Sprintf("Commands available in %s:", r.mode.description())}
	switch r.mode {
	case ModeUser:
		out = append(out,
			"  enable                      Enter privileged EXEC mode",
		)
	case ModeEnable:
		out = append(out,
			"  configure terminal          Enter global configuration mode",
			"  disable                     Return to user EXEC mode",
			"  ping <ip>                   Send echo messages",
			"  copy run start | write      Save the running configuration",
			"  reload                      Restart the device",
		)
	case ModeConfig:
		out = append(out,
			"  hostname <name>             Set the system name",
			"  interface <fa0/0|fa0/1>     Configure an interface",
			"  exit | end                  Leave configuration mode",
			"  ping <ip>                   Send echo messages",
		)
	case ModeInterface:
		out = append(out,
			"  ip address <ip> <mask>      Assign an IPv4 address",
			"  no shutdown                 Enable the interface",
			"  shutdown                    Disable the interface",
			"  exit | end                  Leave interface configuration",
			"  ping <ip>                   Send echo messages",
		)
	}
	out = append(out,
		"  show ip interface brief     Interface status summary",
		"  show ip route               Routing table",
		"  show running-config         Current configuration",
		"  show interfaces             Interface details",
		"  show version                System information",
		"  traceroute <ip>             Trace the route to a host",
		"  refresh                     Re-check the cabling",
		"  cls | clear                 Clear the screen",
	)
	return Reply{Lines: out}
}

func (r *Router) cmdWrite(string) Reply {
	return say("Building configuration...", "[OK]")
}

func (r *Router) cmdClear(string) Reply {
	return Reply{Clear: true}
}

func (r *Router) cmdReload(string) Reply {
	return say("% Reload is not implemented in this simulator")
}
