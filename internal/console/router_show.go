package console

import (
	"fmt"
	"strings"
)

// show family: pure functions of hostname and interface state

func (r *Router) cmdShowIPIntBrief(string) Reply {
	out := []string{fmt.Sprintf("%-22s %-15s %-3s %-6s %-21s %s",
		"Interface", "IP-Address", "OK?", "Method", "Status", "Protocol")}

	for _, name := range routerInterfaces {
		st := r.interfaces[name]
		ip, method := "unassigned", "unset"
		if st.IP != "" {
			ip, method = st.IP, "manual"
		}
		status, protocol := "administratively down", "down"
		if st.Up {
			status, protocol = "up", "up"
		}
		out = append(out, fmt.Sprintf("%-22s %-15s %-3s %-6s %-21s %s",
			longName(name), ip, "YES", method, status, protocol))
	}
	return Reply{Lines: out}
}

func (r *Router) cmdShowIPRoute(string) Reply {
	out := []string{
		"Codes: L - local, C - connected, S - static, R - RIP, O - OSPF",
		"",
		"Gateway of last resort is not set",
		"",
	}

	routes := 0
	for _, name := range routerInterfaces {
		st := r.interfaces[name]
		if !st.Up {
			continue
		}
		prefix, ok := networkOf(st.IP, st.Mask)
		if !ok {
			continue
		}
		out = append(out,
			fmt.Sprintf("C    %s is directly connected, %s", prefix, longName(name)),
			fmt.Sprintf("L    %s/32 is directly connected, %s", st.IP, longName(name)),
		)
		routes++
	}
	if routes == 0 {
		out = append(out, "% No routes: bring up an interface with an IP address")
	}
	return Reply{Lines: out}
}

func (r *Router) cmdShowRun(string) Reply {
	body := []string{
		"!",
		"version 15.1",
		"!",
		"hostname " + r.hostname,
		"!",
	}
	for _, name := range routerInterfaces {
		st := r.interfaces[name]
		body = append(body, "interface "+longName(name))
		if st.IP != "" {
			body = append(body, fmt.Sprintf(" ip address %s %s", st.IP, st.Mask))
		} else {
			body = append(body, " no ip address")
		}
		if !st.Up {
			body = append(body, " shutdown")
		}
		body = append(body, "!")
	}
	body = append(body, "end")

	size := 0
	for _, l := range body {
		size += len(l) + 1
	}

	out := []string{
		"Building configuration...",
		"",
		fmt.Sprintf("Current configuration : %d bytes", size),
	}
	return Reply{Lines: append(out, body...)}
}

func (r *Router) cmdShowInterfaces(string) Reply {
	var out []string
	for i, name := range routerInterfaces {
		st := r.interfaces[name]
		state, protocol := "administratively down", "down"
		if st.Up {
			state, protocol = "up", "up"
		}
		out = append(out,
			fmt.Sprintf("%s is %s, line protocol is %s", longName(name), state, protocol),
			fmt.Sprintf("  Hardware is Gt96k FE, address is 0001.4a2b.3c%02d (bia 0001.4a2b.3c%02d)", i, i),
		)
		if bits, ok := maskBits(st.Mask); ok && st.IP != "" {
			out = append(out, fmt.Sprintf("  Internet address is %s/%d", st.IP, bits))
		}
		out = append(out,
			"  MTU 1500 bytes, BW 100000 Kbit/sec, DLY 100 usec,",
			"  Encapsulation ARPA, loopback not set",
			"  Full-duplex, 100Mb/s, media type is RJ45",
		)
	}
	return Reply{Lines: out}
}

func (r *Router) cmdShowVersion(string) Reply {
	return say(
		"Cisco IOS Software, C2900 Software (C2900-UNIVERSALK9-M), Version 15.1(4)M4, RELEASE SOFTWARE (fc2)",
		"Technical Support: http://www.cisco.com/techsupport",
		"",
		"ROM: System Bootstrap, Version 15.1(4)M4, RELEASE SOFTWARE (fc1)",
		"",
		r.hostname+" uptime is 0 minutes",
		"System image file is \"flash0:c2900-universalk9-mz.SPA.151-4.M4.bin\"",
		"",
		"Cisco CISCO2901/K9 (revision 1.0) with 491520K/32768K bytes of memory.",
		fmt.Sprintf("%d FastEthernet interfaces", len(routerInterfaces)),
		"Configuration register is 0x2102",
	)
}

// reachability

// pingFailures lists why a ping from the router to target cannot succeed.
// An empty result means the ping succeeds.
func (r *Router) pingFailures(target string) []string {
	var hints []string
	if !r.topo.CablingOK() {
		hints = append(hints, "Hint: check the cabling; the router and the PC must both be connected to the switch.")
	}
	if !r.milestoneReached(routerInterfaces[0]) {
		hints = append(hints, fmt.Sprintf(
			"Hint: configure %s with 'ip address %s %s' and bring it up with 'no shutdown'.",
			longName(routerInterfaces[0]), r.cfg.Peer.Gateway, r.cfg.Peer.Mask))
	}
	if target != r.cfg.Peer.IP {
		hints = append(hints, fmt.Sprintf("Hint: the PC on this network is %s.", r.cfg.Peer.IP))
	}
	return hints
}

func (r *Router) cmdPing(args string) Reply {
	if !r.mode.atLeastEnable() {
		return say("% 'ping' requires privileged EXEC mode; type 'enable' first")
	}
	if args == "" {
		return say(msgIncomplete)
	}
	target := strings.Fields(args)[0]
	if _, ok := parseIPv4(target); !ok {
		return say("% Unrecognized host or address, or protocol not running.")
	}

	header := []string{
		"Type escape sequence to abort.",
		fmt.Sprintf("Sending %d, 100-byte ICMP Echos to %s, timeout is 2 seconds:", ProbeCount, target),
	}

	hints := r.pingFailures(target)
	if len(hints) > 0 {
		summary := append([]string{fmt.Sprintf("Success rate is 0 percent (0/%d)", ProbeCount)}, hints...)
		return Reply{
			Lines:  header,
			Stream: newStream("Request timed out.", summary, r.cfg.ProbeInterval, nil),
		}
	}

	milestones := r.cfg.Milestones
	summary := []string{
		fmt.Sprintf("Success rate is 100 percent (%d/%d), round-trip min/avg/max = 1/1/2 ms", ProbeCount, ProbeCount),
		"Completion token: " + milestones.RouterPing,
	}
	finish := func() []string {
		milestones.notify("router", MilestoneRouterPing, milestones.RouterPing)
		return nil
	}
	return Reply{
		Lines: header,
		Stream: newStream(
			fmt.Sprintf("Reply from %s: bytes=100 time=1ms TTL=128", target),
			summary, r.cfg.ProbeInterval, finish),
	}
}

func (r *Router) cmdTraceroute(args string) Reply {
	if args == "" {
		return say(msgIncomplete)
	}
	target := strings.Fields(args)[0]
	if _, ok := parseIPv4(target); !ok {
		return say("% Unrecognized host or address, or protocol not running.")
	}

	out := []string{
		"Type escape sequence to abort.",
		"Tracing the route to " + target,
		"",
	}
	if len(r.pingFailures(target)) == 0 {
		out = append(out, fmt.Sprintf("  1 %s 1 msec 0 msec 1 msec", target))
	} else {
		out = append(out, "  1  *  *  *", "% Destination unreachable")
	}
	return Reply{Lines: out}
}
