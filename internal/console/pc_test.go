package console

import (
	"context"
	"strings"
	"testing"

	"intratel/internal/domain"
)

func newTestPC(topo *domain.Topology) (*PC, *[]Unlock) {
	var unlocks []Unlock
	cfg := DefaultPCConfig()
	cfg.ProbeInterval = 0
	cfg.Milestones.OnUnlock = func(u Unlock) { unlocks = append(unlocks, u) }
	return NewPC(topo, cfg), &unlocks
}

func countLines(lines []string, want string) int {
	n := 0
	for _, l := range lines {
		if l == want {
			n++
		}
	}
	return n
}

func TestPCPromptAndIPConfig(t *testing.T) {
	pc, _ := newTestPC(nil)
	if pc.Prompt() != "PC1$" {
		t.Errorf("expected prompt PC1$, got %s", pc.Prompt())
	}

	reply := pc.Exec("ipconfig")
	for _, want := range []string{"192.168.1.10", "255.255.255.0", "192.168.1.1"} {
		if !contains(reply.Lines, want) {
			t.Errorf("expected %q in %v", want, reply.Lines)
		}
	}
}

func TestPCUnknownCommand(t *testing.T) {
	pc, _ := newTestPC(nil)
	reply := pc.Exec("dir C:")
	if len(reply.Lines) != 1 || reply.Lines[0] != "'dir' is not recognized as an internal or external command." {
		t.Errorf("unexpected reply %v", reply.Lines)
	}
}

func TestPCPingArguments(t *testing.T) {
	pc, _ := newTestPC(nil)

	if reply := pc.Exec("ping"); reply.Stream != nil || !contains(reply.Lines, "Usage") {
		t.Errorf("expected usage, got %v", reply.Lines)
	}

	reply := pc.Exec("ping 10.0.0.1")
	if reply.Stream != nil {
		t.Error("expected no stream for an unknown host")
	}
	if !contains(reply.Lines, "could not find host 10.0.0.1") {
		t.Errorf("unexpected reply %v", reply.Lines)
	}
}

func TestPCPingGatewayUnconfigured(t *testing.T) {
	tests := []struct {
		name string
		topo func(t *testing.T) *domain.Topology
		hint string
	}{
		{"nil topology", func(*testing.T) *domain.Topology { return nil }, "connect both"},
		{"not cabled", func(*testing.T) *domain.Topology { return domain.NewSeedTopology() }, "connect both"},
		{"router unconfigured", cabledTopology, "fa0/0 is cabled to the switch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc, unlocks := newTestPC(tt.topo(t))

			reply := pc.Exec("ping 192.168.1.1")
			if !contains(reply.Lines, "Pinging 192.168.1.1 with 32 bytes of data:") {
				t.Errorf("expected ping header, got %v", reply.Lines)
			}
			out := flatten(collect(t, reply))
			if got := countLines(out, "Request timed out."); got != ProbeCount {
				t.Errorf("expected %d timeouts, got %d", ProbeCount, got)
			}
			if !contains(out, "Lost = 4 (100% loss)") {
				t.Errorf("expected full loss summary, got %v", out)
			}
			if !contains(out, tt.hint) {
				t.Errorf("expected hint %q in %v", tt.hint, out)
			}
			if pc.Unlocked() || len(*unlocks) != 0 {
				t.Error("expected no objective unlock")
			}
		})
	}
}

func TestPCPingGatewaySuccess(t *testing.T) {
	topo := cabledTopology(t)
	r, _ := newTestRouter(topo, MilestoneEdge)
	configureGateway(t, r)
	pc, unlocks := newTestPC(topo)

	out := flatten(collect(t, pc.Exec("ping 192.168.1.1")))
	if got := countLines(out, "Reply from 192.168.1.1: bytes=32 time<1ms TTL=255"); got != ProbeCount {
		t.Errorf("expected %d replies, got %d", ProbeCount, got)
	}
	if !contains(out, "Lost = 0 (0% loss)") {
		t.Errorf("expected zero loss, got %v", out)
	}
	if !contains(out, "Objective token: "+DefaultMilestones().PCObjective) {
		t.Errorf("expected objective token, got %v", out)
	}
	if !pc.Unlocked() {
		t.Error("expected objective unlocked")
	}

	again := flatten(collect(t, pc.Exec("ping 192.168.1.1")))
	if contains(again, "Objective token") {
		t.Errorf("expected the objective only once, got %v", again)
	}
	if !contains(again, "Lost = 0 (0% loss)") {
		t.Errorf("expected the repeat ping to succeed, got %v", again)
	}
	if len(*unlocks) != 1 || (*unlocks)[0].Milestone != MilestonePCObjective {
		t.Errorf("expected one pc_objective unlock, got %+v", *unlocks)
	}
}

func TestPCObjectiveSurvivesCancelledPing(t *testing.T) {
	topo := cabledTopology(t)
	r, _ := newTestRouter(topo, MilestoneEdge)
	configureGateway(t, r)
	pc, _ := newTestPC(topo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pc.Exec("ping 192.168.1.1").Stream.Run(ctx, func([]string) {}); err == nil {
		t.Fatal("expected cancelled run to fail")
	}
	if pc.Unlocked() {
		t.Fatal("expected a cancelled ping to leave the objective locked")
	}

	collect(t, pc.Exec("ping 192.168.1.1"))
	if !pc.Unlocked() {
		t.Error("expected the next complete ping to unlock the objective")
	}
}

// The PC only sees the router port that is actually cabled to the switch.
func TestPCPingUsesCabledUplink(t *testing.T) {
	topo := domain.NewSeedTopology()
	if _, err := topo.AddLink(domain.SeedRouterID, 1, domain.SeedSwitchID, 0); err != nil {
		t.Fatalf("router link: %v", err)
	}
	if _, err := topo.AddLink(domain.SeedPCID, 0, domain.SeedSwitchID, 1); err != nil {
		t.Fatalf("pc link: %v", err)
	}

	r, _ := newTestRouter(topo, MilestoneEdge)
	configureGateway(t, r)
	pc, _ := newTestPC(topo)

	out := flatten(collect(t, pc.Exec("ping 192.168.1.1")))
	if got := countLines(out, "Request timed out."); got != ProbeCount {
		t.Errorf("expected %d timeouts, got %d", ProbeCount, got)
	}
	if !contains(out, "fa0/1 is cabled to the switch") {
		t.Errorf("expected uplink hint, got %v", out)
	}

	run(t, r, "exit", "interface fa0/1", "ip address 192.168.1.1 255.255.255.0", "no shutdown")
	out = flatten(collect(t, pc.Exec("ping 192.168.1.1")))
	if !contains(out, "Lost = 0 (0% loss)") {
		t.Errorf("expected success once fa0/1 is configured, got %v", out)
	}
}

func TestPCTracert(t *testing.T) {
	pc, _ := newTestPC(domain.NewSeedTopology())

	reply := pc.Exec("tracert 192.168.1.1")
	if !contains(reply.Lines, "Request timed out.") || !contains(reply.Lines, "Trace complete.") {
		t.Errorf("unexpected failing trace %v", reply.Lines)
	}

	if reply := pc.Exec("tracert example.com"); !contains(reply.Lines, "Unable to resolve") {
		t.Errorf("unexpected reply %v", reply.Lines)
	}
}

func TestPCMiscCommands(t *testing.T) {
	pc, _ := newTestPC(nil)

	if reply := pc.Exec("CLS"); !reply.Clear {
		t.Error("expected cls to request a clear")
	}
	if reply := pc.Exec("help"); !contains(reply.Lines, "ipconfig") {
		t.Errorf("unexpected help %v", reply.Lines)
	}
	if reply := pc.Exec("refresh"); !strings.HasPrefix(reply.Lines[0], "Cabling incomplete") {
		t.Errorf("unexpected refresh %v", reply.Lines)
	}
}

func TestExecuteDeliversInOrder(t *testing.T) {
	pc, _ := newTestPC(nil)

	var got []string
	_, err := Execute(context.Background(), pc, "ping 192.168.1.1", func(l []string) {
		got = append(got, l...)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) < 2 || got[1] != "Pinging 192.168.1.1 with 32 bytes of data:" {
		t.Fatalf("expected header first, got %v", got)
	}
	if got[2] != "Request timed out." {
		t.Errorf("expected probes after header, got %v", got)
	}
}
