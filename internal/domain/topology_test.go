package domain

import (
	"errors"
	"testing"
)

// cable links the seed router and pc to the switch
func cable(t *testing.T, topo *Topology) (routerLink, pcLink Link) {
	t.Helper()
	var err error
	routerLink, err = topo.AddLink(SeedRouterID, 0, SeedSwitchID, 0)
	if err != nil {
		t.Fatalf("router link: %v", err)
	}
	pcLink, err = topo.AddLink(SeedPCID, 0, SeedSwitchID, 1)
	if err != nil {
		t.Fatalf("pc link: %v", err)
	}
	return routerLink, pcLink
}

func TestNewSeedTopology(t *testing.T) {
	topo := NewSeedTopology()

	nodes := topo.Nodes()
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(nodes))
	}
	if len(topo.Links()) != 0 {
		t.Errorf("expected no links, got %d", len(topo.Links()))
	}

	router, ok := topo.Node(SeedRouterID)
	if !ok {
		t.Fatal("expected seed router")
	}
	if router.Type != NodeTypeRouter {
		t.Errorf("expected router type, got %s", router.Type)
	}
	if router.PortIndex(InterfaceFa00) != 0 || router.PortIndex(InterfaceFa01) != 1 {
		t.Errorf("unexpected router ports: %+v", router.Ports)
	}
	if topo.CablingOK() {
		t.Error("expected fresh topology to be uncabled")
	}
}

func TestTopologyAddLink(t *testing.T) {
	t.Run("allowed pair is ok", func(t *testing.T) {
		topo := NewSeedTopology()
		link, err := topo.AddLink(SeedRouterID, 0, SeedSwitchID, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !link.OK {
			t.Error("expected router-switch link to be ok")
		}
		if link.ID == "" {
			t.Error("expected link ID to be generated")
		}
	})

	t.Run("disallowed pair is stored but not ok", func(t *testing.T) {
		topo := NewSeedTopology()
		link, err := topo.AddLink(SeedRouterID, 0, SeedPCID, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if link.OK {
			t.Error("expected router-pc link to be marked invalid")
		}
		if len(topo.Links()) != 1 {
			t.Errorf("expected invalid link to be stored, got %d links", len(topo.Links()))
		}
		if !topo.IsPortUsed(SeedPCID, 0) {
			t.Error("expected pc port to be in use")
		}
	})

	t.Run("port in use is rejected", func(t *testing.T) {
		topo := NewSeedTopology()
		if _, err := topo.AddLink(SeedRouterID, 0, SeedSwitchID, 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err := topo.AddLink(SeedPCID, 0, SeedSwitchID, 0)
		if !errors.Is(err, ErrPortInUse) {
			t.Errorf("expected ErrPortInUse, got %v", err)
		}
		if len(topo.Links()) != 1 {
			t.Errorf("expected 1 link, got %d", len(topo.Links()))
		}
	})

	t.Run("unknown node is rejected", func(t *testing.T) {
		topo := NewSeedTopology()
		_, err := topo.AddLink("R9", 0, SeedSwitchID, 0)
		if !errors.Is(err, ErrNodeNotFound) {
			t.Errorf("expected ErrNodeNotFound, got %v", err)
		}
	})

	t.Run("out of range port is rejected", func(t *testing.T) {
		topo := NewSeedTopology()
		_, err := topo.AddLink(SeedRouterID, 7, SeedSwitchID, 0)
		if !errors.Is(err, ErrInvalidPort) {
			t.Errorf("expected ErrInvalidPort, got %v", err)
		}
	})

	t.Run("self loop is rejected", func(t *testing.T) {
		topo := NewSeedTopology()
		_, err := topo.AddLink(SeedSwitchID, 2, SeedSwitchID, 2)
		if !errors.Is(err, ErrInvalidPort) {
			t.Errorf("expected ErrInvalidPort, got %v", err)
		}
	})
}

func TestTopologyRemoveLink(t *testing.T) {
	topo := NewSeedTopology()
	link, err := topo.AddLink(SeedRouterID, 0, SeedSwitchID, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !topo.RemoveLink(link.ID) {
		t.Error("expected link to be removed")
	}
	if topo.IsPortUsed(SeedRouterID, 0) {
		t.Error("expected port to be free after removal")
	}
	if topo.RemoveLink(link.ID) {
		t.Error("expected second removal to report absence")
	}
}

func TestTopologyCablingOK(t *testing.T) {
	t.Run("requires both links in any order", func(t *testing.T) {
		orders := [][2]string{
			{SeedRouterID, SeedPCID},
			{SeedPCID, SeedRouterID},
		}
		for _, order := range orders {
			topo := NewSeedTopology()
			if _, err := topo.AddLink(order[0], 0, SeedSwitchID, 0); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if topo.CablingOK() {
				t.Errorf("order %v: expected not ok with one link", order)
			}
			if _, err := topo.AddLink(SeedSwitchID, 3, order[1], 0); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !topo.CablingOK() {
				t.Errorf("order %v: expected ok with both links", order)
			}
		}
	})

	t.Run("removing either link breaks cabling", func(t *testing.T) {
		for _, which := range []string{"router", "pc"} {
			topo := NewSeedTopology()
			routerLink, pcLink := cable(t, topo)
			if which == "router" {
				topo.RemoveLink(routerLink.ID)
			} else {
				topo.RemoveLink(pcLink.ID)
			}
			if topo.CablingOK() {
				t.Errorf("expected cabling broken after removing %s link", which)
			}
		}
	})

	t.Run("invalid cable carries no signal", func(t *testing.T) {
		topo := NewSeedTopology()
		if _, err := topo.AddLink(SeedRouterID, 0, SeedPCID, 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if topo.HasPathOfType(NodeTypeRouter, NodeTypePC) {
			t.Error("expected router-pc link to carry no signal")
		}
		if topo.CablingOK() {
			t.Error("expected cabling to be broken")
		}
	})

	t.Run("nil topology is uncabled", func(t *testing.T) {
		var topo *Topology
		if topo.CablingOK() {
			t.Error("expected nil topology to be uncabled")
		}
		if _, ok := topo.RouterUplink(); ok {
			t.Error("expected no uplink on nil topology")
		}
	})
}

func TestTopologyRouterUplink(t *testing.T) {
	topo := NewSeedTopology()
	if _, err := topo.AddLink(SeedSwitchID, 0, SeedRouterID, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := topo.SetPortConfig(SeedRouterID, InterfaceFa01, "10.0.0.1", "255.0.0.0", PortStatusUp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	port, ok := topo.RouterUplink()
	if !ok {
		t.Fatal("expected uplink to resolve")
	}
	if port.Name != InterfaceFa01 {
		t.Errorf("expected uplink %s, got %s", InterfaceFa01, port.Name)
	}
	if port.IP != "10.0.0.1" || port.Status != PortStatusUp {
		t.Errorf("unexpected uplink fields: %+v", port)
	}

	if _, ok := topo.GatewayPath(); ok {
		t.Error("expected gateway path to require the pc link")
	}
	if _, err := topo.AddLink(SeedPCID, 0, SeedSwitchID, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if port, ok := topo.GatewayPath(); !ok || port.Name != InterfaceFa01 {
		t.Errorf("expected gateway path through %s, got %+v (ok=%v)", InterfaceFa01, port, ok)
	}
}

func TestTopologySetPortConfig(t *testing.T) {
	topo := NewSeedTopology()

	err := topo.SetPortConfig(SeedRouterID, InterfaceFa00, "192.168.1.1", "255.255.255.0", PortStatusUp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	router, _ := topo.Node(SeedRouterID)
	port := router.Ports[0]
	if port.IP != "192.168.1.1" || port.Mask != "255.255.255.0" || port.Status != PortStatusUp {
		t.Errorf("unexpected port fields: %+v", port)
	}

	if err := topo.SetPortConfig(SeedRouterID, "fa0/9", "", "", PortStatusDown); !errors.Is(err, ErrInvalidPort) {
		t.Errorf("expected ErrInvalidPort, got %v", err)
	}
	if err := topo.SetPortConfig("R9", InterfaceFa00, "", "", PortStatusDown); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestTopologyNodeCopiesAreDetached(t *testing.T) {
	topo := NewSeedTopology()
	router, _ := topo.Node(SeedRouterID)
	router.Ports[0].IP = "1.1.1.1"

	again, _ := topo.Node(SeedRouterID)
	if again.Ports[0].IP != "" {
		t.Error("expected mutation of a copy not to leak into the topology")
	}
}

func TestTopologyMove(t *testing.T) {
	topo := NewSeedTopology()

	if err := topo.MoveNode(SeedPCID, Position{X: 1, Y: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := topo.MovePort(SeedPCID, 0, Position{X: 3, Y: 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pc, _ := topo.Node(SeedPCID)
	if pc.Position != (Position{X: 1, Y: 2}) {
		t.Errorf("unexpected position %+v", pc.Position)
	}
	if pc.Ports[0].Offset != (Position{X: 3, Y: 4}) {
		t.Errorf("unexpected offset %+v", pc.Ports[0].Offset)
	}
	if err := topo.MovePort(SeedPCID, 1, Position{}); !errors.Is(err, ErrInvalidPort) {
		t.Errorf("expected ErrInvalidPort, got %v", err)
	}
}
