package domain

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNodeNotFound = errors.New("node not found")
	ErrInvalidPort  = errors.New("invalid port")
	ErrPortInUse    = errors.New("port already in use")
)

// Seed node IDs
const (
	SeedRouterID = "R1"
	SeedSwitchID = "S1"
	SeedPCID     = "PC1"
)

// Router interface names available on the seed router
const (
	InterfaceFa00 = "fa0/0"
	InterfaceFa01 = "fa0/1"
)

// Topology is the authoritative cabling graph shared by the consoles.
// Nodes are never removed; only links come and go.
//
// All predicates are safe on a nil *Topology and answer as if nothing is cabled.
type Topology struct {
	mu    sync.RWMutex
	nodes []*Node
	links []Link
}

// NewTopology creates a topology over the given nodes with no links
func NewTopology(nodes ...*Node) *Topology {
	t := &Topology{
		nodes: make([]*Node, 0, len(nodes)),
		links: make([]Link, 0),
	}
	for _, n := range nodes {
		t.nodes = append(t.nodes, n.clone())
	}
	return t
}

// NewSeedTopology returns the starting lab: one router, one switch, one pc, zero links
func NewSeedTopology() *Topology {
	router := NewNode(SeedRouterID, NodeTypeRouter, "Router",
		Port{Name: InterfaceFa00, Offset: Position{X: 60, Y: 10}, Status: PortStatusDown},
		Port{Name: InterfaceFa01, Offset: Position{X: 60, Y: 40}, Status: PortStatusDown},
	)
	router.Position = Position{X: 120, Y: 140}

	sw := NewNode(SeedSwitchID, NodeTypeSwitch, "Switch",
		Port{Offset: Position{X: 0, Y: 10}},
		Port{Offset: Position{X: 0, Y: 40}},
		Port{Offset: Position{X: 80, Y: 10}},
		Port{Offset: Position{X: 80, Y: 40}},
	)
	sw.Position = Position{X: 360, Y: 140}

	pc := NewNode(SeedPCID, NodeTypePC, "PC",
		Port{Offset: Position{X: 0, Y: 25}},
	)
	pc.Position = Position{X: 600, Y: 140}

	return NewTopology(router, sw, pc)
}

// findNode returns the live node; callers must hold the lock
func (t *Topology) findNode(id string) *Node {
	for _, n := range t.nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Node returns a copy of the node with the given ID
func (t *Topology) Node(id string) (Node, bool) {
	if t == nil {
		return Node{}, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := t.findNode(id)
	if n == nil {
		return Node{}, false
	}
	return *n.clone(), true
}

// Nodes returns copies of all nodes in insertion order
func (t *Topology) Nodes() []Node {
	if t == nil {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	nodes := make([]Node, 0, len(t.nodes))
	for _, n := range t.nodes {
		nodes = append(nodes, *n.clone())
	}
	return nodes
}

// Links returns a copy of the current links
func (t *Topology) Links() []Link {
	if t == nil {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	links := make([]Link, len(t.links))
	copy(links, t.links)
	return links
}

// AddLink cables two free ports together.
// A disallowed device pair is not an error: the link is stored with OK=false.
func (t *Topology) AddLink(nodeA string, portA int, nodeB string, portB int) (Link, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	a := Endpoint{NodeID: nodeA, Port: portA}
	b := Endpoint{NodeID: nodeB, Port: portB}

	na, err := t.checkEndpoint(a)
	if err != nil {
		return Link{}, err
	}
	nb, err := t.checkEndpoint(b)
	if err != nil {
		return Link{}, err
	}
	if a == b {
		return Link{}, fmt.Errorf("%w: %s linked to itself", ErrInvalidPort, a)
	}

	link := NewLink(a, na.Type, b, nb.Type)
	t.links = append(t.links, link)
	return link, nil
}

// checkEndpoint validates that e names an existing, free port; callers hold the lock
func (t *Topology) checkEndpoint(e Endpoint) (*Node, error) {
	n := t.findNode(e.NodeID)
	if n == nil {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, e.NodeID)
	}
	if !n.HasPort(e.Port) {
		return nil, fmt.Errorf("%w: %s has no port %d", ErrInvalidPort, e.NodeID, e.Port)
	}
	if t.portUsed(e.NodeID, e.Port) {
		return nil, fmt.Errorf("%w: %s", ErrPortInUse, e)
	}
	return n, nil
}

// RemoveLink deletes the link with the given ID.
// Returns false if no such link exists.
func (t *Topology) RemoveLink(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, l := range t.links {
		if l.ID == id {
			t.links = append(t.links[:i], t.links[i+1:]...)
			return true
		}
	}
	return false
}

// IsPortUsed reports whether a link terminates on the given port
func (t *Topology) IsPortUsed(nodeID string, port int) bool {
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.portUsed(nodeID, port)
}

func (t *Topology) portUsed(nodeID string, port int) bool {
	for _, l := range t.links {
		if l.Touches(nodeID, port) {
			return true
		}
	}
	return false
}

// HasPathOfType reports whether a working link joins a node of typeA to a node of typeB
func (t *Topology) HasPathOfType(typeA, typeB NodeType) bool {
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.hasPathOfType(typeA, typeB)
}

func (t *Topology) hasPathOfType(typeA, typeB NodeType) bool {
	for _, l := range t.links {
		if !l.OK {
			continue
		}
		if samePair(t.typeOf(l.A.NodeID), t.typeOf(l.B.NodeID), typeA, typeB) {
			return true
		}
	}
	return false
}

func (t *Topology) typeOf(nodeID string) NodeType {
	if n := t.findNode(nodeID); n != nil {
		return n.Type
	}
	return ""
}

// CablingOK is the gate both consoles consult: router-switch and pc-switch links must exist
func (t *Topology) CablingOK() bool {
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cablingOK()
}

func (t *Topology) cablingOK() bool {
	return t.hasPathOfType(NodeTypeRouter, NodeTypeSwitch) &&
		t.hasPathOfType(NodeTypePC, NodeTypeSwitch)
}

// RouterUplink resolves the router port that sits on the router-switch link.
// Returns false when no such working link exists.
func (t *Topology) RouterUplink() (Port, bool) {
	if t == nil {
		return Port{}, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.routerUplink()
}

func (t *Topology) routerUplink() (Port, bool) {
	for _, l := range t.links {
		if !l.OK {
			continue
		}
		for _, e := range []Endpoint{l.A, l.B} {
			n := t.findNode(e.NodeID)
			if n != nil && n.Type == NodeTypeRouter && n.HasPort(e.Port) {
				return n.Ports[e.Port], true
			}
		}
	}
	return Port{}, false
}

// GatewayPath evaluates cabling and the router uplink under a single read lock,
// so a concurrent link change cannot split the two observations.
func (t *Topology) GatewayPath() (uplink Port, ok bool) {
	if t == nil {
		return Port{}, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.cablingOK() {
		return Port{}, false
	}
	return t.routerUplink()
}

// SetPortConfig mirrors router interface state into the named port's display fields
func (t *Topology) SetPortConfig(nodeID, portName, ip, mask string, status PortStatus) error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.findNode(nodeID)
	if n == nil {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	idx := n.PortIndex(portName)
	if idx < 0 {
		return fmt.Errorf("%w: %s has no port %s", ErrInvalidPort, nodeID, portName)
	}

	n.Ports[idx].IP = ip
	n.Ports[idx].Mask = mask
	n.Ports[idx].Status = status
	return nil
}

// MovePort updates the rendering offset of a port
func (t *Topology) MovePort(nodeID string, port int, offset Position) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.findNode(nodeID)
	if n == nil {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	if !n.HasPort(port) {
		return fmt.Errorf("%w: %s has no port %d", ErrInvalidPort, nodeID, port)
	}
	n.Ports[port].Offset = offset
	return nil
}

// MoveNode updates the rendering position of a node
func (t *Topology) MoveNode(nodeID string, pos Position) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.findNode(nodeID)
	if n == nil {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	n.Position = pos
	return nil
}
