package domain

import "fmt"

// Snapshot is a detached copy of a topology, used for rendering, labs and export
type Snapshot struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Links []Link `json:"links" yaml:"links"`
}

// Snapshot returns a deep copy of the current topology
func (t *Topology) Snapshot() *Snapshot {
	if t == nil {
		return &Snapshot{Nodes: []Node{}, Links: []Link{}}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := &Snapshot{
		Nodes: make([]Node, 0, len(t.nodes)),
		Links: make([]Link, len(t.links)),
	}
	for _, n := range t.nodes {
		snap.Nodes = append(snap.Nodes, *n.clone())
	}
	copy(snap.Links, t.links)
	return snap
}

// Restore replaces positions, port fields and links with those of snap.
// Nodes are matched by ID and must keep their type and port count; link OK flags
// are recomputed from node types. Restore is all-or-nothing.
func (t *Topology) Restore(snap *Snapshot) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	nodes := make([]*Node, len(t.nodes))
	for i, n := range t.nodes {
		nodes[i] = n.clone()
	}
	staged := &Topology{nodes: nodes, links: make([]Link, 0, len(snap.Links))}

	for _, sn := range snap.Nodes {
		n := staged.findNode(sn.ID)
		if n == nil {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, sn.ID)
		}
		if n.Type != sn.Type {
			return fmt.Errorf("node %s: type %q does not match %q", sn.ID, sn.Type, n.Type)
		}
		if len(n.Ports) != len(sn.Ports) {
			return fmt.Errorf("node %s: expected %d ports, got %d", sn.ID, len(n.Ports), len(sn.Ports))
		}
		n.Position = sn.Position
		for i, p := range sn.Ports {
			n.Ports[i].Offset = p.Offset
			if n.Type == NodeTypeRouter {
				n.Ports[i].IP = p.IP
				n.Ports[i].Mask = p.Mask
				n.Ports[i].Status = p.Status
			}
		}
	}

	for _, l := range snap.Links {
		na, err := staged.checkEndpoint(l.A)
		if err != nil {
			return fmt.Errorf("link %s: %w", l.ID, err)
		}
		nb, err := staged.checkEndpoint(l.B)
		if err != nil {
			return fmt.Errorf("link %s: %w", l.ID, err)
		}
		if l.A == l.B {
			return fmt.Errorf("link %s: %w: %s linked to itself", l.ID, ErrInvalidPort, l.A)
		}
		staged.links = append(staged.links, NewLink(l.A, na.Type, l.B, nb.Type))
	}

	t.nodes = staged.nodes
	t.links = staged.links
	return nil
}
