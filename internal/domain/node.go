package domain

// NodeType represents the type of simulated device
type NodeType string

const (
	NodeTypeRouter NodeType = "router"
	NodeTypeSwitch NodeType = "switch"
	NodeTypePC     NodeType = "pc"
)

// Valid reports whether t is one of the known device types
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeRouter, NodeTypeSwitch, NodeTypePC:
		return true
	}
	return false
}

// PortStatus is the administrative state mirrored into a router port
type PortStatus string

const (
	PortStatusUp   PortStatus = "up"
	PortStatusDown PortStatus = "down"
)

// Port is a patchable socket on a node.
// Only router ports carry a name and interface fields.
type Port struct {
	Offset Position   `json:"offset" yaml:"offset"`
	Name   string     `json:"name,omitempty" yaml:"name,omitempty"`
	IP     string     `json:"ip,omitempty" yaml:"ip,omitempty"`
	Mask   string     `json:"mask,omitempty" yaml:"mask,omitempty"`
	Status PortStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

// Node represents a device in the topology
type Node struct {
	ID       string   `json:"id" yaml:"id"`
	Type     NodeType `json:"type" yaml:"type"`
	Label    string   `json:"label" yaml:"label"`
	Position Position `json:"position" yaml:"position"`
	Ports    []Port   `json:"ports" yaml:"ports"`
}

// NewNode creates a new node with the given ports
func NewNode(id string, nodeType NodeType, label string, ports ...Port) *Node {
	if label == "" {
		label = id
	}
	return &Node{
		ID:    id,
		Type:  nodeType,
		Label: label,
		Ports: ports,
	}
}

// PortIndex returns the index of the named port, or -1
func (n *Node) PortIndex(name string) int {
	for i, p := range n.Ports {
		if p.Name != "" && p.Name == name {
			return i
		}
	}
	return -1
}

// HasPort reports whether idx addresses one of the node's ports
func (n *Node) HasPort(idx int) bool {
	return idx >= 0 && idx < len(n.Ports)
}

func (n *Node) clone() *Node {
	c := *n
	c.Ports = make([]Port, len(n.Ports))
	copy(c.Ports, n.Ports)
	return &c
}
