package domain

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"
)

// Endpoint addresses one port of one node
type Endpoint struct {
	NodeID string `json:"node_id" yaml:"node_id"`
	Port   int    `json:"port" yaml:"port"`
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.NodeID, e.Port)
}

// ParseEndpoint parses the "R1:0" form produced by String
func ParseEndpoint(s string) (Endpoint, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 {
		return Endpoint{}, fmt.Errorf("invalid link endpoint %q: want node:port", s)
	}
	port, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid link endpoint %q: %w", s, err)
	}
	return Endpoint{NodeID: s[:i], Port: port}, nil
}

// Link is a cable between two ports.
// OK is derived from the endpoint node types when the link is created.
type Link struct {
	ID string   `json:"id" yaml:"id"`
	A  Endpoint `json:"a" yaml:"a"`
	B  Endpoint `json:"b" yaml:"b"`
	OK bool     `json:"ok" yaml:"ok"`
}

// NewLink creates a link between a and b, classifying it by node types
func NewLink(a Endpoint, typeA NodeType, b Endpoint, typeB NodeType) Link {
	link := Link{
		A:  a,
		B:  b,
		OK: PairAllowed(typeA, typeB),
	}
	link.ID = link.GenerateID()
	return link
}

// GenerateID creates a deterministic ID for the link based on its endpoints
func (l Link) GenerateID() string {
	// Normalize endpoints for consistent ID
	from, to := l.A.String(), l.B.String()
	if from > to {
		from, to = to, from
	}

	hash := sha256.Sum256([]byte(from + "-" + to))
	return fmt.Sprintf("%x", hash[:6])
}

// Touches reports whether the link terminates on the given port
func (l Link) Touches(nodeID string, port int) bool {
	return (l.A.NodeID == nodeID && l.A.Port == port) ||
		(l.B.NodeID == nodeID && l.B.Port == port)
}

// PairAllowed reports whether two device types may be cabled together.
// Only router-switch and pc-switch pairs carry signal.
func PairAllowed(a, b NodeType) bool {
	return samePair(a, b, NodeTypeRouter, NodeTypeSwitch) ||
		samePair(a, b, NodeTypePC, NodeTypeSwitch)
}

// samePair compares two unordered type pairs
func samePair(a, b, x, y NodeType) bool {
	return (a == x && b == y) || (a == y && b == x)
}
