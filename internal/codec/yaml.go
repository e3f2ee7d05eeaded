package codec

import (
	"fmt"
	"io"

	"intratel/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles the hand-editable YAML lab format
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// yamlLab is the YAML document layout. Links are written as "node:port" pairs.
type yamlLab struct {
	Nodes []yamlNode `yaml:"nodes"`
	Links []yamlLink `yaml:"links"`
}

type yamlNode struct {
	ID       string          `yaml:"id"`
	Type     string          `yaml:"type"`
	Label    string          `yaml:"label,omitempty"`
	Position domain.Position `yaml:"position"`
	Ports    []domain.Port   `yaml:"ports"`
}

type yamlLink struct {
	A string `yaml:"a"`
	B string `yaml:"b"`
}

// Parse imports a snapshot from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*domain.Snapshot, error) {
	var yl yamlLab
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&yl); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	snap := &domain.Snapshot{
		Nodes: make([]domain.Node, 0, len(yl.Nodes)),
		Links: make([]domain.Link, 0, len(yl.Links)),
	}

	types := make(map[string]domain.NodeType, len(yl.Nodes))
	for _, yn := range yl.Nodes {
		nodeType := domain.NodeType(yn.Type)
		if !nodeType.Valid() {
			return nil, fmt.Errorf("node %s: unknown type %q", yn.ID, yn.Type)
		}
		types[yn.ID] = nodeType
		snap.Nodes = append(snap.Nodes, domain.Node{
			ID:       yn.ID,
			Type:     nodeType,
			Label:    yn.Label,
			Position: yn.Position,
			Ports:    yn.Ports,
		})
	}

	for _, link := range yl.Links {
		a, err := domain.ParseEndpoint(link.A)
		if err != nil {
			return nil, err
		}
		b, err := domain.ParseEndpoint(link.B)
		if err != nil {
			return nil, err
		}
		// OK is recomputed when the snapshot is restored; types here may be unknown.
		snap.Links = append(snap.Links, domain.NewLink(a, types[a.NodeID], b, types[b.NodeID]))
	}

	return snap, nil
}

// Export exports a snapshot to YAML
func (c *YAMLCodec) Export(snap *domain.Snapshot, w io.Writer) error {
	yl := yamlLab{
		Nodes: make([]yamlNode, 0, len(snap.Nodes)),
		Links: make([]yamlLink, 0, len(snap.Links)),
	}

	for _, node := range snap.Nodes {
		yl.Nodes = append(yl.Nodes, yamlNode{
			ID:       node.ID,
			Type:     string(node.Type),
			Label:    node.Label,
			Position: node.Position,
			Ports:    node.Ports,
		})
	}

	for _, link := range snap.Links {
		yl.Links = append(yl.Links, yamlLink{A: link.A.String(), B: link.B.String()})
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&yl); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
