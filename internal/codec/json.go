package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"intratel/internal/domain"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse imports a snapshot from JSON. The document must be a single
// snapshot object with known fields only; links without an ID get the
// deterministic endpoint ID.
func (c *JSONCodec) Parse(r io.Reader) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if decoder.More() {
		return nil, errors.New("failed to parse JSON: trailing data after snapshot")
	}

	if snap.Nodes == nil {
		snap.Nodes = []domain.Node{}
	}
	if snap.Links == nil {
		snap.Links = []domain.Link{}
	}
	for _, n := range snap.Nodes {
		if !n.Type.Valid() {
			return nil, fmt.Errorf("node %s: unknown type %q", n.ID, n.Type)
		}
	}
	for i, l := range snap.Links {
		if l.ID == "" {
			snap.Links[i].ID = l.GenerateID()
		}
	}

	return &snap, nil
}

// Export exports a snapshot to JSON
func (c *JSONCodec) Export(snap *domain.Snapshot, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
