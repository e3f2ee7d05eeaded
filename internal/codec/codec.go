// Package codec converts topology snapshots to and from interchange formats.
package codec

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"intratel/internal/domain"
)

// ErrUnsupportedFormat is returned for unknown format names
var ErrUnsupportedFormat = errors.New("unsupported format")

// Importer interface for importing topology snapshots from various formats
type Importer interface {
	Parse(r io.Reader) (*domain.Snapshot, error)
	Format() string
}

// Exporter interface for exporting topology snapshots to various formats
type Exporter interface {
	Export(snap *domain.Snapshot, w io.Writer) error
	Format() string
}

// ImporterFor returns the importer for format ("json" or "yaml")
func ImporterFor(format string) (Importer, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml", "":
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("%w for import: %q", ErrUnsupportedFormat, format)
	}
}

// ExporterFor returns the exporter for format ("json", "yaml" or "ansible-inventory")
func ExporterFor(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml", "":
		return NewYAMLCodec(), nil
	case "ansible", "ansible-inventory":
		return NewAnsibleCodec(), nil
	default:
		return nil, fmt.Errorf("%w for export: %q", ErrUnsupportedFormat, format)
	}
}
