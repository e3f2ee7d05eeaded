package watcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"intratel/internal/codec"
	"intratel/internal/domain"
)

// LabStore saves labs read from disk
type LabStore interface {
	StoreLab(ctx context.Context, lab *domain.Lab) error
}

// labFormats maps file extensions to codec formats
var labFormats = map[string]string{
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
}

// LabDir keeps a directory of lab files in sync with a lab store.
// Each file becomes a lab named after the file without its extension.
type LabDir struct {
	dir      string
	store    LabStore
	debounce time.Duration
}

// NewLabDir creates a LabDir for dir
func NewLabDir(dir string, store LabStore) *LabDir {
	return &LabDir{dir: dir, store: store, debounce: 500 * time.Millisecond}
}

// WithDebounce sets the debounce duration used while watching
func (d *LabDir) WithDebounce(debounce time.Duration) *LabDir {
	d.debounce = debounce
	return d
}

// LabName returns the lab name for a lab file, or "" if path is not a lab file
func LabName(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if _, ok := labFormats[strings.ToLower(ext)]; !ok || strings.HasPrefix(base, ".") {
		return ""
	}
	return strings.TrimSuffix(base, ext)
}

// ImportFile parses one lab file and stores it
func (d *LabDir) ImportFile(ctx context.Context, path string) (*domain.Lab, error) {
	name := LabName(path)
	if name == "" {
		return nil, fmt.Errorf("%s: %w", path, codec.ErrUnsupportedFormat)
	}
	importer, err := codec.ImporterFor(labFormats[strings.ToLower(filepath.Ext(path))])
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	snap, err := importer.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	lab := &domain.Lab{Name: name, Snapshot: snap}
	if err := d.store.StoreLab(ctx, lab); err != nil {
		return nil, err
	}
	return lab, nil
}

// ImportAll imports every lab file in the directory.
// Files that fail are logged and skipped; the count of imported labs is returned.
func (d *LabDir) ImportAll(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return 0, fmt.Errorf("read lab directory: %w", err)
	}

	imported := 0
	for _, entry := range entries {
		if entry.IsDir() || LabName(entry.Name()) == "" {
			continue
		}
		path := filepath.Join(d.dir, entry.Name())
		if _, err := d.ImportFile(ctx, path); err != nil {
			log.Printf("Skipping lab file %s: %v", path, err)
			continue
		}
		imported++
	}
	return imported, nil
}

// Run imports the directory and then re-imports files as they change.
// It blocks until ctx is cancelled.
func (d *LabDir) Run(ctx context.Context) error {
	n, err := d.ImportAll(ctx)
	if err != nil {
		return err
	}
	log.Printf("Imported %d labs from %s", n, d.dir)

	w := New(d.dir, func(path string) {
		if LabName(path) == "" {
			return
		}
		lab, err := d.ImportFile(ctx, path)
		if err != nil {
			log.Printf("Lab file %s not imported: %v", path, err)
			return
		}
		log.Printf("Lab %q updated from %s (%d links)", lab.Name, path, lab.LinkCount())
	}, ".yaml", ".yml", ".json").WithDebounce(d.debounce)

	err = w.Watch(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
