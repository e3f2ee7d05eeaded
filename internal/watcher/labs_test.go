package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"intratel/internal/domain"
)

// memStore records stored labs
type memStore struct {
	mu   sync.Mutex
	labs map[string]*domain.Lab
}

func newMemStore() *memStore {
	return &memStore{labs: make(map[string]*domain.Lab)}
}

func (s *memStore) StoreLab(ctx context.Context, lab *domain.Lab) error {
	if err := domain.NewSeedTopology().Restore(lab.Snapshot); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labs[lab.Name] = lab
	return nil
}

func (s *memStore) get(name string) (*domain.Lab, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lab, ok := s.labs[name]
	return lab, ok
}

const routerOnlyYAML = "links:\n  - a: R1:0\n    b: S1:0\n"

const cabledJSON = `{"links": [
  {"id": "l1", "a": {"node_id": "R1", "port": 0}, "b": {"node_id": "S1", "port": 0}},
  {"id": "l2", "a": {"node_id": "PC1", "port": 0}, "b": {"node_id": "S1", "port": 1}}
]}`

func writeLab(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLabName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/labs/cabled.yaml", "cabled"},
		{"cabled.YML", "cabled"},
		{"labs/half.json", "half"},
		{"notes.txt", ""},
		{".cabled.yaml", ""},
		{"noext", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := LabName(tt.path); got != tt.want {
				t.Errorf("LabName(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestImportAll(t *testing.T) {
	dir := t.TempDir()
	writeLab(t, dir, "half.yaml", routerOnlyYAML)
	writeLab(t, dir, "cabled.json", cabledJSON)
	writeLab(t, dir, "broken.yml", "links: [")
	writeLab(t, dir, "bad-node.yaml", "links:\n  - a: R9:0\n    b: S1:0\n")
	writeLab(t, dir, "README.txt", "not a lab")
	if err := os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755); err != nil {
		t.Fatal(err)
	}

	store := newMemStore()
	n, err := NewLabDir(dir, store).ImportAll(context.Background())
	if err != nil {
		t.Fatalf("ImportAll() error: %v", err)
	}
	if n != 2 {
		t.Errorf("imported %d labs, want 2", n)
	}

	half, ok := store.get("half")
	if !ok || half.LinkCount() != 1 {
		t.Errorf("unexpected half lab %+v", half)
	}
	cabled, ok := store.get("cabled")
	if !ok || cabled.LinkCount() != 2 {
		t.Errorf("unexpected cabled lab %+v", cabled)
	}
	for _, name := range []string{"broken", "bad-node", "README", "nested"} {
		if _, ok := store.get(name); ok {
			t.Errorf("lab %q should not have been imported", name)
		}
	}
}

func TestImportAllMissingDir(t *testing.T) {
	_, err := NewLabDir(filepath.Join(t.TempDir(), "missing"), newMemStore()).ImportAll(context.Background())
	if err == nil {
		t.Error("expected error for a missing directory")
	}
}

func TestImportFileRejectsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeLab(t, dir, "notes.txt", routerOnlyYAML)
	if _, err := NewLabDir(dir, newMemStore()).ImportFile(context.Background(), path); err == nil {
		t.Error("expected error for a non-lab file")
	}
}

func TestRunPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	writeLab(t, dir, "half.yaml", routerOnlyYAML)

	store := newMemStore()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewLabDir(dir, store).WithDebounce(10 * time.Millisecond).Run(ctx)
	}()

	// The watch starts after the initial import, so keep rewriting until seen
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if lab, ok := store.get("cabled"); ok && lab.LinkCount() == 2 {
			break
		}
		select {
		case <-ticker.C:
			writeLab(t, dir, "cabled.json", cabledJSON)
		case <-deadline:
			cancel()
			t.Fatal("timed out waiting for cabled.json to be imported")
		}
	}
	if _, ok := store.get("half"); !ok {
		t.Error("expected the initial import to include half.yaml")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() returned %v after cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
