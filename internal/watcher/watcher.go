package watcher

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports files in a directory that were written or created
type Watcher struct {
	dir      string
	exts     map[string]bool
	onChange func(path string)
	debounce time.Duration
}

// New creates a watcher for dir. When exts is empty every file is reported.
func New(dir string, onChange func(path string), exts ...string) *Watcher {
	w := &Watcher{
		dir:      dir,
		exts:     make(map[string]bool, len(exts)),
		onChange: onChange,
		debounce: 500 * time.Millisecond,
	}
	for _, ext := range exts {
		w.exts[strings.ToLower(ext)] = true
	}
	return w
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Matches reports whether path has one of the watched extensions
func (w *Watcher) Matches(path string) bool {
	if len(w.exts) == 0 {
		return true
	}
	return w.exts[strings.ToLower(filepath.Ext(path))]
}

// Watch starts watching the directory.
// It blocks until the context is cancelled or an error occurs.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}
	log.Printf("Watching %s for changes", w.dir)

	// Editors write a file in several steps; report each path once it settles
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, timer := range timers {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.Matches(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			path := event.Name
			if timer, exists := timers[path]; exists {
				timer.Stop()
			}
			timers[path] = time.AfterFunc(w.debounce, func() {
				if ctx.Err() != nil {
					return
				}
				log.Printf("File changed: %s", path)
				w.onChange(path)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Watcher error: %v", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
