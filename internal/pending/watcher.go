package pending

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/qingchang/notchbridge/internal/paths"
)

// Watcher invokes a callback whenever the store's backing file is written,
// renamed, or deleted. It watches the containing directory rather than the
// file itself, which is the reliable way to observe in-place rewrites.
type Watcher struct {
	fw       *fsnotify.Watcher
	path     string
	onChange func()
	done     chan struct{}
	once     sync.Once
}

// NewWatcher starts watching path and calls onChange on every relevant
// event, on a dedicated goroutine, until Close. If the file does not exist
// yet an empty placeholder is created so there is something to watch.
func NewWatcher(path string, onChange func()) (*Watcher, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := paths.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, fmt.Errorf("creating watch dir: %w", err)
		}
		if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
			return nil, fmt.Errorf("creating watch placeholder: %w", err)
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{
		fw:       fw,
		path:     path,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	filename := filepath.Base(w.path)

	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				w.onChange()
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			slog.Warn("pending store watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// Close stops the watch loop. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fw.Close()
	})
	return err
}
