package corpus

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reports the corpus size whenever the corpus file changes on
// disk, including edits made outside the harness.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher
	updates chan int
	logger  *zap.Logger
}

// Watch starts watching the store's file. The parent directory is watched
// (and created if needed) so that the file may be created, replaced or
// removed while watching.
func (s *Store) Watch(logger *zap.Logger) (*Watcher, error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create corpus directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{
		store:   s,
		watcher: fw,
		updates: make(chan int, 1),
		logger:  logger,
	}
	go w.run()
	return w, nil
}

// Updates delivers the latest corpus size after each change. Only the most
// recent size is kept if the reader falls behind. The channel is closed by
// Close.
func (w *Watcher) Updates() <-chan int {
	return w.updates
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) run() {
	defer close(w.updates)

	target := filepath.Clean(w.store.path)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			count, err := w.store.Count()
			if err != nil {
				w.logger.Warn("Failed to count corpus after change", zap.Error(err))
				continue
			}
			w.publish(count)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Corpus watcher error", zap.Error(err))
		}
	}
}

// publish replaces any unread size with count.
func (w *Watcher) publish(count int) {
	select {
	case <-w.updates:
	default:
	}
	select {
	case w.updates <- count:
	default:
	}
}
