// Package watch rebuilds a schema model when one of its local files
// changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/CognitoIQ/ocxschema/internal/fetch"
	"github.com/CognitoIQ/ocxschema/xsd"
)

// DefaultDelay is how long the watcher waits for a burst of file
// events to settle before rebuilding.
const DefaultDelay = 200 * time.Millisecond

// A Watcher re-runs Process on a Reader when the main schema document
// or any local document it imports is written.
type Watcher struct {
	reader *xsd.Reader
	source string
	logger zerolog.Logger

	// Delay debounces bursts of events. Set before Start.
	Delay time.Duration
	// OnReload, if set, is called with the result of every rebuild.
	OnReload func(error)

	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	mu    sync.Mutex
	files map[string]bool
	dirs  map[string]bool
}

// New returns a Watcher for the schema at source, which reader
// should already have processed.
func New(reader *xsd.Reader, source string, logger zerolog.Logger) *Watcher {
	return &Watcher{
		reader: reader,
		source: source,
		logger: logger,
		Delay:  DefaultDelay,
		files:  make(map[string]bool),
		dirs:   make(map[string]bool),
	}
}

// Start begins watching. URL sources cannot be watched.
func (w *Watcher) Start() error {
	if fetch.IsURL(w.source) {
		return fmt.Errorf("cannot watch remote schema %s", w.source)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	w.watcher = watcher
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})

	if err := w.track(); err != nil {
		watcher.Close()
		return err
	}

	go w.watchLoop()

	w.logger.Info().Str("source", w.source).Int("count", len(w.files)).Msg("watching schema files for changes")
	return nil
}

// Stop stops watching and waits for a running rebuild to finish. It
// may be called more than once.
func (w *Watcher) Stop() {
	if w.watcher == nil {
		return
	}
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
	})
	<-w.done
}

// Files returns the watched files.
func (w *Watcher) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	files := make([]string, 0, len(w.files))
	for f := range w.files {
		files = append(files, f)
	}
	return files
}

// track watches the directory of every local document of the current
// model. Directories are watched rather than files so that editors
// saving through a rename are seen.
func (w *Watcher) track() error {
	docs := []string{w.source}
	if m, err := w.reader.Model(); err == nil {
		docs = append(docs, m.Documents()...)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, doc := range docs {
		if fetch.IsURL(doc) {
			continue
		}
		abs, err := filepath.Abs(doc)
		if err != nil {
			continue
		}
		w.files[abs] = true
		dir := filepath.Dir(abs)
		if w.dirs[dir] {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch directory: %w", err)
		}
		w.dirs[dir] = true
	}
	return nil
}

func (w *Watcher) watched(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[abs]
}

func (w *Watcher) watchLoop() {
	defer close(w.done)

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.watched(event.Name) {
				continue
			}
			// React to write or create (atomic save = create)
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("schema file changed")
			if timer == nil {
				timer = time.NewTimer(w.Delay)
			} else {
				timer.Reset(w.Delay)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("file watcher error")

		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) reload() {
	err := w.reader.Process(context.Background(), w.source)
	if err != nil {
		w.logger.Error().Err(err).Str("source", w.source).Msg("schema rebuild failed")
	} else if err := w.track(); err != nil {
		w.logger.Error().Err(err).Msg("watch new documents")
	}
	if w.OnReload != nil {
		w.OnReload(err)
	}
}
