// Package watch reports changes to the record log file.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 250 * time.Millisecond

// Watcher calls OnChange once per burst of writes to a single file. The
// parent directory is watched so replacing the file by rename is seen too.
type Watcher struct {
	path     string
	onChange func(reason string)
	debounce time.Duration
	logger   *slog.Logger

	done chan struct{}
	once sync.Once
}

func New(path string, onChange func(reason string), logger *slog.Logger) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("watch %s: change callback is required", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     abs,
		onChange: onChange,
		debounce: DefaultDebounce,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// WithDebounce sets the quiet period before OnChange fires.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Start begins watching until ctx is done. It returns once the watch is
// registered.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info("Watching record log", "path", w.path)

	go w.loop(ctx, fsw)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.once.Do(func() { close(w.done) })
	defer fsw.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	var last fsnotify.Op
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case evt, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != w.path {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) && !evt.Has(fsnotify.Remove) {
				continue
			}
			last = evt.Op
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.onChange("file " + last.String())
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Record log watcher error", "path", w.path, "error", err)
		}
	}
}

// Done is closed after the watch loop exits.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}
