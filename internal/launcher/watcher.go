package launcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/razvandimescu/markview/internal/apperr"
)

// Reloader receives one call per coalesced modification of the watched file.
type Reloader interface {
	Reload() error
}

// Stopper stops a running watch and waits for it to finish.
type Stopper interface {
	Stop()
}

// WatchFunc starts watching path on behalf of target.
type WatchFunc func(path string, target Reloader, debounce time.Duration, logger *slog.Logger) (Stopper, error)

// Watcher forwards modifications of a single file to a Reloader.
type Watcher struct {
	target   string
	reloader Reloader
	debounce time.Duration
	logger   *slog.Logger

	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Watch watches the parent directory of path (non-recursively). Writes and
// creations of path are coalesced over debounce and reported to target.
// Watching the directory rather than the file keeps working when an
// editor saves by renaming a new file over the old one.
func Watch(path string, target Reloader, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrIO, err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: create watcher: %w", apperr.ErrIO, err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("%w: watch %s: %w", apperr.ErrIO, filepath.Dir(abs), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		target:   abs,
		reloader: target,
		debounce: debounce,
		logger:   logger,
		fsw:      fsw,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go w.loop(ctx)

	logger.Debug("watcher: started", slog.String("path", abs))
	return w, nil
}

// Stop ends the watch and waits for its goroutine. No Reload call happens
// after Stop returns.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		w.cancel()
		<-w.done
		if err := w.fsw.Close(); err != nil {
			w.logger.Debug("watcher: close", slog.String("error", err.Error()))
		}
		w.logger.Debug("watcher: stopped")
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	var pending *time.Timer
	var fire <-chan time.Time
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-fire:
			fire = nil
			w.signal()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			if w.debounce <= 0 {
				w.signal()
				continue
			}
			if pending == nil {
				pending = time.NewTimer(w.debounce)
			} else {
				pending.Reset(w.debounce)
			}
			fire = pending.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Debug("watcher: error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	if filepath.Clean(ev.Name) != w.target {
		return false
	}
	if filepath.Ext(ev.Name) != markdownExt {
		return false
	}
	if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
		return false
	}
	return true
}

// signal notifies the reloader. A viewer that already exited is not an error
// worth reporting.
func (w *Watcher) signal() {
	if err := w.reloader.Reload(); err != nil {
		w.logger.Debug("watcher: reload signal failed", slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: reload signalled", slog.String("path", w.target))
}
