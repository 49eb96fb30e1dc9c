// Package viewer keeps a window in sync with a Markdown file.
//
// All state transitions happen on the goroutine running Poll (the UI
// loop). Other goroutines only set the session's reload and quit
// conditions.
package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/razvandimescu/markview/internal/apperr"
	"github.com/razvandimescu/markview/internal/session"
	"github.com/razvandimescu/markview/internal/window"
)

// State is the lifecycle state of a viewer.
type State int

const (
	StateIdle State = iota
	StateReloading
	StateClosing
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReloading:
		return "reloading"
	case StateClosing:
		return "closing"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Renderer converts Markdown source into a full HTML document.
type Renderer interface {
	Render(name string, src []byte) ([]byte, error)
}

// Viewer renders one file into one window.
type Viewer struct {
	path     string
	session  *session.Session
	window   window.Window
	renderer Renderer
	logger   *slog.Logger

	state State
}

// New creates a viewer for path. The path is fixed for the viewer's lifetime.
func New(path string, sess *session.Session, win window.Window, r Renderer, logger *slog.Logger) *Viewer {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Viewer{
		path:     path,
		session:  sess,
		window:   win,
		renderer: r,
		logger:   logger.With(slog.String("path", path)),
		state:    StateIdle,
	}
	win.SetTitle("Render: " + filepath.Base(path))
	return v
}

// State returns the current lifecycle state.
func (v *Viewer) State() State {
	return v.state
}

// Load reads and renders the file and replaces the window content. On
// failure the error is logged and returned, and the window keeps showing
// the previous document.
func (v *Viewer) Load() error {
	src, err := os.ReadFile(v.path)
	if err != nil {
		err = fmt.Errorf("%w: %w", apperr.ErrIO, err)
		v.logger.Error("error reading file", slog.String("error", err.Error()))
		return err
	}

	doc, err := v.renderer.Render(v.path, src)
	if err != nil {
		v.logger.Error("error rendering file", slog.String("error", err.Error()))
		return err
	}

	v.window.SetHTML(doc)
	v.logger.Info("markdown loaded and rendered", slog.Int("bytes", len(doc)))
	return nil
}

// Poll consumes pending conditions: a reload re-renders the file, a quit
// closes the window. It reports whether the viewer is still running.
func (v *Viewer) Poll() bool {
	if v.state == StateTerminated {
		return false
	}

	if v.session.Reload.TestAndClear() {
		v.logger.Debug("reload triggered")
		v.state = StateReloading
		_ = v.Load()
		v.state = StateIdle
	}

	if v.session.Quit.TestAndClear() {
		v.logger.Debug("quit triggered")
		v.state = StateClosing
		v.window.Close()
		v.state = StateTerminated
		return false
	}

	return true
}

// OnClose is called when the window is closed by the user. It marks the
// session as terminated so the next poll closes the viewer.
func (v *Viewer) OnClose() {
	v.session.Quit.Set()
}

// Run polls every interval until the viewer terminates or ctx is done.
func (v *Viewer) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if v.state != StateTerminated {
				v.window.Close()
				v.state = StateTerminated
			}
			return ctx.Err()
		case <-ticker.C:
			if !v.Poll() {
				v.logger.Info("viewer terminated")
				return nil
			}
		}
	}
}
