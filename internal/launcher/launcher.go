// Package launcher runs an edit session: a background viewer, a file watcher
// signalling it, and a foreground editor on the same Markdown file.
package launcher

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/razvandimescu/markview/internal/apperr"
)

// Option is a functional option for configuring a Launcher.
type Option func(*Launcher)

// Launcher coordinates one edit session.
type Launcher struct {
	logger        *slog.Logger
	out           io.Writer
	editor        []string
	viewer        string
	createMissing bool
	debounce      time.Duration

	start     StartFunc
	watch     WatchFunc
	runEditor EditorFunc
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Launcher) {
		l.logger = logger
	}
}

// WithOutput sets where user notices, such as a created file, are printed.
func WithOutput(w io.Writer) Option {
	return func(l *Launcher) {
		l.out = w
	}
}

// WithEditor sets the editor command line.
func WithEditor(editor []string) Option {
	return func(l *Launcher) {
		l.editor = editor
	}
}

// WithViewer sets the viewer binary.
func WithViewer(viewer string) Option {
	return func(l *Launcher) {
		l.viewer = viewer
	}
}

// WithCreateMissing controls whether a missing target file is created.
func WithCreateMissing(create bool) Option {
	return func(l *Launcher) {
		l.createMissing = create
	}
}

// WithDebounce sets the window over which file events are coalesced.
func WithDebounce(d time.Duration) Option {
	return func(l *Launcher) {
		l.debounce = d
	}
}

// WithStarter replaces how the viewer process is started.
func WithStarter(start StartFunc) Option {
	return func(l *Launcher) {
		l.start = start
	}
}

// WithWatcher replaces how the target file is watched.
func WithWatcher(watch WatchFunc) Option {
	return func(l *Launcher) {
		l.watch = watch
	}
}

// WithEditorRunner replaces how the editor is run.
func WithEditorRunner(run EditorFunc) Option {
	return func(l *Launcher) {
		l.runEditor = run
	}
}

// New returns a Launcher. Without options it creates missing files, runs
// the editor from the environment and finds markview next to itself or on
// PATH.
func New(opts ...Option) *Launcher {
	l := &Launcher{
		createMissing: true,
		debounce:      50 * time.Millisecond,
		start:         StartViewer,
		watch:         watchFile,
		runEditor:     RunEditor,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.out == nil {
		l.out = os.Stdout
	}
	if len(l.editor) == 0 {
		l.editor = ResolveEditor("", os.Getenv)
	}
	return l
}

func watchFile(path string, target Reloader, debounce time.Duration, logger *slog.Logger) (Stopper, error) {
	w, err := Watch(path, target, debounce, logger)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Run edits path until the editor exits. The file is validated before
// anything is spawned, and only validation and viewer launch failures are
// returned. Once the viewer runs, the session always ends with the watcher
// stopped and the viewer's process group killed and reaped.
func (l *Launcher) Run(path string) error {
	created, err := EnsureFile(path, l.createMissing)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(l.out, "Created new file: %s\n", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrIO, err)
	}

	viewer, err := ResolveViewer(l.viewer)
	if err != nil {
		return err
	}
	proc, err := l.start(viewer, abs)
	if err != nil {
		return err
	}
	l.logger.Debug("viewer started", slog.Int("pid", proc.Pid()), slog.String("path", abs))

	watcher, err := l.watch(abs, proc, l.debounce, l.logger)
	if err != nil {
		l.logger.Warn("failed to watch file", slog.String("path", abs), slog.String("error", err.Error()))
		l.teardown(nil, proc)
		return nil
	}

	if err := l.runEditor(l.editor, abs); err != nil {
		l.logger.Warn("editor failed", slog.String("error", err.Error()))
	}
	l.teardown(watcher, proc)
	return nil
}

// teardown stops the watcher before killing the viewer, so no reload signal
// can reach a process that is being reaped.
func (l *Launcher) teardown(watcher Stopper, proc ViewerProcess) {
	if watcher != nil {
		watcher.Stop()
	}
	if err := proc.TerminateTree(); err != nil {
		l.logger.Warn("failed to terminate viewer", slog.String("error", err.Error()))
	}
	if err := proc.Wait(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			l.logger.Warn("failed to reap viewer", slog.String("error", err.Error()))
		}
	}
}
