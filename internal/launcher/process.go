package launcher

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/razvandimescu/markview/internal/apperr"
)

// viewerBinary is the name of the viewer executable.
const viewerBinary = "markview"

// ViewerProcess is a running viewer.
type ViewerProcess interface {
	Pid() int
	// Reload asks the viewer to re-render its file.
	Reload() error
	// TerminateTree kills the viewer and everything it spawned. Calling it
	// more than once has no further effect.
	TerminateTree() error
	// Wait reaps the viewer.
	Wait() error
}

// StartFunc starts a viewer binary rendering path.
type StartFunc func(viewer, path string) (ViewerProcess, error)

// ResolveViewer returns the viewer binary to run: configured when set, else
// a markview next to the running executable, else markview from PATH.
func ResolveViewer(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if exe, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exe), viewerBinary)
		if info, err := os.Stat(sibling); err == nil && !info.IsDir() {
			return sibling, nil
		}
	}
	path, err := exec.LookPath(viewerBinary)
	if err != nil {
		return "", fmt.Errorf("%w: %s not found: %w", apperr.ErrLaunchFailure, viewerBinary, err)
	}
	return path, nil
}
