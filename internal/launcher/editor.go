package launcher

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"

	"github.com/razvandimescu/markview/internal/apperr"
)

const defaultEditor = "vim"

// EditorFunc runs an editor on path and blocks until it exits.
type EditorFunc func(editor []string, path string) error

// ResolveEditor returns the editor command line: configured when set, else
// $VISUAL, else $EDITOR, else vim. The value is split on whitespace.
func ResolveEditor(configured string, getenv func(string) string) []string {
	for _, candidate := range []string{configured, getenv("VISUAL"), getenv("EDITOR")} {
		if fields := strings.Fields(candidate); len(fields) > 0 {
			return fields
		}
	}
	return []string{defaultEditor}
}

// RunEditor runs editor on path attached to the terminal. Interrupts are
// left to the editor while it runs, and its exit status is ignored: however
// the editor ends, the edit session is over.
func RunEditor(editor []string, path string) error {
	if len(editor) == 0 {
		return fmt.Errorf("%w: no editor configured", apperr.ErrInvalidInput)
	}

	args := append(append([]string(nil), editor[1:]...), path)
	cmd := exec.Command(editor[0], args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start editor %s: %w", apperr.ErrLaunchFailure, editor[0], err)
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	for {
		select {
		case <-interrupts:
			// The terminal delivers the interrupt to the editor as well.
		case err := <-waitErr:
			var exitErr *exec.ExitError
			if err != nil && !errors.As(err, &exitErr) {
				return fmt.Errorf("wait for editor: %w", err)
			}
			return nil
		}
	}
}
