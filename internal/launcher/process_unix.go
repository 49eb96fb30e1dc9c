//go:build unix

package launcher

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/razvandimescu/markview/internal/apperr"
)

type process struct {
	cmd *exec.Cmd

	killOnce sync.Once
	killErr  error
	waitOnce sync.Once
	waitErr  error
}

// StartViewer runs viewer on path in a new session, so the viewer and its
// children form one process group led by the viewer. Standard streams are
// detached from the terminal.
func StartViewer(viewer, path string) (ViewerProcess, error) {
	cmd := exec.Command(viewer, path)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrLaunchFailure, err)
	}

	p := &process{cmd: cmd}
	if err := unix.Kill(cmd.Process.Pid, 0); err != nil {
		_ = p.Wait()
		return nil, fmt.Errorf("%w: viewer exited immediately: %w", apperr.ErrLaunchFailure, err)
	}
	return p, nil
}

func (p *process) Pid() int {
	return p.cmd.Process.Pid
}

func (p *process) Reload() error {
	return unix.Kill(p.Pid(), unix.SIGHUP)
}

func (p *process) TerminateTree() error {
	p.killOnce.Do(func() {
		// The viewer leads its own session, so its pid is the group id.
		err := unix.Kill(-p.Pid(), unix.SIGKILL)
		if err != nil && !errors.Is(err, unix.ESRCH) {
			p.killErr = fmt.Errorf("kill viewer group %d: %w", p.Pid(), err)
		}
	})
	return p.killErr
}

func (p *process) Wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
	})
	return p.waitErr
}
