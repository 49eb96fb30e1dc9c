//go:build unix

package window

import (
	"os/exec"
	"syscall"
)

// detach starts cmd in its own session. A browser launched by the opener
// must not share the viewer's process group, which is killed as a whole
// when the edit session ends.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
