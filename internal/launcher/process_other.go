//go:build !unix

package launcher

import (
	"fmt"
	"runtime"

	"github.com/razvandimescu/markview/internal/apperr"
)

// StartViewer is not supported without process groups.
func StartViewer(viewer, path string) (ViewerProcess, error) {
	return nil, fmt.Errorf("%w: unsupported platform %s", apperr.ErrLaunchFailure, runtime.GOOS)
}
