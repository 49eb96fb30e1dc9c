package window

import (
	"log/slog"
	"os/exec"
	"runtime"
)

// browserCommand returns the command opening url in the default browser.
func browserCommand(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "cmd", []string{"/c", "start", url}
	default:
		return "xdg-open", []string{url}
	}
}

func openURL(logger *slog.Logger, url string) {
	name, args := browserCommand(runtime.GOOS, url)
	cmd := exec.Command(name, args...)
	detach(cmd)
	if err := cmd.Start(); err != nil {
		logger.Warn("failed to open browser", slog.String("url", url), slog.String("error", err.Error()))
		return
	}
	// Reap the opener without blocking the caller.
	go func() { _ = cmd.Wait() }()
}
