// Package apperr defines the error kinds shared by the viewer and the launcher.
package apperr

import "errors"

var (
	// ErrInvalidInput is returned when the target path is not a Markdown file.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when the target file does not exist and may not be created.
	ErrNotFound = errors.New("not found")
	// ErrLaunchFailure is returned when the viewer process could not be started.
	ErrLaunchFailure = errors.New("launch failure")
	// ErrIO is returned when the target file cannot be read at render time.
	ErrIO = errors.New("i/o failure")
)
