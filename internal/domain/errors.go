package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions in the scanwave domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrConfiguration is returned when parameters cannot produce an exact
	// waveform: inexact samples-per-pixel division, image width mismatch, or
	// a sync pulse that does not fit in its segment.
	ErrConfiguration = errors.New("scanwave: invalid configuration")

	// ErrEmptyInput is returned when no source images are found.
	ErrEmptyInput = errors.New("scanwave: no input images")

	// ErrNoValidChunk is returned when no chunk size can divide the waveform file.
	ErrNoValidChunk = errors.New("scanwave: no valid chunk")

	// ErrAlreadyRunning is returned when Start() is called on a running pipeline.
	ErrAlreadyRunning = errors.New("scanwave: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped pipeline.
	ErrNotRunning = errors.New("scanwave: not running")

	// ErrShutdownTimeout is returned when a worker does not exit within its grace period.
	ErrShutdownTimeout = errors.New("scanwave: shutdown timeout")
)

// ShapeError reports a bitmap whose width differs from the configured
// pixels per row. It matches ErrConfiguration under errors.Is.
type ShapeError struct {
	Path     string
	Expected int
	Actual   int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("scanwave: %s: width %d, expected %d pixels per row", e.Path, e.Actual, e.Expected)
}

// Is reports ErrConfiguration as the error class.
func (e *ShapeError) Is(target error) bool {
	return target == ErrConfiguration
}
