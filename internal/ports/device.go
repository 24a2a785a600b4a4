package ports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Device errors. Adapters wrap their vendor errors so they match these with errors.Is.
var (
	// ErrTaskNotArmed is returned when waiting on a task that has not been started yet.
	ErrTaskNotArmed = errors.New("device: task not armed")

	// ErrWaitTimeout is returned when WaitUntilDone expires before the output completes.
	ErrWaitTimeout = errors.New("device: wait timeout")

	// ErrDeviceBusy is returned when samples are written while the task is running.
	ErrDeviceBusy = errors.New("device: write while running")
)

// IsTransient reports whether err is a device condition that is retried locally
// rather than treated as fatal.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTaskNotArmed) || errors.Is(err, ErrWaitTimeout)
}

// Edge selects the trigger edge of an external start trigger.
type Edge int

const (
	EdgeRising Edge = iota
	EdgeFalling
)

// String returns the lowercase name of the edge.
func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	default:
		return "unknown"
	}
}

// ParseEdge parses "rising" or "falling" (case-insensitive).
func ParseEdge(s string) (Edge, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rising", "rise", "pos", "positive":
		return EdgeRising, nil
	case "falling", "fall", "neg", "negative":
		return EdgeFalling, nil
	default:
		return EdgeRising, fmt.Errorf("unknown trigger edge %q", s)
	}
}

// DeviceConfig describes the sample clock of an output task.
type DeviceConfig struct {
	SampleRate float64

	// SamplesPerSegment is the number of samples generated per start (finite mode)
	SamplesPerSegment int

	// Finite selects finite generation; false means continuous regeneration
	Finite bool
}

// Device is the lifecycle shared by every generator session.
type Device interface {
	// Configure sets the sample clock. Only valid while stopped.
	Configure(cfg DeviceConfig) error

	// Start arms or starts the output task.
	Start() error

	// WaitUntilDone blocks until the current output completes.
	// Returns ErrWaitTimeout if the timeout expires first and
	// ErrTaskNotArmed if the task was never started.
	WaitUntilDone(timeout time.Duration) error

	// Stop halts the output task. Stopping a stopped task is a no-op.
	Stop() error

	// Close releases the device handle.
	Close() error
}

// TriggeredOutput is a device that re-arms after each finite output and waits
// for the next external trigger edge.
type TriggeredOutput interface {
	Device

	// ArmRetriggerableStart configures an edge-sensitive, retriggerable start trigger.
	ArmRetriggerableStart(source string, edge Edge) error

	// Write loads one segment into the output buffer. Only valid while stopped.
	Write(samples []float64) error
}

// ScriptedOutput is a device that plays named on-board waveform buffers from a script.
type ScriptedOutput interface {
	Device

	// AllocateWaveform reserves a named on-board buffer of n samples.
	AllocateWaveform(name string, n int) error

	// WriteWaveform fills a named buffer.
	WriteWaveform(name string, samples []float64) error

	// WriteScript installs a script that plays the named buffer repeat times.
	WriteScript(name string, repeat int) error
}

// TriggeredOpener opens a fresh triggered-output session.
type TriggeredOpener func(ctx context.Context) (TriggeredOutput, error)

// ScriptedOpener opens a fresh scripted-output session.
type ScriptedOpener func(ctx context.Context) (ScriptedOutput, error)
