// Package sim provides an in-memory signal generator.
//
// A Device implements both the triggered and the scripted output capability
// sets. Output is recorded instead of generated, which makes it usable as a
// dry-run target from the CLI and as a test double.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/scanwave/internal/ports"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("sim: device closed")

// Option configures a Device.
type Option func(*Device)

// WithAutoTrigger fires a trigger every interval while a session is open.
func WithAutoTrigger(interval time.Duration) Option {
	return func(d *Device) {
		d.autoInterval = interval
	}
}

// Device is a simulated generator. Recorded writes and outputs survive
// across sessions; configuration does not.
type Device struct {
	autoInterval time.Duration

	mu          sync.Mutex
	open        bool
	sessions    int
	cfg         ports.DeviceConfig
	armed       bool
	source      string
	edge        ports.Edge
	started     bool
	running     bool
	completions int
	buffer      []float64
	waveforms   map[string][]float64
	script      string
	repeat      int
	notify      chan struct{}
	stopAuto    chan struct{}
	autoDone    chan struct{}

	writes  [][]float64
	outputs [][]float64
	missed  int
}

// New creates a simulated generator.
func New(opts ...Option) *Device {
	d := &Device{notify: make(chan struct{})}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// TriggeredOpener returns an opener that opens a session on d.
func (d *Device) TriggeredOpener() ports.TriggeredOpener {
	return func(ctx context.Context) (ports.TriggeredOutput, error) {
		if err := d.Open(ctx); err != nil {
			return nil, err
		}
		return d, nil
	}
}

// ScriptedOpener returns an opener that opens a session on d.
func (d *Device) ScriptedOpener() ports.ScriptedOpener {
	return func(ctx context.Context) (ports.ScriptedOutput, error) {
		if err := d.Open(ctx); err != nil {
			return nil, err
		}
		return d, nil
	}
}

// Open starts a new session with a cleared configuration.
func (d *Device) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		return fmt.Errorf("sim: %w", ports.ErrDeviceBusy)
	}
	d.open = true
	d.sessions++
	d.cfg = ports.DeviceConfig{}
	d.armed = false
	d.started = false
	d.running = false
	d.completions = 0
	d.buffer = nil
	d.waveforms = make(map[string][]float64)
	d.script = ""
	d.repeat = 0

	if d.autoInterval > 0 {
		d.stopAuto = make(chan struct{})
		d.autoDone = make(chan struct{})
		go d.autoTrigger(d.autoInterval, d.stopAuto, d.autoDone)
	}
	return nil
}

func (d *Device) autoTrigger(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			d.Trigger()
		}
	}
}

// Configure sets the sample clock.
func (d *Device) Configure(cfg ports.DeviceConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.usable(); err != nil {
		return err
	}
	if cfg.SampleRate <= 0 {
		return fmt.Errorf("sim: sample rate %g must be positive", cfg.SampleRate)
	}
	if cfg.Finite && cfg.SamplesPerSegment <= 0 {
		return fmt.Errorf("sim: finite output needs a positive segment length")
	}
	d.cfg = cfg
	return nil
}

// ArmRetriggerableStart makes each Start wait for Trigger.
func (d *Device) ArmRetriggerableStart(source string, edge ports.Edge) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.usable(); err != nil {
		return err
	}
	d.armed = true
	d.source = source
	d.edge = edge
	return nil
}

// Write loads the output buffer.
func (d *Device) Write(samples []float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.usable(); err != nil {
		return err
	}
	if d.cfg.Finite && len(samples) != d.cfg.SamplesPerSegment {
		return fmt.Errorf("sim: wrote %d samples, segment is %d", len(samples), d.cfg.SamplesPerSegment)
	}
	d.buffer = append([]float64(nil), samples...)
	d.writes = append(d.writes, d.buffer)
	return nil
}

// AllocateWaveform reserves a named buffer of n samples.
func (d *Device) AllocateWaveform(name string, n int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.usable(); err != nil {
		return err
	}
	if n <= 0 {
		return fmt.Errorf("sim: waveform %q needs a positive length", name)
	}
	d.waveforms[name] = make([]float64, n)
	return nil
}

// WriteWaveform fills a named buffer.
func (d *Device) WriteWaveform(name string, samples []float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.usable(); err != nil {
		return err
	}
	buf, ok := d.waveforms[name]
	if !ok {
		return fmt.Errorf("sim: waveform %q not allocated", name)
	}
	if len(samples) > len(buf) {
		return fmt.Errorf("sim: waveform %q holds %d samples, got %d", name, len(buf), len(samples))
	}
	copy(buf, samples)
	d.writes = append(d.writes, append([]float64(nil), samples...))
	return nil
}

// WriteScript plays the named buffer repeat times on Start.
func (d *Device) WriteScript(name string, repeat int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.usable(); err != nil {
		return err
	}
	if _, ok := d.waveforms[name]; !ok {
		return fmt.Errorf("sim: script references unknown waveform %q", name)
	}
	if repeat <= 0 {
		return fmt.Errorf("sim: repeat count %d must be positive", repeat)
	}
	d.script = name
	d.repeat = repeat
	return nil
}

// Start starts the task. Unarmed scripted output completes at once.
func (d *Device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return nil
	}
	if !d.open {
		return ErrClosed
	}
	d.started = true
	d.running = true
	d.completions = 0

	if !d.armed && d.script != "" {
		d.emit(d.scriptOutput())
	}
	return nil
}

// WaitUntilDone blocks until an output completed since the last Start.
func (d *Device) WaitUntilDone(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		d.mu.Lock()
		switch {
		case !d.open:
			d.mu.Unlock()
			return ErrClosed
		case !d.started:
			d.mu.Unlock()
			return ports.ErrTaskNotArmed
		case d.completions > 0:
			d.mu.Unlock()
			return nil
		}
		ch := d.notify
		d.mu.Unlock()

		select {
		case <-ch:
		case <-timer.C:
			return ports.ErrWaitTimeout
		}
	}
}

// Stop halts the task.
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.running = false
	d.completions = 0
	return nil
}

// Close ends the session.
func (d *Device) Close() error {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return nil
	}
	d.open = false
	d.running = false
	stop, done := d.stopAuto, d.autoDone
	d.stopAuto, d.autoDone = nil, nil
	d.broadcast()
	d.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}

// Trigger simulates one external trigger edge. A trigger while the task is
// not running is counted as missed.
func (d *Device) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open || !d.running || !d.armed {
		d.missed++
		return
	}
	if d.script != "" {
		d.emit(d.scriptOutput())
		return
	}
	d.emit(append([]float64(nil), d.buffer...))
}

// emit records one completed output. Callers hold mu.
func (d *Device) emit(out []float64) {
	d.outputs = append(d.outputs, out)
	d.completions++
	d.broadcast()
}

// broadcast wakes every waiter. Callers hold mu.
func (d *Device) broadcast() {
	close(d.notify)
	d.notify = make(chan struct{})
}

func (d *Device) scriptOutput() []float64 {
	wf := d.waveforms[d.script]
	out := make([]float64, 0, len(wf)*d.repeat)
	for i := 0; i < d.repeat; i++ {
		out = append(out, wf...)
	}
	return out
}

// usable rejects reconfiguration of a closed or running task. Callers hold mu.
func (d *Device) usable() error {
	if !d.open {
		return ErrClosed
	}
	if d.running {
		return ports.ErrDeviceBusy
	}
	return nil
}

// Writes returns copies of every buffer written, in order.
func (d *Device) Writes() [][]float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return clone(d.writes)
}

// Outputs returns every completed output, in order.
func (d *Device) Outputs() [][]float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return clone(d.outputs)
}

// Sessions returns how many sessions were opened.
func (d *Device) Sessions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessions
}

// Missed returns how many triggers arrived while the task was not running.
func (d *Device) Missed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.missed
}

// TriggerSource returns the armed trigger source and edge.
func (d *Device) TriggerSource() (string, ports.Edge, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.source, d.edge, d.armed
}

// IsOpen reports whether a session is open.
func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

func clone(in [][]float64) [][]float64 {
	out := make([][]float64, len(in))
	for i, s := range in {
		out[i] = append([]float64(nil), s...)
	}
	return out
}
