// Package serialgen drives a SCPI arbitrary waveform generator over a serial line.
//
// The command set follows the Keysight 33500 family: arbitrary-function mode,
// triggered bursts, and sequences for repeated playback. Samples are sent as
// little-endian float32 binary blocks.
package serialgen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/bft-labs/scanwave/internal/ports"
)

// DefaultBaudRate is the line speed used when none is configured.
const DefaultBaudRate = 115200

// commandTimeout bounds reads of ordinary query responses.
const commandTimeout = 2 * time.Second

// Channel-level names used on the instrument.
const (
	segmentName  = "SCANWAVE"
	sequenceName = "SCANSEQ"
)

// Port is the part of a serial port the generator uses.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// Config selects the serial line.
type Config struct {
	PortName string
	BaudRate int
}

// Generator is one session with the instrument.
type Generator struct {
	port    Port
	logger  ports.Logger
	pending []byte

	mu         sync.Mutex
	cfg        ports.DeviceConfig
	armed      bool
	started    bool
	running    bool
	opcPending bool
	waveforms  map[string]int
	closed     bool
}

// Open opens the serial line and resets the instrument.
func Open(ctx context.Context, cfg Config, logger ports.Logger) (*Generator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.PortName == "" {
		return nil, errors.New("serialgen: no serial port configured")
	}
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultBaudRate
	}

	port, err := serial.Open(cfg.PortName, &serial.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("serialgen: open %s: %w", cfg.PortName, err)
	}

	g, err := New(port, logger)
	if err != nil {
		port.Close()
		return nil, err
	}
	logger.Debug("generator session opened",
		ports.String("port", cfg.PortName),
		ports.Int("baud", cfg.BaudRate),
	)
	return g, nil
}

// New starts a session on an already open port.
func New(port Port, logger ports.Logger) (*Generator, error) {
	g := &Generator{
		port:      port,
		logger:    logger,
		waveforms: make(map[string]int),
	}
	if err := port.ResetInputBuffer(); err != nil {
		return nil, fmt.Errorf("serialgen: reset input: %w", err)
	}
	if err := g.send("*RST", "*CLS", "FORM:BORD SWAP"); err != nil {
		return nil, err
	}
	return g, nil
}

// TriggeredOpener returns an opener for triggered streaming sessions.
func TriggeredOpener(cfg Config, logger ports.Logger) ports.TriggeredOpener {
	return func(ctx context.Context) (ports.TriggeredOutput, error) {
		return Open(ctx, cfg, logger)
	}
}

// ScriptedOpener returns an opener for chunk playback sessions.
func ScriptedOpener(cfg Config, logger ports.Logger) ports.ScriptedOpener {
	return func(ctx context.Context) (ports.ScriptedOutput, error) {
		return Open(ctx, cfg, logger)
	}
}

// Configure selects arbitrary-function mode at the given sample rate. Finite
// output is a burst of one waveform cycle per trigger.
func (g *Generator) Configure(cfg ports.DeviceConfig) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.idle(); err != nil {
		return err
	}
	if cfg.SampleRate <= 0 {
		return fmt.Errorf("serialgen: sample rate %g must be positive", cfg.SampleRate)
	}

	cmds := []string{
		"SOUR1:FUNC ARB",
		fmt.Sprintf("SOUR1:FUNC:ARB:SRAT %g", cfg.SampleRate),
	}
	if cfg.Finite {
		cmds = append(cmds,
			"SOUR1:BURS:MODE TRIG",
			"SOUR1:BURS:NCYC 1",
			"SOUR1:BURS:STAT ON",
		)
	} else {
		cmds = append(cmds, "SOUR1:BURS:STAT OFF")
	}
	if err := g.send(cmds...); err != nil {
		return err
	}
	g.cfg = cfg
	return g.checkError()
}

// ArmRetriggerableStart starts each burst on an edge of the external trigger.
// A burst-mode instrument re-arms after every burst.
func (g *Generator) ArmRetriggerableStart(source string, edge ports.Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.idle(); err != nil {
		return err
	}
	if err := g.send(
		"TRIG1:SOUR "+triggerSource(source),
		"TRIG1:SLOP "+slope(edge == ports.EdgeRising),
	); err != nil {
		return err
	}
	g.armed = true
	return g.checkError()
}

// Write loads samples as the active arbitrary waveform.
func (g *Generator) Write(samples []float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.idle(); err != nil {
		return err
	}
	if err := g.send("SOUR1:DATA:VOL:CLE"); err != nil {
		return err
	}
	if err := g.sendBlock("SOUR1:DATA:ARB "+segmentName+",", Block(samples)); err != nil {
		return err
	}
	if err := g.send("SOUR1:FUNC:ARB " + segmentName); err != nil {
		return err
	}
	return g.checkError()
}

// AllocateWaveform reserves a named segment of n samples.
func (g *Generator) AllocateWaveform(name string, n int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.idle(); err != nil {
		return err
	}
	if n <= 0 {
		return fmt.Errorf("serialgen: waveform %q needs a positive length", name)
	}
	if len(g.waveforms) == 0 {
		if err := g.send("SOUR1:DATA:VOL:CLE"); err != nil {
			return err
		}
	}
	g.waveforms[name] = n
	return nil
}

// WriteWaveform downloads samples into a named segment.
func (g *Generator) WriteWaveform(name string, samples []float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.idle(); err != nil {
		return err
	}
	n, ok := g.waveforms[name]
	if !ok {
		return fmt.Errorf("serialgen: waveform %q not allocated", name)
	}
	if len(samples) > n {
		return fmt.Errorf("serialgen: waveform %q holds %d samples, got %d", name, n, len(samples))
	}
	if err := g.sendBlock(fmt.Sprintf("SOUR1:DATA:ARB %s,", strings.ToUpper(name)), Block(samples)); err != nil {
		return err
	}
	return g.checkError()
}

// WriteScript installs a sequence playing the named segment repeat times and
// selects it.
func (g *Generator) WriteScript(name string, repeat int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.idle(); err != nil {
		return err
	}
	if _, ok := g.waveforms[name]; !ok {
		return fmt.Errorf("serialgen: script references unknown waveform %q", name)
	}
	if repeat <= 0 {
		return fmt.Errorf("serialgen: repeat count %d must be positive", repeat)
	}

	seq := fmt.Sprintf(`"%s","%s",%d,repeat,maintain,4`, sequenceName, strings.ToUpper(name), repeat)
	if err := g.sendBlock("SOUR1:DATA:SEQ ", TextBlock(seq)); err != nil {
		return err
	}
	if err := g.send("SOUR1:FUNC:ARB " + sequenceName); err != nil {
		return err
	}
	return g.checkError()
}

// Start enables the output. Without an armed trigger the burst starts at once.
func (g *Generator) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return io.ErrClosedPipe
	}
	if g.running {
		return nil
	}
	if !g.armed {
		if err := g.send("TRIG1:SOUR IMM"); err != nil {
			return err
		}
	}
	if err := g.send("OUTP1 ON"); err != nil {
		return err
	}
	g.started = true
	g.running = true
	g.opcPending = false
	return nil
}

// WaitUntilDone waits for the instrument to report operation complete.
// A timed out query stays pending and the next call keeps waiting for it.
func (g *Generator) WaitUntilDone(timeout time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return io.ErrClosedPipe
	}
	if !g.started {
		return ports.ErrTaskNotArmed
	}
	if !g.opcPending {
		if err := g.send("*OPC?"); err != nil {
			return err
		}
		g.opcPending = true
	}

	line, err := g.readLine(timeout)
	if err != nil {
		return err
	}
	g.opcPending = false
	if line != "1" {
		return fmt.Errorf("serialgen: unexpected *OPC? response %q", line)
	}
	return nil
}

// Stop disables the output and discards unread responses.
func (g *Generator) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed || !g.running {
		return nil
	}
	g.running = false
	if err := g.send("OUTP1 OFF", "ABOR"); err != nil {
		return err
	}
	g.opcPending = false
	g.pending = nil
	return g.port.ResetInputBuffer()
}

// Close releases the serial line.
func (g *Generator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true
	return g.port.Close()
}

// idle rejects commands while closed or running. Callers hold mu.
func (g *Generator) idle() error {
	if g.closed {
		return io.ErrClosedPipe
	}
	if g.running {
		return ports.ErrDeviceBusy
	}
	return nil
}

// send writes newline-terminated commands. Callers hold mu.
func (g *Generator) send(cmds ...string) error {
	for _, cmd := range cmds {
		if _, err := io.WriteString(g.port, cmd+"\n"); err != nil {
			return fmt.Errorf("serialgen: send %q: %w", cmd, err)
		}
	}
	return nil
}

// sendBlock writes a header followed by a binary block. Callers hold mu.
func (g *Generator) sendBlock(header string, block []byte) error {
	buf := make([]byte, 0, len(header)+len(block)+1)
	buf = append(buf, header...)
	buf = append(buf, block...)
	buf = append(buf, '\n')
	if _, err := g.port.Write(buf); err != nil {
		return fmt.Errorf("serialgen: send block: %w", err)
	}
	return nil
}

// query sends cmd and reads one response line. Callers hold mu.
func (g *Generator) query(cmd string) (string, error) {
	if err := g.send(cmd); err != nil {
		return "", err
	}
	line, err := g.readLine(commandTimeout)
	if errors.Is(err, ports.ErrWaitTimeout) {
		return "", fmt.Errorf("serialgen: no response to %q", cmd)
	}
	return line, err
}

// checkError reads the instrument error queue. Callers hold mu.
func (g *Generator) checkError() error {
	resp, err := g.query("SYST:ERR?")
	if err != nil {
		return err
	}
	code, msg, err := ParseError(resp)
	if err != nil {
		return fmt.Errorf("serialgen: %w", err)
	}
	if code != 0 {
		return fmt.Errorf("serialgen: instrument error %d: %s", code, msg)
	}
	return nil
}

// readLine reads up to a newline within timeout. A read that returns no
// data means the port timed out; bytes after the newline are kept for the
// next call. Callers hold mu.
func (g *Generator) readLine(timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, 64)
	for {
		if i := bytes.IndexByte(g.pending, '\n'); i >= 0 {
			line := string(g.pending[:i])
			g.pending = g.pending[i+1:]
			return strings.TrimSpace(line), nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", ports.ErrWaitTimeout
		}
		if err := g.port.SetReadTimeout(remaining); err != nil {
			return "", fmt.Errorf("serialgen: set read timeout: %w", err)
		}

		n, err := g.port.Read(buf)
		g.pending = append(g.pending, buf[:n]...)
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("serialgen: read: %w", err)
		}
	}
}
