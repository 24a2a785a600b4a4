package cliconfig

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/scanwave/internal/domain"
	"github.com/bft-labs/scanwave/internal/ports"
)

// Default values shared by the CLI and the config file.
const (
	DefaultOutput            = "waveform_output.bin"
	DefaultPixelsPerRow      = 120
	DefaultCycleDuration     = 60 * time.Microsecond
	DefaultSampleRate        = 100e6
	DefaultMaxChunkSize      = 10 << 20
	DefaultSamplesPerTrigger = 126
	DefaultQueueCapacity     = 20
	DefaultPulseDuration     = 5 * time.Microsecond
	DefaultPulseAmplitude    = 5.0
	DefaultTriggerSource     = "/PXI1Slot2/PFI0"
	DefaultTriggerEdge       = "falling"
	DefaultBaudRate          = 115200
)

// Device kinds.
const (
	DeviceSim    = "sim"
	DeviceSerial = "serial"
)

// Config holds CLI configuration for scanwave.
type Config struct {
	ImageDir string
	Output   string

	PixelsPerRow  int
	CycleDuration time.Duration
	SampleRate    float64
	Serpentine    bool

	MaxChunkSize int64

	SamplesPerTrigger int
	QueueCapacity     int
	TotalBursts       int

	SyncPulse      bool
	PulseDuration  time.Duration
	PulseAmplitude float64

	TriggerSource string
	TriggerEdge   string

	Device             string
	DevicePort         string
	BaudRate           int
	SimTriggerInterval time.Duration

	EnqueueTimeout time.Duration
	DequeueTimeout time.Duration
	WaitTimeout    time.Duration
	PrimeTimeout   time.Duration
	JoinTimeout    time.Duration
	ProducerYield  time.Duration

	StateDir string

	// Edge is TriggerEdge parsed by Validate
	Edge ports.Edge `json:"-"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Output:             DefaultOutput,
		PixelsPerRow:       DefaultPixelsPerRow,
		CycleDuration:      DefaultCycleDuration,
		SampleRate:         DefaultSampleRate,
		Serpentine:         true,
		MaxChunkSize:       DefaultMaxChunkSize,
		SamplesPerTrigger:  DefaultSamplesPerTrigger,
		QueueCapacity:      DefaultQueueCapacity,
		SyncPulse:          true,
		PulseDuration:      DefaultPulseDuration,
		PulseAmplitude:     DefaultPulseAmplitude,
		TriggerSource:      DefaultTriggerSource,
		TriggerEdge:        DefaultTriggerEdge,
		Device:             DeviceSim,
		BaudRate:           DefaultBaudRate,
		SimTriggerInterval: time.Millisecond,
		EnqueueTimeout:     100 * time.Millisecond,
		DequeueTimeout:     time.Second,
		WaitTimeout:        time.Second,
		PrimeTimeout:       5 * time.Second,
		JoinTimeout:        2 * time.Second,
		ProducerYield:      100 * time.Microsecond,
		StateDir:           "", // Derived from Output during Validate
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Output == "" {
		return fmt.Errorf("%w: output is required", domain.ErrConfiguration)
	}

	positive := []struct {
		name string
		ok   bool
	}{
		{"pixels-per-row", c.PixelsPerRow > 0},
		{"cycle-duration", c.CycleDuration > 0},
		{"sample-rate", c.SampleRate > 0},
		{"max-chunk-size", c.MaxChunkSize > 0},
		{"samples-per-trigger", c.SamplesPerTrigger > 0},
		{"queue-capacity", c.QueueCapacity > 0},
		{"pulse-duration", c.PulseDuration > 0},
		{"enqueue-timeout", c.EnqueueTimeout > 0},
		{"dequeue-timeout", c.DequeueTimeout > 0},
		{"wait-timeout", c.WaitTimeout > 0},
		{"prime-timeout", c.PrimeTimeout > 0},
		{"join-timeout", c.JoinTimeout > 0},
	}
	for _, p := range positive {
		if !p.ok {
			return fmt.Errorf("%w: %s must be positive", domain.ErrConfiguration, p.name)
		}
	}
	if c.TotalBursts < 0 {
		return fmt.Errorf("%w: bursts must not be negative", domain.ErrConfiguration)
	}
	if c.ProducerYield < 0 {
		return fmt.Errorf("%w: producer-yield must not be negative", domain.ErrConfiguration)
	}

	edge, err := ports.ParseEdge(c.TriggerEdge)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	c.Edge = edge

	c.Device = strings.ToLower(strings.TrimSpace(c.Device))
	switch c.Device {
	case DeviceSim:
		if c.SimTriggerInterval <= 0 {
			return fmt.Errorf("%w: sim-trigger-interval must be positive", domain.ErrConfiguration)
		}
	case DeviceSerial:
		if c.DevicePort == "" {
			return fmt.Errorf("%w: device-port is required for the serial device", domain.ErrConfiguration)
		}
		if c.BaudRate <= 0 {
			return fmt.Errorf("%w: baud-rate must be positive", domain.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown device %q (want %s or %s)", domain.ErrConfiguration, c.Device, DeviceSim, DeviceSerial)
	}

	if c.StateDir == "" {
		c.StateDir = filepath.Dir(c.Output)
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt64 sets an int64 value if positive and flag not changed.
func (s *configSetter) setInt64(flag string, value int64, dst *int64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i < 0 {
		return nil
	}
	*dst = i
	return nil
}

// setInt64FromString parses a string to int64 and sets the destination if positive.
func (s *configSetter) setInt64FromString(flag, value string, dst *int64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
