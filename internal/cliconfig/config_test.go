package cliconfig

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bft-labs/scanwave/internal/domain"
	"github.com/bft-labs/scanwave/internal/ports"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.PixelsPerRow != 120 {
		t.Errorf("PixelsPerRow = %v, want 120", cfg.PixelsPerRow)
	}
	if cfg.CycleDuration != 60*time.Microsecond {
		t.Errorf("CycleDuration = %v, want 60µs", cfg.CycleDuration)
	}
	if cfg.SampleRate != 100e6 {
		t.Errorf("SampleRate = %v, want 100e6", cfg.SampleRate)
	}
	if cfg.MaxChunkSize != 10<<20 {
		t.Errorf("MaxChunkSize = %v, want 10MiB", cfg.MaxChunkSize)
	}
	if cfg.SamplesPerTrigger != 126 || cfg.QueueCapacity != 20 {
		t.Errorf("SamplesPerTrigger/QueueCapacity = %v/%v, want 126/20", cfg.SamplesPerTrigger, cfg.QueueCapacity)
	}
	if !cfg.Serpentine || !cfg.SyncPulse {
		t.Error("Serpentine and SyncPulse should default to true")
	}
	if cfg.Device != DeviceSim {
		t.Errorf("Device = %v, want sim", cfg.Device)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero bursts allowed", func(c *Config) { c.TotalBursts = 0 }, false},
		{"missing output", func(c *Config) { c.Output = "" }, true},
		{"zero pixels per row", func(c *Config) { c.PixelsPerRow = 0 }, true},
		{"zero cycle", func(c *Config) { c.CycleDuration = 0 }, true},
		{"negative sample rate", func(c *Config) { c.SampleRate = -1 }, true},
		{"zero max chunk", func(c *Config) { c.MaxChunkSize = 0 }, true},
		{"zero queue capacity", func(c *Config) { c.QueueCapacity = 0 }, true},
		{"negative bursts", func(c *Config) { c.TotalBursts = -1 }, true},
		{"negative producer yield", func(c *Config) { c.ProducerYield = -time.Second }, true},
		{"bad edge", func(c *Config) { c.TriggerEdge = "sideways" }, true},
		{"unknown device", func(c *Config) { c.Device = "gpib" }, true},
		{"serial without port", func(c *Config) { c.Device = DeviceSerial }, true},
		{"serial with port", func(c *Config) { c.Device = "Serial"; c.DevicePort = "/dev/ttyUSB0" }, false},
		{"sim without trigger interval", func(c *Config) { c.SimTriggerInterval = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("Validate() error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestConfig_ValidateDerivesDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output = filepath.Join("out", "scan.bin")
	cfg.TriggerEdge = "Rising"
	cfg.Device = " SIM "

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.StateDir != "out" {
		t.Errorf("StateDir = %v, want out", cfg.StateDir)
	}
	if cfg.Edge != ports.EdgeRising {
		t.Errorf("Edge = %v, want rising", cfg.Edge)
	}
	if cfg.Device != DeviceSim {
		t.Errorf("Device = %q, want sim", cfg.Device)
	}

	cfg.StateDir = "/var/lib/scanwave"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.StateDir != "/var/lib/scanwave" {
		t.Errorf("StateDir = %v, explicit value overwritten", cfg.StateDir)
	}
}

func TestConfigSetter_RespectsChanged(t *testing.T) {
	s := newConfigSetter(map[string]bool{"output": true, "sample-rate": true})

	out := "flag.bin"
	s.setString("output", "file.bin", &out)
	if out != "flag.bin" {
		t.Errorf("setString overwrote changed flag: %v", out)
	}

	rate := 1.0
	if err := s.setFloatFromString("sample-rate", "2e6", &rate); err != nil {
		t.Fatal(err)
	}
	if rate != 1.0 {
		t.Errorf("setFloatFromString overwrote changed flag: %v", rate)
	}

	var size int64 = 1
	s.setInt64("max-chunk-size", 0, &size)
	if size != 1 {
		t.Errorf("setInt64 applied non-positive value: %v", size)
	}
	if err := s.setInt64FromString("max-chunk-size", "4096", &size); err != nil {
		t.Fatal(err)
	}
	if size != 4096 {
		t.Errorf("setInt64FromString = %v, want 4096", size)
	}
}
