package cliconfig

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	ImageDir           string  `toml:"image_dir"`
	Output             string  `toml:"output"`
	PixelsPerRow       int     `toml:"pixels_per_row"`
	CycleDuration      string  `toml:"cycle_duration"`
	SampleRate         float64 `toml:"sample_rate"`
	Serpentine         *bool   `toml:"serpentine"`
	MaxChunkSize       int64   `toml:"max_chunk_size"`
	SamplesPerTrigger  int     `toml:"samples_per_trigger"`
	QueueCapacity      int     `toml:"queue_capacity"`
	TotalBursts        int     `toml:"total_bursts"`
	SyncPulse          *bool   `toml:"sync_pulse"`
	PulseDuration      string  `toml:"pulse_duration"`
	PulseAmplitude     float64 `toml:"pulse_amplitude"`
	TriggerSource      string  `toml:"trigger_source"`
	TriggerEdge        string  `toml:"trigger_edge"`
	Device             string  `toml:"device"`
	DevicePort         string  `toml:"device_port"`
	BaudRate           int     `toml:"baud_rate"`
	SimTriggerInterval string  `toml:"sim_trigger_interval"`
	EnqueueTimeout     string  `toml:"enqueue_timeout"`
	DequeueTimeout     string  `toml:"dequeue_timeout"`
	WaitTimeout        string  `toml:"wait_timeout"`
	PrimeTimeout       string  `toml:"prime_timeout"`
	JoinTimeout        string  `toml:"join_timeout"`
	ProducerYield      string  `toml:"producer_yield"`
	StateDir           string  `toml:"state_dir"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.scanwave/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".scanwave", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("image-dir", fc.ImageDir, &cfg.ImageDir)
	s.setString("output", fc.Output, &cfg.Output)
	s.setString("trigger-source", fc.TriggerSource, &cfg.TriggerSource)
	s.setString("trigger-edge", fc.TriggerEdge, &cfg.TriggerEdge)
	s.setString("device", fc.Device, &cfg.Device)
	s.setString("device-port", fc.DevicePort, &cfg.DevicePort)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"cycle-duration", fc.CycleDuration, &cfg.CycleDuration},
		{"pulse-duration", fc.PulseDuration, &cfg.PulseDuration},
		{"sim-trigger-interval", fc.SimTriggerInterval, &cfg.SimTriggerInterval},
		{"enqueue-timeout", fc.EnqueueTimeout, &cfg.EnqueueTimeout},
		{"dequeue-timeout", fc.DequeueTimeout, &cfg.DequeueTimeout},
		{"wait-timeout", fc.WaitTimeout, &cfg.WaitTimeout},
		{"prime-timeout", fc.PrimeTimeout, &cfg.PrimeTimeout},
		{"join-timeout", fc.JoinTimeout, &cfg.JoinTimeout},
		{"producer-yield", fc.ProducerYield, &cfg.ProducerYield},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setFloat("sample-rate", fc.SampleRate, &cfg.SampleRate)
	s.setFloat("pulse-amplitude", fc.PulseAmplitude, &cfg.PulseAmplitude)

	s.setInt("pixels-per-row", fc.PixelsPerRow, &cfg.PixelsPerRow)
	s.setInt("samples-per-trigger", fc.SamplesPerTrigger, &cfg.SamplesPerTrigger)
	s.setInt("queue-capacity", fc.QueueCapacity, &cfg.QueueCapacity)
	s.setInt("bursts", fc.TotalBursts, &cfg.TotalBursts)
	s.setInt("baud-rate", fc.BaudRate, &cfg.BaudRate)
	s.setInt64("max-chunk-size", fc.MaxChunkSize, &cfg.MaxChunkSize)

	s.setBool("serpentine", fc.Serpentine, &cfg.Serpentine)
	s.setBool("sync-pulse", fc.SyncPulse, &cfg.SyncPulse)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
