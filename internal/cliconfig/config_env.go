package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "SCANWAVE_"

// ApplyEnvConfig applies configuration from environment variables (SCANWAVE_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(key string) string { return os.Getenv(EnvPrefix + key) }

	s.setString("image-dir", env("IMAGE_DIR"), &cfg.ImageDir)
	s.setString("output", env("OUTPUT"), &cfg.Output)
	s.setString("trigger-source", env("TRIGGER_SOURCE"), &cfg.TriggerSource)
	s.setString("trigger-edge", env("TRIGGER_EDGE"), &cfg.TriggerEdge)
	s.setString("device", env("DEVICE"), &cfg.Device)
	s.setString("device-port", env("DEVICE_PORT"), &cfg.DevicePort)
	s.setString("state-dir", env("STATE_DIR"), &cfg.StateDir)

	if err := s.setDuration("cycle-duration", env("CYCLE_DURATION"), &cfg.CycleDuration); err != nil {
		return err
	}
	if err := s.setDuration("pulse-duration", env("PULSE_DURATION"), &cfg.PulseDuration); err != nil {
		return err
	}
	if err := s.setDuration("sim-trigger-interval", env("SIM_TRIGGER_INTERVAL"), &cfg.SimTriggerInterval); err != nil {
		return err
	}
	if err := s.setDuration("enqueue-timeout", env("ENQUEUE_TIMEOUT"), &cfg.EnqueueTimeout); err != nil {
		return err
	}
	if err := s.setDuration("dequeue-timeout", env("DEQUEUE_TIMEOUT"), &cfg.DequeueTimeout); err != nil {
		return err
	}
	if err := s.setDuration("wait-timeout", env("WAIT_TIMEOUT"), &cfg.WaitTimeout); err != nil {
		return err
	}
	if err := s.setDuration("prime-timeout", env("PRIME_TIMEOUT"), &cfg.PrimeTimeout); err != nil {
		return err
	}
	if err := s.setDuration("join-timeout", env("JOIN_TIMEOUT"), &cfg.JoinTimeout); err != nil {
		return err
	}
	if err := s.setDuration("producer-yield", env("PRODUCER_YIELD"), &cfg.ProducerYield); err != nil {
		return err
	}

	if err := s.setFloatFromString("sample-rate", env("SAMPLE_RATE"), &cfg.SampleRate); err != nil {
		return err
	}
	if err := s.setFloatFromString("pulse-amplitude", env("PULSE_AMPLITUDE"), &cfg.PulseAmplitude); err != nil {
		return err
	}

	if err := s.setIntFromString("pixels-per-row", env("PIXELS_PER_ROW"), &cfg.PixelsPerRow); err != nil {
		return err
	}
	if err := s.setIntFromString("samples-per-trigger", env("SAMPLES_PER_TRIGGER"), &cfg.SamplesPerTrigger); err != nil {
		return err
	}
	if err := s.setIntFromString("queue-capacity", env("QUEUE_CAPACITY"), &cfg.QueueCapacity); err != nil {
		return err
	}
	if err := s.setIntFromString("bursts", env("TOTAL_BURSTS"), &cfg.TotalBursts); err != nil {
		return err
	}
	if err := s.setIntFromString("baud-rate", env("BAUD_RATE"), &cfg.BaudRate); err != nil {
		return err
	}
	if err := s.setInt64FromString("max-chunk-size", env("MAX_CHUNK_SIZE"), &cfg.MaxChunkSize); err != nil {
		return err
	}

	s.setBoolFromString("serpentine", env("SERPENTINE"), &cfg.Serpentine)
	s.setBoolFromString("sync-pulse", env("SYNC_PULSE"), &cfg.SyncPulse)

	return nil
}
