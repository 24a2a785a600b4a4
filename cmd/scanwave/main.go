package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	logAdapter "github.com/bft-labs/scanwave/internal/adapters/log"
	"github.com/bft-labs/scanwave/internal/cliconfig"
)

const longHelp = `Convert slice masks into a galvo scan waveform and drive a signal generator with it.

Masks are read in filename order, thresholded, and expanded row by row into
samples (serpentine by default). The normalized waveform is stored as raw
little-endian float64 and can be played in memory-bounded chunks or streamed
one burst per external trigger.

Configuration is read from $HOME/.scanwave/config.toml, SCANWAVE_* environment
variables and flags, in increasing order of precedence.`

var exampleUsage = strings.TrimSpace(`
  scanwave encode --image-dir ./slices --output scan.bin
  scanwave encode --image-dir ./slices --watch
  scanwave chunk scan.bin --max-chunk-size 1048576
  scanwave play scan.bin --device serial --device-port /dev/ttyUSB0 --resume
  scanwave stream scan.bin --samples-per-trigger 126 --bursts 14000
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func versionString() string {
	return fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH)
}

// cli carries the resolved configuration and loggers shared by subcommands.
type cli struct {
	cfg      cliconfig.Config
	cfgPath  string
	logLevel string

	// stateDirSet records whether a flag, the file or the environment chose
	// the state directory before Validate derived one.
	stateDirSet bool

	log    zerolog.Logger
	logger *logAdapter.ZerologAdapter
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log := cliconfig.Logger()
		log.Error().Err(err).Msg("scanwave")
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	c := &cli{cfg: cliconfig.DefaultConfig()}

	root := &cobra.Command{
		Use:               "scanwave",
		Short:             "Convert slice masks into a scan waveform and stream it to a signal generator",
		Long:              longHelp,
		Example:           exampleUsage,
		Version:           versionString(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return c.load(cmd) },
	}

	c.bindFlags(root.PersistentFlags())

	root.AddCommand(
		newEncodeCommand(c),
		newChunkCommand(c),
		newPlayCommand(c),
		newStreamCommand(c),
		newVersionCommand(),
	)
	return root
}

// load layers the config file, environment and changed flags, validates the
// result and builds the loggers.
func (c *cli) load(cmd *cobra.Command) error {
	log, err := cliconfig.LoggerWithLevel(c.logLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	c.log = log
	c.logger = logAdapter.NewZerologAdapterWithLogger(log)

	cfgFile := c.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	// Build set of changed flags
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&c.cfg, fc, changed); err != nil {
			return err
		}
	}

	// Environment overrides the file but not explicitly set flags
	if err := cliconfig.ApplyEnvConfig(&c.cfg, changed); err != nil {
		return err
	}

	c.stateDirSet = c.cfg.StateDir != ""
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	c.log.Info().Interface("config", c.cfg).Msg("configuration")
	return nil
}

func (c *cli) bindFlags(fs *pflag.FlagSet) {
	cfg := &c.cfg

	fs.StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.scanwave/config.toml)")
	fs.StringVar(&c.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	fs.StringVar(&cfg.ImageDir, "image-dir", cfg.ImageDir, "directory of slice mask images")
	fs.StringVar(&cfg.Output, "output", cfg.Output, "waveform file")

	fs.IntVar(&cfg.PixelsPerRow, "pixels-per-row", cfg.PixelsPerRow, "mask width in pixels")
	fs.DurationVar(&cfg.CycleDuration, "cycle-duration", cfg.CycleDuration, "duration of one row sweep")
	fs.Float64Var(&cfg.SampleRate, "sample-rate", cfg.SampleRate, "generator sample rate in Hz")
	fs.BoolVar(&cfg.Serpentine, "serpentine", cfg.Serpentine, "mirror alternate rows")

	fs.Int64Var(&cfg.MaxChunkSize, "max-chunk-size", cfg.MaxChunkSize, "largest chunk read for playback, in bytes")

	fs.IntVar(&cfg.SamplesPerTrigger, "samples-per-trigger", cfg.SamplesPerTrigger, "samples output per trigger edge")
	fs.IntVar(&cfg.QueueCapacity, "queue-capacity", cfg.QueueCapacity, "segments buffered between producer and device")
	fs.IntVar(&cfg.TotalBursts, "bursts", cfg.TotalBursts, "bursts to stream (0: every whole segment in the file)")

	fs.BoolVar(&cfg.SyncPulse, "sync-pulse", cfg.SyncPulse, "embed a sync pulse at the head of every segment")
	fs.DurationVar(&cfg.PulseDuration, "pulse-duration", cfg.PulseDuration, "sync pulse length")
	fs.Float64Var(&cfg.PulseAmplitude, "pulse-amplitude", cfg.PulseAmplitude, "sync pulse level")

	fs.StringVar(&cfg.TriggerSource, "trigger-source", cfg.TriggerSource, "external trigger terminal")
	fs.StringVar(&cfg.TriggerEdge, "trigger-edge", cfg.TriggerEdge, "trigger edge (rising or falling)")

	fs.StringVar(&cfg.Device, "device", cfg.Device, "output device (sim or serial)")
	fs.StringVar(&cfg.DevicePort, "device-port", cfg.DevicePort, "serial port of the generator")
	fs.IntVar(&cfg.BaudRate, "baud-rate", cfg.BaudRate, "serial line speed")
	fs.DurationVar(&cfg.SimTriggerInterval, "sim-trigger-interval", cfg.SimTriggerInterval, "trigger period of the simulated device")

	fs.DurationVar(&cfg.EnqueueTimeout, "enqueue-timeout", cfg.EnqueueTimeout, "producer wait for queue space")
	fs.DurationVar(&cfg.DequeueTimeout, "dequeue-timeout", cfg.DequeueTimeout, "consumer wait for a segment")
	fs.DurationVar(&cfg.WaitTimeout, "wait-timeout", cfg.WaitTimeout, "device completion wait")
	fs.DurationVar(&cfg.PrimeTimeout, "prime-timeout", cfg.PrimeTimeout, "wait for the first segment")
	fs.DurationVar(&cfg.JoinTimeout, "join-timeout", cfg.JoinTimeout, "grace period for workers on shutdown")
	fs.DurationVar(&cfg.ProducerYield, "producer-yield", cfg.ProducerYield, "producer pause between segments")

	fs.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for playback.json (defaults to the output directory)")
	_ = fs.MarkHidden("state-dir")
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "version",
		Short:             "Print the version",
		Args:              cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "scanwave", versionString())
		},
	}
}
