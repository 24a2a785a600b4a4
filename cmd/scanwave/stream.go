package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bft-labs/scanwave/internal/app"
	"github.com/bft-labs/scanwave/internal/domain"
	"github.com/bft-labs/scanwave/internal/ports"
	"github.com/bft-labs/scanwave/internal/waveform"
)

// testSignalBursts is the burst count used with --test-signal when none is set.
const testSignalBursts = 14000

func newStreamCommand(c *cli) *cobra.Command {
	var (
		testSignal bool
		saveMaster string
	)

	cmd := &cobra.Command{
		Use:   "stream [waveform-file]",
		Short: "Stream a waveform one segment per external trigger",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spt := c.cfg.SamplesPerTrigger
			if spt <= 0 {
				return fmt.Errorf("%w: samples per trigger must be positive", domain.ErrConfiguration)
			}

			bursts := c.cfg.TotalBursts
			var source []float64
			if testSignal {
				if bursts == 0 {
					bursts = testSignalBursts
				}
				source = waveform.Multitone(bursts*spt, c.cfg.SampleRate)
			} else {
				path := fileArg(c, args)
				samples, err := waveform.Read(path)
				if err != nil {
					return err
				}
				if bursts == 0 {
					bursts = len(samples) / spt
				}
				source = samples
			}

			master := source
			if c.cfg.SyncPulse {
				var err error
				master, err = waveform.BuildMasterWithSync(source, waveform.SyncParams{
					SegmentLength:  spt,
					PulseDuration:  c.cfg.PulseDuration,
					PulseAmplitude: c.cfg.PulseAmplitude,
					SampleRate:     c.cfg.SampleRate,
					TotalSegments:  bursts,
				})
				if err != nil {
					return err
				}
			}

			if saveMaster != "" {
				if err := waveform.Persist(saveMaster, master); err != nil {
					return fmt.Errorf("save master: %w", err)
				}
			}

			open, sim := c.triggeredOpener()
			pipeline, err := app.NewPipeline(app.StreamConfig{
				SampleRate:        c.cfg.SampleRate,
				SamplesPerTrigger: spt,
				QueueCapacity:     c.cfg.QueueCapacity,
				TotalBursts:       bursts,
				TriggerSource:     c.cfg.TriggerSource,
				TriggerEdge:       c.cfg.Edge,
				EnqueueTimeout:    c.cfg.EnqueueTimeout,
				DequeueTimeout:    c.cfg.DequeueTimeout,
				WaitTimeout:       c.cfg.WaitTimeout,
				PrimeTimeout:      c.cfg.PrimeTimeout,
				JoinTimeout:       c.cfg.JoinTimeout,
				ProducerYield:     c.cfg.ProducerYield,
			}, master, open, c.logger.With("pipeline"))
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			err = pipeline.Run(ctx)
			stats := pipeline.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "streamed %d/%d bursts of %d samples\n", stats.Completed, bursts, spt)
			c.logger.Info("stream ended", ports.String("state", pipeline.State().String()))
			c.reportSim(sim)
			return err
		},
	}

	cmd.Flags().BoolVar(&testSignal, "test-signal", false, "stream a generated 5/25/70 kHz multitone instead of a file")
	cmd.Flags().StringVar(&saveMaster, "save-master", "", "also write the streamed master waveform (sync pulses included) to this file")
	return cmd
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
