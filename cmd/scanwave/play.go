package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bft-labs/scanwave/internal/adapters/fs"
	"github.com/bft-labs/scanwave/internal/app"
	"github.com/bft-labs/scanwave/internal/domain"
)

func newPlayCommand(c *cli) *cobra.Command {
	var (
		repeat int
		resume bool
	)

	cmd := &cobra.Command{
		Use:   "play [waveform-file]",
		Short: "Play a waveform file chunk by chunk through a scripted output",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fileArg(c, args)
			open, sim := c.scriptedOpener()
			defer c.reportSim(sim)

			player := app.NewPlayer(app.PlayerConfig{
				SampleRate:   c.cfg.SampleRate,
				MaxChunkSize: c.cfg.MaxChunkSize,
				Repeat:       repeat,
				WaitTimeout:  c.cfg.WaitTimeout,
			}, open, fs.NewStateFileRepository(c.playStateDir(path)), c.logger.With("player"))

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			var (
				state domain.PlaybackState
				err   error
			)
			if resume {
				state, err = player.Resume(ctx, path)
			} else {
				state, err = player.Play(ctx, path)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: played %d/%d bytes in %d byte chunks\n",
				path, state.NextOffset, state.TotalBytes, state.ChunkSize)
			return err
		},
	}

	cmd.Flags().IntVar(&repeat, "repeat", 1, "times the script plays each chunk")
	cmd.Flags().BoolVar(&resume, "resume", false, "continue from the offset saved by an interrupted run")
	return cmd
}

// playStateDir keeps playback.json next to the played file unless a state
// directory was configured.
func (c *cli) playStateDir(path string) string {
	if c.stateDirSet {
		return c.cfg.StateDir
	}
	return filepath.Dir(path)
}
