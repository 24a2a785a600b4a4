package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bft-labs/scanwave/internal/app"
	"github.com/bft-labs/scanwave/internal/domain"
	"github.com/bft-labs/scanwave/internal/encode"
	"github.com/bft-labs/scanwave/internal/ports"
	"github.com/bft-labs/scanwave/internal/raster"
)

func newEncodeCommand(c *cli) *cobra.Command {
	var (
		watch    bool
		debounce = raster.DefaultDebounce
	)

	cmd := &cobra.Command{
		Use:   "encode [image-dir]",
		Short: "Encode a directory of slice masks into a waveform file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := c.cfg.ImageDir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return fmt.Errorf("%w: image directory is required", domain.ErrConfiguration)
			}

			encoder, err := encode.New(encode.Config{
				PixelsPerRow:  c.cfg.PixelsPerRow,
				CycleDuration: c.cfg.CycleDuration,
				SampleRate:    c.cfg.SampleRate,
				Serpentine:    c.cfg.Serpentine,
			})
			if err != nil {
				return err
			}
			loader := raster.NewLoader(c.cfg.PixelsPerRow, c.logger.With("raster"))
			job := app.NewEncodeJob(loader, encoder, c.cfg.Output, c.logger.With("encode"))

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			res, err := job.Run(ctx, dir)
			if err != nil {
				return err
			}
			printEncodeResult(cmd, c.cfg.Output, res)

			if !watch {
				return nil
			}

			// Re-encode after every settled burst of mask changes. A failed
			// run keeps the previous output file.
			w := raster.NewWatcher(dir, loader, debounce, func(ctx context.Context) {
				res, err := job.Run(ctx, dir)
				if err != nil {
					c.logger.Warn("re-encode failed", ports.String("dir", dir), ports.Err(err))
					return
				}
				printEncodeResult(cmd, c.cfg.Output, res)
			}, c.logger.With("watcher"))
			return w.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "re-encode whenever masks in the directory change")
	cmd.Flags().DurationVar(&debounce, "debounce", debounce, "quiet period before re-encoding in watch mode")
	return cmd
}

func printEncodeResult(cmd *cobra.Command, output string, res app.EncodeResult) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d masks, %d samples\n", output, res.Bitmaps, res.Samples)
}
