package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bft-labs/scanwave/internal/chunk"
)

func newChunkCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "chunk [waveform-file]",
		Short: "Print the chunk size playback would use for a waveform file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fileArg(c, args)
			info, err := os.Stat(path)
			if err != nil {
				return err
			}

			size, err := chunk.Size(info.Size(), c.cfg.MaxChunkSize)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total_bytes=%d chunk_size=%d chunks=%d\n",
				info.Size(), size, chunk.Count(info.Size(), size))
			return nil
		},
	}
}

// fileArg returns the positional waveform path or the configured output.
func fileArg(c *cli, args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return c.cfg.Output
}
