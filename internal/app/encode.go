package app

import (
	"context"
	"fmt"
	"time"

	logAdapter "github.com/bft-labs/scanwave/internal/adapters/log"
	"github.com/bft-labs/scanwave/internal/encode"
	"github.com/bft-labs/scanwave/internal/ports"
	"github.com/bft-labs/scanwave/internal/raster"
	"github.com/bft-labs/scanwave/internal/waveform"
)

// EncodeResult summarizes one encode run.
type EncodeResult struct {
	Bitmaps  int
	Samples  int64
	Duration time.Duration
}

// EncodeJob turns a mask directory into a normalized waveform file.
// Rows are streamed to disk one at a time; the output file only appears
// once every row was written.
type EncodeJob struct {
	loader  *raster.Loader
	encoder *encode.Encoder
	output  string
	logger  ports.Logger
}

// NewEncodeJob creates an encode job writing to output.
func NewEncodeJob(loader *raster.Loader, encoder *encode.Encoder, output string, logger ports.Logger) *EncodeJob {
	if logger == nil {
		logger = logAdapter.Discard
	}
	return &EncodeJob{
		loader:  loader,
		encoder: encoder,
		output:  output,
		logger:  logger,
	}
}

// Run loads every mask in dir, encodes it and persists the result.
func (j *EncodeJob) Run(ctx context.Context, dir string) (EncodeResult, error) {
	start := time.Now()

	bitmaps, err := j.loader.Load(ctx, dir)
	if err != nil {
		return EncodeResult{}, err
	}
	if err := j.encoder.Check(bitmaps); err != nil {
		return EncodeResult{}, err
	}
	j.logger.Debug("encoding masks",
		ports.Int("samples", j.encoder.Length(bitmaps)),
		ports.Int("samples_per_row", j.encoder.SamplesPerSweep()),
		ports.Int("samples_per_pixel", j.encoder.SamplesPerPixel()),
	)

	w, err := waveform.Create(j.output)
	if err != nil {
		return EncodeResult{}, err
	}
	err = j.encoder.EncodeRows(bitmaps, func(row []float64) error {
		return w.Write(waveform.Normalize(row))
	})
	if err != nil {
		w.Abort()
		return EncodeResult{}, fmt.Errorf("encode %s: %w", dir, err)
	}
	samples := w.Samples()
	if err := w.Commit(); err != nil {
		return EncodeResult{}, err
	}

	res := EncodeResult{
		Bitmaps:  len(bitmaps),
		Samples:  samples,
		Duration: time.Since(start),
	}
	j.logger.Info("waveform written",
		ports.String("output", j.output),
		ports.Int("bitmaps", res.Bitmaps),
		ports.Int64("samples", res.Samples),
		ports.Int("samples_per_pixel", j.encoder.SamplesPerPixel()),
		ports.Duration("duration", res.Duration),
	)
	return res, nil
}
