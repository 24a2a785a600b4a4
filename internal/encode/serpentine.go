// Package encode converts thresholded slice masks into a raw scan sample sequence.
//
// Each mask row becomes one galvo sweep. Every pixel expands to a fixed number
// of identical samples so that one row spans exactly one sweep period at the
// configured sample rate. With serpentine scanning enabled, alternate rows are
// mirrored so the beam traces them in the return direction, and the phase of
// the alternation flips from one mask to the next.
package encode

import (
	"fmt"
	"math"
	"time"

	"github.com/bft-labs/scanwave/internal/domain"
)

// Raw sample levels.
const (
	Off = 0.0
	On  = 1.0
)

// Config holds the scan geometry.
type Config struct {
	PixelsPerRow  int
	CycleDuration time.Duration
	SampleRate    float64
	Serpentine    bool
}

// SamplesPerPixel returns the per-pixel expansion and the samples per sweep.
// The sweep length round(cycle*rate) must divide evenly by pixelsPerRow.
func SamplesPerPixel(pixelsPerRow int, cycle time.Duration, sampleRate float64) (perPixel, perSweep int, err error) {
	if pixelsPerRow <= 0 || cycle <= 0 || sampleRate <= 0 {
		return 0, 0, fmt.Errorf("%w: pixels per row, cycle duration and sample rate must be positive", domain.ErrConfiguration)
	}

	perSweep = int(math.Round(cycle.Seconds() * sampleRate))
	if perSweep == 0 || perSweep%pixelsPerRow != 0 {
		return 0, 0, fmt.Errorf("%w: %d samples per sweep not divisible by %d pixels per row",
			domain.ErrConfiguration, perSweep, pixelsPerRow)
	}
	return perSweep / pixelsPerRow, perSweep, nil
}

// Reversed reports whether row r of mask i is traced right to left.
// Rows are mirrored when exactly one of (i even, r odd) holds.
func Reversed(serpentine bool, i, r int) bool {
	if !serpentine {
		return false
	}
	return (i%2 == 0) == (r%2 == 1)
}

// Encoder expands masks into raw {0,1} samples.
type Encoder struct {
	cfg      Config
	perPixel int
	perSweep int
}

// New validates the scan geometry and returns an encoder.
func New(cfg Config) (*Encoder, error) {
	perPixel, perSweep, err := SamplesPerPixel(cfg.PixelsPerRow, cfg.CycleDuration, cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	return &Encoder{cfg: cfg, perPixel: perPixel, perSweep: perSweep}, nil
}

// SamplesPerPixel returns the per-pixel expansion factor.
func (e *Encoder) SamplesPerPixel() int { return e.perPixel }

// SamplesPerSweep returns the number of samples in one row.
func (e *Encoder) SamplesPerSweep() int { return e.perSweep }

// Length returns the total sample count the masks encode to.
func (e *Encoder) Length(bitmaps []domain.Bitmap) int {
	n := 0
	for _, bm := range bitmaps {
		n += bm.Height * e.perSweep
	}
	return n
}

// Check verifies every mask is PixelsPerRow wide.
func (e *Encoder) Check(bitmaps []domain.Bitmap) error {
	for _, bm := range bitmaps {
		if bm.Width != e.cfg.PixelsPerRow {
			return &domain.ShapeError{Path: bm.Name, Expected: e.cfg.PixelsPerRow, Actual: bm.Width}
		}
	}
	return nil
}

// EncodeRows emits the samples of every row, masks in slice order and rows
// top to bottom. The row buffer is reused between calls; fn must copy it to
// retain it. Masks are checked before the first row is emitted.
func (e *Encoder) EncodeRows(bitmaps []domain.Bitmap, fn func(row []float64) error) error {
	if err := e.Check(bitmaps); err != nil {
		return err
	}

	buf := make([]float64, e.perSweep)
	for i, bm := range bitmaps {
		for r := 0; r < bm.Height; r++ {
			e.expandRow(buf, bm.Row(r), Reversed(e.cfg.Serpentine, i, r))
			if err := fn(buf); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Encoder) expandRow(dst []float64, row []bool, reversed bool) {
	n := len(row)
	for c := 0; c < n; c++ {
		src := c
		if reversed {
			src = n - 1 - c
		}
		v := Off
		if row[src] {
			v = On
		}
		seg := dst[c*e.perPixel : (c+1)*e.perPixel]
		for k := range seg {
			seg[k] = v
		}
	}
}
