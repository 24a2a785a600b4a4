package waveform

import (
	"fmt"
	"math"
	"time"

	"github.com/bft-labs/scanwave/internal/domain"
)

// SyncParams describes the sync pulse embedded at the head of every segment.
type SyncParams struct {
	SegmentLength  int
	PulseDuration  time.Duration
	PulseAmplitude float64
	SampleRate     float64
	TotalSegments  int
}

// PulseSamples returns max(1, round(duration*rate)).
func (p SyncParams) PulseSamples() int {
	n := int(math.Round(p.PulseDuration.Seconds() * p.SampleRate))
	if n < 1 {
		n = 1
	}
	return n
}

// BuildMasterWithSync returns a SegmentLength*TotalSegments buffer in which
// the first PulseSamples samples of every segment hold PulseAmplitude and all
// other samples are copied from main at the same absolute index.
func BuildMasterWithSync(main []float64, p SyncParams) ([]float64, error) {
	if p.SegmentLength <= 0 || p.TotalSegments < 0 {
		return nil, fmt.Errorf("%w: segment length must be positive", domain.ErrConfiguration)
	}
	pulse := p.PulseSamples()
	if pulse >= p.SegmentLength {
		return nil, fmt.Errorf("%w: sync pulse of %d samples does not fit a %d sample segment",
			domain.ErrConfiguration, pulse, p.SegmentLength)
	}

	total := p.SegmentLength * p.TotalSegments
	if len(main) < total {
		return nil, fmt.Errorf("%w: main signal has %d samples, %d segments need %d",
			domain.ErrConfiguration, len(main), p.TotalSegments, total)
	}

	master := make([]float64, total)
	for k := 0; k < p.TotalSegments; k++ {
		start := k * p.SegmentLength
		end := start + p.SegmentLength
		for i := start; i < start+pulse; i++ {
			master[i] = p.PulseAmplitude
		}
		copy(master[start+pulse:end], main[start+pulse:end])
	}
	return master, nil
}

// Multitone returns n samples of a 5/25/70 kHz test signal scaled to a 1.5 peak.
// It exercises the streaming path on a bench without a mask-derived waveform.
func Multitone(n int, sampleRate float64) []float64 {
	const (
		f1, f2, f3 = 5_000.0, 25_000.0, 70_000.0
		peak       = 1.5
	)
	out := make([]float64, n)
	maxAbs := 0.0
	for i := range out {
		t := float64(i) / sampleRate
		v := 1.5*math.Sin(2*math.Pi*f1*t) +
			0.8*math.Sin(2*math.Pi*f2*t+math.Pi/4) +
			0.3*math.Sin(2*math.Pi*f3*t+math.Pi/2)
		out[i] = v
		if a := math.Abs(v); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs > 0 {
		for i := range out {
			out[i] = out[i] / maxAbs * peak
		}
	}
	return out
}
