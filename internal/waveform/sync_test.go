package waveform

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/bft-labs/scanwave/internal/domain"
)

func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func TestBuildMasterWithSync(t *testing.T) {
	p := SyncParams{
		SegmentLength:  5,
		PulseDuration:  2 * time.Microsecond,
		PulseAmplitude: 9,
		SampleRate:     1e6,
		TotalSegments:  3,
	}
	if p.PulseSamples() != 2 {
		t.Fatalf("PulseSamples = %d, want 2", p.PulseSamples())
	}

	master, err := BuildMasterWithSync(ramp(20), p)
	if err != nil {
		t.Fatalf("BuildMasterWithSync: %v", err)
	}
	want := []float64{
		9, 9, 2, 3, 4,
		9, 9, 7, 8, 9,
		9, 9, 12, 13, 14,
	}
	if len(master) != len(want) {
		t.Fatalf("len = %d, want %d", len(master), len(want))
	}
	for i := range want {
		if master[i] != want[i] {
			t.Fatalf("master = %v, want %v", master, want)
		}
	}
}

func TestSyncParams_PulseSamplesAtLeastOne(t *testing.T) {
	p := SyncParams{PulseDuration: time.Nanosecond, SampleRate: 1e3}
	if p.PulseSamples() != 1 {
		t.Errorf("PulseSamples = %d, want 1", p.PulseSamples())
	}
	p = SyncParams{PulseDuration: 5 * time.Microsecond, SampleRate: 2e6}
	if p.PulseSamples() != 10 {
		t.Errorf("PulseSamples = %d, want 10", p.PulseSamples())
	}
}

func TestBuildMasterWithSync_Errors(t *testing.T) {
	tests := []struct {
		name string
		main []float64
		p    SyncParams
	}{
		{"pulse fills segment", ramp(10), SyncParams{SegmentLength: 2, PulseDuration: 2 * time.Microsecond, SampleRate: 1e6, TotalSegments: 1}},
		{"pulse longer than segment", ramp(10), SyncParams{SegmentLength: 2, PulseDuration: 5 * time.Microsecond, SampleRate: 1e6, TotalSegments: 1}},
		{"main too short", ramp(9), SyncParams{SegmentLength: 5, PulseDuration: time.Microsecond, SampleRate: 1e6, TotalSegments: 2}},
		{"zero segment length", ramp(9), SyncParams{SampleRate: 1e6, TotalSegments: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildMasterWithSync(tt.main, tt.p); !errors.Is(err, domain.ErrConfiguration) {
				t.Fatalf("error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestBuildMasterWithSync_NoSegments(t *testing.T) {
	master, err := BuildMasterWithSync(nil, SyncParams{SegmentLength: 4, SampleRate: 1e6})
	if err != nil {
		t.Fatal(err)
	}
	if len(master) != 0 {
		t.Errorf("len = %d, want 0", len(master))
	}
}

func TestMultitone_Peak(t *testing.T) {
	s := Multitone(4000, 2e6)
	peak := 0.0
	for _, v := range s {
		peak = math.Max(peak, math.Abs(v))
	}
	if math.Abs(peak-1.5) > 1e-9 {
		t.Errorf("peak = %v, want 1.5", peak)
	}
}
