package chunk

import (
	"errors"
	"testing"

	"github.com/bft-labs/scanwave/internal/domain"
)

func TestSize(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		max   int64
		want  int64
	}{
		{"exact divisor", 100, 10, 10},
		{"prime total", 97, 10, 1},
		{"complement divisor", 100, 60, 50},
		{"max above total", 100, 1000, 100},
		{"max equals total", 100, 100, 100},
		{"max one", 100, 1, 1},
		{"total one", 1, 10, 1},
		{"perfect square", 49, 10, 7},
		{"one row at 100MS/s", 6000 * 8, DefaultMaxChunkSize, 48000},
		{"large file", 8 * 6000 * 120 * 500, DefaultMaxChunkSize, 10000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Size(tt.total, tt.max)
			if err != nil {
				t.Fatalf("Size(%d, %d): %v", tt.total, tt.max, err)
			}
			if got != tt.want {
				t.Errorf("Size(%d, %d) = %d, want %d", tt.total, tt.max, got, tt.want)
			}
			if tt.total%got != 0 || got > tt.max {
				t.Errorf("Size(%d, %d) = %d is not a bounded divisor", tt.total, tt.max, got)
			}
		})
	}
}

func TestSize_Deterministic(t *testing.T) {
	a, _ := Size(720720, 1000)
	b, _ := Size(720720, 1000)
	if a != b {
		t.Fatalf("Size not deterministic: %d vs %d", a, b)
	}
}

func TestSize_NoValidChunk(t *testing.T) {
	tests := []struct {
		name       string
		total, max int64
	}{
		{"empty file", 0, 10},
		{"negative total", -8, 10},
		{"zero max", 100, 0},
		{"negative max", 100, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Size(tt.total, tt.max); !errors.Is(err, domain.ErrNoValidChunk) {
				t.Fatalf("Size(%d, %d) error = %v, want ErrNoValidChunk", tt.total, tt.max, err)
			}
		})
	}
}

func TestCount(t *testing.T) {
	if got := Count(100, 10); got != 10 {
		t.Errorf("Count(100, 10) = %d", got)
	}
	if got := Count(101, 10); got != 11 {
		t.Errorf("Count(101, 10) = %d", got)
	}
	if got := Count(100, 0); got != 0 {
		t.Errorf("Count(100, 0) = %d", got)
	}
}
