// Package chunk splits waveform files into bounded transfer chunks.
//
// The chunk size is the largest divisor of the file size that does not
// exceed a memory ceiling, so every chunk of a file has the same size and
// peak memory during playback is bounded by one chunk.
package chunk

import (
	"fmt"

	"github.com/bft-labs/scanwave/internal/domain"
)

// DefaultMaxChunkSize is the default allocation ceiling per chunk.
const DefaultMaxChunkSize int64 = 10 << 20 // 10MiB

// Size returns the largest divisor of total that is at most max.
// Divisors are found by trial division up to floor(sqrt(total)); each
// divisor d contributes both d and total/d as candidates.
func Size(total, max int64) (int64, error) {
	if total <= 0 || max < 1 {
		return 0, fmt.Errorf("%w: total %d bytes, max chunk %d bytes", domain.ErrNoValidChunk, total, max)
	}

	var best int64
	for d := int64(1); d <= total/d; d++ {
		if total%d != 0 {
			continue
		}
		if d <= max && d > best {
			best = d
		}
		if c := total / d; c <= max && c > best {
			best = c
		}
	}

	if best == 0 {
		return 0, fmt.Errorf("%w: total %d bytes, max chunk %d bytes", domain.ErrNoValidChunk, total, max)
	}
	return best, nil
}

// Count returns how many chunks of size cover total.
func Count(total, size int64) int64 {
	if size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
