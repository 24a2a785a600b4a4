package chunk

import (
	"fmt"
	"io"
	"os"

	"github.com/bft-labs/scanwave/internal/domain"
	"github.com/bft-labs/scanwave/internal/waveform"
)

// Chunk is one decoded read from a waveform file.
type Chunk struct {
	// Index is the chunk number (0-based) from the start of the run
	Index int

	// Offset is the byte offset of the first sample in the file
	Offset int64

	Samples []float64
}

// Bytes returns the encoded size of the chunk.
func (c Chunk) Bytes() int64 {
	return int64(len(c.Samples)) * waveform.SampleSize
}

// Reader reads a waveform file in chunks of at most Size bytes.
// Every read is trimmed to whole samples and the next read starts at the
// trimmed offset, so no sample is split or skipped.
type Reader struct {
	f      *os.File
	size   int64
	total  int64
	offset int64
	index  int
	buf    []byte
}

// Open opens path for chunked reading starting at offset.
// offset must be sample aligned and size must hold at least one sample.
func Open(path string, size, offset int64) (*Reader, error) {
	if size < waveform.SampleSize {
		return nil, fmt.Errorf("%w: chunk of %d bytes holds no whole sample", domain.ErrNoValidChunk, size)
	}
	if offset < 0 || offset%waveform.SampleSize != 0 {
		return nil, fmt.Errorf("chunk reader: offset %d is not sample aligned", offset)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Reader{
		f:      f,
		size:   size,
		total:  info.Size(),
		offset: offset,
		buf:    make([]byte, size),
	}, nil
}

// Next returns the next chunk, or io.EOF once every whole sample was read.
// The returned samples are freshly allocated and owned by the caller.
func (r *Reader) Next() (Chunk, error) {
	remaining := r.total - r.offset
	if remaining < waveform.SampleSize {
		return Chunk{}, io.EOF
	}

	n := r.size
	if remaining < n {
		n = remaining
	}
	n -= n % waveform.SampleSize

	if _, err := r.f.ReadAt(r.buf[:n], r.offset); err != nil && err != io.EOF {
		return Chunk{}, fmt.Errorf("read chunk at %d: %w", r.offset, err)
	}
	samples, err := waveform.Decode(r.buf[:n])
	if err != nil {
		return Chunk{}, err
	}

	c := Chunk{Index: r.index, Offset: r.offset, Samples: samples}
	r.offset += n
	r.index++
	return c, nil
}

// Offset returns the byte offset of the next read.
func (r *Reader) Offset() int64 { return r.offset }

// Total returns the file size in bytes.
func (r *Reader) Total() int64 { return r.total }

// Close releases the file.
func (r *Reader) Close() error {
	return r.f.Close()
}
