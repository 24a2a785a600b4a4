package waveform

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// SampleSize is the size in bytes of one stored sample.
const SampleSize = 8

// Normalize maps raw samples in {0,1} onto {-1,+1} in place and returns samples.
func Normalize(samples []float64) []float64 {
	for i, v := range samples {
		samples[i] = v*2 - 1
	}
	return samples
}

// Writer persists samples to a temp file next to the destination and renames
// it into place on Commit, so a failed run never leaves a partial waveform.
type Writer struct {
	path    string
	tmp     *os.File
	buf     *bufio.Writer
	scratch [SampleSize]byte
	n       int64
	done    bool
}

// Create opens a writer for path. The destination directory must exist.
func Create(path string) (*Writer, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create waveform: %w", err)
	}
	return &Writer{
		path: path,
		tmp:  tmp,
		buf:  bufio.NewWriterSize(tmp, 1<<20),
	}, nil
}

// Write appends samples verbatim.
func (w *Writer) Write(samples []float64) error {
	for _, v := range samples {
		binary.LittleEndian.PutUint64(w.scratch[:], math.Float64bits(v))
		if _, err := w.buf.Write(w.scratch[:]); err != nil {
			return fmt.Errorf("write waveform: %w", err)
		}
	}
	w.n += int64(len(samples))
	return nil
}

// Samples returns the number of samples written so far.
func (w *Writer) Samples() int64 { return w.n }

// Commit flushes, syncs and renames the temp file to the destination path.
func (w *Writer) Commit() error {
	if w.done {
		return nil
	}
	w.done = true

	if err := w.buf.Flush(); err != nil {
		w.discard()
		return fmt.Errorf("flush waveform: %w", err)
	}
	if err := w.tmp.Sync(); err != nil {
		w.discard()
		return fmt.Errorf("sync waveform: %w", err)
	}
	if err := w.tmp.Close(); err != nil {
		os.Remove(w.tmp.Name())
		return fmt.Errorf("close waveform: %w", err)
	}
	if err := os.Rename(w.tmp.Name(), w.path); err != nil {
		os.Remove(w.tmp.Name())
		return fmt.Errorf("rename waveform: %w", err)
	}
	return nil
}

// Abort discards the temp file. It is a no-op after Commit.
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	w.discard()
}

func (w *Writer) discard() {
	w.tmp.Close()
	os.Remove(w.tmp.Name())
}

// Persist writes samples verbatim to path.
func Persist(path string, samples []float64) error {
	w, err := Create(path)
	if err != nil {
		return err
	}
	defer w.Abort()

	if err := w.Write(samples); err != nil {
		return err
	}
	return w.Commit()
}

// Decode converts little-endian float64 bytes into samples.
func Decode(b []byte) ([]float64, error) {
	if len(b)%SampleSize != 0 {
		return nil, fmt.Errorf("waveform: %d bytes is not a whole number of samples", len(b))
	}
	out := make([]float64, len(b)/SampleSize)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*SampleSize:]))
	}
	return out, nil
}

// Read loads a whole waveform file.
func Read(path string) ([]float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read waveform: %w", err)
	}
	return Decode(b)
}
