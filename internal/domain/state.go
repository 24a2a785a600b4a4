package domain

import "time"

// PlaybackState is the persisted progress of a chunked playback run.
// It allows an interrupted run to resume at the next unplayed chunk.
type PlaybackState struct {
	// Path is the waveform file being played
	Path string `json:"path"`

	// TotalBytes is the waveform file size when playback started
	TotalBytes int64 `json:"total_bytes"`

	// ChunkSize is the chosen divisor-bounded chunk size in bytes
	ChunkSize int64 `json:"chunk_size"`

	// NextOffset is the byte offset of the first chunk not yet played
	NextOffset int64 `json:"next_offset"`

	// ChunksPlayed counts chunks that completed on the device
	ChunksPlayed int `json:"chunks_played"`

	// UpdatedAt is the time of the last save
	UpdatedAt time.Time `json:"updated_at"`
}

// Matches reports whether the state belongs to the given file and size.
func (s PlaybackState) Matches(path string, totalBytes int64) bool {
	return s.Path == path && s.TotalBytes == totalBytes
}

// Done reports whether every byte of the file has been played.
func (s PlaybackState) Done() bool {
	return s.TotalBytes > 0 && s.NextOffset >= s.TotalBytes
}
