// Package domain contains the core entities and value objects for scanwave.
//
// It has no dependencies on infrastructure concerns (device drivers, file
// system, logging) and contains only the data model of the waveform pipeline.
//
// # Entities
//
//   - [Bitmap]: one thresholded slice mask, immutable after load
//   - [Segment]: one trigger's worth of samples cut from a master waveform
//   - [PlaybackState]: persisted progress of a chunked playback run
//
// # Sample domains
//
// Encoders emit raw samples in {0, 1}. Persisted waveforms hold normalized
// samples in [-1, +1] (v*2 - 1), stored as little-endian float64 with no header.
package domain
