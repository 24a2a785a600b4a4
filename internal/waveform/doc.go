// Package waveform normalizes, persists and reads scan waveforms.
//
// # File format
//
// A waveform file is a flat array of little-endian IEEE-754 float64 samples
// with no header. Its size is always a multiple of [SampleSize]. The layout is
// the interchange contract between the encoder, chunked playback, the
// streaming pipeline and any hardware-facing reader.
//
// # Usage
//
//	w, err := waveform.Create("waveform_output.bin")
//	if err != nil {
//	    return err
//	}
//	defer w.Abort()
//	if err := w.Write(waveform.Normalize(samples)); err != nil {
//	    return err
//	}
//	return w.Commit()
package waveform
