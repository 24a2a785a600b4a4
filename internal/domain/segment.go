package domain

// Segment is one burst cut from a master waveform.
// A segment has exactly one owner at a time: the producer until it is
// enqueued, the consumer after it is dequeued.
type Segment struct {
	// Index is the burst number (0-based)
	Index int

	// Offset is the sample offset of the segment in the master waveform
	Offset int

	Samples []float64
}

// Len returns the number of samples in the segment.
func (s Segment) Len() int {
	return len(s.Samples)
}
