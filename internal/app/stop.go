package app

import "sync"

// StopSignal is a one-shot flag shared by the controller and the workers.
// Once set it stays set; Done is closed at that moment.
type StopSignal struct {
	once sync.Once
	ch   chan struct{}
}

// NewStopSignal returns an unset signal.
func NewStopSignal() *StopSignal {
	return &StopSignal{ch: make(chan struct{})}
}

// Set raises the signal. Safe to call more than once and from any goroutine.
func (s *StopSignal) Set() {
	s.once.Do(func() { close(s.ch) })
}

// IsSet reports whether the signal has been raised.
func (s *StopSignal) IsSet() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the signal is raised.
func (s *StopSignal) Done() <-chan struct{} {
	return s.ch
}
