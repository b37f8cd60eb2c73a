// Package sequencer hands out monotonic per-session sample sequence
// numbers (C8).
package sequencer

import "sync"

// Sequencer is a single-holder, serialized monotonic counter starting at 0.
type Sequencer struct {
	mu   sync.Mutex
	next int64
}

// New returns a Sequencer starting at 0.
func New() *Sequencer {
	return &Sequencer{}
}

// Next returns the next sample_seq, starting from 0 and incrementing by 1.
func (s *Sequencer) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.next
	s.next++
	return v
}
