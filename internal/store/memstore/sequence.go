package memstore

import (
	"context"
	"sync"
)

// Sequence is a process-local counter source for numbering.
type Sequence struct {
	mu     sync.Mutex
	values map[string]int64
}

func NewSequence() *Sequence {
	return &Sequence{values: map[string]int64{}}
}

func (s *Sequence) Next(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name]++
	return s.values[name], nil
}
