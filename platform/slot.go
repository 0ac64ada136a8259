package platform

import (
	"context"
	"sync"
)

// Status is the observable state of a Slot.
type Status string

const (
	StatusAbsent Status = "absent"
	StatusBound  Status = "bound"
	StatusFailed Status = "failed"
)

// Slot holds the interpreter Binding once the runtime has been loaded.
//
// A Slot starts absent and moves to bound exactly once; after that the Binding
// never changes. While absent, the most recent load failure can be recorded so
// callers can report why the runtime is unavailable.
type Slot struct {
	mu      sync.RWMutex
	binding Binding
	loadErr error
	ready   chan struct{}
}

// NewSlot returns an absent Slot.
func NewSlot() *Slot {
	return &Slot{ready: make(chan struct{})}
}

// NewBoundSlot returns a Slot already holding b.
func NewBoundSlot(b Binding) (*Slot, error) {
	s := NewSlot()
	if err := s.Bind(b); err != nil {
		return nil, err
	}
	return s, nil
}

// Bind performs the one-way absent to bound transition.
func (s *Slot) Bind(b Binding) error {
	if b == nil {
		return ErrNilBinding
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.binding != nil {
		return ErrAlreadyBound
	}
	s.binding = b
	s.loadErr = nil
	close(s.ready)
	return nil
}

// Fail records why loading the runtime failed. It is ignored once bound.
func (s *Slot) Fail(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.binding == nil {
		s.loadErr = err
	}
}

// Get returns the Binding and whether it is present.
func (s *Slot) Get() (Binding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.binding, s.binding != nil
}

// Err returns the last recorded load failure, or nil.
func (s *Slot) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// Status reports absent, bound or failed.
func (s *Slot) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.binding != nil:
		return StatusBound
	case s.loadErr != nil:
		return StatusFailed
	default:
		return StatusAbsent
	}
}

// Ready is closed when the Slot becomes bound.
func (s *Slot) Ready() <-chan struct{} {
	return s.ready
}

// Wait blocks until the Slot is bound or ctx is done.
func (s *Slot) Wait(ctx context.Context) (Binding, error) {
	select {
	case <-s.ready:
		b, _ := s.Get()
		return b, nil
	case <-ctx.Done():
		if err := s.Err(); err != nil {
			return nil, err
		}
		return nil, ctx.Err()
	}
}
