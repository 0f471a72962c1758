package tpool

import "sync"

// Joiner is anything that can wait for its outstanding callbacks.
type Joiner interface {
	Join()
}

// ScopedJoin calls Join on the wrapped object exactly once: explicitly through
// Join, or from a deferred Close. Disarm skips the call.
//
//	sj := tpool.NewScopedJoin(item)
//	defer sj.Close()
type ScopedJoin[T Joiner] struct {
	target T
	once   sync.Once
}

// NewScopedJoin wraps target without taking ownership of it.
func NewScopedJoin[T Joiner](target T) *ScopedJoin[T] {
	return &ScopedJoin[T]{target: target}
}

// Target returns the wrapped object.
func (s *ScopedJoin[T]) Target() T { return s.target }

// Join joins the target unless that already happened or was disarmed.
func (s *ScopedJoin[T]) Join() {
	s.once.Do(s.target.Join)
}

// Disarm prevents any later join.
func (s *ScopedJoin[T]) Disarm() {
	s.once.Do(func() {})
}

// Close is Join, for use with defer.
func (s *ScopedJoin[T]) Close() { s.Join() }
