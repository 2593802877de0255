// File: internal/registry/set.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package registry

type slot[T Keyed] struct {
	v    T
	live bool
}

// Set is an insertion-ordered collection with O(1) membership by key.
// Removal leaves a tombstone; tombstones are compacted once they outnumber
// live members.
type Set[T Keyed] struct {
	index map[uint64]int
	slots []slot[T]
	dead  int
}

// NewSet creates an empty set.
func NewSet[T Keyed]() *Set[T] {
	return &Set[T]{index: make(map[uint64]int)}
}

// Add appends v. It returns false when a member with the same key exists.
func (s *Set[T]) Add(v T) bool {
	k := v.Key()
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = len(s.slots)
	s.slots = append(s.slots, slot[T]{v: v, live: true})
	return true
}

// Remove drops the member with key k.
func (s *Set[T]) Remove(k uint64) (T, bool) {
	var zero T
	i, ok := s.index[k]
	if !ok {
		return zero, false
	}
	v := s.slots[i].v
	s.slots[i] = slot[T]{}
	delete(s.index, k)
	s.dead++
	if s.dead > len(s.index) {
		s.compact()
	}
	return v, true
}

// Get returns the member with key k.
func (s *Set[T]) Get(k uint64) (T, bool) {
	var zero T
	i, ok := s.index[k]
	if !ok {
		return zero, false
	}
	return s.slots[i].v, true
}

// Contains reports membership of key k.
func (s *Set[T]) Contains(k uint64) bool {
	_, ok := s.index[k]
	return ok
}

// Len returns the number of live members.
func (s *Set[T]) Len() int { return len(s.index) }

// Snapshot returns live members in insertion order. The slice is a copy.
func (s *Set[T]) Snapshot() []T {
	out := make([]T, 0, len(s.index))
	for _, sl := range s.slots {
		if sl.live {
			out = append(out, sl.v)
		}
	}
	return out
}

// Drain removes and returns every member in insertion order.
func (s *Set[T]) Drain() []T {
	out := s.Snapshot()
	s.index = make(map[uint64]int)
	s.slots = nil
	s.dead = 0
	return out
}

func (s *Set[T]) compact() {
	live := s.slots[:0]
	for _, sl := range s.slots {
		if sl.live {
			s.index[sl.v.Key()] = len(live)
			live = append(live, sl)
		}
	}
	var zero slot[T]
	for i := len(live); i < len(s.slots); i++ {
		s.slots[i] = zero
	}
	s.slots = live
	s.dead = 0
}
