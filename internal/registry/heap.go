// File: internal/registry/heap.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package registry

import "container/heap"

// Heap keeps members ordered by less with O(log n) insertion and removal
// by key. The minimum is always the first element.
type Heap[T Keyed] struct {
	in entries[T]
}

// NewHeap creates an empty heap ordered by less, which must be a strict
// total order (ties broken by key).
func NewHeap[T Keyed](less func(a, b T) bool) *Heap[T] {
	return &Heap[T]{in: entries[T]{pos: make(map[uint64]int), less: less}}
}

// Push inserts v. It returns false when a member with the same key exists.
func (h *Heap[T]) Push(v T) bool {
	if _, ok := h.in.pos[v.Key()]; ok {
		return false
	}
	heap.Push(&h.in, v)
	return true
}

// Peek returns the minimum without removing it.
func (h *Heap[T]) Peek() (T, bool) {
	var zero T
	if len(h.in.items) == 0 {
		return zero, false
	}
	return h.in.items[0], true
}

// Pop removes and returns the minimum.
func (h *Heap[T]) Pop() (T, bool) {
	var zero T
	if len(h.in.items) == 0 {
		return zero, false
	}
	return heap.Pop(&h.in).(T), true
}

// Remove drops the member with key k.
func (h *Heap[T]) Remove(k uint64) (T, bool) {
	var zero T
	i, ok := h.in.pos[k]
	if !ok {
		return zero, false
	}
	return heap.Remove(&h.in, i).(T), true
}

// Fix restores ordering after the ordering fields of member k changed.
func (h *Heap[T]) Fix(k uint64) bool {
	i, ok := h.in.pos[k]
	if !ok {
		return false
	}
	heap.Fix(&h.in, i)
	return true
}

// Get returns the member with key k.
func (h *Heap[T]) Get(k uint64) (T, bool) {
	var zero T
	i, ok := h.in.pos[k]
	if !ok {
		return zero, false
	}
	return h.in.items[i], true
}

// Contains reports membership of key k.
func (h *Heap[T]) Contains(k uint64) bool {
	_, ok := h.in.pos[k]
	return ok
}

// Len returns the number of members.
func (h *Heap[T]) Len() int { return len(h.in.items) }

// Drain removes and returns every member in heap order.
func (h *Heap[T]) Drain() []T {
	out := make([]T, 0, len(h.in.items))
	for len(h.in.items) > 0 {
		out = append(out, heap.Pop(&h.in).(T))
	}
	return out
}

// entries implements heap.Interface and tracks member positions.
type entries[T Keyed] struct {
	items []T
	pos   map[uint64]int
	less  func(a, b T) bool
}

func (e entries[T]) Len() int           { return len(e.items) }
func (e entries[T]) Less(i, j int) bool { return e.less(e.items[i], e.items[j]) }

func (e entries[T]) Swap(i, j int) {
	e.items[i], e.items[j] = e.items[j], e.items[i]
	e.pos[e.items[i].Key()] = i
	e.pos[e.items[j].Key()] = j
}

func (e *entries[T]) Push(x any) {
	v := x.(T)
	e.pos[v.Key()] = len(e.items)
	e.items = append(e.items, v)
}

func (e *entries[T]) Pop() any {
	old := e.items
	n := len(old)
	v := old[n-1]
	var zero T
	old[n-1] = zero
	e.items = old[:n-1]
	delete(e.pos, v.Key())
	return v
}
