// File: api/fdset.go
// Author: momentics <momentics@gmail.com>
//
// Portable descriptor sets handed to readiness sources.

package api

import (
	"math/bits"
	"time"
)

// FDSet is a growable bitset of file descriptors.
type FDSet struct {
	words []uint64
}

// Set adds fd to the set. Negative descriptors are ignored.
func (s *FDSet) Set(fd int) {
	if fd < 0 {
		return
	}
	w := fd / 64
	for len(s.words) <= w {
		s.words = append(s.words, 0)
	}
	s.words[w] |= 1 << (uint(fd) % 64)
}

// Clear removes fd from the set.
func (s *FDSet) Clear(fd int) {
	if fd < 0 || fd/64 >= len(s.words) {
		return
	}
	s.words[fd/64] &^= 1 << (uint(fd) % 64)
}

// IsSet reports whether fd is in the set.
func (s *FDSet) IsSet(fd int) bool {
	if fd < 0 || fd/64 >= len(s.words) {
		return false
	}
	return s.words[fd/64]&(1<<(uint(fd)%64)) != 0
}

// Zero empties the set, keeping its storage.
func (s *FDSet) Zero() {
	for i := range s.words {
		s.words[i] = 0
	}
}

// Len returns the number of descriptors in the set.
func (s *FDSet) Len() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Max returns the highest descriptor in the set, or -1 when empty.
func (s *FDSet) Max() int {
	for i := len(s.words) - 1; i >= 0; i-- {
		if w := s.words[i]; w != 0 {
			return i*64 + 63 - bits.LeadingZeros64(w)
		}
	}
	return -1
}

// Each calls fn for every descriptor in ascending order.
func (s *FDSet) Each(fn func(fd int)) {
	for i, w := range s.words {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			fn(i*64 + b)
			w &^= 1 << uint(b)
		}
	}
}

// DescriptorSet is the interest (before a wait) and the readiness (after a
// wait) of every registered descriptor callback.
type DescriptorSet struct {
	Read  FDSet
	Write FDSet
	Error FDSet

	limited    bool
	maxTimeout time.Duration
}

// NewDescriptorSet returns an empty set without a timeout limit.
func NewDescriptorSet() *DescriptorSet {
	return &DescriptorSet{}
}

// Reset empties all three sets and drops any timeout limit.
func (ds *DescriptorSet) Reset() {
	ds.Read.Zero()
	ds.Write.Zero()
	ds.Error.Zero()
	ds.limited = false
	ds.maxTimeout = 0
}

// LimitTimeout asks the dispatcher not to block longer than d.
func (ds *DescriptorSet) LimitTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	if !ds.limited || d < ds.maxTimeout {
		ds.limited = true
		ds.maxTimeout = d
	}
}

// MaxTimeout returns the requested limit, or a negative value when none.
func (ds *DescriptorSet) MaxTimeout() time.Duration {
	if !ds.limited {
		return -1
	}
	return ds.maxTimeout
}

// Empty reports whether no descriptor is present in any set.
func (ds *DescriptorSet) Empty() bool {
	return ds.Read.Max() < 0 && ds.Write.Max() < 0 && ds.Error.Max() < 0
}

// MaxFD returns the highest descriptor across all sets, or -1.
func (ds *DescriptorSet) MaxFD() int {
	m := ds.Read.Max()
	if w := ds.Write.Max(); w > m {
		m = w
	}
	if e := ds.Error.Max(); e > m {
		m = e
	}
	return m
}
