package registry

import "testing"

type item struct {
	key  uint64
	rank int
}

func (i *item) Key() uint64 { return i.key }

func byRank(a, b *item) bool {
	if a.rank != b.rank {
		return a.rank < b.rank
	}
	return a.key < b.key
}

func TestSetKeepsInsertionOrder(t *testing.T) {
	s := NewSet[*item]()
	for k := uint64(1); k <= 5; k++ {
		if !s.Add(&item{key: k}) {
			t.Fatalf("Add(%d) rejected", k)
		}
	}
	if s.Add(&item{key: 3}) {
		t.Error("duplicate key accepted")
	}
	if _, ok := s.Remove(2); !ok {
		t.Fatal("Remove(2) failed")
	}
	if _, ok := s.Remove(2); ok {
		t.Error("second Remove(2) succeeded")
	}
	got := s.Snapshot()
	want := []uint64{1, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("snapshot len = %d, want %d", len(got), len(want))
	}
	for i, it := range got {
		if it.key != want[i] {
			t.Errorf("snapshot[%d] = %d, want %d", i, it.key, want[i])
		}
	}
}

func TestSetCompactionPreservesLookups(t *testing.T) {
	s := NewSet[*item]()
	for k := uint64(1); k <= 10; k++ {
		s.Add(&item{key: k})
	}
	for k := uint64(1); k <= 8; k++ {
		s.Remove(k)
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	for _, k := range []uint64{9, 10} {
		if v, ok := s.Get(k); !ok || v.key != k {
			t.Errorf("Get(%d) = %v, %v", k, v, ok)
		}
	}
	s.Add(&item{key: 11})
	if got := s.Snapshot(); len(got) != 3 || got[2].key != 11 {
		t.Errorf("unexpected snapshot after compaction: %v", got)
	}
	if d := s.Drain(); len(d) != 3 || s.Len() != 0 {
		t.Errorf("Drain returned %d members, Len after = %d", len(d), s.Len())
	}
}

func TestHeapOrderAndRemoval(t *testing.T) {
	h := NewHeap(byRank)
	ranks := []int{5, 1, 4, 1, 3}
	for i, r := range ranks {
		h.Push(&item{key: uint64(i + 1), rank: r})
	}
	if h.Push(&item{key: 1}) {
		t.Error("duplicate key accepted")
	}
	if _, ok := h.Remove(3); !ok { // rank 4
		t.Fatal("Remove(3) failed")
	}
	if h.Contains(3) {
		t.Error("removed key still present")
	}
	var order []uint64
	for h.Len() > 0 {
		v, _ := h.Pop()
		order = append(order, v.key)
	}
	want := []uint64{2, 4, 5, 1}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("pop order = %v, want %v", order, want)
		}
	}
}

func TestHeapFix(t *testing.T) {
	h := NewHeap(byRank)
	a := &item{key: 1, rank: 1}
	b := &item{key: 2, rank: 2}
	h.Push(a)
	h.Push(b)
	a.rank = 10
	if !h.Fix(1) {
		t.Fatal("Fix(1) failed")
	}
	if top, _ := h.Peek(); top != b {
		t.Errorf("Peek = %d, want 2", top.key)
	}
	if h.Fix(99) {
		t.Error("Fix on missing key succeeded")
	}
}
