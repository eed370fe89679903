// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slab

import "container/heap"

// Table is a dense id->value store. Insert returns the smallest id not
// currently in use; Remove frees that id for a later Insert. Values are
// stored by value (not behind an interface), matching the caller's own
// element type.
type Table[T any] struct {
	slots []slot[T]
	free  freeHeap
}

type slot[T any] struct {
	value T
	used  bool
}

// freeHeap is a min-heap of freed ids, so the next Insert always reuses the
// smallest one rather than whichever was freed most recently.
type freeHeap []int

func (h freeHeap) Len() int            { return len(h) }
func (h freeHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h freeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *freeHeap) Push(x interface{}) { *h = append(*h, x.(int)) }
func (h *freeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// New returns an empty Table.
func New[T any]() *Table[T] {
	return &Table[T]{}
}

// Insert stores v at the smallest free id and returns that id.
func (t *Table[T]) Insert(v T) int {
	if t.free.Len() > 0 {
		id := heap.Pop(&t.free).(int)
		t.slots[id] = slot[T]{value: v, used: true}
		return id
	}
	id := len(t.slots)
	t.slots = append(t.slots, slot[T]{value: v, used: true})
	return id
}

// Get returns the value at id and whether id is currently occupied.
func (t *Table[T]) Get(id int) (T, bool) {
	if id < 0 || id >= len(t.slots) || !t.slots[id].used {
		var zero T
		return zero, false
	}
	return t.slots[id].value, true
}

// GetPtr returns a pointer to the stored value for in-place mutation, or
// nil if id is not occupied.
func (t *Table[T]) GetPtr(id int) *T {
	if id < 0 || id >= len(t.slots) || !t.slots[id].used {
		return nil
	}
	return &t.slots[id].value
}

// Set overwrites the value at an already-occupied id. It is a no-op if id
// is not occupied.
func (t *Table[T]) Set(id int, v T) {
	if id < 0 || id >= len(t.slots) || !t.slots[id].used {
		return
	}
	t.slots[id].value = v
}

// Remove frees id, making it eligible for reuse by a later Insert. It is a
// no-op if id is not occupied.
func (t *Table[T]) Remove(id int) {
	if id < 0 || id >= len(t.slots) || !t.slots[id].used {
		return
	}
	var zero T
	t.slots[id] = slot[T]{value: zero, used: false}
	heap.Push(&t.free, id)
}

// Len returns the number of occupied ids.
func (t *Table[T]) Len() int {
	return len(t.slots) - t.free.Len()
}

// Each calls fn for every occupied id in ascending order, stopping early if
// fn returns false. Mutating the table from within fn is not supported.
func (t *Table[T]) Each(fn func(id int, v T) bool) {
	for id, s := range t.slots {
		if !s.used {
			continue
		}
		if !fn(id, s.value) {
			return
		}
	}
}
