// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slab_test

import (
	"testing"

	"code.hybscloud.com/netcore/internal/slab"
)

func TestInsertAssignsSmallestFreeSlot(t *testing.T) {
	tb := slab.New[string]()
	a := tb.Insert("a")
	b := tb.Insert("b")
	c := tb.Insert("c")
	if a != 0 || b != 1 || c != 2 {
		t.Fatalf("ids = %d,%d,%d, want 0,1,2", a, b, c)
	}

	tb.Remove(b)
	d := tb.Insert("d")
	if d != b {
		t.Fatalf("Insert after Remove(%d) = %d, want reuse of %d", b, d, b)
	}

	if v, ok := tb.Get(a); !ok || v != "a" {
		t.Fatalf("Get(%d) = %q,%v, want a,true", a, v, ok)
	}
	if _, ok := tb.Get(999); ok {
		t.Fatalf("Get(999) ok = true, want false")
	}
}

func TestInsertReusesSmallestFreeIdNotMostRecentlyFreed(t *testing.T) {
	tb := slab.New[int]()
	for i := 0; i < 4; i++ {
		tb.Insert(i)
	}
	tb.Remove(1)
	tb.Remove(3)

	id := tb.Insert(100)
	if id != 1 {
		t.Fatalf("Insert after Remove(1), Remove(3) = %d, want 1 (smallest free id, not the most recently freed)", id)
	}
	next := tb.Insert(101)
	if next != 3 {
		t.Fatalf("second Insert = %d, want 3", next)
	}
}

func TestGetPtrMutatesInPlace(t *testing.T) {
	tb := slab.New[int]()
	id := tb.Insert(1)
	*tb.GetPtr(id) += 41
	v, _ := tb.Get(id)
	if v != 42 {
		t.Fatalf("value = %d, want 42", v)
	}
}

func TestRemoveThenGetFails(t *testing.T) {
	tb := slab.New[int]()
	id := tb.Insert(7)
	tb.Remove(id)
	if _, ok := tb.Get(id); ok {
		t.Fatalf("Get after Remove ok = true, want false")
	}
	// Removing twice must not panic or double-free the slot.
	tb.Remove(id)
	next := tb.Insert(8)
	if next != id {
		t.Fatalf("Insert after double Remove = %d, want %d", next, id)
	}
}

func TestEachVisitsOccupiedInOrder(t *testing.T) {
	tb := slab.New[int]()
	tb.Insert(10)
	mid := tb.Insert(20)
	tb.Insert(30)
	tb.Remove(mid)

	var seen []int
	tb.Each(func(id int, v int) bool {
		seen = append(seen, v)
		return true
	})
	if len(seen) != 2 || seen[0] != 10 || seen[1] != 30 {
		t.Fatalf("seen = %v, want [10 30]", seen)
	}
	if tb.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tb.Len())
	}
}

func TestEachEarlyStop(t *testing.T) {
	tb := slab.New[int]()
	tb.Insert(1)
	tb.Insert(2)
	tb.Insert(3)

	count := 0
	tb.Each(func(id int, v int) bool {
		count++
		return count < 2
	})
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}
