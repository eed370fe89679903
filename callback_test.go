// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netcore

import (
	"testing"

	"code.hybscloud.com/netcore/internal/slab"
)

var _ Callbacks = BaseCallbacks{}

func TestContextIsListenerAndEach(t *testing.T) {
	core := &Core{table: slab.New[endpoint]()}
	ctx := &Context{core: core}

	listenerID := core.table.Insert(endpoint{kind: endpointListener, listener: &listenerEndpoint{fd: 1}})
	streamA := core.table.Insert(endpoint{kind: endpointStream, stream: &FramedStream{}})
	streamB := core.table.Insert(endpoint{kind: endpointStream, stream: &FramedStream{}})
	core.table.Insert(endpoint{kind: endpointControl, control: &controlEndpoint{}})

	if !ctx.IsListener(listenerID) {
		t.Fatalf("IsListener(%d) = false, want true", listenerID)
	}
	if ctx.IsListener(streamA) {
		t.Fatalf("IsListener(%d) = true for a stream endpoint", streamA)
	}

	seen := map[int]bool{}
	ctx.Each(func(id int) bool {
		seen[id] = true
		return true
	})
	if !seen[streamA] || !seen[streamB] {
		t.Fatalf("Each missed a stream id: seen=%v", seen)
	}
	if seen[listenerID] {
		t.Fatalf("Each visited the listener id %d", listenerID)
	}

	seenListeners := map[int]bool{}
	ctx.EachListener(func(id int) bool {
		seenListeners[id] = true
		return true
	})
	if !seenListeners[listenerID] {
		t.Fatalf("EachListener missed the listener id %d", listenerID)
	}
	if seenListeners[streamA] || seenListeners[streamB] {
		t.Fatalf("EachListener visited a stream id: seen=%v", seenListeners)
	}
}

func TestContextEachStopsEarly(t *testing.T) {
	core := &Core{table: slab.New[endpoint]()}
	ctx := &Context{core: core}
	for i := 0; i < 5; i++ {
		core.table.Insert(endpoint{kind: endpointStream, stream: &FramedStream{}})
	}

	visited := 0
	ctx.Each(func(id int) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Fatalf("visited = %d, want 1 (Each should stop after the first false)", visited)
	}
}
