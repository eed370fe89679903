// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netcore

import "net"

// endpointKind tags the three socket-table entry shapes netcore manages.
// The entry is a plain tagged struct dispatched on kind, not an interface:
// the reactor's hot loop switches on a fixed three-case set every poll
// iteration, and a concrete struct avoids the interface-dispatch and
// heap-escape cost of a method call per event.
type endpointKind uint8

const (
	endpointListener endpointKind = iota
	endpointStream
	endpointControl
)

// endpoint is one row of the reactor's socket table (internal/slab.Table).
// Exactly one of listener/stream/control is meaningful, selected by kind.
type endpoint struct {
	kind endpointKind

	listener *listenerEndpoint
	stream   *FramedStream
	control  *controlEndpoint
}

// listenerEndpoint is a bound, listening TCP socket awaiting inbound
// connections. Unlike a FramedStream it has no frame state: readable
// readiness means "accept until EAGAIN".
type listenerEndpoint struct {
	fd    int
	local net.Addr
}

func newListenerEndpoint(fd int, local net.Addr) *listenerEndpoint {
	return &listenerEndpoint{fd: fd, local: local}
}

func (e *endpoint) isListener() bool { return e.kind == endpointListener }
func (e *endpoint) isStream() bool   { return e.kind == endpointStream }
func (e *endpoint) isControl() bool  { return e.kind == endpointControl }
