// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netcore

import "net"

// Callbacks is the application surface a Core drives from its single
// reactor goroutine. Every method runs on that goroutine: implementations
// must not block, and must not call back into Core directly (use the
// *Context argument instead, or the WriteHandle obtained from
// Core.WriteHandle for calls originating off the reactor goroutine). This
// split exists so a callback can never re-enter the event loop it is
// itself being called from.
type Callbacks interface {
	// OnInit runs once, before Run begins polling.
	OnInit(ctx *Context)

	// OnListen runs once a Listen call's socket is bound and registered.
	OnListen(ctx *Context, listenerID int, addr net.Addr)

	// OnAccept runs when a listener accepts a new inbound connection,
	// before any data has been read from it.
	OnAccept(ctx *Context, id int, listenerID int, remote net.Addr)

	// OnConnect runs once an outbound Connect either completes its
	// handshake or fails. err is nil on success.
	OnConnect(ctx *Context, id int, remote net.Addr, err error)

	// OnFrames delivers every whole frame decoded from one connection
	// during a single poll iteration, in arrival order.
	OnFrames(ctx *Context, id int, frames [][]byte)

	// OnClose runs once when a connection or listener is removed from the
	// socket table, whether the peer closed it, a read/write error
	// occurred, or Close/Shutdown tore it down. err is nil for an orderly
	// close. An outbound Connect whose handshake fails is reported through
	// OnConnect only, not OnClose.
	OnClose(ctx *Context, id int, err error)

	// OnControlError runs when a message enqueued through a WriteHandle or
	// a Context cannot be applied: an unknown or already-closed id, or a
	// write target that is a listener or the control endpoint itself
	// (ErrInvalidTarget), a write drained after a Shutdown request
	// (ErrShutdown), or a write the stream rejects (ErrBackpressure,
	// ErrTooLarge). It also reports a listener's accept failure, with id
	// set to the listener's id.
	OnControlError(ctx *Context, id int, err error)

	// OnShutdown runs once, after every connection and listener has been
	// closed, just before Run returns.
	OnShutdown(ctx *Context)
}

// BaseCallbacks is an embeddable no-op implementation of Callbacks: embed
// it and override only the methods a particular application needs.
type BaseCallbacks struct{}

func (BaseCallbacks) OnInit(ctx *Context)                                        {}
func (BaseCallbacks) OnListen(ctx *Context, listenerID int, addr net.Addr)       {}
func (BaseCallbacks) OnAccept(ctx *Context, id, listenerID int, remote net.Addr) {}
func (BaseCallbacks) OnConnect(ctx *Context, id int, remote net.Addr, err error) {}
func (BaseCallbacks) OnFrames(ctx *Context, id int, frames [][]byte)             {}
func (BaseCallbacks) OnClose(ctx *Context, id int, err error)                    {}
func (BaseCallbacks) OnControlError(ctx *Context, id int, err error)             {}
func (BaseCallbacks) OnShutdown(ctx *Context)                                    {}

// FrameFunc adapts a plain function into a full Callbacks for callers who
// only care about inbound frames: OnFrames calls the function, and every
// other method is a no-op.
type FrameFunc func(ctx *Context, id int, frames [][]byte)

func (f FrameFunc) OnFrames(ctx *Context, id int, frames [][]byte)           { f(ctx, id, frames) }
func (FrameFunc) OnInit(ctx *Context)                                        {}
func (FrameFunc) OnListen(ctx *Context, listenerID int, addr net.Addr)       {}
func (FrameFunc) OnAccept(ctx *Context, id, listenerID int, remote net.Addr) {}
func (FrameFunc) OnConnect(ctx *Context, id int, remote net.Addr, err error) {}
func (FrameFunc) OnClose(ctx *Context, id int, err error)                    {}
func (FrameFunc) OnControlError(ctx *Context, id int, err error)             {}
func (FrameFunc) OnShutdown(ctx *Context)                                    {}

// Context is the view of a Core a Callbacks method receives. It restricts
// callback-initiated mutation to the control channel (the same path an
// outside goroutine uses via WriteHandle), so a callback can never corrupt
// the socket table it is itself being iterated over.
type Context struct {
	core *Core
}

// WriteFrame enqueues payload for connection id via the control channel.
func (c *Context) WriteFrame(id int, payload []byte) {
	c.core.ctrl.enqueue(controlMsg{kind: controlWriteFrame, id: id, payload: append([]byte(nil), payload...)})
}

// Close requests that connection id be closed.
func (c *Context) Close(id int) {
	c.core.ctrl.enqueue(controlMsg{kind: controlClose, id: id})
}

// Shutdown requests an orderly reactor stop.
func (c *Context) Shutdown() {
	c.core.ctrl.enqueue(controlMsg{kind: controlShutdown})
}

// IsListener reports whether id currently names a listener endpoint.
func (c *Context) IsListener(id int) bool {
	ep, ok := c.core.table.Get(id)
	return ok && ep.isListener()
}

// Each iterates every occupied connection id (listeners and the control
// endpoint are skipped), stopping early if fn returns false.
func (c *Context) Each(fn func(id int) bool) {
	c.core.table.Each(func(id int, ep endpoint) bool {
		if !ep.isStream() {
			return true
		}
		return fn(id)
	})
}

// EachListener iterates every occupied listener id (connections and the
// control endpoint are skipped), stopping early if fn returns false.
func (c *Context) EachListener(fn func(id int) bool) {
	c.core.table.Each(func(id int, ep endpoint) bool {
		if !ep.isListener() {
			return true
		}
		return fn(id)
	})
}

// WriteHandle returns a cross-goroutine capability equivalent to this
// Context's write/close/shutdown methods, for use by code that outlives
// the callback invocation (e.g. a worker goroutine started from OnAccept).
func (c *Context) WriteHandle() WriteHandle {
	return WriteHandle{ctrl: c.core.ctrl}
}
