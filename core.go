// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netcore

import (
	"context"
	"net"
	"time"

	"code.hybscloud.com/netcore/internal/epoll"
	"code.hybscloud.com/netcore/internal/slab"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Core is the reactor: a single goroutine multiplexing listeners and
// stream connections over one epoll instance, decoding inbound frames and
// draining outbound ones, and dispatching every event to a Callbacks. Every
// exported method other than Run, WriteHandle, and the constructors must be
// called from the same goroutine that calls Run; cross-goroutine mutation
// goes through a WriteHandle (or a Context passed into a Callbacks method).
type Core struct {
	poller *epoll.Poller
	table  *slab.Table[endpoint]
	ctrl   *controlEndpoint

	callbacks Callbacks
	codec     FrameCodec
	maxWrite  int
	events    []epoll.Event
	metrics   *Metrics

	ctxView      *Context
	shuttingDown bool
}

// NewCore constructs a Core bound to callbacks and opens its poller and
// control channel. The returned Core has no listeners or connections yet;
// call Listen/Connect before Run (Context offers no Listen or Connect, so a
// Callbacks method cannot add endpoints).
func NewCore(callbacks Callbacks, opts ...Option) (*Core, error) {
	if callbacks == nil {
		callbacks = BaseCallbacks{}
	}
	o := defaultOptions
	for _, opt := range opts {
		opt(&o)
	}

	poller, err := epoll.Open()
	if err != nil {
		return nil, errors.Wrap(err, "netcore: open poller")
	}
	ctrl, err := newControlEndpoint()
	if err != nil {
		_ = poller.Close()
		return nil, err
	}

	c := &Core{
		poller:    poller,
		table:     slab.New[endpoint](),
		ctrl:      ctrl,
		callbacks: callbacks,
		codec:     o.Codec,
		maxWrite:  o.MaxWriteBuf,
		events:    make([]epoll.Event, o.MaxEvents),
		metrics:   newMetrics(o.Registerer),
	}
	c.ctxView = &Context{core: c}

	c.table.Insert(endpoint{kind: endpointControl, control: ctrl})
	if err := poller.Add(ctrl.Fd(), epoll.Readable); err != nil {
		_ = ctrl.close()
		_ = poller.Close()
		return nil, errors.Wrap(err, "netcore: register control endpoint")
	}
	return c, nil
}

// Listen binds and registers a listening TCP socket on addr ("host:port").
// It returns the socket table id assigned to the listener.
func (c *Core) Listen(addr string) (int, error) {
	fd, local, err := listenTCP(addr)
	if err != nil {
		return -1, err
	}
	id := c.table.Insert(endpoint{kind: endpointListener, listener: newListenerEndpoint(fd, local)})
	if err := c.poller.Add(fd, epoll.Readable); err != nil {
		c.table.Remove(id)
		_ = unix.Close(fd)
		return -1, errors.Wrap(err, "netcore: register listener")
	}
	c.metrics.listeners.Inc()
	c.callbacks.OnListen(c.ctxView, id, local)
	return id, nil
}

// Connect initiates a non-blocking outbound TCP connection to addr. It
// returns the socket table id immediately; OnConnect fires once the
// connect handshake completes or fails, observed via writable readiness
// plus a SO_ERROR check rather than at call time.
func (c *Core) Connect(addr string) (int, error) {
	fd, remote, err := dialTCP(addr)
	if err != nil {
		return -1, err
	}
	conn := &tcpConn{fd: fd, remote: remote}
	stream := newFramedStream(conn, c.codec, c.maxWrite)
	stream.connecting = true
	stream.setInterest(epoll.Writable)
	id := c.table.Insert(endpoint{kind: endpointStream, stream: stream})
	if err := c.poller.Add(fd, stream.interestSet()); err != nil {
		c.table.Remove(id)
		_ = conn.Close()
		return -1, errors.Wrap(err, "netcore: register connection")
	}
	return id, nil
}

// WriteHandle returns a cross-goroutine capability to enqueue writes,
// closes, and an orderly shutdown against this Core.
func (c *Core) WriteHandle() WriteHandle {
	return WriteHandle{ctrl: c.ctrl}
}

// Run polls for readiness and dispatches events until ctx is canceled or a
// Shutdown request is processed. It always runs OnShutdown exactly once,
// after every connection and listener has been closed, before returning.
func (c *Core) Run(ctx context.Context) error {
	c.callbacks.OnInit(c.ctxView)
	for {
		if ctx.Err() != nil {
			c.shutdown()
			return ctx.Err()
		}
		n, err := c.poller.Wait(c.events, 250*time.Millisecond)
		if err != nil {
			c.shutdown()
			return errors.Wrap(err, "netcore: poll")
		}
		for i := 0; i < n; i++ {
			c.dispatch(c.events[i])
		}
		if c.shuttingDown {
			c.finishShutdown()
			return nil
		}
	}
}

func (c *Core) dispatch(ev epoll.Event) {
	if ev.Fd == c.ctrl.Fd() {
		c.dispatchControl()
		return
	}
	id, ok := c.idForFd(ev.Fd)
	if !ok {
		return
	}
	ep, _ := c.table.Get(id)
	switch ep.kind {
	case endpointListener:
		c.dispatchListener(id, ep.listener)
	case endpointStream:
		c.dispatchStream(id, ep.stream, ev)
	}
}

// idForFd resolves a ready fd back to its socket table id. netcore's
// tables are small enough in the common case that a linear scan is cheap;
// a fd->id index can be added if profiling ever shows otherwise.
func (c *Core) idForFd(fd int) (int, bool) {
	found := -1
	c.table.Each(func(id int, ep endpoint) bool {
		switch ep.kind {
		case endpointListener:
			if ep.listener.fd == fd {
				found = id
				return false
			}
		case endpointStream:
			if ep.stream.conn.Fd() == fd {
				found = id
				return false
			}
		}
		return true
	})
	if found < 0 {
		return 0, false
	}
	return found, true
}

func (c *Core) dispatchListener(id int, l *listenerEndpoint) {
	for {
		conn, ok, err := acceptOne(l.fd)
		if err != nil {
			c.callbacks.OnControlError(c.ctxView, id, err)
			return
		}
		if !ok {
			return
		}
		stream := newFramedStream(conn, c.codec, c.maxWrite)
		cid := c.table.Insert(endpoint{kind: endpointStream, stream: stream})
		if err := c.poller.Add(conn.Fd(), stream.interestSet()); err != nil {
			c.table.Remove(cid)
			_ = conn.Close()
			continue
		}
		stream.counted = true
		c.metrics.connections.Inc()
		c.callbacks.OnAccept(c.ctxView, cid, id, conn.RemoteAddr())
	}
}

func (c *Core) dispatchStream(id int, s *FramedStream, ev epoll.Event) {
	if s.connecting {
		if ev.Writable || ev.Err {
			c.completeConnect(id, s)
		}
		return
	}
	if ev.Err || ev.Hup {
		c.closeStream(id, s, ErrPeerClosed)
		return
	}
	if ev.Readable {
		frames, err := s.readFrames()
		if len(frames) > 0 {
			c.metrics.framesIn.Add(float64(len(frames)))
			for _, f := range frames {
				c.metrics.bytesIn.Add(float64(len(f)))
			}
			c.callbacks.OnFrames(c.ctxView, id, frames)
		}
		if err != nil {
			c.closeStream(id, s, err)
			return
		}
	}
	if ev.Writable {
		if _, err := s.handleWrite(); err != nil {
			c.closeStream(id, s, err)
			return
		}
	}
	if s.interestChanged() {
		_ = c.poller.Modify(s.conn.Fd(), s.interestSet())
	}
}

func (c *Core) completeConnect(id int, s *FramedStream) {
	err := connectError(s.conn.Fd())
	if err != nil {
		c.callbacks.OnConnect(c.ctxView, id, s.conn.RemoteAddr(), err)
		c.removeEndpoint(id)
		_ = s.conn.Close()
		return
	}
	s.connecting = false
	s.setInterest(epoll.Readable)
	if len(s.writeBuf) > 0 {
		s.setInterest(epoll.Readable | epoll.Writable)
	}
	_ = c.poller.Modify(s.conn.Fd(), s.interestSet())
	s.interestChanged()
	s.counted = true
	c.metrics.connections.Inc()
	c.callbacks.OnConnect(c.ctxView, id, s.conn.RemoteAddr(), nil)
}

func (c *Core) closeStream(id int, s *FramedStream, err error) {
	_ = s.close()
	c.removeEndpoint(id)
	if s.counted {
		c.metrics.connections.Dec()
	}
	if err == ErrPeerClosed {
		err = nil
	}
	c.callbacks.OnClose(c.ctxView, id, err)
}

func (c *Core) removeEndpoint(id int) {
	ep, ok := c.table.Get(id)
	if !ok {
		return
	}
	var fd int
	switch ep.kind {
	case endpointListener:
		fd = ep.listener.fd
	case endpointStream:
		fd = ep.stream.conn.Fd()
	default:
		return
	}
	_ = c.poller.Remove(fd)
	c.table.Remove(id)
}

func (c *Core) dispatchControl() {
	msgs := c.ctrl.drain()
	c.metrics.controlQueueLen.Set(float64(len(msgs)))
	for _, msg := range msgs {
		switch msg.kind {
		case controlWriteFrame:
			c.applyWriteFrame(msg.id, msg.payload)
		case controlClose:
			c.applyClose(msg.id)
		case controlShutdown:
			c.shuttingDown = true
		}
	}
}

func (c *Core) applyWriteFrame(id int, payload []byte) {
	if c.shuttingDown {
		c.callbacks.OnControlError(c.ctxView, id, ErrShutdown)
		return
	}
	ep, ok := c.table.Get(id)
	if !ok || !ep.isStream() {
		c.callbacks.OnControlError(c.ctxView, id, ErrInvalidTarget)
		return
	}
	s := ep.stream
	if err := s.queueWrite(payload); err != nil {
		c.callbacks.OnControlError(c.ctxView, id, err)
		return
	}
	c.metrics.framesOut.Inc()
	c.metrics.bytesOut.Add(float64(len(payload)))
	if s.interestChanged() {
		_ = c.poller.Modify(s.conn.Fd(), s.interestSet())
	}
}

func (c *Core) applyClose(id int) {
	ep, ok := c.table.Get(id)
	if !ok {
		c.callbacks.OnControlError(c.ctxView, id, ErrInvalidTarget)
		return
	}
	switch ep.kind {
	case endpointStream:
		c.closeStream(id, ep.stream, nil)
	case endpointListener:
		_ = unix.Close(ep.listener.fd)
		c.removeEndpoint(id)
		c.metrics.listeners.Dec()
		c.callbacks.OnClose(c.ctxView, id, nil)
	default:
		c.callbacks.OnControlError(c.ctxView, id, ErrInvalidTarget)
	}
}

func (c *Core) shutdown() {
	c.shuttingDown = true
	c.finishShutdown()
}

func (c *Core) finishShutdown() {
	var ids []int
	c.table.Each(func(id int, ep endpoint) bool {
		if ep.kind != endpointControl {
			ids = append(ids, id)
		}
		return true
	})
	for _, id := range ids {
		ep, ok := c.table.Get(id)
		if !ok {
			continue
		}
		switch ep.kind {
		case endpointStream:
			c.closeStream(id, ep.stream, nil)
		case endpointListener:
			_ = unix.Close(ep.listener.fd)
			c.removeEndpoint(id)
			c.metrics.listeners.Dec()
			c.callbacks.OnClose(c.ctxView, id, nil)
		}
	}
	c.callbacks.OnShutdown(c.ctxView)
	_ = c.ctrl.close()
	_ = c.poller.Close()
}

// RemoteAddr returns the remote address recorded for connection id, if it
// names an open stream.
func (c *Core) RemoteAddr(id int) (net.Addr, bool) {
	ep, ok := c.table.Get(id)
	if !ok || !ep.isStream() {
		return nil, false
	}
	return ep.stream.conn.RemoteAddr(), true
}
