// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netcore

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// controlMsgKind tags a queued cross-goroutine request.
type controlMsgKind uint8

const (
	controlWriteFrame controlMsgKind = iota
	controlClose
	controlShutdown
)

// controlMsg is one request enqueued from outside the reactor goroutine.
type controlMsg struct {
	kind    controlMsgKind
	id      int
	payload []byte
}

// controlEndpoint is the reactor's cross-thread mailbox: an eventfd
// registered with the poller as an ordinary Readable endpoint, guarding a
// mutex-protected queue of controlMsg. Any goroutine may enqueue through a
// WriteHandle; only the reactor goroutine ever drains the queue, which is
// what lets write_frame and Shutdown be called safely from outside the
// single-threaded event loop.
type controlEndpoint struct {
	fd int

	mu    sync.Mutex
	queue []controlMsg
}

// newControlEndpoint creates a Linux eventfd and wraps it as a control
// endpoint. The eventfd starts non-blocking: draining it only ever
// observes "signaled" or "not signaled", never blocks the reactor.
func newControlEndpoint() (*controlEndpoint, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, errors.Wrap(err, "netcore: eventfd")
	}
	return &controlEndpoint{fd: fd}, nil
}

func (c *controlEndpoint) Fd() int { return c.fd }

// signal wakes the reactor's epoll_wait by writing the eventfd counter.
func (c *controlEndpoint) signal() {
	var buf [8]byte
	buf[0] = 1
	_, _ = unix.Write(c.fd, buf[:])
}

// enqueue appends msg to the queue and signals the reactor. Safe to call
// from any goroutine.
func (c *controlEndpoint) enqueue(msg controlMsg) {
	c.mu.Lock()
	c.queue = append(c.queue, msg)
	c.mu.Unlock()
	c.signal()
}

// drain clears the eventfd counter and returns every message queued since
// the last drain. Only the reactor goroutine calls this.
func (c *controlEndpoint) drain() []controlMsg {
	var buf [8]byte
	for {
		_, err := unix.Read(c.fd, buf[:])
		if err != nil {
			break
		}
	}
	c.mu.Lock()
	msgs := c.queue
	c.queue = nil
	c.mu.Unlock()
	return msgs
}

func (c *controlEndpoint) close() error {
	return unix.Close(c.fd)
}

// WriteHandle is a cross-thread capability to queue work onto a running
// Core without touching the reactor's internal state directly. Callbacks
// and other goroutines use it instead of calling Core methods that assume
// single-threaded access; see Context in callback.go for the variant handed
// to callbacks invoked from inside the event loop itself.
type WriteHandle struct {
	ctrl *controlEndpoint
}

// WriteFrame enqueues payload for delivery to connection id. The write is
// applied on the reactor goroutine's next control-channel drain; errors
// (unknown id, id is a listener, or the reactor is shutting down) surface
// later via Callbacks.OnControlError rather than as a return value, since
// the enqueue itself cannot know the outcome.
func (h WriteHandle) WriteFrame(id int, payload []byte) {
	cp := append([]byte(nil), payload...)
	h.ctrl.enqueue(controlMsg{kind: controlWriteFrame, id: id, payload: cp})
}

// Close requests that connection id be closed from the reactor goroutine.
func (h WriteHandle) Close(id int) {
	h.ctrl.enqueue(controlMsg{kind: controlClose, id: id})
}

// Shutdown requests an orderly reactor stop: every open connection and
// listener is closed, Callbacks.OnShutdown runs, and Run returns.
func (h WriteHandle) Shutdown() {
	h.ctrl.enqueue(controlMsg{kind: controlShutdown})
}
