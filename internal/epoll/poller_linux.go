//go:build linux

// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package epoll

import (
	"time"

	"golang.org/x/sys/unix"
)

// Poller is an edge-triggered epoll instance. All registrations always
// request EPOLLET: per the reactor's edge-triggered discipline, callers
// must drain readable fds until WouldBlock and writable fds until
// WouldBlock-or-empty, or they will miss subsequent readiness transitions.
type Poller struct {
	epfd int
}

// Open creates a new epoll instance.
func Open() (*Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &Poller{epfd: fd}, nil
}

// Close releases the underlying epoll fd.
func (p *Poller) Close() error {
	return unix.Close(p.epfd)
}

func toEpollEvents(i Interest) uint32 {
	ev := uint32(unix.EPOLLET)
	if i&Readable != 0 {
		ev |= unix.EPOLLIN
	}
	if i&Writable != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

// Add registers fd for the given interest set.
func (p *Poller) Add(fd int, interest Interest) error {
	ev := unix.EpollEvent{Events: toEpollEvents(interest), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

// Modify updates fd's interest set in place.
func (p *Poller) Modify(fd int, interest Interest) error {
	ev := unix.EpollEvent{Events: toEpollEvents(interest), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

// Remove deregisters fd. It is not an error to remove an fd that has
// already been closed (EBADF is swallowed), since closing a socket
// implicitly drops its epoll registration.
func (p *Poller) Remove(fd int) error {
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.EBADF || err == unix.ENOENT {
		return nil
	}
	return err
}

// Wait blocks until an event arrives or timeout elapses (timeout < 0 means
// block indefinitely), writing up to len(events) readiness events into
// events and returning how many were filled.
func (p *Poller) Wait(events []Event, timeout time.Duration) (int, error) {
	raw := make([]unix.EpollEvent, len(events))
	msec := -1
	if timeout >= 0 {
		msec = int(timeout / time.Millisecond)
	}
	n, err := unix.EpollWait(p.epfd, raw, msec)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	for i := 0; i < n; i++ {
		events[i] = Event{
			Fd:       int(raw[i].Fd),
			Readable: raw[i].Events&unix.EPOLLIN != 0,
			Writable: raw[i].Events&unix.EPOLLOUT != 0,
			Err:      raw[i].Events&unix.EPOLLERR != 0,
			Hup:      raw[i].Events&unix.EPOLLHUP != 0,
		}
	}
	return n, nil
}
