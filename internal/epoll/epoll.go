// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package epoll

import "errors"

// ErrUnsupported is returned by Open on platforms with no poller
// implementation.
var ErrUnsupported = errors.New("epoll: unsupported platform")

// Interest is the set of readiness kinds a registration cares about.
// Readable and Writable may be combined.
type Interest uint8

const (
	Readable Interest = 1 << iota
	Writable
)

// Event reports one readiness notification for one file descriptor.
type Event struct {
	Fd       int
	Readable bool
	Writable bool
	// Err and Hup report EPOLLERR / EPOLLHUP; the reactor treats either as
	// a terminal condition for the associated endpoint.
	Err bool
	Hup bool
}
