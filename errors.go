// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netcore

import "errors"

var (
	// ErrTooLarge reports that a frame payload exceeds the 65535-byte wire limit.
	ErrTooLarge = errors.New("netcore: message too large")

	// ErrBackpressure reports that queuing a frame would take a stream's
	// write buffer past its configured high-water mark; queue_write did not
	// mutate write_buf.
	ErrBackpressure = errors.New("netcore: write buffer backpressure")

	// ErrPeerClosed reports an orderly remote close (a read returned 0 bytes).
	ErrPeerClosed = errors.New("netcore: peer closed connection")

	// ErrAddressParse reports a malformed "host:port" endpoint string.
	ErrAddressParse = errors.New("netcore: address parse error")

	// ErrInvalidTarget reports write_frame against an unknown id, a listener,
	// or the control endpoint.
	ErrInvalidTarget = errors.New("netcore: invalid write target")

	// ErrClosed reports a write queued on a stream that is already in the
	// Closing state. An id no longer in the socket table gets
	// ErrInvalidTarget instead.
	ErrClosed = errors.New("netcore: endpoint closed")

	// ErrUnsupportedPlatform names the condition of an OS with no poller
	// implementation (only Linux epoll is implemented). No function in this
	// package returns it; internal/epoll reports that condition as
	// epoll.ErrUnsupported.
	ErrUnsupportedPlatform = errors.New("netcore: unsupported platform")

	// ErrShutdown reports that the reactor has shut down or is shutting down.
	ErrShutdown = errors.New("netcore: reactor shutting down")
)
