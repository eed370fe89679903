// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netcore

import "github.com/prometheus/client_golang/prometheus"

// Options configures a Core. Use the With* functions with NewCore rather
// than constructing Options directly.
type Options struct {
	MaxEvents     int
	MaxWriteBuf   int
	Codec         FrameCodec
	Registerer    prometheus.Registerer
}

var defaultOptions = Options{
	MaxEvents:   1024,
	MaxWriteBuf: DefaultMaxWriteBuffer,
	Codec:       IdentityCodec,
}

type Option func(*Options)

// WithMaxEvents sets the size of the per-iteration epoll_wait event buffer.
// Larger values amortize syscall overhead under high fan-out at the cost of
// a bigger fixed allocation.
func WithMaxEvents(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxEvents = n
		}
	}
}

// WithMaxWriteBuffer sets the default per-stream write_buf high-water mark
// enforced by queue_write. A Core-wide setting; there is no per-connection
// override.
func WithMaxWriteBuffer(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxWriteBuf = n
		}
	}
}

// WithCodec sets the FrameCodec applied to every stream's payloads. The
// default, IdentityCodec, performs no transform.
func WithCodec(codec FrameCodec) Option {
	return func(o *Options) {
		if codec != nil {
			o.Codec = codec
		}
	}
}

// WithMetrics registers netcore's Prometheus collectors (connection and
// listener gauges, frame/byte counters, control queue depth) with reg.
// Without this option metrics are still tracked internally but never
// exposed.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *Options) { o.Registerer = reg }
}
