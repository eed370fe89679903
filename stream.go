// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netcore

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/netcore/internal/epoll"
)

const (
	initialReadBufCap = 8 * 1024
	readGrowThreshold = 1024
	readGrowChunk     = 4 * 1024

	// DefaultMaxWriteBuffer is the default per-stream write_buf high-water
	// mark enforced by queue_write, so a stalled reader can't grow an
	// unbounded backlog of queued outbound frames.
	DefaultMaxWriteBuffer = 4 * 1024 * 1024
)

type streamState uint8

const (
	streamOpen streamState = iota
	streamClosing
)

// FramedStream is one framed TCP connection: it owns a growable read
// buffer and a pending write buffer, drives non-blocking reads into whole
// frames, drains queued writes under backpressure, and tracks the
// readiness interest set (Readable always; Writable only while writeBuf
// is non-empty). A stream still connecting waits on Writable alone.
type FramedStream struct {
	conn  rawConn
	codec FrameCodec

	readBuf  []byte
	writeBuf []byte

	interest      epoll.Interest
	interestDirty bool

	state       streamState
	maxWriteBuf int

	// connecting is true for a stream created by Core.Connect until its
	// non-blocking connect handshake completes (observed via writable
	// readiness plus a SO_ERROR check). readFrames/handleWrite are not
	// driven while this is set; the reactor calls completeConnect instead.
	connecting bool

	// counted tracks whether the reactor's connections gauge was
	// incremented for this stream, so closeStream only decrements it for
	// streams that actually contributed to the count (a connect that
	// fails before completing never does).
	counted bool
}

func newFramedStream(conn rawConn, codec FrameCodec, maxWriteBuf int) *FramedStream {
	if codec == nil {
		codec = IdentityCodec
	}
	if maxWriteBuf <= 0 {
		maxWriteBuf = DefaultMaxWriteBuffer
	}
	return &FramedStream{
		conn:        conn,
		codec:       codec,
		readBuf:     make([]byte, 0, initialReadBufCap),
		interest:    epoll.Readable,
		state:       streamOpen,
		maxWriteBuf: maxWriteBuf,
	}
}

// interestSet returns the current desired readiness.
func (s *FramedStream) interestSet() epoll.Interest { return s.interest }

// interestChanged reports (and clears) whether the desired interest set
// changed since the last call, signaling the reactor to re-register the
// socket with the poller.
func (s *FramedStream) interestChanged() bool {
	d := s.interestDirty
	s.interestDirty = false
	return d
}

func (s *FramedStream) setInterest(i epoll.Interest) {
	if s.interest != i {
		s.interest = i
		s.interestDirty = true
	}
}

func (s *FramedStream) growReadBuf(extra int) {
	grown := make([]byte, len(s.readBuf), cap(s.readBuf)+extra)
	copy(grown, s.readBuf)
	s.readBuf = grown
}

// ensureReadCapacity applies the buffer growth policy: reserve 4KiB more
// when free capacity drops under ~1KiB, and reserve exactly enough when an
// already-announced frame length would exceed available capacity.
func (s *FramedStream) ensureReadCapacity() {
	if cap(s.readBuf)-len(s.readBuf) < readGrowThreshold {
		s.growReadBuf(readGrowChunk)
	}
	if length, ok := peekFrameLen(s.readBuf); ok {
		need := wireHeaderLen + length
		if need > cap(s.readBuf) {
			s.growReadBuf(need - cap(s.readBuf))
		}
	}
}

// readFrames drains readable bytes with successive non-blocking reads into
// read_buf, extracting every whole frame decodable after each read. It
// always returns every frame decoded so far, even when a terminal
// condition is reached:
//   - a read returning 0 bytes yields (frames, ErrPeerClosed);
//   - a transient iox.ErrWouldBlock yields (frames, nil);
//   - any other read error yields (frames, err) and is terminal.
func (s *FramedStream) readFrames() ([][]byte, error) {
	var frames [][]byte
	for {
		s.ensureReadCapacity()
		start := len(s.readBuf)
		n, err := s.conn.Read(s.readBuf[start:cap(s.readBuf)])
		if n > 0 {
			s.readBuf = s.readBuf[:start+n]
			decoded, residual := Decode(s.readBuf)
			if len(decoded) > 0 {
				for _, f := range decoded {
					payload, derr := s.codec.Decode(nil, f)
					if derr != nil {
						s.state = streamClosing
						return frames, derr
					}
					frames = append(frames, payload)
				}
				// Compact: move the residual (an incomplete trailing
				// header/frame) to the front so later reads keep
				// appending after it instead of growing unboundedly.
				copy(s.readBuf, residual)
				s.readBuf = s.readBuf[:len(residual)]
			}
		}
		if err != nil {
			if err == iox.ErrWouldBlock {
				return frames, nil
			}
			s.state = streamClosing
			return frames, err
		}
		if n == 0 {
			s.state = streamClosing
			return frames, ErrPeerClosed
		}
	}
}

// queueWrite appends header+payload (after passing payload through the
// configured FrameCodec) to write_buf, growing it as needed. It fails with
// ErrTooLarge if the encoded payload exceeds MaxPayloadLen, or
// ErrBackpressure if appending the frame would take write_buf past its
// high-water mark; in either case write_buf is left unchanged.
func (s *FramedStream) queueWrite(payload []byte) error {
	if s.state != streamOpen {
		return ErrClosed
	}
	encoded, err := s.codec.Encode(nil, payload)
	if err != nil {
		return err
	}
	if len(encoded) > MaxPayloadLen {
		return ErrTooLarge
	}
	if s.maxWriteBuf > 0 && len(s.writeBuf)+wireHeaderLen+len(encoded) > s.maxWriteBuf {
		return ErrBackpressure
	}
	grown, err := Encode(s.writeBuf, encoded)
	if err != nil {
		return err
	}
	s.writeBuf = grown
	if s.interest&epoll.Writable == 0 {
		s.setInterest(s.interest | epoll.Writable)
	}
	return nil
}

// handleWrite repeatedly attempts non-blocking writes of the contiguous
// write_buf, advancing on partial success, stopping on WouldBlock or an
// empty buffer. When write_buf fully drains, Writable is removed from the
// interest set.
func (s *FramedStream) handleWrite() (int, error) {
	total := 0
	for len(s.writeBuf) > 0 {
		n, err := s.conn.Write(s.writeBuf)
		if n > 0 {
			total += n
			s.writeBuf = s.writeBuf[n:]
		}
		if err != nil {
			if err == iox.ErrWouldBlock {
				return total, nil
			}
			s.state = streamClosing
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
	if s.interest&epoll.Writable != 0 {
		s.setInterest(s.interest &^ epoll.Writable)
	}
	return total, nil
}

func (s *FramedStream) close() error {
	s.state = streamClosing
	return s.conn.Close()
}
