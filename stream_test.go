// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netcore

import (
	"bytes"
	"net"
	"testing"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/netcore/internal/epoll"
)

// scriptedConn simulates an underlying non-blocking transport: each Read
// call consumes one scripted step, the same scripted-fake pattern used
// elsewhere for exercising short reads and EAGAIN, but extended with a
// Write side since FramedStream drives both directions.
type scriptedConn struct {
	reads []struct {
		b   []byte
		err error
	}
	readStep int

	written    bytes.Buffer
	writeLimit int // 0 means unlimited
	writeErr   error
}

func (c *scriptedConn) Read(p []byte) (int, error) {
	if c.readStep >= len(c.reads) {
		return 0, iox.ErrWouldBlock
	}
	step := c.reads[c.readStep]
	c.readStep++
	n := copy(p, step.b)
	return n, step.err
}

func (c *scriptedConn) Write(p []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	n := len(p)
	if c.writeLimit > 0 && n > c.writeLimit {
		n = c.writeLimit
	}
	c.written.Write(p[:n])
	if n < len(p) {
		return n, iox.ErrWouldBlock
	}
	return n, nil
}

func (c *scriptedConn) Close() error         { return nil }
func (c *scriptedConn) Fd() int               { return -1 }
func (c *scriptedConn) RemoteAddr() net.Addr { return nil }
func (c *scriptedConn) LocalAddr() net.Addr  { return nil }

func TestFramedStreamReadsWholeFrameSplitAcrossReads(t *testing.T) {
	wire, _ := Encode(nil, []byte("hi"))
	conn := &scriptedConn{reads: []struct {
		b   []byte
		err error
	}{
		{b: wire[:1]},
		{b: wire[1:3]},
		{b: wire[3:]},
		{err: iox.ErrWouldBlock},
	}}
	s := newFramedStream(conn, nil, 0)

	var got [][]byte
	for i := 0; i < 3; i++ {
		frames, err := s.readFrames()
		if err != nil {
			t.Fatalf("readFrames[%d]: %v", i, err)
		}
		got = append(got, frames...)
	}
	if len(got) != 1 || string(got[0]) != "hi" {
		t.Fatalf("got = %q, want [hi]", got)
	}
}

func TestFramedStreamBatchDelivery(t *testing.T) {
	var wire []byte
	wire, _ = Encode(wire, []byte("a"))
	wire, _ = Encode(wire, []byte("b"))
	wire, _ = Encode(wire, []byte("c"))
	conn := &scriptedConn{reads: []struct {
		b   []byte
		err error
	}{
		{b: wire},
		{err: iox.ErrWouldBlock},
	}}
	s := newFramedStream(conn, nil, 0)

	frames, err := s.readFrames()
	if err != nil {
		t.Fatalf("readFrames: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("len(frames) = %d, want 3", len(frames))
	}
}

func TestFramedStreamPeerClosed(t *testing.T) {
	wire, _ := Encode(nil, []byte("bye"))
	conn := &scriptedConn{reads: []struct {
		b   []byte
		err error
	}{
		{b: wire},
		{b: nil, err: nil}, // 0-byte read: orderly close
	}}
	s := newFramedStream(conn, nil, 0)

	frames, err := s.readFrames()
	if err != ErrPeerClosed {
		t.Fatalf("err = %v, want ErrPeerClosed", err)
	}
	if len(frames) != 1 || string(frames[0]) != "bye" {
		t.Fatalf("frames = %q, want [bye] alongside terminal condition", frames)
	}
	if s.state != streamClosing {
		t.Fatalf("state = %v, want streamClosing", s.state)
	}
}

func TestQueueWriteTooLarge(t *testing.T) {
	conn := &scriptedConn{}
	s := newFramedStream(conn, nil, 0)
	before := len(s.writeBuf)

	err := s.queueWrite(make([]byte, MaxPayloadLen+1))
	if err != ErrTooLarge {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
	if len(s.writeBuf) != before {
		t.Fatalf("write_buf mutated on rejected queueWrite")
	}
}

func TestQueueWriteBackpressure(t *testing.T) {
	conn := &scriptedConn{}
	s := newFramedStream(conn, nil, 10)
	if err := s.queueWrite([]byte("123456789")); err != ErrBackpressure {
		t.Fatalf("err = %v, want ErrBackpressure", err)
	}
}

func TestInterestTracksWriteBuffer(t *testing.T) {
	conn := &scriptedConn{}
	s := newFramedStream(conn, nil, 0)
	if s.interestSet()&epoll.Writable == 0 {
		// Writable must be absent while write_buf is empty.
	} else {
		t.Fatalf("Writable set before any queued write")
	}

	if err := s.queueWrite([]byte("x")); err != nil {
		t.Fatalf("queueWrite: %v", err)
	}
	if !s.interestChanged() {
		t.Fatalf("interestChanged() = false after first queued write")
	}
	if s.interestSet()&epoll.Writable == 0 {
		t.Fatalf("Writable not set after queued write")
	}

	if _, err := s.handleWrite(); err != nil {
		t.Fatalf("handleWrite: %v", err)
	}
	if !s.interestChanged() {
		t.Fatalf("interestChanged() = false after drain")
	}
	if s.interestSet()&epoll.Writable != 0 {
		t.Fatalf("Writable still set after write_buf drained")
	}
	if !bytes.Contains(conn.written.Bytes(), []byte("x")) {
		t.Fatalf("payload never reached the wire")
	}
}

func TestHandleWritePartialResume(t *testing.T) {
	conn := &scriptedConn{writeLimit: 2}
	s := newFramedStream(conn, nil, 0)
	_ = s.queueWrite([]byte("hello"))

	for len(s.writeBuf) > 0 {
		if _, err := s.handleWrite(); err != nil {
			t.Fatalf("handleWrite: %v", err)
		}
	}
	want, _ := Encode(nil, []byte("hello"))
	if !bytes.Equal(conn.written.Bytes(), want) {
		t.Fatalf("written = % x, want % x", conn.written.Bytes(), want)
	}
}
