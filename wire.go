// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package netcore is a reusable event-driven networking core: a single
// goroutine multiplexes many TCP connections on top of an edge-triggered
// OS readiness poller, decodes an inbound byte stream into length-prefixed
// frames, buffers outbound frames against backpressure, and delivers
// frame/connection events to an application-supplied Callbacks.
package netcore

import "encoding/binary"

const (
	// wireHeaderLen is the fixed size, in bytes, of a frame's length prefix.
	wireHeaderLen = 2

	// MaxPayloadLen is the largest payload Encode will accept: 65535 bytes,
	// the range of an unsigned 16-bit length prefix.
	MaxPayloadLen = 1<<16 - 1
)

// Encode appends payload as one length-prefixed frame to dst and returns the
// extended slice. The header is a 2-byte little-endian length followed by
// exactly len(payload) bytes. Encode fails with ErrTooLarge if the payload
// exceeds MaxPayloadLen; dst is returned unmodified in that case.
func Encode(dst []byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLen {
		return dst, ErrTooLarge
	}
	var hdr [wireHeaderLen]byte
	binary.LittleEndian.PutUint16(hdr[:], uint16(len(payload)))
	dst = append(dst, hdr[:]...)
	dst = append(dst, payload...)
	return dst, nil
}

// peekFrameLen reports the payload length announced by a buffer's leading
// 2-byte header, if the header is fully present.
func peekFrameLen(buf []byte) (length int, ok bool) {
	if len(buf) < wireHeaderLen {
		return 0, false
	}
	return int(binary.LittleEndian.Uint16(buf[:wireHeaderLen])), true
}

// Decode repeatedly extracts whole frames from buf. It reads the 2-byte
// little-endian header once at least wireHeaderLen bytes are available,
// then splits off exactly that many payload bytes once they too are
// available, and continues until buf is too short for either step.
//
// Decode never copies payload bytes: each returned frame is a subslice of
// buf. residual is the unconsumed tail of buf (an incomplete header or an
// announced-but-not-yet-fully-received frame).
func Decode(buf []byte) (frames [][]byte, residual []byte) {
	off := 0
	for {
		if len(buf)-off < wireHeaderLen {
			break
		}
		length := int(binary.LittleEndian.Uint16(buf[off : off+wireHeaderLen]))
		if len(buf)-off-wireHeaderLen < length {
			break
		}
		start := off + wireHeaderLen
		end := start + length
		frames = append(frames, buf[start:end])
		off = end
	}
	return frames, buf[off:]
}
