// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netcore

import "github.com/golang/snappy"

// FrameCodec is an optional payload transform applied between the wire
// codec and the application: Encode runs over a payload before it is
// length-prefixed onto the wire, Decode runs over a decoded payload before
// it reaches Callbacks.OnFrames. A nil FrameCodec is treated as
// IdentityCodec, which passes bytes through unchanged.
type FrameCodec interface {
	Encode(dst, payload []byte) ([]byte, error)
	Decode(dst, payload []byte) ([]byte, error)
}

type identityCodec struct{}

func (identityCodec) Encode(dst, payload []byte) ([]byte, error) {
	return append(dst, payload...), nil
}

func (identityCodec) Decode(dst, payload []byte) ([]byte, error) {
	return append(dst, payload...), nil
}

// IdentityCodec is the default FrameCodec: it does not transform payloads.
var IdentityCodec FrameCodec = identityCodec{}

// snappyCodec compresses each frame payload independently with
// github.com/golang/snappy's block format, adapted from xtaci-kcptun's
// std.NewCompStream (which wraps a whole io.ReadWriteCloser) into a
// per-payload transform: compressing the whole framed byte stream would
// let a compressed block straddle a frame boundary, so netcore compresses the
// payload and lets the (still length-prefixed) wire codec run on the
// compressed bytes instead.
type snappyCodec struct{}

// SnappyCodec returns a FrameCodec that snappy-compresses frame payloads.
// Pass it to WithCodec when constructing a Core; the codec then applies to
// every connection of that Core.
func SnappyCodec() FrameCodec { return snappyCodec{} }

func (snappyCodec) Encode(dst, payload []byte) ([]byte, error) {
	max := snappy.MaxEncodedLen(len(payload))
	if max < 0 {
		return dst, ErrTooLarge
	}
	buf := make([]byte, max)
	encoded := snappy.Encode(buf, payload)
	if len(encoded) > MaxPayloadLen {
		return dst, ErrTooLarge
	}
	return append(dst, encoded...), nil
}

func (snappyCodec) Decode(dst, payload []byte) ([]byte, error) {
	n, err := snappy.DecodedLen(payload)
	if err != nil {
		return dst, err
	}
	buf := make([]byte, n)
	decoded, err := snappy.Decode(buf, payload)
	if err != nil {
		return dst, err
	}
	return append(dst, decoded...), nil
}
