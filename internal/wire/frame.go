// Copyright 2026 The rendezvous Authors
// This file is part of the rendezvous library.
//
// The rendezvous library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The rendezvous library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the rendezvous library. If not, see <http://www.gnu.org/licenses/>.

// Package wire implements the length-framed binary protocol shared by the
// rendezvous server and peer clients: every message on the wire is an
// unsigned 64-bit little-endian length followed by exactly that many
// payload bytes, and the payload is a tagged union whose tag is the
// zero-based ordinal of the variant in its declared order.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameLength caps the length field ReadFrame will honor. The base
// protocol places no ceiling on frame size; this is ambient defensive
// framing so a corrupt or adversarial length field turns into a
// ProtocolError instead of an attempt to allocate an unbounded buffer.
const MaxFrameLength = 16 << 20 // 16 MiB

// ErrProtocol reports a frame that violated the wire format: a truncated
// length field, a truncated payload, an unknown tag, or a malformed field.
// Per spec, this is fatal only to the connection that produced it.
var ErrProtocol = errors.New("wire: protocol error")

// protoErrorf wraps a detail under ErrProtocol so callers can still
// errors.Is(err, ErrProtocol).
func protoErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocol, fmt.Sprintf(format, args...))
}

// WriteFrame writes the length-prefixed frame for payload to w.
func WriteFrame(w io.Writer, payload []byte) error {
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one length-prefixed frame from r and returns its payload.
// A clean EOF at the length boundary (zero bytes read before the length
// field) is returned as io.EOF; a short read anywhere else, including in
// the middle of the length field or the payload, is reported as
// ErrProtocol, per spec §4.1.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [8]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, protoErrorf("short read on length prefix: %v", err)
	}
	length := binary.LittleEndian.Uint64(lenBuf[:])
	if length > MaxFrameLength {
		return nil, protoErrorf("frame length %d exceeds maximum %d", length, MaxFrameLength)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, protoErrorf("short read on payload of length %d: %v", length, err)
	}
	return payload, nil
}
