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

package wire

import (
	"bytes"
	"encoding/binary"
	"math/big"

	"github.com/vyhive/rendezvous/internal/peerid"
)

// encoder accumulates the binary encoding of one message payload. Every
// variable-length field is a u64 byte count followed by the raw bytes;
// fixed-width fields use little-endian byte order throughout, matching
// the outer frame's length prefix (§4.1).
type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) bytes() []byte { return e.buf.Bytes() }

func (e *encoder) writeUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) writeUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) writeBytes(p []byte) {
	e.writeUint64(uint64(len(p)))
	e.buf.Write(p)
}

func (e *encoder) writeString(s string) {
	e.writeBytes([]byte(s))
}

func (e *encoder) writeUUID(id peerid.ID) {
	e.buf.Write(id[:])
}

// writeBigUint writes a non-negative big.Int as a length-prefixed
// big-endian byte sequence, per §6 ("each as a length-prefixed
// big-integer byte sequence").
func (e *encoder) writeBigUint(n *big.Int) {
	e.writeBytes(n.Bytes())
}

func (e *encoder) writeDesc(d PeerDescription) {
	e.writeString(d.Name)
	e.writeUUID(d.ID)
}

func (e *encoder) writePublicKey(pub PublicKey) {
	e.writeBigUint(pub.N)
	e.writeBigUint(pub.E)
}

func (e *encoder) writeEnvelope(env Envelope) {
	e.writeBytes(env.Key)
	e.writeBytes(env.Nonce)
	e.writeBytes(env.Ciphertext)
}

// decoder walks a decoded frame payload field by field, turning any
// short read into ErrProtocol.
type decoder struct {
	buf []byte
	pos int
}

func newDecoder(payload []byte) *decoder {
	return &decoder{buf: payload}
}

func (d *decoder) remaining() int { return len(d.buf) - d.pos }

func (d *decoder) readN(n int) ([]byte, error) {
	if n < 0 || d.remaining() < n {
		return nil, protoErrorf("expected %d more bytes, have %d", n, d.remaining())
	}
	out := d.buf[d.pos : d.pos+n]
	d.pos += n
	return out, nil
}

func (d *decoder) readUint32() (uint32, error) {
	b, err := d.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *decoder) readUint64() (uint64, error) {
	b, err := d.readN(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (d *decoder) readBytes() ([]byte, error) {
	n, err := d.readUint64()
	if err != nil {
		return nil, err
	}
	if n > MaxFrameLength {
		return nil, protoErrorf("length-prefixed field of %d bytes exceeds maximum", n)
	}
	raw, err := d.readN(int(n))
	if err != nil {
		return nil, err
	}
	// Copy out: raw aliases the payload slice, which callers may reuse.
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

func (d *decoder) readString() (string, error) {
	b, err := d.readBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *decoder) readUUID() (peerid.ID, error) {
	b, err := d.readN(peerid.Size)
	if err != nil {
		return peerid.Nil, err
	}
	return peerid.FromBytes(b)
}

func (d *decoder) readBigUint() (*big.Int, error) {
	b, err := d.readBytes()
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

func (d *decoder) readDesc() (PeerDescription, error) {
	name, err := d.readString()
	if err != nil {
		return PeerDescription{}, err
	}
	id, err := d.readUUID()
	if err != nil {
		return PeerDescription{}, err
	}
	return PeerDescription{Name: name, ID: id}, nil
}

func (d *decoder) readPublicKey() (PublicKey, error) {
	n, err := d.readBigUint()
	if err != nil {
		return PublicKey{}, err
	}
	e, err := d.readBigUint()
	if err != nil {
		return PublicKey{}, err
	}
	return PublicKey{N: n, E: e}, nil
}

func (d *decoder) readEnvelope() (Envelope, error) {
	key, err := d.readBytes()
	if err != nil {
		return Envelope{}, err
	}
	nonce, err := d.readBytes()
	if err != nil {
		return Envelope{}, err
	}
	ct, err := d.readBytes()
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Key: key, Nonce: nonce, Ciphertext: ct}, nil
}

// finish reports ErrProtocol if the payload has trailing bytes after the
// last field was consumed, catching truncated-variant-but-extra-garbage
// frames early rather than silently ignoring them.
func (d *decoder) finish() error {
	if d.remaining() != 0 {
		return protoErrorf("%d trailing bytes after decoding message", d.remaining())
	}
	return nil
}
