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
	"crypto/rand"
	"crypto/rsa"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vyhive/rendezvous/internal/peerid"
)

func testPublicKey(t *testing.T) PublicKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 512) // small key, fast tests
	require.NoError(t, err)
	return PublicKeyFromRSA(&priv.PublicKey)
}

// TestServerBoundRoundTrip covers invariant 5 of §8: decode(encode(V)) == V
// for every ServerBound variant.
func TestServerBoundRoundTrip(t *testing.T) {
	pub := testPublicKey(t)
	id := peerid.New()

	cases := []ServerBound{
		ServerBoundAdvertise{Name: "alice"},
		ServerBoundAdvertise{Name: ""},
		ServerBoundConnectionRequest{Desc: PeerDescription{Name: "", ID: id}, PublicKey: pub},
		ServerBoundConnectionResponse{Desc: PeerDescription{Name: "bob", ID: id}, PublicKey: pub},
		ServerBoundData{
			Desc:     PeerDescription{Name: "", ID: id},
			Envelope: Envelope{Key: []byte{1, 2, 3}, Nonce: []byte{4, 5, 6}, Ciphertext: []byte("ciphertext")},
		},
	}

	for _, want := range cases {
		payload := EncodeServerBound(want)
		got, err := DecodeServerBound(payload)
		require.NoError(t, err)
		requireServerBoundEqual(t, want, got)
	}
}

func TestClientBoundRoundTrip(t *testing.T) {
	pub := testPublicKey(t)
	idA := peerid.New()
	idB := peerid.New()

	cases := []ClientBound{
		ClientBoundSetUUID{ID: idA},
		ClientBoundClientList{Peers: nil},
		ClientBoundClientList{Peers: []PeerDescription{{Name: "alice", ID: idA}, {Name: "bob", ID: idB}}},
		ClientBoundNewClient{Desc: PeerDescription{Name: "alice", ID: idA}},
		ClientBoundClientDisconnected{ID: idA},
		ClientBoundConnectionRequest{Desc: PeerDescription{Name: "alice", ID: idA}, PublicKey: pub},
		ClientBoundConnectionResponse{Desc: PeerDescription{Name: "bob", ID: idB}, PublicKey: pub},
		ClientBoundData{
			Desc:     PeerDescription{Name: "alice", ID: idA},
			Envelope: Envelope{Key: []byte{9}, Nonce: []byte{8}, Ciphertext: []byte{7, 6, 5}},
		},
	}

	for _, want := range cases {
		payload := EncodeClientBound(want)
		got, err := DecodeClientBound(payload)
		require.NoError(t, err)
		requireClientBoundEqual(t, want, got)
	}
}

// TestFrameRoundTrip covers invariant 1: exactly 8 + length bytes are
// consumed per message, over a real io.Reader/io.Writer pair.
func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	msg := ServerBoundAdvertise{Name: "hello world"}
	require.NoError(t, WriteServerBound(&buf, msg))

	// A trailing byte must not be consumed by ReadFrame.
	buf.WriteByte(0xAB)

	got, err := ReadServerBound(&buf)
	require.NoError(t, err)
	require.Equal(t, msg, got)
	require.Equal(t, 1, buf.Len(), "ReadFrame must leave unrelated trailing bytes untouched")
}

// TestReadFrameCleanEOF covers §4.1: a short read exactly at the length
// boundary is a clean EOF, not a protocol error.
func TestReadFrameCleanEOF(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil))
	require.ErrorIs(t, err, io.EOF)
}

// TestReadFrameTruncatedLength covers §4.1: a short read inside the
// length field is a protocol error, not a clean EOF.
func TestReadFrameTruncatedLength(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{1, 2, 3}))
	require.ErrorIs(t, err, ErrProtocol)
}

// TestReadFrameTruncatedPayload covers §4.1: a short read in the payload
// is a protocol error.
func TestReadFrameTruncatedPayload(t *testing.T) {
	var lenBuf [8]byte
	lenBuf[0] = 10 // claims 10 payload bytes but none follow
	_, err := ReadFrame(bytes.NewReader(lenBuf[:]))
	require.ErrorIs(t, err, ErrProtocol)
}

func TestDecodeUnknownTag(t *testing.T) {
	e := &encoder{}
	e.writeUint32(999)
	_, err := DecodeServerBound(e.bytes())
	require.ErrorIs(t, err, ErrProtocol)
}

func TestDecodeTrailingGarbage(t *testing.T) {
	payload := EncodeServerBound(ServerBoundAdvertise{Name: "x"})
	payload = append(payload, 0xFF)
	_, err := DecodeServerBound(payload)
	require.ErrorIs(t, err, ErrProtocol)
}

func requireServerBoundEqual(t *testing.T, want, got ServerBound) {
	t.Helper()
	switch w := want.(type) {
	case ServerBoundAdvertise:
		g, ok := got.(ServerBoundAdvertise)
		require.True(t, ok)
		require.Equal(t, w, g)
	case ServerBoundConnectionRequest:
		g, ok := got.(ServerBoundConnectionRequest)
		require.True(t, ok)
		require.Equal(t, w.Desc, g.Desc)
		requirePublicKeyEqual(t, w.PublicKey, g.PublicKey)
	case ServerBoundConnectionResponse:
		g, ok := got.(ServerBoundConnectionResponse)
		require.True(t, ok)
		require.Equal(t, w.Desc, g.Desc)
		requirePublicKeyEqual(t, w.PublicKey, g.PublicKey)
	case ServerBoundData:
		g, ok := got.(ServerBoundData)
		require.True(t, ok)
		require.Equal(t, w, g)
	default:
		t.Fatalf("unhandled ServerBound case %T", want)
	}
}

func requireClientBoundEqual(t *testing.T, want, got ClientBound) {
	t.Helper()
	switch w := want.(type) {
	case ClientBoundConnectionRequest:
		g, ok := got.(ClientBoundConnectionRequest)
		require.True(t, ok)
		require.Equal(t, w.Desc, g.Desc)
		requirePublicKeyEqual(t, w.PublicKey, g.PublicKey)
	case ClientBoundConnectionResponse:
		g, ok := got.(ClientBoundConnectionResponse)
		require.True(t, ok)
		require.Equal(t, w.Desc, g.Desc)
		requirePublicKeyEqual(t, w.PublicKey, g.PublicKey)
	default:
		require.Equal(t, want, got)
	}
}

func requirePublicKeyEqual(t *testing.T, want, got PublicKey) {
	t.Helper()
	require.Equal(t, 0, want.N.Cmp(got.N))
	require.Equal(t, 0, want.E.Cmp(got.E))
}
