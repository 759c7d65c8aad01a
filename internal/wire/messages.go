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
	"crypto/rsa"
	"math/big"

	"github.com/vyhive/rendezvous/internal/peerid"
)

// PeerDescription names a peer for display and routing: a friendly name
// (empty if the peer never advertised one) plus its server-assigned id.
type PeerDescription struct {
	Name string
	ID   peerid.ID
}

// PublicKey is the wire representation of an RSA public key: modulus and
// public exponent, each a length-prefixed big-endian byte sequence (§6).
type PublicKey struct {
	N *big.Int
	E *big.Int
}

// PublicKeyFromRSA converts a *rsa.PublicKey into its wire representation.
func PublicKeyFromRSA(pub *rsa.PublicKey) PublicKey {
	return PublicKey{N: pub.N, E: big.NewInt(int64(pub.E))}
}

// ToRSA converts the wire representation back into a *rsa.PublicKey.
func (k PublicKey) ToRSA() *rsa.PublicKey {
	return &rsa.PublicKey{N: k.N, E: int(k.E.Int64())}
}

// Envelope is the hybrid-encryption envelope of §4.4: an RSA-wrapped
// session key, an AES-GCM nonce, and the AES-GCM ciphertext (tag
// included). The wire codec treats all three as opaque byte strings.
type Envelope struct {
	Key        []byte
	Nonce      []byte
	Ciphertext []byte
}

// ServerBound is the tagged union of messages a peer client sends to the
// server. Variant order is wire-significant: the tag is the zero-based
// ordinal of the variant below, and it must never be reordered without a
// coordinated protocol version bump (§9 design note #4).
type ServerBound interface {
	serverBoundTag() uint32
}

// ServerBoundAdvertise sets the sender's friendly name.
type ServerBoundAdvertise struct {
	Name string
}

func (ServerBoundAdvertise) serverBoundTag() uint32 { return 0 }

// ServerBoundConnectionRequest asks the server to forward a pairing
// request to Desc.ID. The server ignores Desc's name field and rewrites
// the whole description to the authenticated sender's identity before
// forwarding (§4.2).
type ServerBoundConnectionRequest struct {
	Desc      PeerDescription
	PublicKey PublicKey
}

func (ServerBoundConnectionRequest) serverBoundTag() uint32 { return 1 }

// ServerBoundConnectionResponse accepts a pending pairing request.
//
// Note (§9 open question #1, do not silently fix): this variant carries
// only the responder's public key. There is no decline/reject variant in
// the schema, so a responder who does not want to pair has no way to
// signal that to the requester; they simply never send this message.
type ServerBoundConnectionResponse struct {
	Desc      PeerDescription
	PublicKey PublicKey
}

func (ServerBoundConnectionResponse) serverBoundTag() uint32 { return 2 }

// ServerBoundData carries one encrypted text message ("Message" in the
// original schema) addressed to Desc.ID. The server treats Envelope as
// opaque and only rewrites Desc to the sender's identity.
type ServerBoundData struct {
	Desc     PeerDescription
	Envelope Envelope
}

func (ServerBoundData) serverBoundTag() uint32 { return 3 }

// ClientBound is the tagged union of messages the server sends to a peer
// client. Variant order is wire-significant, as with ServerBound.
type ClientBound interface {
	clientBoundTag() uint32
}

// ClientBoundSetUUID assigns the receiving connection's own identifier.
// Sent exactly once, immediately after accept, before ClientBoundClientList.
type ClientBoundSetUUID struct {
	ID peerid.ID
}

func (ClientBoundSetUUID) clientBoundTag() uint32 { return 0 }

// ClientBoundClientList is the directory snapshot sent immediately after
// ClientBoundSetUUID: every currently named peer, unnamed peers omitted.
type ClientBoundClientList struct {
	Peers []PeerDescription
}

func (ClientBoundClientList) clientBoundTag() uint32 { return 1 }

// ClientBoundNewClient announces that Desc just advertised a name. Per
// §9 design note #3, the server broadcasts this to every peer including
// the one who advertised; clients must tolerate seeing themselves.
type ClientBoundNewClient struct {
	Desc PeerDescription
}

func (ClientBoundNewClient) clientBoundTag() uint32 { return 2 }

// ClientBoundClientDisconnected announces a peer's departure.
type ClientBoundClientDisconnected struct {
	ID peerid.ID
}

func (ClientBoundClientDisconnected) clientBoundTag() uint32 { return 3 }

// ClientBoundConnectionRequest forwards an inbound pairing request, with
// Desc rewritten by the server to the originator's authenticated identity.
type ClientBoundConnectionRequest struct {
	Desc      PeerDescription
	PublicKey PublicKey
}

func (ClientBoundConnectionRequest) clientBoundTag() uint32 { return 4 }

// ClientBoundConnectionResponse forwards a pairing acceptance.
type ClientBoundConnectionResponse struct {
	Desc      PeerDescription
	PublicKey PublicKey
}

func (ClientBoundConnectionResponse) clientBoundTag() uint32 { return 5 }

// ClientBoundData forwards one encrypted text message.
type ClientBoundData struct {
	Desc     PeerDescription
	Envelope Envelope
}

func (ClientBoundData) clientBoundTag() uint32 { return 6 }
