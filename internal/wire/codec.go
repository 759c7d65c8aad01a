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

import "io"

// EncodeServerBound serializes one server-bound message: a u32 tag
// followed by its fields in declared order.
func EncodeServerBound(msg ServerBound) []byte {
	e := &encoder{}
	e.writeUint32(msg.serverBoundTag())
	switch m := msg.(type) {
	case ServerBoundAdvertise:
		e.writeString(m.Name)
	case ServerBoundConnectionRequest:
		e.writeDesc(m.Desc)
		e.writePublicKey(m.PublicKey)
	case ServerBoundConnectionResponse:
		e.writeDesc(m.Desc)
		e.writePublicKey(m.PublicKey)
	case ServerBoundData:
		e.writeDesc(m.Desc)
		e.writeEnvelope(m.Envelope)
	default:
		panic("wire: unknown ServerBound variant")
	}
	return e.bytes()
}

// DecodeServerBound parses one server-bound message payload.
func DecodeServerBound(payload []byte) (ServerBound, error) {
	d := newDecoder(payload)
	tag, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	var msg ServerBound
	switch tag {
	case ServerBoundAdvertise{}.serverBoundTag():
		name, err := d.readString()
		if err != nil {
			return nil, err
		}
		msg = ServerBoundAdvertise{Name: name}
	case ServerBoundConnectionRequest{}.serverBoundTag():
		desc, err := d.readDesc()
		if err != nil {
			return nil, err
		}
		pub, err := d.readPublicKey()
		if err != nil {
			return nil, err
		}
		msg = ServerBoundConnectionRequest{Desc: desc, PublicKey: pub}
	case ServerBoundConnectionResponse{}.serverBoundTag():
		desc, err := d.readDesc()
		if err != nil {
			return nil, err
		}
		pub, err := d.readPublicKey()
		if err != nil {
			return nil, err
		}
		msg = ServerBoundConnectionResponse{Desc: desc, PublicKey: pub}
	case ServerBoundData{}.serverBoundTag():
		desc, err := d.readDesc()
		if err != nil {
			return nil, err
		}
		env, err := d.readEnvelope()
		if err != nil {
			return nil, err
		}
		msg = ServerBoundData{Desc: desc, Envelope: env}
	default:
		return nil, protoErrorf("unknown ServerBound tag %d", tag)
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return msg, nil
}

// EncodeClientBound serializes one client-bound message.
func EncodeClientBound(msg ClientBound) []byte {
	e := &encoder{}
	e.writeUint32(msg.clientBoundTag())
	switch m := msg.(type) {
	case ClientBoundSetUUID:
		e.writeUUID(m.ID)
	case ClientBoundClientList:
		e.writeUint64(uint64(len(m.Peers)))
		for _, p := range m.Peers {
			e.writeDesc(p)
		}
	case ClientBoundNewClient:
		e.writeDesc(m.Desc)
	case ClientBoundClientDisconnected:
		e.writeUUID(m.ID)
	case ClientBoundConnectionRequest:
		e.writeDesc(m.Desc)
		e.writePublicKey(m.PublicKey)
	case ClientBoundConnectionResponse:
		e.writeDesc(m.Desc)
		e.writePublicKey(m.PublicKey)
	case ClientBoundData:
		e.writeDesc(m.Desc)
		e.writeEnvelope(m.Envelope)
	default:
		panic("wire: unknown ClientBound variant")
	}
	return e.bytes()
}

// DecodeClientBound parses one client-bound message payload.
func DecodeClientBound(payload []byte) (ClientBound, error) {
	d := newDecoder(payload)
	tag, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	var msg ClientBound
	switch tag {
	case ClientBoundSetUUID{}.clientBoundTag():
		id, err := d.readUUID()
		if err != nil {
			return nil, err
		}
		msg = ClientBoundSetUUID{ID: id}
	case ClientBoundClientList{}.clientBoundTag():
		n, err := d.readUint64()
		if err != nil {
			return nil, err
		}
		var peers []PeerDescription
		for i := uint64(0); i < n; i++ {
			desc, err := d.readDesc()
			if err != nil {
				return nil, err
			}
			peers = append(peers, desc)
		}
		msg = ClientBoundClientList{Peers: peers}
	case ClientBoundNewClient{}.clientBoundTag():
		desc, err := d.readDesc()
		if err != nil {
			return nil, err
		}
		msg = ClientBoundNewClient{Desc: desc}
	case ClientBoundClientDisconnected{}.clientBoundTag():
		id, err := d.readUUID()
		if err != nil {
			return nil, err
		}
		msg = ClientBoundClientDisconnected{ID: id}
	case ClientBoundConnectionRequest{}.clientBoundTag():
		desc, err := d.readDesc()
		if err != nil {
			return nil, err
		}
		pub, err := d.readPublicKey()
		if err != nil {
			return nil, err
		}
		msg = ClientBoundConnectionRequest{Desc: desc, PublicKey: pub}
	case ClientBoundConnectionResponse{}.clientBoundTag():
		desc, err := d.readDesc()
		if err != nil {
			return nil, err
		}
		pub, err := d.readPublicKey()
		if err != nil {
			return nil, err
		}
		msg = ClientBoundConnectionResponse{Desc: desc, PublicKey: pub}
	case ClientBoundData{}.clientBoundTag():
		desc, err := d.readDesc()
		if err != nil {
			return nil, err
		}
		env, err := d.readEnvelope()
		if err != nil {
			return nil, err
		}
		msg = ClientBoundData{Desc: desc, Envelope: env}
	default:
		return nil, protoErrorf("unknown ClientBound tag %d", tag)
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return msg, nil
}

// WriteServerBound encodes and frames msg onto w. Concurrent writers to
// the same w must serialize externally (§4.1 guarantee).
func WriteServerBound(w io.Writer, msg ServerBound) error {
	return WriteFrame(w, EncodeServerBound(msg))
}

// WriteClientBound encodes and frames msg onto w.
func WriteClientBound(w io.Writer, msg ClientBound) error {
	return WriteFrame(w, EncodeClientBound(msg))
}

// ReadServerBound reads and decodes one frame as a server-bound message.
func ReadServerBound(r io.Reader) (ServerBound, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	return DecodeServerBound(payload)
}

// ReadClientBound reads and decodes one frame as a client-bound message.
func ReadClientBound(r io.Reader) (ClientBound, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	return DecodeClientBound(payload)
}
