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

// Package peerid defines the opaque 128-bit identifier the server assigns
// to every connection. A PeerId carries no identity or authentication
// information of its own; it is only a routing handle, unique within one
// server run.
package peerid

import "github.com/google/uuid"

// ID is an opaque 128-bit peer identifier. The zero value is not a valid
// assigned id; use New to mint one.
type ID = uuid.UUID

// Size is the wire length of an ID: 16 raw bytes, no length prefix.
const Size = 16

// Nil is the zero ID, used as a sentinel before a client has received its
// SetUuid message.
var Nil ID = uuid.Nil

// New mints a fresh random id. Collisions are not handled because the
// birthday bound on a v4 UUID makes them practically impossible within a
// single server run.
func New() ID {
	return uuid.New()
}

// FromBytes parses the 16 raw bytes of an ID as they appear on the wire.
func FromBytes(b []byte) (ID, error) {
	return uuid.FromBytes(b)
}

// Parse parses an id's canonical string form, as typed by a user at a
// prompt or passed on a command line.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}
