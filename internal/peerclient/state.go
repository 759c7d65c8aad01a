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

package peerclient

import (
	"crypto/rsa"
	"errors"
	"sync"

	"github.com/vyhive/rendezvous/internal/peerid"
	"github.com/vyhive/rendezvous/internal/wire"
)

// ErrNoChannelSelected is returned by SendText when CurrentChannel is
// unset (§6 UI contract, (f) send-text).
var ErrNoChannelSelected = errors.New("peerclient: no channel selected")

// ErrUnknownPendingRequest is returned by Accept for a target id with no
// matching entry in PendingRequests.
var ErrUnknownPendingRequest = errors.New("peerclient: no pending request for that id")

// Event is anything the client's reader task delivers to the UI. The
// concrete types below are the full set; UI code type-switches on them.
type Event interface{ isEvent() }

// PeerJoined fires when PeerList gains an entry, whether from the
// initial ClientList snapshot arriving (one event per peer) or a later
// NewClient delta.
type PeerJoined struct{ Desc wire.PeerDescription }

// PeerLeft fires when ClientDisconnected removes a PeerList entry.
type PeerLeft struct{ ID peerid.ID }

// IncomingRequest fires when a new pairing request is accepted into
// PendingRequests (duplicates do not re-fire this event).
type IncomingRequest struct{ Desc wire.PeerDescription }

// PairingEstablished fires when EstablishedPairings gains an entry,
// whether because the local side sent a ConnectionResponse (responder)
// or received one (initiator).
type PairingEstablished struct{ ID peerid.ID }

// IncomingText fires on a successfully decrypted message.
type IncomingText struct {
	From     peerid.ID
	FromName string // resolved via PeerList, "Unknown" if absent
	Text     string
}

// Undecipherable fires when a Message envelope fails to decrypt. The
// message is dropped; the connection stays open (§7 Crypto error kind).
type Undecipherable struct{ From peerid.ID }

func (PeerJoined) isEvent()           {}
func (PeerLeft) isEvent()             {}
func (IncomingRequest) isEvent()      {}
func (PairingEstablished) isEvent()   {}
func (IncomingText) isEvent()         {}
func (Undecipherable) isEvent()       {}

// peerList is the client's local view of the directory (§3 PeerList).
type peerList struct {
	mu    sync.RWMutex
	peers []wire.PeerDescription
}

func (l *peerList) replace(snapshot []wire.PeerDescription) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.peers = append([]wire.PeerDescription(nil), snapshot...)
}

func (l *peerList) append(desc wire.PeerDescription) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.peers = append(l.peers, desc)
}

func (l *peerList) removeID(id peerid.ID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.peers[:0]
	for _, d := range l.peers {
		if d.ID != id {
			out = append(out, d)
		}
	}
	l.peers = out
}

func (l *peerList) snapshot() []wire.PeerDescription {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]wire.PeerDescription(nil), l.peers...)
}

// nameOf resolves a friendly name for id, falling back to "Unknown" per
// §4.3's Message-handling row.
func (l *peerList) nameOf(id peerid.ID) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, d := range l.peers {
		if d.ID == id {
			if d.Name != "" {
				return d.Name
			}
			break
		}
	}
	return "Unknown"
}

// pendingRequests is §3 PendingRequests: PeerDescription -> remote
// RSA public key, keyed here by id since PeerDescription's id component
// is what identifies the requester.
type pendingRequests struct {
	mu      sync.Mutex
	entries map[peerid.ID]pendingEntry
}

type pendingEntry struct {
	desc   wire.PeerDescription
	pubKey *rsa.PublicKey
}

func newPendingRequests() *pendingRequests {
	return &pendingRequests{entries: make(map[peerid.ID]pendingEntry)}
}

// insertIfAbsent inserts (desc, pubKey) keyed by desc.ID unless an entry
// already exists for that id, returning whether it inserted (§8 invariant
// 8: duplicate request suppression).
func (p *pendingRequests) insertIfAbsent(desc wire.PeerDescription, pubKey *rsa.PublicKey) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.entries[desc.ID]; exists {
		return false
	}
	p.entries[desc.ID] = pendingEntry{desc: desc, pubKey: pubKey}
	return true
}

// take removes and returns the entry for id, if any.
func (p *pendingRequests) take(id peerid.ID) (pendingEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[id]
	if ok {
		delete(p.entries, id)
	}
	return e, ok
}

func (p *pendingRequests) snapshot() []wire.PeerDescription {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]wire.PeerDescription, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e.desc)
	}
	return out
}

// establishedPairings is §3 EstablishedPairings: PeerId -> remote RSA
// public key. Entries persist until disconnect (the spec explicitly does
// not have the client purge these on ClientDisconnected; see §9 open
// question #2, preserved as observed behavior in the ClientDisconnected
// case of Client.handle).
type establishedPairings struct {
	mu    sync.RWMutex
	pairs map[peerid.ID]*rsa.PublicKey
}

func newEstablishedPairings() *establishedPairings {
	return &establishedPairings{pairs: make(map[peerid.ID]*rsa.PublicKey)}
}

func (e *establishedPairings) set(id peerid.ID, pub *rsa.PublicKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pairs[id] = pub
}

func (e *establishedPairings) get(id peerid.ID) (*rsa.PublicKey, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	pub, ok := e.pairs[id]
	return pub, ok
}
