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

package rendezvous

import (
	"net"
	"sync"

	"github.com/vyhive/rendezvous/internal/peerid"
	"github.com/vyhive/rendezvous/internal/wire"
)

// peerRecord is the server's per-connection state (§3 ServerPeerRecord):
// the assigned id, the connection (acting as both read- and write-half),
// and the optional friendly name. The write-half is guarded by its own
// mutex so that forwarding one message never blocks the whole table,
// per the lock ordering in §5 (peer-table → record fields → write-half).
type peerRecord struct {
	id   peerid.ID
	conn net.Conn

	writeMu sync.Mutex

	nameMu sync.RWMutex
	name   string
}

func newPeerRecord(id peerid.ID, conn net.Conn) *peerRecord {
	return &peerRecord{id: id, conn: conn}
}

func (r *peerRecord) Name() string {
	r.nameMu.RLock()
	defer r.nameMu.RUnlock()
	return r.name
}

func (r *peerRecord) SetName(name string) {
	r.nameMu.Lock()
	defer r.nameMu.Unlock()
	r.name = name
}

func (r *peerRecord) Description() wire.PeerDescription {
	return wire.PeerDescription{Name: r.Name(), ID: r.id}
}

// Send writes msg to this peer. A write failure here is localized per
// §4.2 ("a write failure to a target peer is localized — the sender
// does not observe it"): callers log the error but never propagate it
// to whichever other connection triggered the send.
func (r *peerRecord) Send(msg wire.ClientBound) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return wire.WriteClientBound(r.conn, msg)
}

// peerTable is the server's shared peer directory (§3, invariant i: each
// live connection corresponds to exactly one record keyed by its id).
type peerTable struct {
	mu    sync.RWMutex
	peers map[peerid.ID]*peerRecord
}

func newPeerTable() *peerTable {
	return &peerTable{peers: make(map[peerid.ID]*peerRecord)}
}

func (t *peerTable) insert(r *peerRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers[r.id] = r
}

func (t *peerTable) remove(id peerid.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, id)
}

func (t *peerTable) get(id peerid.ID) (*peerRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.peers[id]
	return r, ok
}

// namedSnapshot returns the directory snapshot for a newly connected
// peer: every currently named peer, unnamed peers omitted (§4.2 step 2,
// invariant 4 of §8). Order is unspecified, as the spec allows.
func (t *peerTable) namedSnapshot() []wire.PeerDescription {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]wire.PeerDescription, 0, len(t.peers))
	for _, r := range t.peers {
		if name := r.Name(); name != "" {
			out = append(out, wire.PeerDescription{Name: name, ID: r.id})
		}
	}
	return out
}

// all returns a snapshot slice of every record currently in the table,
// taken under the table lock so that the subsequent writes to each
// record's write-half happen without holding the table lock (§5
// deadlock discipline: release the table lock after extracting the
// target write-half).
func (t *peerTable) all() []*peerRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*peerRecord, 0, len(t.peers))
	for _, r := range t.peers {
		out = append(out, r)
	}
	return out
}
