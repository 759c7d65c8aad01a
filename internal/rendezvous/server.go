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

// Package rendezvous implements the directory server of §4.2: it accepts
// TCP connections, assigns each a fresh PeerId, maintains the live peer
// table, broadcasts directory deltas, and forwards peer-to-peer control
// and data messages by recipient identifier.
package rendezvous

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/vyhive/rendezvous/internal/peerid"
	"github.com/vyhive/rendezvous/internal/wire"
)

// dedupCacheSize bounds the server-wide recent-forward cache (§4.2
// ambient addition): a guard against a misbehaving peer retransmitting
// an identical control frame in a tight loop. It never suppresses the
// first occurrence of a message, so it cannot change the forwarding
// semantics of a correctly-behaved client.
const dedupCacheSize = 1024

// Server is the rendezvous directory server.
type Server struct {
	listener net.Listener
	table    *peerTable
	logger   *slog.Logger
	dedup    *lru.Cache

	wg sync.WaitGroup
}

// NewServer wraps an already-bound listener. Callers construct the
// listener themselves (e.g. net.Listen("tcp", addr)) so that tests can
// bind an ephemeral port.
func NewServer(listener net.Listener, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := lru.New(dedupCacheSize)
	if err != nil {
		// lru.New only errors on a non-positive size, which is a
		// programmer error given the constant above.
		panic(fmt.Sprintf("rendezvous: building dedup cache: %v", err))
	}
	return &Server{
		listener: listener,
		table:    newPeerTable(),
		logger:   logger,
		dedup:    cache,
	}
}

// Run accepts connections until ctx is canceled or the listener fails.
// On cancellation it closes the listener and waits for every in-flight
// reader task to observe its connection closing before returning (§5's
// suggested graceful shutdown).
func (s *Server) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.listener.Close()
		case <-done:
		}
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// handleConn implements the per-connection lifecycle of §4.2: assign an
// id, send SetUuid then ClientList synchronously, then loop on reads
// until EOF or a protocol error, finally removing the record and
// broadcasting departure.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	id := peerid.New()
	rec := newPeerRecord(id, conn)
	log := s.logger.With("peer_id", id, "remote_addr", conn.RemoteAddr())

	// Ordering guarantee (§5): SetUuid strictly before ClientList, both
	// strictly before any NewClient/ClientDisconnected delta. The record's
	// write lock is held from before the insert until both are written,
	// so a concurrent broadcast that already sees this peer in the table
	// blocks in Send until the initial pair is on the wire. This is the
	// one place a write-half lock is held while the table lock is taken;
	// it cannot deadlock, since no code waits on a write-half lock while
	// holding the table lock.
	rec.writeMu.Lock()
	s.table.insert(rec)
	log.Debug("peer connected")
	err := wire.WriteClientBound(conn, wire.ClientBoundSetUUID{ID: id})
	if err == nil {
		err = wire.WriteClientBound(conn, wire.ClientBoundClientList{Peers: s.table.namedSnapshot()})
	}
	rec.writeMu.Unlock()
	if err != nil {
		log.Warn("failed to send SetUuid/ClientList", "err", err)
		s.table.remove(id)
		return
	}

	for {
		msg, err := wire.ReadServerBound(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug("peer disconnected")
			} else {
				log.Warn("closing connection after protocol error", "err", err)
			}
			break
		}
		s.dispatch(rec, msg, log)
	}

	s.table.remove(id)
	s.broadcast(wire.ClientBoundClientDisconnected{ID: id}, log)
}

// dispatch applies one inbound message per the table in §4.2.
func (s *Server) dispatch(sender *peerRecord, msg wire.ServerBound, log *slog.Logger) {
	switch m := msg.(type) {
	case wire.ServerBoundAdvertise:
		sender.SetName(m.Name)
		s.broadcast(wire.ClientBoundNewClient{Desc: sender.Description()}, log)

	case wire.ServerBoundConnectionRequest:
		s.forward(sender, m.Desc.ID, m, log, func() wire.ClientBound {
			return wire.ClientBoundConnectionRequest{Desc: sender.Description(), PublicKey: m.PublicKey}
		})

	case wire.ServerBoundConnectionResponse:
		s.forward(sender, m.Desc.ID, m, log, func() wire.ClientBound {
			return wire.ClientBoundConnectionResponse{Desc: sender.Description(), PublicKey: m.PublicKey}
		})

	case wire.ServerBoundData:
		s.forward(sender, m.Desc.ID, m, log, func() wire.ClientBound {
			return wire.ClientBoundData{Desc: sender.Description(), Envelope: m.Envelope}
		})

	default:
		log.Warn("ignoring message of unexpected type", "type", fmt.Sprintf("%T", msg))
	}
}

// broadcast sends msg to every peer currently in the table, including
// the sender (§9 design note #3: NewClient is broadcast even to the
// advertiser). A write failure to one peer is logged and does not stop
// delivery to the rest (§4.2 failure semantics).
func (s *Server) broadcast(msg wire.ClientBound, log *slog.Logger) {
	for _, r := range s.table.all() {
		if err := r.Send(msg); err != nil {
			log.Debug("broadcast write failed, leaving to that peer's reader to detect", "target", r.id, "err", err)
		}
	}
}

// forward looks up target and, if present, sends the rewritten message
// built by makeMsg. Absent targets are dropped silently (§4.2/§7
// Routing error kind: no NACK to sender). A frame identical to one the
// same sender already forwarded to the same target is suppressed while
// that earlier key is still in the server-wide dedup cache, whether or
// not other frames came in between; see the dedupCacheSize doc comment.
func (s *Server) forward(sender *peerRecord, target peerid.ID, original wire.ServerBound, log *slog.Logger, makeMsg func() wire.ClientBound) {
	rec, ok := s.table.get(target)
	if !ok {
		log.Debug("dropping message to absent target", "target", target)
		return
	}

	key := dedupKey(sender.id, target, original)
	if _, hit := s.dedup.Get(key); hit {
		log.Debug("suppressing duplicate forward", "target", target)
		return
	}
	s.dedup.Add(key, struct{}{})

	if err := rec.Send(makeMsg()); err != nil {
		log.Debug("forward write failed, leaving to that peer's reader to detect", "target", target, "err", err)
	}
}

func dedupKey(sender, target peerid.ID, msg wire.ServerBound) [32]byte {
	h := sha256.New()
	h.Write(sender[:])
	h.Write(target[:])
	switch m := msg.(type) {
	case wire.ServerBoundConnectionRequest:
		h.Write([]byte{1})
		h.Write(m.PublicKey.N.Bytes())
	case wire.ServerBoundConnectionResponse:
		h.Write([]byte{2})
		h.Write(m.PublicKey.N.Bytes())
	case wire.ServerBoundData:
		h.Write([]byte{3})
		h.Write(m.Envelope.Ciphertext)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
