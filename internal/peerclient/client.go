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

// Package peerclient implements the peer client's local session and
// pairing state machine (§4.3): directory awareness, the pairing
// handshake, and routing outbound text through the currently selected
// pairing.
package peerclient

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/vyhive/rendezvous/internal/envelope"
	"github.com/vyhive/rendezvous/internal/peerid"
	"github.com/vyhive/rendezvous/internal/wire"
)

// rsaKeyBits is the RSA key size generated at startup (§4.3 Startup,
// §4.4 step 4).
const rsaKeyBits = 2048

// Client is one peer's connection to the rendezvous server.
type Client struct {
	conn    net.Conn
	writeMu sync.Mutex
	logger  *slog.Logger
	events  chan Event

	ownIDMu sync.RWMutex
	ownID   peerid.ID
	hasID   bool

	peers       peerList
	pending     *pendingRequests
	established *establishedPairings

	channelMu sync.Mutex
	channel   *peerid.ID

	priv *rsa.PrivateKey
	pub  *rsa.PublicKey
}

// Dial connects to the rendezvous server at addr, generates a fresh
// RSA-2048 keypair, and returns a Client ready to have Run called on it.
func Dial(addr string, logger *slog.Logger) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("peerclient: dial %s: %w", addr, err)
	}
	return newClient(conn, logger)
}

func newClient(conn net.Conn, logger *slog.Logger) (*Client, error) {
	priv, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("peerclient: generate rsa key: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		conn:        conn,
		logger:      logger,
		events:      make(chan Event, 64),
		pending:     newPendingRequests(),
		established: newEstablishedPairings(),
		priv:        priv,
		pub:         &priv.PublicKey,
	}, nil
}

// Events returns the channel the UI should drain for session
// notifications (§6 UI contract).
func (c *Client) Events() <-chan Event { return c.events }

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// PrivateKey returns this session's RSA private key, for the optional
// key-export path (§4.7). It is never transmitted or persisted by the
// client itself.
func (c *Client) PrivateKey() *rsa.PrivateKey { return c.priv }

func (c *Client) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("event channel full, dropping event", "type", fmt.Sprintf("%T", ev))
	}
}

// Run reads and dispatches messages until the connection closes or a
// protocol error occurs. It is meant to run in its own goroutine; the
// reader half of the connection is owned exclusively by whichever
// goroutine calls Run (§5: "the read-half is owned exclusively by the
// reader task").
func (c *Client) Run() error {
	for {
		msg, err := wire.ReadClientBound(c.conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.logger.Debug("server closed connection")
				return nil
			}
			c.logger.Warn("closing after protocol error", "err", err)
			return err
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg wire.ClientBound) {
	switch m := msg.(type) {
	case wire.ClientBoundSetUUID:
		c.ownIDMu.Lock()
		c.ownID = m.ID
		c.hasID = true
		c.ownIDMu.Unlock()

	case wire.ClientBoundClientList:
		c.peers.replace(m.Peers)
		for _, d := range m.Peers {
			c.emit(PeerJoined{Desc: d})
		}

	case wire.ClientBoundNewClient:
		c.peers.append(m.Desc)
		c.emit(PeerJoined{Desc: m.Desc})

	case wire.ClientBoundClientDisconnected:
		// §9 open question #2, preserved as observed behavior: pairings
		// and CurrentChannel are deliberately NOT cleared here. A
		// subsequent SendText on a stale channel will encrypt to a key
		// the peer no longer holds and be silently dropped server-side.
		c.peers.removeID(m.ID)
		c.emit(PeerLeft{ID: m.ID})

	case wire.ClientBoundConnectionRequest:
		pub := m.PublicKey.ToRSA()
		if c.pending.insertIfAbsent(m.Desc, pub) {
			c.emit(IncomingRequest{Desc: m.Desc})
		}
		// else: duplicate inbound request while one is pending, ignored
		// per §8 invariant 8.

	case wire.ClientBoundConnectionResponse:
		c.established.set(m.Desc.ID, m.PublicKey.ToRSA())
		c.emit(PairingEstablished{ID: m.Desc.ID})

	case wire.ClientBoundData:
		text, err := envelope.OpenText(c.priv, m.Envelope)
		if err != nil {
			c.logger.Warn("undecipherable message", "from", m.Desc.ID, "err", err)
			c.emit(Undecipherable{From: m.Desc.ID})
			return
		}
		c.emit(IncomingText{
			From:     m.Desc.ID,
			FromName: c.peers.nameOf(m.Desc.ID),
			Text:     text,
		})

	default:
		c.logger.Warn("ignoring message of unexpected type", "type", fmt.Sprintf("%T", msg))
	}
}

func (c *Client) send(msg wire.ServerBound) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wire.WriteServerBound(c.conn, msg)
}

// SetFriendlyName advertises name to the server (§6 UI contract (a)).
func (c *Client) SetFriendlyName(name string) error {
	return c.send(wire.ServerBoundAdvertise{Name: name})
}

// ListPeers returns a snapshot of the local PeerList (§6 UI contract (b)).
func (c *Client) ListPeers() []wire.PeerDescription {
	return c.peers.snapshot()
}

// ListPending returns a snapshot of pending inbound requests (§6 UI
// contract (d)).
func (c *Client) ListPending() []wire.PeerDescription {
	return c.pending.snapshot()
}

// OwnID returns this client's server-assigned identifier, or peerid.Nil
// before SetUuid has arrived (§6 UI contract (g)).
func (c *Client) OwnID() peerid.ID {
	c.ownIDMu.RLock()
	defer c.ownIDMu.RUnlock()
	if !c.hasID {
		return peerid.Nil
	}
	return c.ownID
}

// OpenChannel implements the initiator half of the pairing handshake
// (§4.3, §6 UI contract (c)). If target is already in
// EstablishedPairings it performs no network I/O, only updating
// CurrentChannel (§8 invariant 7, idempotence of pairing), and returns
// "switched". Otherwise it sends a ConnectionRequest and returns
// "request sent".
func (c *Client) OpenChannel(target peerid.ID) (string, error) {
	if _, ok := c.established.get(target); ok {
		c.channelMu.Lock()
		c.channel = &target
		c.channelMu.Unlock()
		return "switched", nil
	}

	if err := c.send(wire.ServerBoundConnectionRequest{
		Desc:      wire.PeerDescription{ID: target},
		PublicKey: wire.PublicKeyFromRSA(c.pub),
	}); err != nil {
		return "", err
	}
	return "request sent", nil
}

// Accept accepts a pending inbound request from target, completing the
// responder half of the handshake (§4.3, §6 UI contract (e)).
func (c *Client) Accept(target peerid.ID) error {
	entry, ok := c.pending.take(target)
	if !ok {
		return ErrUnknownPendingRequest
	}
	c.established.set(target, entry.pubKey)
	c.emit(PairingEstablished{ID: target})

	return c.send(wire.ServerBoundConnectionResponse{
		Desc:      wire.PeerDescription{ID: target},
		PublicKey: wire.PublicKeyFromRSA(c.pub),
	})
}

// SendText encrypts text for the currently selected channel and sends it
// (§4.4, §6 UI contract (f)). Returns ErrNoChannelSelected if no channel
// is selected.
func (c *Client) SendText(text string) error {
	c.channelMu.Lock()
	target := c.channel
	c.channelMu.Unlock()
	if target == nil {
		return ErrNoChannelSelected
	}

	pub, ok := c.established.get(*target)
	if !ok {
		// OpenChannel only selects targets already in
		// EstablishedPairings and entries are never removed (not even on
		// disconnect, §9 open question #2), so this is a defensive check:
		// a channel with no pairing is reported as "no channel".
		return ErrNoChannelSelected
	}

	env, err := envelope.SealText(pub, text)
	if err != nil {
		return fmt.Errorf("peerclient: seal message: %w", err)
	}

	return c.send(wire.ServerBoundData{
		Desc:     wire.PeerDescription{ID: *target},
		Envelope: env,
	})
}
