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
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vyhive/rendezvous/internal/peerid"
	"github.com/vyhive/rendezvous/internal/rendezvous"
	"github.com/vyhive/rendezvous/internal/wire"
)

func startTestServer(t *testing.T) (addr string, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := rendezvous.NewServer(ln, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Run(ctx)
		close(done)
	}()

	return ln.Addr().String(), func() {
		cancel()
		<-done
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func connectClient(t *testing.T, addr string) *Client {
	t.Helper()
	c, err := Dial(addr, testLogger())
	require.NoError(t, err)
	go c.Run()
	return c
}

func waitForEvent[T Event](t *testing.T, c *Client, timeout time.Duration) T {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-c.Events():
			if typed, ok := ev.(T); ok {
				return typed
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for event of type %T", zero)
			return zero
		}
	}
}

// TestPairingHandshakeFromBothSides drives the full initiator/responder
// handshake through two real Client instances over a real server.
func TestPairingHandshakeFromBothSides(t *testing.T) {
	addr, stop := startTestServer(t)
	defer stop()

	alice := connectClient(t, addr)
	defer alice.Close()
	bob := connectClient(t, addr)
	defer bob.Close()

	require.Eventually(t, func() bool { return alice.OwnID() != peerid.Nil }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return bob.OwnID() != peerid.Nil }, time.Second, 5*time.Millisecond)

	bobID := bob.OwnID()
	status, err := alice.OpenChannel(bobID)
	require.NoError(t, err)
	require.Equal(t, "request sent", status)

	req := waitForEvent[IncomingRequest](t, bob, time.Second)
	require.Equal(t, alice.OwnID(), req.Desc.ID)

	require.NoError(t, bob.Accept(req.Desc.ID))
	waitForEvent[PairingEstablished](t, bob, time.Second)
	waitForEvent[PairingEstablished](t, alice, time.Second)

	status, err = alice.OpenChannel(bobID)
	require.NoError(t, err)
	require.Equal(t, "switched", status)

	require.NoError(t, alice.SendText("hello bob"))
	text := waitForEvent[IncomingText](t, bob, time.Second)
	require.Equal(t, "hello bob", text.Text)
	require.Equal(t, alice.OwnID(), text.From)
}

// TestDuplicatePendingRequestSuppressed checks end to end that a second
// OpenChannel toward a peer with a request already pending does not
// produce a second IncomingRequest event. The repeated request is
// byte-identical, so the server's dedup cache drops it before it reaches
// bob; the client-side check of invariant 8 (insertIfAbsent) is not what
// stops it here.
func TestDuplicatePendingRequestSuppressed(t *testing.T) {
	addr, stop := startTestServer(t)
	defer stop()

	alice := connectClient(t, addr)
	defer alice.Close()
	bob := connectClient(t, addr)
	defer bob.Close()

	require.Eventually(t, func() bool { return alice.OwnID() != peerid.Nil }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return bob.OwnID() != peerid.Nil }, time.Second, 5*time.Millisecond)

	bobID := bob.OwnID()
	_, err := alice.OpenChannel(bobID)
	require.NoError(t, err)
	waitForEvent[IncomingRequest](t, bob, time.Second)

	_, err = alice.OpenChannel(bobID)
	require.NoError(t, err)

	require.Never(t, func() bool {
		select {
		case ev := <-bob.Events():
			_, ok := ev.(IncomingRequest)
			return ok
		default:
			return false
		}
	}, 200*time.Millisecond, 20*time.Millisecond)

	require.Len(t, bob.ListPending(), 1)
}

// TestSendTextWithoutChannelSelected covers the UI-contract error case.
func TestSendTextWithoutChannelSelected(t *testing.T) {
	addr, stop := startTestServer(t)
	defer stop()

	c := connectClient(t, addr)
	defer c.Close()

	err := c.SendText("anything")
	require.ErrorIs(t, err, ErrNoChannelSelected)
}

// TestAcceptUnknownRequest covers Accept's error path.
func TestAcceptUnknownRequest(t *testing.T) {
	addr, stop := startTestServer(t)
	defer stop()

	c := connectClient(t, addr)
	defer c.Close()

	err := c.Accept(peerid.New())
	require.ErrorIs(t, err, ErrUnknownPendingRequest)
}

// TestEstablishedPairingSurvivesDisconnectedPeer documents the preserved
// behavior of open question #2: ClientDisconnected removes the peer from
// PeerList but the established pairing entry is left in place, so a later
// SendText on that channel still attempts to encrypt rather than failing
// fast with ErrNoChannelSelected.
func TestEstablishedPairingSurvivesDisconnectedPeer(t *testing.T) {
	addr, stop := startTestServer(t)
	defer stop()

	alice := connectClient(t, addr)
	defer alice.Close()
	bob := connectClient(t, addr)

	require.Eventually(t, func() bool { return alice.OwnID() != peerid.Nil }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return bob.OwnID() != peerid.Nil }, time.Second, 5*time.Millisecond)

	bobID := bob.OwnID()
	_, err := alice.OpenChannel(bobID)
	require.NoError(t, err)
	req := waitForEvent[IncomingRequest](t, bob, time.Second)
	require.NoError(t, bob.Accept(req.Desc.ID))
	waitForEvent[PairingEstablished](t, alice, time.Second)

	_, err = alice.OpenChannel(bobID)
	require.NoError(t, err)

	require.NoError(t, bob.Close())
	waitForEvent[PeerLeft](t, alice, time.Second)

	_, stillEstablished := alice.established.get(bobID)
	require.True(t, stillEstablished, "established pairing must not be purged on disconnect")

	// The server has no such peer anymore, so the message is silently
	// dropped; from alice's point of view SendText still succeeds.
	require.NoError(t, alice.SendText("into the void"))
}

// TestCryptoFailureIsolatedPerMessage covers §7/§9: a message that fails
// to decrypt produces an Undecipherable event but does not close the
// connection, and subsequent well-formed messages are still delivered.
func TestCryptoFailureIsolatedPerMessage(t *testing.T) {
	addr, stop := startTestServer(t)
	defer stop()

	alice := connectClient(t, addr)
	defer alice.Close()
	bob := connectClient(t, addr)
	defer bob.Close()

	require.Eventually(t, func() bool { return alice.OwnID() != peerid.Nil }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return bob.OwnID() != peerid.Nil }, time.Second, 5*time.Millisecond)

	bobID := bob.OwnID()
	_, err := alice.OpenChannel(bobID)
	require.NoError(t, err)
	req := waitForEvent[IncomingRequest](t, bob, time.Second)
	require.NoError(t, bob.Accept(req.Desc.ID))
	waitForEvent[PairingEstablished](t, alice, time.Second)
	_, err = alice.OpenChannel(bobID)
	require.NoError(t, err)

	// Send a garbage envelope directly, bypassing SealText, to simulate a
	// corrupted or mis-keyed message reaching bob.
	require.NoError(t, alice.send(wire.ServerBoundData{
		Desc: wire.PeerDescription{ID: bobID},
		Envelope: wire.Envelope{
			Key:        []byte("not a valid rsa-wrapped key"),
			Nonce:      make([]byte, 12),
			Ciphertext: []byte("garbage"),
		},
	}))
	bad := waitForEvent[Undecipherable](t, bob, time.Second)
	require.Equal(t, alice.OwnID(), bad.From)

	require.NoError(t, alice.SendText("still works"))
	good := waitForEvent[IncomingText](t, bob, time.Second)
	require.Equal(t, "still works", good.Text)
}
