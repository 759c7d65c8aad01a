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

package envelope

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKeyPair(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return priv
}

// TestRoundTrip covers invariant 6 of §8: decrypt(sk, encrypt(pk, m)) == m.
func TestRoundTrip(t *testing.T) {
	priv := testKeyPair(t)

	for _, text := range []string{"hi", "", "a longer message with spaces and punctuation!", "emoji 🎉 text"} {
		env, err := SealText(&priv.PublicKey, text)
		require.NoError(t, err)

		got, err := OpenText(priv, env)
		require.NoError(t, err)
		require.Equal(t, text, got)
	}
}

func TestEachEnvelopeHasFreshKeyAndNonce(t *testing.T) {
	priv := testKeyPair(t)
	env1, err := SealText(&priv.PublicKey, "same plaintext")
	require.NoError(t, err)
	env2, err := SealText(&priv.PublicKey, "same plaintext")
	require.NoError(t, err)

	require.NotEqual(t, env1.Nonce, env2.Nonce)
	require.NotEqual(t, env1.Key, env2.Key)
	require.NotEqual(t, env1.Ciphertext, env2.Ciphertext)
}

func TestOpenWrongKeyIsUndecipherable(t *testing.T) {
	priv := testKeyPair(t)
	other := testKeyPair(t)

	env, err := SealText(&priv.PublicKey, "secret")
	require.NoError(t, err)

	_, err = OpenText(other, env)
	require.ErrorIs(t, err, ErrUndecipherable)
}

func TestOpenTamperedCiphertextIsUndecipherable(t *testing.T) {
	priv := testKeyPair(t)
	env, err := SealText(&priv.PublicKey, "secret")
	require.NoError(t, err)

	env.Ciphertext[0] ^= 0xFF

	_, err = OpenText(priv, env)
	require.ErrorIs(t, err, ErrUndecipherable)
}
