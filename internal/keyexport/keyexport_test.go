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

package keyexport

import (
	"crypto/rand"
	"crypto/rsa"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 512)
	require.NoError(t, err)
	return priv
}

func TestExportImportRoundTrip(t *testing.T) {
	priv := testKey(t)
	path := filepath.Join(t.TempDir(), "key.json")

	require.NoError(t, Export(path, priv, "correct horse battery staple"))

	recovered, err := Import(path, "correct horse battery staple")
	require.NoError(t, err)
	require.Equal(t, priv.D, recovered.D)
	require.Equal(t, priv.N, recovered.N)
}

func TestImportWrongPassphrase(t *testing.T) {
	priv := testKey(t)
	path := filepath.Join(t.TempDir(), "key.json")

	require.NoError(t, Export(path, priv, "correct horse battery staple"))

	_, err := Import(path, "wrong passphrase")
	require.ErrorIs(t, err, ErrWrongPassphrase)
}
