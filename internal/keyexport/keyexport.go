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

// Package keyexport implements the optional passphrase-protected RSA key
// export of §4.7: a one-way dump of a running client's private key to a
// file, wrapped under a passphrase-derived AES-256-GCM key. No binary in
// this repository reads the exported file back in (Import is used only
// by this package's tests); it exists purely so
// an operator can move a session's identity out of a process that is
// about to exit.
package keyexport

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/scrypt"
)

// scrypt cost parameters, chosen per the package's documented guidance
// for interactive use (N=2^15) rather than the higher N appropriate for
// a long-lived credential store, since the exported file is meant to be
// re-imported promptly and deleted.
const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1

	saltSize  = 16
	nonceSize = 12
	keySize   = 32
)

// file is the on-disk layout, JSON-encoded for easy inspection.
type file struct {
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Export wraps priv's PKCS#1 DER encoding under a key derived from
// passphrase via scrypt, and writes it to path as JSON.
func Export(path string, priv *rsa.PrivateKey, passphrase string) error {
	plaintext := x509.MarshalPKCS1PrivateKey(priv)

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("keyexport: generate salt: %w", err)
	}

	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return fmt.Errorf("keyexport: derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("keyexport: new aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("keyexport: new gcm: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("keyexport: generate nonce: %w", err)
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	out, err := json.Marshal(file{Salt: salt, Nonce: nonce, Ciphertext: ciphertext})
	if err != nil {
		return fmt.Errorf("keyexport: encode file: %w", err)
	}

	return os.WriteFile(path, out, 0o600)
}

// ErrWrongPassphrase is returned by Import when the passphrase does not
// recover an authentic key, i.e. AES-GCM authentication failed.
var ErrWrongPassphrase = errors.New("keyexport: wrong passphrase or corrupted file")

// Import reverses Export. It is provided for completeness and for tests;
// the client binary itself never calls it, since an exported key is
// meant to be carried to wherever it is needed next, not reloaded by the
// process that just exited.
func Import(path string, passphrase string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keyexport: read file: %w", err)
	}

	var f file
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("keyexport: decode file: %w", err)
	}

	key, err := scrypt.Key([]byte(passphrase), f.Salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("keyexport: derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("keyexport: new aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("keyexport: new gcm: %w", err)
	}
	if len(f.Nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("%w: bad nonce size", ErrWrongPassphrase)
	}

	plaintext, err := gcm.Open(nil, f.Nonce, f.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrongPassphrase, err)
	}

	priv, err := x509.ParsePKCS1PrivateKey(plaintext)
	if err != nil {
		return nil, fmt.Errorf("keyexport: parse recovered key: %w", err)
	}
	return priv, nil
}
