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

// Package envelope implements the hybrid RSA/AES-GCM encryption path of
// §4.4: a fresh 32-byte session key encrypts the message body under
// AES-256-GCM, and the session key itself is wrapped under the
// recipient's RSA-2048 public key with PKCS#1 v1.5 padding. The server
// never sees the session key, so it never sees plaintext.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/vyhive/rendezvous/internal/wire"
)

// KeySize is the length in bytes of the per-message AES-256 session key.
const KeySize = 32

// ErrUndecipherable wraps any failure in the decrypt path: RSA unwrap
// failure, AES-GCM authentication failure, or non-UTF-8 plaintext. Per
// §7/§9, a crypto failure is local to one message; callers must not tear
// down the connection on it.
var ErrUndecipherable = errors.New("envelope: undecipherable")

// Seal encrypts plaintext for recipient pub, producing the envelope
// transmitted as the Envelope field of a ServerBoundData/ClientBoundData
// message.
func Seal(pub *rsa.PublicKey, plaintext []byte) (wire.Envelope, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return wire.Envelope{}, fmt.Errorf("envelope: generate session key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return wire.Envelope{}, fmt.Errorf("envelope: new aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return wire.Envelope{}, fmt.Errorf("envelope: new gcm: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return wire.Envelope{}, fmt.Errorf("envelope: generate nonce: %w", err)
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	encryptedKey, err := rsa.EncryptPKCS1v15(rand.Reader, pub, key)
	if err != nil {
		return wire.Envelope{}, fmt.Errorf("envelope: rsa wrap session key: %w", err)
	}

	return wire.Envelope{Key: encryptedKey, Nonce: nonce, Ciphertext: ciphertext}, nil
}

// Open decrypts env with priv, recovering the plaintext bytes; it does
// not check them for valid UTF-8 (OpenText does). Any step
// failing returns ErrUndecipherable; the caller drops the message for
// this one delivery and keeps the connection open.
func Open(priv *rsa.PrivateKey, env wire.Envelope) ([]byte, error) {
	key, err := rsa.DecryptPKCS1v15(rand.Reader, priv, env.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: rsa unwrap session key: %v", ErrUndecipherable, err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: new aes cipher: %v", ErrUndecipherable, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: new gcm: %v", ErrUndecipherable, err)
	}
	if len(env.Nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("%w: bad nonce size %d", ErrUndecipherable, len(env.Nonce))
	}

	plaintext, err := gcm.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: gcm authentication failed: %v", ErrUndecipherable, err)
	}
	return plaintext, nil
}

// SealText is Seal for the common case of a UTF-8 text message.
func SealText(pub *rsa.PublicKey, text string) (wire.Envelope, error) {
	return Seal(pub, []byte(text))
}

// OpenText is Open plus the final UTF-8-decode step of §4.4: a
// non-UTF-8 plaintext is reported as ErrUndecipherable like any other
// crypto failure, not a distinct error class.
func OpenText(priv *rsa.PrivateKey, env wire.Envelope) (string, error) {
	plaintext, err := Open(priv, env)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plaintext) {
		return "", fmt.Errorf("%w: plaintext is not valid UTF-8", ErrUndecipherable)
	}
	return string(plaintext), nil
}
