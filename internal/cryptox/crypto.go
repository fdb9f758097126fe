// Package cryptox holds the key derivation and authenticated encryption used
// to protect store images that leave the device.
package cryptox

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/safekeeper/internal/shared"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// SaltSize is the salt length for DeriveKey.
	SaltSize = 16
	// KeySize is the length of keys returned by DeriveKey.
	KeySize = chacha20poly1305.KeySize
)

// ErrOpen is returned when a sealed message fails authentication.
var ErrOpen = errors.New("message authentication failed")

// DeriveKey stretches a passphrase into a KeySize key with Argon2id
// (t=1, m=64 MiB, p=4).
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

// Seal encrypts plaintext with XChaCha20-Poly1305 under key. The random
// 24-byte nonce is prepended to the ciphertext. aad is authenticated but not
// encrypted.
func Seal(key, plaintext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	nonce, err := shared.RandBytes(aead.NonceSize())
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, aad), nil
}

// Open reverses Seal.
func Open(key, sealed, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrOpen
	}
	nonce, ct := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ct, aad)
	if err != nil {
		return nil, ErrOpen
	}
	return plaintext, nil
}
