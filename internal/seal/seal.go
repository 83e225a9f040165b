// package seal encrypts small secrets for storage at rest.
package seal

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// KeySize is the size in bytes of a sealing key.
const KeySize = 32

// SaltSize is the size in bytes of the salt used to derive a key from a
// passphrase.
const SaltSize = 16

// version is prepended to every sealed blob and authenticated as AAD, so
// tampering with it fails decryption.
const version byte = 0x01

// overhead is the total byte overhead per sealed blob:
// 1 (version) + 24 (XChaCha20-Poly1305 nonce) + 16 (Poly1305 tag).
const overhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// NewKey returns a fresh random sealing key.
func NewKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// NewSalt returns a fresh random salt for DeriveKey.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// DeriveKey stretches a passphrase into a sealing key using scrypt.
// The same passphrase and salt always derive the same key.
func DeriveKey(passphrase string, salt []byte) ([]byte, error) {
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", SaltSize, len(salt))
	}
	return scrypt.Key([]byte(passphrase), salt, 1<<15, 8, 1, KeySize)
}

// Seal encrypts plaintext with XChaCha20-Poly1305 and returns a blob of the
// form [version][nonce][ciphertext+tag].
func Seal(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}
	blob := make([]byte, 1+chacha20poly1305.NonceSizeX, len(plaintext)+overhead)
	blob[0] = version
	copy(blob[1:], nonce[:])
	return aead.Seal(blob, nonce[:], plaintext, []byte{version}), nil
}

// Open decrypts a blob produced by Seal. It fails if the blob is truncated,
// carries an unknown version, or does not authenticate under key.
func Open(key, blob []byte) ([]byte, error) {
	if len(blob) < overhead {
		return nil, errors.New("sealed blob too short")
	}
	if blob[0] != version {
		return nil, fmt.Errorf("unsupported sealed blob version %d", blob[0])
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := blob[1 : 1+chacha20poly1305.NonceSizeX]
	ciphertext := blob[1+chacha20poly1305.NonceSizeX:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte{blob[0]})
	if err != nil {
		return nil, fmt.Errorf("open sealed blob: %w", err)
	}
	return plaintext, nil
}
