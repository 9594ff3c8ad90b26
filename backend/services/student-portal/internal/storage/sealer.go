package storage

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	saltSize      = 16
	argonTime     = 1
	argonMemoryKB = 64 * 1024
	argonThreads  = 4
)

// Sealer encrypts the file document with a key derived from a passphrase.
type Sealer struct {
	passphrase []byte
	salt       []byte
	key        []byte
}

// NewSealer returns nil for an empty passphrase, meaning the file stays in clear.
func NewSealer(passphrase string) *Sealer {
	if passphrase == "" {
		return nil
	}
	return &Sealer{passphrase: []byte(passphrase)}
}

func (s *Sealer) keyFor(salt []byte) []byte {
	if s.key != nil && string(s.salt) == string(salt) {
		return s.key
	}
	s.salt = append([]byte(nil), salt...)
	s.key = argon2.IDKey(s.passphrase, s.salt, argonTime, argonMemoryKB, argonThreads, chacha20poly1305.KeySize)
	return s.key
}

// Seal encrypts plaintext, reusing the current salt when one exists.
func (s *Sealer) Seal(plaintext []byte) (salt, nonce, box []byte, err error) {
	salt = s.salt
	if salt == nil {
		salt = make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, nil, fmt.Errorf("storage: salt: %w", err)
		}
	}
	aead, err := chacha20poly1305.NewX(s.keyFor(salt))
	if err != nil {
		return nil, nil, nil, err
	}
	nonce = make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, nil, fmt.Errorf("storage: nonce: %w", err)
	}
	return salt, nonce, aead.Seal(nil, nonce, plaintext, nil), nil
}

// Open decrypts a box produced by Seal. A wrong passphrase surfaces as ErrCorrupt.
func (s *Sealer) Open(salt, nonce, box []byte) ([]byte, error) {
	if len(salt) != saltSize {
		return nil, errors.New("storage: bad salt")
	}
	aead, err := chacha20poly1305.NewX(s.keyFor(salt))
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, ErrCorrupt
	}
	plain, err := aead.Open(nil, nonce, box, nil)
	if err != nil {
		return nil, ErrCorrupt
	}
	return plain, nil
}
