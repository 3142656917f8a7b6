package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront/pkg/config"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keyLen       = 32
	nonceLen     = 24
	sealedPrefix = "sealed.v1."
)

// ErrInvalidSealedValue signals a value that carries the sealed prefix but cannot be opened.
var ErrInvalidSealedValue = errors.New("invalid sealed value")

// Sealer encrypts small state values (session token, user profile) at rest.
type Sealer struct {
	key [keyLen]byte
}

// NewSealer derives a secretbox key from the passphrase with argon2id.
func NewSealer(passphrase string, cfg config.PasswordConfig) (*Sealer, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase cannot be empty")
	}
	salt := cfg.ArgonSalt
	if salt == "" {
		return nil, fmt.Errorf("argon salt cannot be empty")
	}

	memory := uint32(cfg.ArgonMemoryKB)
	if memory == 0 {
		memory = 64 * 1024
	}
	iterations := uint32(cfg.ArgonTime)
	if iterations == 0 {
		iterations = 1
	}
	threads := uint8(cfg.ArgonParallelism)
	if threads == 0 {
		threads = 1
	}

	derived := argon2.IDKey([]byte(passphrase), []byte(salt), iterations, memory, threads, keyLen)
	s := &Sealer{}
	copy(s.key[:], derived)
	return s, nil
}

// Seal encrypts plaintext and returns a printable token.
func (s *Sealer) Seal(plaintext string) (string, error) {
	var nonce [nonceLen]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(box), nil
}

// Open decrypts a value produced by Seal.
func (s *Sealer) Open(value string) (string, error) {
	encoded, ok := strings.CutPrefix(value, sealedPrefix)
	if !ok {
		return "", ErrInvalidSealedValue
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil || len(raw) < nonceLen+secretbox.Overhead {
		return "", ErrInvalidSealedValue
	}
	var nonce [nonceLen]byte
	copy(nonce[:], raw[:nonceLen])
	plain, ok := secretbox.Open(nil, raw[nonceLen:], &nonce, &s.key)
	if !ok {
		return "", ErrInvalidSealedValue
	}
	return string(plain), nil
}

// IsSealed reports whether value was produced by a Sealer.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, sealedPrefix)
}
