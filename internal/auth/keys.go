package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	// KeyPrefix is the prefix for all operator keys
	KeyPrefix = "sc_key_"
	// KeyLength is the length of the random part of the key
	KeyLength = 32
)

// ErrInvalidKey is returned when a presented key matches no configured hash.
var ErrInvalidKey = errors.New("invalid API key")

// GenerateAPIKey generates a new operator key.
func GenerateAPIKey() (string, error) {
	bytes := make([]byte, KeyLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	return KeyPrefix + hex.EncodeToString(bytes), nil
}

// HashAPIKey hashes a key for configuration. Only hashes are ever configured.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// Keyring holds the SHA-256 hashes of the accepted operator keys.
type Keyring struct {
	hashes [][]byte
}

// NewKeyring builds a keyring from hex-encoded key hashes. Blank entries are
// skipped; malformed entries are an error.
func NewKeyring(hexHashes []string) (*Keyring, error) {
	k := &Keyring{}
	for _, h := range hexHashes {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		raw, err := hex.DecodeString(h)
		if err != nil || len(raw) != sha256.Size {
			return nil, fmt.Errorf("invalid key hash %q", h)
		}
		k.hashes = append(k.hashes, raw)
	}
	return k, nil
}

// Len returns the number of accepted keys.
func (k *Keyring) Len() int {
	return len(k.hashes)
}

// Validate checks a presented key against every configured hash.
func (k *Keyring) Validate(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	sum := sha256.Sum256([]byte(key))
	match := 0
	for _, h := range k.hashes {
		match |= subtle.ConstantTimeCompare(sum[:], h)
	}
	if match != 1 {
		return ErrInvalidKey
	}
	return nil
}
