package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the hashing cost of service keys
const BcryptCost = 12

// ErrInvalidServiceKey is returned when a presented key does not match the configured hash
var ErrInvalidServiceKey = errors.New("invalid service key")

// HashServiceKey hashes a plaintext key for storage in configuration
func HashServiceKey(key string) (string, error) {
	if len(key) < 16 {
		return "", fmt.Errorf("service key must be at least 16 characters")
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(key), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash service key: %w", err)
	}
	return string(bytes), nil
}

// GenerateServiceKey returns a random 32 byte key, hex encoded
func GenerateServiceKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate service key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ServiceKeyVerifier checks machine-to-machine keys sent by the ETL scheduler
type ServiceKeyVerifier struct {
	hash []byte
}

// NewServiceKeyVerifier creates a verifier; an empty hash disables service keys
func NewServiceKeyVerifier(hash string) *ServiceKeyVerifier {
	return &ServiceKeyVerifier{hash: []byte(hash)}
}

// Enabled reports whether a key hash is configured
func (v *ServiceKeyVerifier) Enabled() bool {
	return len(v.hash) > 0
}

// Verify compares key against the configured hash
func (v *ServiceKeyVerifier) Verify(key string) error {
	if !v.Enabled() || key == "" {
		return ErrInvalidServiceKey
	}
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(key)); err != nil {
		return ErrInvalidServiceKey
	}
	return nil
}
