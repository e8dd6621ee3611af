// Package domain defines the core domain models for field-level envelope encryption.
//
// The key hierarchy has two tiers: a remote master key (KEK) held by a KMS wraps
// a per-entity Data Encryption Key (DEK), and the DEK encrypts the configured
// fields of that entity's records. The wrapped DEK lives in a secret store; only
// addressing metadata (KeyMetadata) is persisted alongside application data.
package domain

import (
	"crypto/rand"
	"fmt"
)

// NewDek generates a fresh Data Encryption Key from a cryptographically secure
// random source. The plaintext DEK is never persisted and must be zeroed with
// Zero as soon as the operation that needed it completes.
func NewDek() ([]byte, error) {
	dek := make([]byte, DekSize)
	if _, err := rand.Read(dek); err != nil {
		return nil, fmt.Errorf("failed to generate DEK: %w", err)
	}
	return dek, nil
}
