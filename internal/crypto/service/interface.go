// Package service provides cryptographic services for field-level envelope
// encryption: AEAD ciphers, the field cipher, key wrapping against a remote
// KMS, wrapped-DEK secret storage and the process-local key cache.
package service

import (
	"context"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
// The authentication tag is returned separately from the ciphertext so callers
// can persist both as sibling record fields.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext,
	// a fresh random nonce and the authentication tag.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce, tag []byte, err error)

	// Decrypt authenticates and decrypts ciphertext using the provided nonce,
	// tag and AAD. Fails closed on any authentication mismatch.
	Decrypt(ciphertext, nonce, tag, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// FieldCipher encrypts and decrypts single record fields under a DEK.
type FieldCipher interface {
	// EncryptField encrypts one field value. Empty plaintext short-circuits to
	// (nil, nil): callers must not persist ciphertext for empty values.
	EncryptField(name, plaintext string, dek []byte) (*cryptoDomain.EncryptedField, error)

	// DecryptField authenticates and decrypts one field bundle.
	DecryptField(name string, field cryptoDomain.EncryptedField, dek []byte) (string, error)
}

// KeyWrapper wraps and unwraps DEKs under a named remote master key.
//
// Wrap provisions a master key (and key ring) scoped to the entity on first
// use, a remote and non-idempotent operation the resolution protocol must not
// repeat. The returned KeyAddress identifies exactly which master key version
// performed the wrap; Unwrap must be called with that address.
type KeyWrapper interface {
	Wrap(ctx context.Context, dek []byte, entity cryptoDomain.EntityKey) ([]byte, cryptoDomain.KeyAddress, error)
	Unwrap(ctx context.Context, wrapped []byte, addr cryptoDomain.KeyAddress) ([]byte, error)
}

// SecretStore persists wrapped DEKs as opaque versioned secrets.
type SecretStore interface {
	// CreateSecret stores the payload under the given id, creating a new
	// version when the secret already exists, and returns the final address.
	CreateSecret(ctx context.Context, id cryptoDomain.SecretAddress, payload []byte) (cryptoDomain.SecretAddress, error)

	// GetSecret retrieves the latest version of a secret.
	// Fails with domain.ErrSecretNotFound when the id has no accessible version.
	GetSecret(ctx context.Context, addr cryptoDomain.SecretAddress) ([]byte, error)
}

// KeyCache is the process-local mapping from entity key identity to resolved
// key addressing metadata and wrapped DEK bytes. A miss is always safe: the
// resolver falls back to durable metadata. A hit is never trusted blindly:
// the resolver revalidates by successful unwrap.
type KeyCache interface {
	Get(entity cryptoDomain.EntityKey) (cryptoDomain.CacheEntry, bool)
	Set(entity cryptoDomain.EntityKey, entry cryptoDomain.CacheEntry)
	Delete(entity cryptoDomain.EntityKey)
	Clear()
}
