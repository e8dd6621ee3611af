package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fieldvault/fieldvault/internal/errors"
)

// EntityKey is the stable per-entity cache and addressing identity. It is
// derived from an immutable business identifier (username, client id), never
// from a mutable record id, so differently-sourced code paths cannot collide
// on hand-built strings.
type EntityKey string

// NewEntityKey validates and normalizes an entity identifier into an EntityKey.
func NewEntityKey(name string) (EntityKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "entity key name is required")
	}
	if strings.ContainsAny(name, " \t\n/") {
		return "", errors.Wrap(errors.ErrInvalidInput, "entity key name contains invalid characters")
	}
	return EntityKey(strings.ToLower(name)), nil
}

// String returns the entity key as a plain string.
func (e EntityKey) String() string {
	return string(e)
}

// KeyAddress identifies exactly which remote master key (and version, where the
// provider supports versions) wrapped a DEK. Unwrap must use the address
// recorded at wrap time; addresses are not interchangeable even within one
// entity's history because rotation creates a new address.
type KeyAddress struct {
	LocationID string `json:"location_id"`
	KeyRingID  string `json:"key_ring_id"`
	KeyID      string `json:"key_id"`
	KeyVersion string `json:"key_version,omitempty"`
}

// IsZero reports whether the address carries no key identity.
func (a KeyAddress) IsZero() bool {
	return a.KeyID == "" && a.KeyRingID == ""
}

// SecretAddress identifies the secret-store entry holding a wrapped DEK.
type SecretAddress string

// SecretAddressForEntity derives the deterministic secret id for an entity.
func SecretAddressForEntity(entity EntityKey) SecretAddress {
	return SecretAddress(fmt.Sprintf("secret-%s", entity))
}

// UniqueSecretAddress returns a collision-free secret id for the entity.
// Used when provisioning so concurrent provisioners in separate processes
// never overwrite each other's wrapped DEK; the durable metadata record picks
// the single winner.
func UniqueSecretAddress(entity EntityKey) SecretAddress {
	return SecretAddress(fmt.Sprintf("%s-%s", SecretAddressForEntity(entity), uuid.Must(uuid.NewV7())))
}

// KeyMetadata is the durable addressing bundle persisted alongside a record:
// where the wrapped DEK lives and which master key version can unwrap it.
// Once persisted it is immutable for the record's lifetime unless the record
// undergoes explicit re-encryption.
type KeyMetadata struct {
	SchemaVersion int           `json:"schema_version"`
	KeyAddress    KeyAddress    `json:"key_address"`
	SecretAddress SecretAddress `json:"secret_address"`
}

// Validate checks that the metadata is complete enough to resolve a DEK.
func (m KeyMetadata) Validate() error {
	if m.SchemaVersion != KeyMetadataSchemaVersion {
		return ErrMetadataSchema
	}
	if m.KeyAddress.IsZero() {
		return errors.Wrap(errors.ErrInvalidInput, "key address is required")
	}
	if m.SecretAddress == "" {
		return errors.Wrap(errors.ErrInvalidInput, "secret address is required")
	}
	return nil
}

// CacheEntry is the process-local cached resolution result for an entity.
// Owned exclusively by the key cache; the cache is the sole mutator.
type CacheEntry struct {
	KeyAddress    KeyAddress
	SecretAddress SecretAddress
	WrappedDek    []byte
	InsertedAt    time.Time
}

// Metadata rebuilds the durable KeyMetadata view of the cached entry.
func (e CacheEntry) Metadata() KeyMetadata {
	return KeyMetadata{
		SchemaVersion: KeyMetadataSchemaVersion,
		KeyAddress:    e.KeyAddress,
		SecretAddress: e.SecretAddress,
	}
}
