// Package domain defines the durable entity key record: the persisted mapping
// from an entity's key identity to the addressing metadata of its wrapped DEK.
package domain

import (
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	"github.com/fieldvault/fieldvault/internal/errors"
)

var (
	// ErrEntityKeyNotFound indicates no key metadata is stored for the entity.
	ErrEntityKeyNotFound = errors.Wrap(errors.ErrNotFound, "entity key not found")

	// ErrEntityKeyAlreadyExists indicates key metadata for the entity was
	// already persisted, typically by a concurrent provisioner. The stored
	// record wins; callers should re-read and resolve with it.
	ErrEntityKeyAlreadyExists = errors.Wrap(errors.ErrConflict, "entity key already exists")
)

// EntityKeyRecord is the durable row binding an entity key to its KeyMetadata.
// The entity key name carries a unique constraint: exactly one record per
// entity, created once and immutable unless the entity is re-keyed.
type EntityKeyRecord struct {
	ID        uuid.UUID
	EntityKey cryptoDomain.EntityKey
	Metadata  cryptoDomain.KeyMetadata
	CreatedAt time.Time
}

// NewEntityKeyRecord builds a record ready for insertion.
func NewEntityKeyRecord(entity cryptoDomain.EntityKey, meta cryptoDomain.KeyMetadata) (*EntityKeyRecord, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	return &EntityKeyRecord{
		ID:        uuid.Must(uuid.NewV7()),
		EntityKey: entity,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	}, nil
}
