// Package usecase implements the record-level orchestration of field
// encryption: resolving one DEK per record operation and fanning it out over
// the configured fields.
package usecase

import (
	"context"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
)

// EntityKeyContext supplies the key identity and durable key metadata of the
// entity a record belongs to. Callers implement it over whatever persistence
// holds their records; the bundled implementation uses the entity_keys table.
type EntityKeyContext interface {
	// EntityKey returns the stable key identity of the entity.
	EntityKey() cryptoDomain.EntityKey

	// FindKeyMetadata returns the persisted KeyMetadata for the entity, or
	// (nil, nil) when none exists yet.
	FindKeyMetadata(ctx context.Context) (*cryptoDomain.KeyMetadata, error)

	// SaveKeyMetadata persists newly created KeyMetadata for the entity.
	SaveKeyMetadata(ctx context.Context, meta cryptoDomain.KeyMetadata) error
}

// Orchestrator encrypts and decrypts the configured fields of structured
// records. One DEK covers all fields of one record operation.
type Orchestrator interface {
	// EncryptObject encrypts the configured fields of the record in place of
	// their plaintext values, adding nonce/tag (and optionally hash) side
	// fields. Returns the encrypted record and the key metadata to persist
	// with it. The input record is not mutated.
	EncryptObject(ctx context.Context, model string, record map[string]any, keyCtx EntityKeyContext) (map[string]any, cryptoDomain.KeyMetadata, error)

	// DecryptObject restores the plaintext of every configured field whose
	// ciphertext, nonce and tag are present, stripping the side fields. Also
	// returns the wrapped DEK so callers can hydrate caches. The input record
	// is not mutated.
	DecryptObject(ctx context.Context, model string, record map[string]any, keyCtx EntityKeyContext) (map[string]any, []byte, error)
}
