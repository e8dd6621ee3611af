// Package usecase implements business logic orchestration for cryptographic
// operations, most importantly the key resolution protocol that produces a
// usable plaintext DEK for an entity from whatever state the system is in:
// a warm cache, durable key metadata only, or nothing at all.
package usecase

import (
	"context"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
)

// KeyResolver produces a plaintext DEK for an entity together with the
// addressing metadata that must be persisted alongside any data encrypted
// under it.
//
// Resolution is state-driven:
//   - cache hit: unwrap the cached wrapped DEK locally, falling back to the
//     durable metadata path if the cached copy no longer unwraps
//   - metadata only: fetch the wrapped DEK from the secret store, unwrap it
//     and repopulate the cache
//   - absent: generate a fresh DEK, wrap it, persist the wrapped copy and
//     cache the result; guarded per entity so concurrent first writes do not
//     provision duplicate keys
type KeyResolver interface {
	// Resolve returns the plaintext DEK, the durable key metadata and the
	// wrapped DEK bytes for the entity. Pass nil metadata when the caller has
	// no persisted KeyMetadata for the entity yet.
	Resolve(ctx context.Context, entity cryptoDomain.EntityKey, meta *cryptoDomain.KeyMetadata) ([]byte, cryptoDomain.KeyMetadata, []byte, error)

	// Invalidate drops any cached resolution for the entity. The next Resolve
	// goes back to durable state.
	Invalidate(entity cryptoDomain.EntityKey)

	// HydrateCache seeds the cache with an externally obtained resolution,
	// typically after a decrypt path unwrapped a DEK from durable metadata.
	HydrateCache(entity cryptoDomain.EntityKey, meta cryptoDomain.KeyMetadata, wrapped []byte)
}
