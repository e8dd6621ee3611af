package usecase

import (
	"context"
	"log/slog"
	"sync"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	cryptoService "github.com/fieldvault/fieldvault/internal/crypto/service"
	apperrors "github.com/fieldvault/fieldvault/internal/errors"
)

// keyResolver implements the KeyResolver interface.
//
// The resolver owns the per-entity creation locks: DEK provisioning against a
// remote KMS is not idempotent (it creates key rings, keys and secrets), so
// concurrent first writes for the same entity within one process are
// serialized and the losers reuse the winner's result from the cache. Reads
// and already-provisioned entities never contend on these locks.
type keyResolver struct {
	keyWrapper  cryptoService.KeyWrapper
	secretStore cryptoService.SecretStore
	keyCache    cryptoService.KeyCache

	creationLocks sync.Map // EntityKey -> *sync.Mutex
}

// NewKeyResolver creates a KeyResolver with the provided dependencies.
func NewKeyResolver(
	keyWrapper cryptoService.KeyWrapper,
	secretStore cryptoService.SecretStore,
	keyCache cryptoService.KeyCache,
) KeyResolver {
	return &keyResolver{
		keyWrapper:  keyWrapper,
		secretStore: secretStore,
		keyCache:    keyCache,
	}
}

// Resolve returns the plaintext DEK, durable metadata and wrapped DEK for the
// entity, creating a new key on first use.
//
// A cache hit is revalidated two ways before it is trusted: the entry must
// name the same secret as the supplied durable metadata (a mismatch means the
// entity was re-keyed and the cached DEK is retired), and the cached bytes
// must actually unwrap. Either failure degrades to the durable metadata path
// instead of failing the operation. Failures on the durable path are fatal:
// inventing a fresh DEK when metadata says one exists would make previously
// encrypted data undecryptable.
func (k *keyResolver) Resolve(
	ctx context.Context,
	entity cryptoDomain.EntityKey,
	meta *cryptoDomain.KeyMetadata,
) ([]byte, cryptoDomain.KeyMetadata, []byte, error) {
	if entry, ok := k.keyCache.Get(entity); ok {
		if meta != nil && entry.SecretAddress != meta.SecretAddress {
			slog.Info(
				"cached DEK superseded by re-keyed metadata, discarding",
				"entity", entity.String(),
			)
			k.keyCache.Delete(entity)
			return k.resolveFromMetadata(ctx, entity, *meta)
		}

		dek, err := k.keyWrapper.Unwrap(ctx, entry.WrappedDek, entry.KeyAddress)
		if err == nil {
			return dek, entry.Metadata(), entry.WrappedDek, nil
		}

		slog.Warn(
			"cached DEK failed to unwrap, falling back to durable metadata",
			"entity", entity.String(),
			"error", err,
		)
		k.keyCache.Delete(entity)
	}

	if meta != nil {
		return k.resolveFromMetadata(ctx, entity, *meta)
	}

	return k.resolveAbsent(ctx, entity)
}

// resolveFromMetadata fetches the wrapped DEK named by durable metadata,
// unwraps it and repopulates the cache.
func (k *keyResolver) resolveFromMetadata(
	ctx context.Context,
	entity cryptoDomain.EntityKey,
	meta cryptoDomain.KeyMetadata,
) ([]byte, cryptoDomain.KeyMetadata, []byte, error) {
	if err := meta.Validate(); err != nil {
		return nil, cryptoDomain.KeyMetadata{}, nil, err
	}

	wrapped, err := k.secretStore.GetSecret(ctx, meta.SecretAddress)
	if err != nil {
		return nil, cryptoDomain.KeyMetadata{}, nil, apperrors.Wrap(cryptoDomain.ErrDekResolution, err.Error())
	}

	dek, err := k.keyWrapper.Unwrap(ctx, wrapped, meta.KeyAddress)
	if err != nil {
		return nil, cryptoDomain.KeyMetadata{}, nil, apperrors.Wrap(cryptoDomain.ErrDekResolution, err.Error())
	}

	k.keyCache.Set(entity, cryptoDomain.CacheEntry{
		KeyAddress:    meta.KeyAddress,
		SecretAddress: meta.SecretAddress,
		WrappedDek:    wrapped,
	})

	return dek, meta, wrapped, nil
}

// resolveAbsent provisions a brand-new DEK for the entity: generate, wrap,
// persist the wrapped copy and cache the result.
func (k *keyResolver) resolveAbsent(
	ctx context.Context,
	entity cryptoDomain.EntityKey,
) ([]byte, cryptoDomain.KeyMetadata, []byte, error) {
	lock := k.entityLock(entity)
	lock.Lock()
	defer lock.Unlock()

	// Another goroutine may have provisioned the key while this one waited on
	// the lock.
	if entry, ok := k.keyCache.Get(entity); ok {
		dek, err := k.keyWrapper.Unwrap(ctx, entry.WrappedDek, entry.KeyAddress)
		if err == nil {
			return dek, entry.Metadata(), entry.WrappedDek, nil
		}
		k.keyCache.Delete(entity)
	}

	dek, err := cryptoDomain.NewDek()
	if err != nil {
		return nil, cryptoDomain.KeyMetadata{}, nil, apperrors.Wrap(cryptoDomain.ErrDekResolution, err.Error())
	}

	wrapped, keyAddr, err := k.keyWrapper.Wrap(ctx, dek, entity)
	if err != nil {
		cryptoDomain.Zero(dek)
		return nil, cryptoDomain.KeyMetadata{}, nil, apperrors.Wrap(cryptoDomain.ErrDekResolution, err.Error())
	}

	// A unique address per provisioning attempt: a concurrent provisioner in
	// another process cannot overwrite this secret, and the durable metadata
	// record decides which attempt wins.
	secretAddr, err := k.secretStore.CreateSecret(ctx, cryptoDomain.UniqueSecretAddress(entity), wrapped)
	if err != nil {
		cryptoDomain.Zero(dek)
		return nil, cryptoDomain.KeyMetadata{}, nil, apperrors.Wrap(cryptoDomain.ErrDekResolution, err.Error())
	}

	k.keyCache.Set(entity, cryptoDomain.CacheEntry{
		KeyAddress:    keyAddr,
		SecretAddress: secretAddr,
		WrappedDek:    wrapped,
	})

	slog.Info(
		"provisioned new entity key",
		"entity", entity.String(),
		"key_ring_id", keyAddr.KeyRingID,
		"key_id", keyAddr.KeyID,
	)

	meta := cryptoDomain.KeyMetadata{
		SchemaVersion: cryptoDomain.KeyMetadataSchemaVersion,
		KeyAddress:    keyAddr,
		SecretAddress: secretAddr,
	}
	return dek, meta, wrapped, nil
}

// Invalidate drops any cached resolution for the entity.
func (k *keyResolver) Invalidate(entity cryptoDomain.EntityKey) {
	k.keyCache.Delete(entity)
}

// HydrateCache seeds the cache with an externally obtained resolution.
func (k *keyResolver) HydrateCache(
	entity cryptoDomain.EntityKey,
	meta cryptoDomain.KeyMetadata,
	wrapped []byte,
) {
	k.keyCache.Set(entity, cryptoDomain.CacheEntry{
		KeyAddress:    meta.KeyAddress,
		SecretAddress: meta.SecretAddress,
		WrappedDek:    wrapped,
	})
}

func (k *keyResolver) entityLock(entity cryptoDomain.EntityKey) *sync.Mutex {
	lock, _ := k.creationLocks.LoadOrStore(entity, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
