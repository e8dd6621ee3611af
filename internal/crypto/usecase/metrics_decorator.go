package usecase

import (
	"context"
	"time"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	"github.com/fieldvault/fieldvault/internal/metrics"
)

// keyResolverWithMetrics decorates KeyResolver with metrics instrumentation.
type keyResolverWithMetrics struct {
	next    KeyResolver
	metrics metrics.BusinessMetrics
}

// NewKeyResolverWithMetrics wraps a KeyResolver with metrics recording.
func NewKeyResolverWithMetrics(resolver KeyResolver, m metrics.BusinessMetrics) KeyResolver {
	return &keyResolverWithMetrics{
		next:    resolver,
		metrics: m,
	}
}

// Resolve records metrics for DEK resolution. Calls without stored metadata
// provision a new entity key and are counted separately from resolutions of
// existing keys.
func (k *keyResolverWithMetrics) Resolve(
	ctx context.Context,
	entity cryptoDomain.EntityKey,
	meta *cryptoDomain.KeyMetadata,
) ([]byte, cryptoDomain.KeyMetadata, []byte, error) {
	operation := "key_resolve"
	if meta == nil {
		operation = "key_provision"
	}

	start := time.Now()
	dek, resolvedMeta, wrapped, err := k.next.Resolve(ctx, entity, meta)

	status := "success"
	if err != nil {
		status = "error"
	}

	k.metrics.RecordOperation(ctx, "crypto", operation, status)
	k.metrics.RecordDuration(ctx, "crypto", operation, time.Since(start), status)

	return dek, resolvedMeta, wrapped, err
}

// Invalidate passes through to the decorated resolver.
func (k *keyResolverWithMetrics) Invalidate(entity cryptoDomain.EntityKey) {
	k.next.Invalidate(entity)
}

// HydrateCache passes through to the decorated resolver.
func (k *keyResolverWithMetrics) HydrateCache(entity cryptoDomain.EntityKey, meta cryptoDomain.KeyMetadata, wrapped []byte) {
	k.next.HydrateCache(entity, meta, wrapped)
}
