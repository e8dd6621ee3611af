package usecase

import (
	"context"
	"errors"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	"github.com/fieldvault/fieldvault/internal/keymeta/domain"
	recordsUsecase "github.com/fieldvault/fieldvault/internal/records/usecase"
)

// storeKeyContext adapts the entity key repository to the EntityKeyContext
// contract the record orchestrator consumes.
type storeKeyContext struct {
	entity     cryptoDomain.EntityKey
	repository EntityKeyRepository
}

// NewStoreKeyContext creates an EntityKeyContext backed by the entity_keys
// table for the given entity.
func NewStoreKeyContext(entity cryptoDomain.EntityKey, repository EntityKeyRepository) recordsUsecase.EntityKeyContext {
	return &storeKeyContext{entity: entity, repository: repository}
}

// EntityKey returns the entity key name this context is bound to.
func (s *storeKeyContext) EntityKey() cryptoDomain.EntityKey {
	return s.entity
}

// FindKeyMetadata loads the persisted key metadata for the entity. A missing
// record is not an error: it returns (nil, nil) so the resolver provisions a
// fresh key.
func (s *storeKeyContext) FindKeyMetadata(ctx context.Context) (*cryptoDomain.KeyMetadata, error) {
	record, err := s.repository.GetByEntityKey(ctx, s.entity)
	if err != nil {
		if errors.Is(err, domain.ErrEntityKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	meta := record.Metadata
	return &meta, nil
}

// SaveKeyMetadata persists newly provisioned key metadata. A conflict means a
// concurrent provisioner won the unique constraint on the entity key name; the
// error is propagated so the caller can invalidate its cache and retry against
// the durable record.
func (s *storeKeyContext) SaveKeyMetadata(ctx context.Context, meta cryptoDomain.KeyMetadata) error {
	record, err := domain.NewEntityKeyRecord(s.entity, meta)
	if err != nil {
		return err
	}
	return s.repository.Create(ctx, record)
}
