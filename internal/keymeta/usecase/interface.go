// Package usecase bridges the durable entity key store into the record
// orchestration layer.
package usecase

import (
	"context"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	"github.com/fieldvault/fieldvault/internal/keymeta/domain"
)

// EntityKeyRepository defines persistence of entity key records.
type EntityKeyRepository interface {
	// Create inserts a new record. Returns domain.ErrEntityKeyAlreadyExists
	// when a record for the entity key name already exists.
	Create(ctx context.Context, record *domain.EntityKeyRecord) error

	// GetByEntityKey retrieves the record for an entity key name. Returns
	// domain.ErrEntityKeyNotFound when absent.
	GetByEntityKey(ctx context.Context, entity cryptoDomain.EntityKey) (*domain.EntityKeyRecord, error)

	// Delete removes the record for an entity key name.
	Delete(ctx context.Context, entity cryptoDomain.EntityKey) error
}
