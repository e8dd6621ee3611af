// Package repository implements durable persistence of entity key metadata
// for PostgreSQL and MySQL. Both repositories are transaction-aware via
// database.GetTx and map unique-constraint violations on the entity key name
// to domain.ErrEntityKeyAlreadyExists, which is the durable guard against
// concurrent key provisioning for one entity.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	"github.com/fieldvault/fieldvault/internal/database"
	apperrors "github.com/fieldvault/fieldvault/internal/errors"
	"github.com/fieldvault/fieldvault/internal/keymeta/domain"
)

// PostgreSQLEntityKeyRepository persists entity key records in PostgreSQL.
//
// Database schema requirements:
//   - id: UUID PRIMARY KEY
//   - entity_key: TEXT UNIQUE NOT NULL
//   - schema_version: INTEGER
//   - location_id, key_ring_id, key_id, key_version: TEXT
//   - secret_address: TEXT
//   - created_at: TIMESTAMP WITH TIME ZONE
type PostgreSQLEntityKeyRepository struct {
	db *sql.DB
}

// NewPostgreSQLEntityKeyRepository creates a new PostgreSQL entity key repository.
func NewPostgreSQLEntityKeyRepository(db *sql.DB) *PostgreSQLEntityKeyRepository {
	return &PostgreSQLEntityKeyRepository{db: db}
}

// Create inserts a new entity key record. Returns ErrEntityKeyAlreadyExists
// when a record for the entity key name is already present.
func (p *PostgreSQLEntityKeyRepository) Create(ctx context.Context, record *domain.EntityKeyRecord) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO entity_keys (id, entity_key, schema_version, location_id, key_ring_id, key_id, key_version, secret_address, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := querier.ExecContext(
		ctx,
		query,
		record.ID,
		record.EntityKey.String(),
		record.Metadata.SchemaVersion,
		record.Metadata.KeyAddress.LocationID,
		record.Metadata.KeyAddress.KeyRingID,
		record.Metadata.KeyAddress.KeyID,
		record.Metadata.KeyAddress.KeyVersion,
		string(record.Metadata.SecretAddress),
		record.CreatedAt,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return domain.ErrEntityKeyAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create entity key record")
	}
	return nil
}

// GetByEntityKey retrieves the record for an entity key name.
func (p *PostgreSQLEntityKeyRepository) GetByEntityKey(
	ctx context.Context,
	entity cryptoDomain.EntityKey,
) (*domain.EntityKeyRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, entity_key, schema_version, location_id, key_ring_id, key_id, key_version, secret_address, created_at
			  FROM entity_keys WHERE entity_key = $1`

	var record domain.EntityKeyRecord
	var entityKey, secretAddress string

	err := querier.QueryRowContext(ctx, query, entity.String()).Scan(
		&record.ID,
		&entityKey,
		&record.Metadata.SchemaVersion,
		&record.Metadata.KeyAddress.LocationID,
		&record.Metadata.KeyAddress.KeyRingID,
		&record.Metadata.KeyAddress.KeyID,
		&record.Metadata.KeyAddress.KeyVersion,
		&secretAddress,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEntityKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get entity key record")
	}

	record.EntityKey = cryptoDomain.EntityKey(entityKey)
	record.Metadata.SecretAddress = cryptoDomain.SecretAddress(secretAddress)

	return &record, nil
}

// Delete removes the record for an entity key name. Used by re-keying flows.
func (p *PostgreSQLEntityKeyRepository) Delete(ctx context.Context, entity cryptoDomain.EntityKey) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM entity_keys WHERE entity_key = $1`

	result, err := querier.ExecContext(ctx, query, entity.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to delete entity key record")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return domain.ErrEntityKeyNotFound
	}
	return nil
}

// isPostgreSQLUniqueViolation checks if the error is a PostgreSQL unique
// constraint violation.
func isPostgreSQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	// PostgreSQL: "duplicate key value violates unique constraint" (23505)
	return strings.Contains(errMsg, "duplicate key value") || strings.Contains(errMsg, "23505")
}
