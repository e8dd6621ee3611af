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

// MySQLEntityKeyRepository persists entity key records in MySQL.
//
// UUIDs are stored as BINARY(16); the rest of the schema mirrors the
// PostgreSQL layout with a unique index on entity_key.
type MySQLEntityKeyRepository struct {
	db *sql.DB
}

// NewMySQLEntityKeyRepository creates a new MySQL entity key repository.
func NewMySQLEntityKeyRepository(db *sql.DB) *MySQLEntityKeyRepository {
	return &MySQLEntityKeyRepository{db: db}
}

// Create inserts a new entity key record. Returns ErrEntityKeyAlreadyExists
// when a record for the entity key name is already present.
func (m *MySQLEntityKeyRepository) Create(ctx context.Context, record *domain.EntityKeyRecord) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO entity_keys (id, entity_key, schema_version, location_id, key_ring_id, key_id, key_version, secret_address, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	idBytes, err := record.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal UUID")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		idBytes,
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
		if isMySQLUniqueViolation(err) {
			return domain.ErrEntityKeyAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create entity key record")
	}
	return nil
}

// GetByEntityKey retrieves the record for an entity key name.
func (m *MySQLEntityKeyRepository) GetByEntityKey(
	ctx context.Context,
	entity cryptoDomain.EntityKey,
) (*domain.EntityKeyRecord, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, entity_key, schema_version, location_id, key_ring_id, key_id, key_version, secret_address, created_at
			  FROM entity_keys WHERE entity_key = ?`

	var record domain.EntityKeyRecord
	var idBytes []byte
	var entityKey, secretAddress string

	err := querier.QueryRowContext(ctx, query, entity.String()).Scan(
		&idBytes,
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

	if err := record.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal UUID")
	}
	record.EntityKey = cryptoDomain.EntityKey(entityKey)
	record.Metadata.SecretAddress = cryptoDomain.SecretAddress(secretAddress)

	return &record, nil
}

// Delete removes the record for an entity key name. Used by re-keying flows.
func (m *MySQLEntityKeyRepository) Delete(ctx context.Context, entity cryptoDomain.EntityKey) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM entity_keys WHERE entity_key = ?`

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

// isMySQLUniqueViolation checks if the error is a MySQL unique constraint violation.
func isMySQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	// MySQL: "Error 1062: Duplicate entry"
	return strings.Contains(errMsg, "duplicate entry") || strings.Contains(errMsg, "1062")
}
