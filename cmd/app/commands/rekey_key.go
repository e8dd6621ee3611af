package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	cryptoUseCase "github.com/fieldvault/fieldvault/internal/crypto/usecase"
	"github.com/fieldvault/fieldvault/internal/database"
	apperrors "github.com/fieldvault/fieldvault/internal/errors"
	keymetaDomain "github.com/fieldvault/fieldvault/internal/keymeta/domain"
	keymetaUseCase "github.com/fieldvault/fieldvault/internal/keymeta/usecase"
)

// RunRekeyKey replaces an entity's wrapped data key with a freshly provisioned
// one. The old metadata row is deleted and the new one inserted in a single
// transaction, so readers never observe the entity without a key.
//
// Fields encrypted under the previous key cannot be decrypted afterwards;
// callers are expected to re-encrypt the entity's records.
func RunRekeyKey(
	ctx context.Context,
	txManager database.TxManager,
	keyResolver cryptoUseCase.KeyResolver,
	repository keymetaUseCase.EntityKeyRepository,
	logger *slog.Logger,
	w io.Writer,
	entityKeyStr string,
) error {
	entity, err := cryptoDomain.NewEntityKey(entityKeyStr)
	if err != nil {
		return fmt.Errorf("invalid entity key: %w", err)
	}

	// Drop any cached resolution so the resolver provisions fresh material.
	keyResolver.Invalidate(entity)

	var newMeta cryptoDomain.KeyMetadata
	err = txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := repository.Delete(txCtx, entity); err != nil {
			if apperrors.Is(err, keymetaDomain.ErrEntityKeyNotFound) {
				return fmt.Errorf("entity %q has no key to replace: %w", entityKeyStr, err)
			}
			return fmt.Errorf("failed to delete old entity key: %w", err)
		}

		dek, resolvedMeta, _, err := keyResolver.Resolve(txCtx, entity, nil)
		if err != nil {
			return fmt.Errorf("failed to provision replacement key: %w", err)
		}
		defer cryptoDomain.Zero(dek)

		record, err := keymetaDomain.NewEntityKeyRecord(entity, resolvedMeta)
		if err != nil {
			return err
		}
		if err := repository.Create(txCtx, record); err != nil {
			return fmt.Errorf("failed to persist replacement key metadata: %w", err)
		}

		newMeta = resolvedMeta
		return nil
	})
	if err != nil {
		keyResolver.Invalidate(entity)
		return err
	}

	logger.Info("entity key replaced",
		slog.String("entity_key", entityKeyStr),
		slog.String("key_ring_id", newMeta.KeyAddress.KeyRingID),
		slog.String("key_id", newMeta.KeyAddress.KeyID),
	)
	fmt.Fprintf(w, "Replaced key for entity %q (key %s/%s/%s v%s, secret %s)\n",
		entityKeyStr,
		newMeta.KeyAddress.LocationID,
		newMeta.KeyAddress.KeyRingID,
		newMeta.KeyAddress.KeyID,
		newMeta.KeyAddress.KeyVersion,
		newMeta.SecretAddress,
	)
	fmt.Fprintln(w, "Warning: fields encrypted under the previous key must be re-encrypted.")
	return nil
}
