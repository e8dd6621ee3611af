package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	cryptoUseCase "github.com/fieldvault/fieldvault/internal/crypto/usecase"
	apperrors "github.com/fieldvault/fieldvault/internal/errors"
	keymetaDomain "github.com/fieldvault/fieldvault/internal/keymeta/domain"
	keymetaUseCase "github.com/fieldvault/fieldvault/internal/keymeta/usecase"
)

// RunProvisionKey creates the wrapped data key for an entity before its first
// encrypt request, so the request path does not pay the key-creation latency.
// The command is idempotent: an already provisioned entity is reported and left
// untouched.
func RunProvisionKey(
	ctx context.Context,
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
	keyCtx := keymetaUseCase.NewStoreKeyContext(entity, repository)

	meta, err := keyCtx.FindKeyMetadata(ctx)
	if err != nil {
		return fmt.Errorf("failed to look up entity key: %w", err)
	}
	if meta != nil {
		logger.Info("entity key already provisioned", slog.String("entity_key", entityKeyStr))
		fmt.Fprintf(w, "Entity %q is already provisioned (key %s/%s/%s v%s)\n",
			entityKeyStr,
			meta.KeyAddress.LocationID,
			meta.KeyAddress.KeyRingID,
			meta.KeyAddress.KeyID,
			meta.KeyAddress.KeyVersion,
		)
		return nil
	}

	dek, resolvedMeta, _, err := keyResolver.Resolve(ctx, entity, nil)
	if err != nil {
		return fmt.Errorf("failed to provision entity key: %w", err)
	}
	defer cryptoDomain.Zero(dek)

	if err := keyCtx.SaveKeyMetadata(ctx, resolvedMeta); err != nil {
		if apperrors.Is(err, keymetaDomain.ErrEntityKeyAlreadyExists) {
			// A concurrent writer won the provisioning race; its durable
			// record is authoritative.
			keyResolver.Invalidate(entity)
			logger.Info("entity key provisioned concurrently", slog.String("entity_key", entityKeyStr))
			fmt.Fprintf(w, "Entity %q was provisioned concurrently\n", entityKeyStr)
			return nil
		}
		keyResolver.Invalidate(entity)
		return fmt.Errorf("failed to persist entity key metadata: %w", err)
	}

	logger.Info("entity key provisioned",
		slog.String("entity_key", entityKeyStr),
		slog.String("key_ring_id", resolvedMeta.KeyAddress.KeyRingID),
		slog.String("key_id", resolvedMeta.KeyAddress.KeyID),
	)
	fmt.Fprintf(w, "Provisioned entity %q (key %s/%s/%s v%s, secret %s)\n",
		entityKeyStr,
		resolvedMeta.KeyAddress.LocationID,
		resolvedMeta.KeyAddress.KeyRingID,
		resolvedMeta.KeyAddress.KeyID,
		resolvedMeta.KeyAddress.KeyVersion,
		resolvedMeta.SecretAddress,
	)
	return nil
}
