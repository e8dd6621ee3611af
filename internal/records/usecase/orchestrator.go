package usecase

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	cryptoService "github.com/fieldvault/fieldvault/internal/crypto/service"
	cryptoUsecase "github.com/fieldvault/fieldvault/internal/crypto/usecase"
	apperrors "github.com/fieldvault/fieldvault/internal/errors"
	recordsDomain "github.com/fieldvault/fieldvault/internal/records/domain"
)

// orchestrator implements the Orchestrator interface.
//
// Fields of one record are independent of each other, so encryption and
// decryption fan out over an errgroup. The DEK is resolved exactly once per
// record operation and zeroed before returning; a resolution failure is fatal
// for the whole object regardless of the field-failure policy.
type orchestrator struct {
	registry    *recordsDomain.Registry
	keyResolver cryptoUsecase.KeyResolver
	fieldCipher cryptoService.FieldCipher

	// passthroughOnError keeps the original field value and logs a warning
	// when a single field fails, instead of failing the whole operation.
	// Strict failure is the default: silent plaintext passthrough on the
	// write path stores sensitive data unencrypted.
	passthroughOnError bool
}

// NewOrchestrator creates an Orchestrator with the provided dependencies.
func NewOrchestrator(
	registry *recordsDomain.Registry,
	keyResolver cryptoUsecase.KeyResolver,
	fieldCipher cryptoService.FieldCipher,
	passthroughOnError bool,
) Orchestrator {
	return &orchestrator{
		registry:           registry,
		keyResolver:        keyResolver,
		fieldCipher:        fieldCipher,
		passthroughOnError: passthroughOnError,
	}
}

// EncryptObject encrypts the configured fields of the record under one DEK.
func (o *orchestrator) EncryptObject(
	ctx context.Context,
	model string,
	record map[string]any,
	keyCtx EntityKeyContext,
) (map[string]any, cryptoDomain.KeyMetadata, error) {
	config, err := o.registry.Get(model)
	if err != nil {
		return nil, cryptoDomain.KeyMetadata{}, err
	}

	meta, err := keyCtx.FindKeyMetadata(ctx)
	if err != nil {
		return nil, cryptoDomain.KeyMetadata{}, err
	}
	created := meta == nil

	dek, resolvedMeta, _, err := o.keyResolver.Resolve(ctx, keyCtx.EntityKey(), meta)
	if err != nil {
		return nil, cryptoDomain.KeyMetadata{}, err
	}
	defer cryptoDomain.Zero(dek)

	out := cloneRecord(record)

	var mu sync.Mutex
	g, _ := errgroup.WithContext(ctx)

	for name, fieldConfig := range config {
		if !fieldConfig.Encrypt {
			continue
		}
		value, present := record[name]
		if !present {
			continue
		}

		g.Go(func() error {
			plaintext, ok := value.(string)
			if !ok {
				return o.fieldFailure(model, name, recordsDomain.ErrFieldNotString)
			}

			encrypted, err := o.fieldCipher.EncryptField(name, plaintext, dek)
			if err != nil {
				return o.fieldFailure(model, name, apperrors.Wrap(recordsDomain.ErrFieldEncryption, err.Error()))
			}
			if encrypted == nil {
				// Empty plaintext: nothing to protect, no side fields.
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			out[name] = encrypted.Ciphertext
			out[recordsDomain.NonceField(name)] = encrypted.Nonce
			out[recordsDomain.TagField(name)] = encrypted.Tag
			if fieldConfig.Hash {
				out[recordsDomain.HashField(name)] = cryptoService.DeterministicHash(plaintext)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, cryptoDomain.KeyMetadata{}, err
	}

	// Persist metadata only on first use; once written it is immutable for
	// the entity's lifetime.
	if created {
		if err := keyCtx.SaveKeyMetadata(ctx, resolvedMeta); err != nil {
			o.keyResolver.Invalidate(keyCtx.EntityKey())
			return nil, cryptoDomain.KeyMetadata{}, err
		}
	}

	return out, resolvedMeta, nil
}

// DecryptObject restores the plaintext of configured fields whose full
// ciphertext bundle is present in the record.
func (o *orchestrator) DecryptObject(
	ctx context.Context,
	model string,
	record map[string]any,
	keyCtx EntityKeyContext,
) (map[string]any, []byte, error) {
	config, err := o.registry.Get(model)
	if err != nil {
		return nil, nil, err
	}

	out := cloneRecord(record)

	bundles := o.collectBundles(config, record)
	if len(bundles) == 0 {
		return out, nil, nil
	}

	meta, err := keyCtx.FindKeyMetadata(ctx)
	if err != nil {
		return nil, nil, err
	}
	if meta == nil {
		// Encrypted fields exist but no key metadata survives: the DEK is
		// unrecoverable and minting a new key would not help.
		return nil, nil, apperrors.Wrap(cryptoDomain.ErrDekResolution, "no key metadata for entity")
	}

	dek, _, wrapped, err := o.keyResolver.Resolve(ctx, keyCtx.EntityKey(), meta)
	if err != nil {
		return nil, nil, err
	}
	defer cryptoDomain.Zero(dek)

	var mu sync.Mutex
	g, _ := errgroup.WithContext(ctx)

	for _, bundle := range bundles {
		g.Go(func() error {
			plaintext, err := o.fieldCipher.DecryptField(bundle.name, bundle.field, dek)
			if err != nil {
				return o.fieldFailure(model, bundle.name, apperrors.Wrap(recordsDomain.ErrFieldDecryption, err.Error()))
			}

			mu.Lock()
			defer mu.Unlock()
			out[bundle.name] = plaintext
			delete(out, recordsDomain.NonceField(bundle.name))
			delete(out, recordsDomain.TagField(bundle.name))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return out, wrapped, nil
}

type fieldBundle struct {
	name  string
	field cryptoDomain.EncryptedField
}

// collectBundles gathers the configured fields whose ciphertext, nonce and tag
// are all present as strings. Partial bundles are left untouched.
func (o *orchestrator) collectBundles(
	config recordsDomain.ModelConfig,
	record map[string]any,
) []fieldBundle {
	var bundles []fieldBundle
	for name, fieldConfig := range config {
		if !fieldConfig.Decrypt {
			continue
		}

		ciphertext, ok := record[name].(string)
		if !ok || ciphertext == "" {
			continue
		}
		nonce, ok := record[recordsDomain.NonceField(name)].(string)
		if !ok {
			continue
		}
		tag, ok := record[recordsDomain.TagField(name)].(string)
		if !ok {
			continue
		}

		bundles = append(bundles, fieldBundle{
			name: name,
			field: cryptoDomain.EncryptedField{
				Ciphertext: ciphertext,
				Nonce:      nonce,
				Tag:        tag,
			},
		})
	}
	return bundles
}

// fieldFailure applies the field-failure policy: fatal by default, warn and
// continue when passthrough is enabled.
func (o *orchestrator) fieldFailure(model, field string, err error) error {
	if !o.passthroughOnError {
		return err
	}
	slog.Warn(
		"field operation failed, passing value through unmodified",
		"model", model,
		"field", field,
		"error", err,
	)
	return nil
}

func cloneRecord(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for k, v := range record {
		out[k] = v
	}
	return out
}
