package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/hashicorp/vault/api"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	apperrors "github.com/fieldvault/fieldvault/internal/errors"
)

// VaultLogical is the subset of the Vault logical API used by the secret
// store. Declared here so tests can substitute a fake.
type VaultLogical interface {
	ReadWithContext(ctx context.Context, path string) (*api.Secret, error)
	WriteWithContext(ctx context.Context, path string, data map[string]interface{}) (*api.Secret, error)
}

var _ VaultLogical = (*api.Logical)(nil)

// VaultSecretStore implements SecretStore against a HashiCorp Vault KV v2
// secrets engine.
//
// Wrapped DEKs are written to <mount>/data/fieldvault/<id> as base64 payloads.
// KV v2 versions writes natively, so rewriting an existing id creates a new
// version and reads always return the latest.
type VaultSecretStore struct {
	logical   VaultLogical
	mountPath string
}

// NewVaultSecretStore creates a VaultSecretStore on the given KV v2 mount.
func NewVaultSecretStore(logical VaultLogical, mountPath string) *VaultSecretStore {
	return &VaultSecretStore{
		logical:   logical,
		mountPath: mountPath,
	}
}

func (v *VaultSecretStore) dataPath(id cryptoDomain.SecretAddress) string {
	return fmt.Sprintf("%s/data/fieldvault/%s", v.mountPath, id)
}

// CreateSecret writes the payload under the given id. Vault versions the write
// when the id already exists.
func (v *VaultSecretStore) CreateSecret(
	ctx context.Context,
	id cryptoDomain.SecretAddress,
	payload []byte,
) (cryptoDomain.SecretAddress, error) {
	data := map[string]interface{}{
		"data": map[string]interface{}{
			"value": base64.StdEncoding.EncodeToString(payload),
		},
	}

	if _, err := v.logical.WriteWithContext(ctx, v.dataPath(id), data); err != nil {
		return "", apperrors.Wrap(cryptoDomain.ErrSecretRetrieval, err.Error())
	}

	return id, nil
}

// GetSecret reads the latest version of the secret for the id.
func (v *VaultSecretStore) GetSecret(
	ctx context.Context,
	addr cryptoDomain.SecretAddress,
) ([]byte, error) {
	secret, err := v.logical.ReadWithContext(ctx, v.dataPath(addr))
	if err != nil {
		return nil, apperrors.Wrap(cryptoDomain.ErrSecretRetrieval, err.Error())
	}
	if secret == nil || secret.Data == nil {
		return nil, cryptoDomain.ErrSecretNotFound
	}

	// KV v2 wraps the stored fields in a "data" map.
	inner, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, cryptoDomain.ErrSecretNotFound
	}

	encoded, ok := inner["value"].(string)
	if !ok {
		return nil, apperrors.Wrap(cryptoDomain.ErrSecretRetrieval, "secret payload has unexpected shape")
	}

	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, apperrors.Wrap(cryptoDomain.ErrSecretRetrieval, "secret payload is not valid base64")
	}

	return payload, nil
}
