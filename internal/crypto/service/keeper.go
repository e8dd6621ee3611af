package service

import (
	"context"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	apperrors "github.com/fieldvault/fieldvault/internal/errors"

	// Register all keeper provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// Keeper is the subset of *secrets.Keeper used for DEK wrapping. Declared here
// so tests can substitute a fake.
type Keeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

var _ Keeper = (*secrets.Keeper)(nil)

// KeeperWrapper implements KeyWrapper on top of a gocloud.dev secrets keeper.
//
// The keeper wraps every entity's DEK under one pre-provisioned master key
// identified by a provider URI (gcpkms://, awskms://, azurekeyvault://,
// hashivault://, base64key://). There is no per-entity provisioning and no key
// versioning, so the key address degenerates to the key URI itself.
type KeeperWrapper struct {
	keeper Keeper
	keyURI string
}

// NewKeeperWrapper creates a KeeperWrapper from an already-opened keeper.
func NewKeeperWrapper(keeper Keeper, keyURI string) *KeeperWrapper {
	return &KeeperWrapper{
		keeper: keeper,
		keyURI: keyURI,
	}
}

// OpenKeeperWrapper opens the keeper for the given key URI and returns a
// KeyWrapper backed by it.
func OpenKeeperWrapper(ctx context.Context, keyURI string) (*KeeperWrapper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open keeper")
	}
	return NewKeeperWrapper(keeper, keyURI), nil
}

// Wrap encrypts the DEK under the keeper's master key. The entity does not
// influence key selection with this provider.
func (k *KeeperWrapper) Wrap(
	ctx context.Context,
	dek []byte,
	entity cryptoDomain.EntityKey,
) ([]byte, cryptoDomain.KeyAddress, error) {
	if len(dek) != cryptoDomain.DekSize {
		return nil, cryptoDomain.KeyAddress{}, cryptoDomain.ErrInvalidKeySize
	}

	wrapped, err := k.keeper.Encrypt(ctx, dek)
	if err != nil {
		return nil, cryptoDomain.KeyAddress{}, apperrors.Wrap(cryptoDomain.ErrDekWrap, err.Error())
	}

	addr := cryptoDomain.KeyAddress{
		LocationID: "keeper",
		KeyRingID:  "keeper",
		KeyID:      k.keyURI,
	}
	return wrapped, addr, nil
}

// Unwrap decrypts a wrapped DEK with the keeper's master key.
func (k *KeeperWrapper) Unwrap(
	ctx context.Context,
	wrapped []byte,
	addr cryptoDomain.KeyAddress,
) ([]byte, error) {
	dek, err := k.keeper.Decrypt(ctx, wrapped)
	if err != nil {
		return nil, apperrors.Wrap(cryptoDomain.ErrDekUnwrap, err.Error())
	}
	if len(dek) != cryptoDomain.DekSize {
		return nil, cryptoDomain.ErrDekIntegrity
	}
	return dek, nil
}
