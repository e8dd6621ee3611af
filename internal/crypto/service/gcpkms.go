package service

import (
	"context"
	"fmt"
	"strings"

	kms "cloud.google.com/go/kms/apiv1"
	"cloud.google.com/go/kms/apiv1/kmspb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	apperrors "github.com/fieldvault/fieldvault/internal/errors"
)

// KMSClient is the subset of the Google Cloud KMS client used for envelope
// encryption. Declared here so tests can substitute a fake.
type KMSClient interface {
	CreateKeyRing(ctx context.Context, req *kmspb.CreateKeyRingRequest, opts ...gax.CallOption) (*kmspb.KeyRing, error)
	CreateCryptoKey(ctx context.Context, req *kmspb.CreateCryptoKeyRequest, opts ...gax.CallOption) (*kmspb.CryptoKey, error)
	Encrypt(ctx context.Context, req *kmspb.EncryptRequest, opts ...gax.CallOption) (*kmspb.EncryptResponse, error)
	Decrypt(ctx context.Context, req *kmspb.DecryptRequest, opts ...gax.CallOption) (*kmspb.DecryptResponse, error)
}

var _ KMSClient = (*kms.KeyManagementClient)(nil)

// GCPKMSWrapper implements KeyWrapper against Google Cloud KMS.
//
// Each entity gets its own key ring and symmetric master key, provisioned on
// first wrap. Provisioning tolerates AlreadyExists so concurrent first wraps
// across processes converge on the same key.
type GCPKMSWrapper struct {
	client   KMSClient
	project  string
	location string
}

// NewGCPKMSWrapper creates a GCPKMSWrapper for the given project and location.
func NewGCPKMSWrapper(client KMSClient, project, location string) *GCPKMSWrapper {
	return &GCPKMSWrapper{
		client:   client,
		project:  project,
		location: location,
	}
}

func (g *GCPKMSWrapper) locationName() string {
	return fmt.Sprintf("projects/%s/locations/%s", g.project, g.location)
}

func (g *GCPKMSWrapper) keyRingID(entity cryptoDomain.EntityKey) string {
	return fmt.Sprintf("fieldvault-%s", entity)
}

func (g *GCPKMSWrapper) keyName(addr cryptoDomain.KeyAddress) string {
	return fmt.Sprintf(
		"projects/%s/locations/%s/keyRings/%s/cryptoKeys/%s",
		g.project, addr.LocationID, addr.KeyRingID, addr.KeyID,
	)
}

// ensureKey provisions the entity's key ring and master key, treating
// AlreadyExists as success.
func (g *GCPKMSWrapper) ensureKey(ctx context.Context, entity cryptoDomain.EntityKey) (cryptoDomain.KeyAddress, error) {
	ringID := g.keyRingID(entity)

	_, err := g.client.CreateKeyRing(ctx, &kmspb.CreateKeyRingRequest{
		Parent:    g.locationName(),
		KeyRingId: ringID,
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return cryptoDomain.KeyAddress{}, apperrors.Wrap(cryptoDomain.ErrKeyCreation, err.Error())
	}

	_, err = g.client.CreateCryptoKey(ctx, &kmspb.CreateCryptoKeyRequest{
		Parent:      fmt.Sprintf("%s/keyRings/%s", g.locationName(), ringID),
		CryptoKeyId: "wrapping-key",
		CryptoKey: &kmspb.CryptoKey{
			Purpose: kmspb.CryptoKey_ENCRYPT_DECRYPT,
			VersionTemplate: &kmspb.CryptoKeyVersionTemplate{
				Algorithm: kmspb.CryptoKeyVersion_GOOGLE_SYMMETRIC_ENCRYPTION,
			},
		},
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return cryptoDomain.KeyAddress{}, apperrors.Wrap(cryptoDomain.ErrKeyCreation, err.Error())
	}

	return cryptoDomain.KeyAddress{
		LocationID: g.location,
		KeyRingID:  ringID,
		KeyID:      "wrapping-key",
	}, nil
}

// Wrap encrypts the DEK under the entity's master key, provisioning the key
// ring and key on first use.
func (g *GCPKMSWrapper) Wrap(
	ctx context.Context,
	dek []byte,
	entity cryptoDomain.EntityKey,
) ([]byte, cryptoDomain.KeyAddress, error) {
	if len(dek) != cryptoDomain.DekSize {
		return nil, cryptoDomain.KeyAddress{}, cryptoDomain.ErrInvalidKeySize
	}

	addr, err := g.ensureKey(ctx, entity)
	if err != nil {
		return nil, cryptoDomain.KeyAddress{}, err
	}

	resp, err := g.client.Encrypt(ctx, &kmspb.EncryptRequest{
		Name:      g.keyName(addr),
		Plaintext: dek,
	})
	if err != nil {
		return nil, cryptoDomain.KeyAddress{}, apperrors.Wrap(cryptoDomain.ErrDekWrap, err.Error())
	}

	// The response names the exact key version that performed the encryption,
	// e.g. .../cryptoKeys/wrapping-key/cryptoKeyVersions/1. Record it so Unwrap
	// keeps working after a rotation changes the primary version.
	addr.KeyVersion = keyVersionFromName(resp.GetName())

	return resp.GetCiphertext(), addr, nil
}

// Unwrap decrypts a wrapped DEK using the master key named by the address.
func (g *GCPKMSWrapper) Unwrap(
	ctx context.Context,
	wrapped []byte,
	addr cryptoDomain.KeyAddress,
) ([]byte, error) {
	if addr.IsZero() {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "key address is required")
	}

	resp, err := g.client.Decrypt(ctx, &kmspb.DecryptRequest{
		Name:       g.keyName(addr),
		Ciphertext: wrapped,
	})
	if err != nil {
		return nil, apperrors.Wrap(cryptoDomain.ErrDekUnwrap, err.Error())
	}

	dek := resp.GetPlaintext()
	if len(dek) != cryptoDomain.DekSize {
		return nil, cryptoDomain.ErrDekIntegrity
	}

	return dek, nil
}

// keyVersionFromName extracts the trailing version component from a
// cryptoKeyVersions resource name. Returns "" when the name has no version.
func keyVersionFromName(name string) string {
	const marker = "/cryptoKeyVersions/"
	idx := strings.LastIndex(name, marker)
	if idx < 0 {
		return ""
	}
	return name[idx+len(marker):]
}
