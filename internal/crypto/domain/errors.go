package domain

import (
	"github.com/fieldvault/fieldvault/internal/errors"
)

// Cryptographic operation error definitions.
//
// Each error names the exact envelope-encryption stage that failed so operators
// can tell a KMS outage from a corrupted secret or a tampered field. All errors
// wrap standard sentinels from internal/errors and are mapped to HTTP status
// codes by the error handling layer.
var (
	// ErrUnsupportedAlgorithm indicates the requested encryption algorithm is not supported.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates key material is not exactly DekSize bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDecryptionFailed indicates field decryption failed authentication.
	//
	// Causes include a wrong DEK, a tampered ciphertext, a wrong nonce or a
	// forged tag. The specific cause is deliberately not disclosed.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrDekIntegrity indicates an unwrap returned key material of the wrong
	// length. Defends against silent provider misconfiguration.
	ErrDekIntegrity = errors.Wrap(errors.ErrUnavailable, "unwrapped DEK failed integrity check")

	// ErrDekWrap indicates the KMS failed to wrap a DEK.
	ErrDekWrap = errors.Wrap(errors.ErrUnavailable, "DEK wrap failed")

	// ErrDekUnwrap indicates the KMS failed to unwrap a DEK.
	ErrDekUnwrap = errors.Wrap(errors.ErrUnavailable, "DEK unwrap failed")

	// ErrDekResolution indicates the resolution protocol could not produce a
	// usable DEK for the entity. Fatal for the whole object operation.
	ErrDekResolution = errors.Wrap(errors.ErrUnavailable, "DEK resolution failed")

	// ErrKeyCreation indicates master key or key ring provisioning failed.
	ErrKeyCreation = errors.Wrap(errors.ErrUnavailable, "master key creation failed")

	// ErrSecretNotFound indicates the secret store has no accessible version
	// for the requested secret address.
	ErrSecretNotFound = errors.Wrap(errors.ErrNotFound, "secret not found")

	// ErrSecretRetrieval indicates the secret store failed to serve a read.
	ErrSecretRetrieval = errors.Wrap(errors.ErrUnavailable, "secret retrieval failed")

	// ErrMetadataSchema indicates persisted KeyMetadata has an unknown schema version.
	ErrMetadataSchema = errors.Wrap(errors.ErrInvalidInput, "unknown key metadata schema version")
)
