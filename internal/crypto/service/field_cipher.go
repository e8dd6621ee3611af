package service

import (
	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	apperrors "github.com/fieldvault/fieldvault/internal/errors"
)

// FieldCipherService implements FieldCipher on top of an AEADManager.
//
// The field name is bound to the ciphertext as additional authenticated data,
// so a bundle lifted from one field cannot be replayed into another even under
// the same DEK.
type FieldCipherService struct {
	aeadManager AEADManager
	algorithm   cryptoDomain.Algorithm
}

// NewFieldCipher creates a FieldCipherService using the given algorithm for
// new encryptions.
func NewFieldCipher(aeadManager AEADManager, alg cryptoDomain.Algorithm) *FieldCipherService {
	return &FieldCipherService{
		aeadManager: aeadManager,
		algorithm:   alg,
	}
}

// EncryptField encrypts one field value under the DEK with a fresh random
// nonce. Empty plaintext short-circuits to (nil, nil): no ciphertext is
// emitted and no metadata fields are populated.
func (f *FieldCipherService) EncryptField(
	name, plaintext string,
	dek []byte,
) (*cryptoDomain.EncryptedField, error) {
	if name == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "field name is required")
	}
	if plaintext == "" {
		return nil, nil
	}

	aead, err := f.aeadManager.CreateCipher(dek, f.algorithm)
	if err != nil {
		return nil, err
	}

	ciphertext, nonce, tag, err := aead.Encrypt([]byte(plaintext), []byte(name))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encrypt field")
	}

	field := cryptoDomain.NewEncryptedField(ciphertext, nonce, tag)
	return &field, nil
}

// DecryptField authenticates and decrypts one field bundle. Any mismatch in
// DEK, nonce, tag or ciphertext fails closed with ErrDecryptionFailed:
// returning unverified bytes would break confidentiality guarantees
// downstream.
func (f *FieldCipherService) DecryptField(
	name string,
	field cryptoDomain.EncryptedField,
	dek []byte,
) (string, error) {
	if name == "" {
		return "", apperrors.Wrap(apperrors.ErrInvalidInput, "field name is required")
	}

	ciphertext, nonce, tag, err := field.Decode()
	if err != nil {
		return "", err
	}

	aead, err := f.aeadManager.CreateCipher(dek, f.algorithm)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Decrypt(ciphertext, nonce, tag, []byte(name))
	if err != nil {
		return "", cryptoDomain.ErrDecryptionFailed
	}

	return string(plaintext), nil
}
