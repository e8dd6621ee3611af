package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
)

// aesGCMNonceSize is the nonce length used for field encryption. Nonces are
// drawn fresh from crypto/rand on every call; with a 128-bit random nonce,
// reuse under the same DEK is not a practical concern.
const aesGCMNonceSize = 16

// AESGCMCipher implements the AEAD interface using AES-256-GCM.
//
// The cipher is constructed with a 16-byte nonce size and returns the
// authentication tag separately from the ciphertext, matching the on-record
// layout where ciphertext, nonce and tag live in sibling fields.
//
// Thread safety: the cipher instance is stateless and safe for concurrent use.
// Each encryption operation generates a unique nonce independently.
type AESGCMCipher struct {
	aead cipher.AEAD
}

// NewAESGCM creates a new AES-256-GCM cipher instance.
// The key must be exactly 32 bytes (256 bits).
func NewAESGCM(key []byte) (*AESGCMCipher, error) {
	if len(key) != cryptoDomain.DekSize {
		return nil, errors.New("key must be exactly 32 bytes")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, aesGCMNonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESGCMCipher{aead: aead}, nil
}

// Encrypt encrypts plaintext using AES-256-GCM with optional additional
// authenticated data. A unique 16-byte nonce is generated per call from
// crypto/rand. The 16-byte authentication tag is split off the sealed output
// and returned separately.
func (a *AESGCMCipher) Encrypt(plaintext, aad []byte) (ciphertext, nonce, tag []byte, err error) {
	nonce = make([]byte, a.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := a.aead.Seal(nil, nonce, plaintext, aad)
	split := len(sealed) - cryptoDomain.TagSize
	return sealed[:split], nonce, sealed[split:], nil
}

// Decrypt decrypts ciphertext using the provided nonce, tag and AAD. The same
// AAD used during encryption must be provided; any mismatch in key, nonce,
// ciphertext, tag or AAD fails authentication and no plaintext is returned.
func (a *AESGCMCipher) Decrypt(ciphertext, nonce, tag, aad []byte) ([]byte, error) {
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := a.aead.Open(nil, nonce, sealed, aad)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}
