package service

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
)

// XChaCha20Poly1305Cipher implements the AEAD interface using XChaCha20-Poly1305.
//
// XChaCha20-Poly1305 combines the ChaCha20 stream cipher with the Poly1305 MAC
// and extends the nonce to 24 bytes, making random nonce generation safe at
// high volume. It's particularly efficient on platforms without hardware AES
// acceleration.
type XChaCha20Poly1305Cipher struct {
	aead cipher.AEAD
}

// NewXChaCha20Poly1305 creates a new XChaCha20-Poly1305 cipher instance.
// The key must be exactly 32 bytes (256 bits).
func NewXChaCha20Poly1305(key []byte) (*XChaCha20Poly1305Cipher, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create XChaCha20-Poly1305 cipher: %w", err)
	}

	return &XChaCha20Poly1305Cipher{aead: aead}, nil
}

// Encrypt encrypts plaintext using XChaCha20-Poly1305 with optional additional
// authenticated data. A unique 24-byte nonce is generated per call from
// crypto/rand; the Poly1305 tag is returned separately from the ciphertext.
func (c *XChaCha20Poly1305Cipher) Encrypt(plaintext, aad []byte) (ciphertext, nonce, tag []byte, err error) {
	nonce = make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, plaintext, aad)
	split := len(sealed) - cryptoDomain.TagSize
	return sealed[:split], nonce, sealed[split:], nil
}

// Decrypt decrypts ciphertext using the provided nonce, tag and AAD. The same
// AAD used during encryption must be provided; authentication failure returns
// an error and no plaintext.
func (c *XChaCha20Poly1305Cipher) Decrypt(ciphertext, nonce, tag, aad []byte) ([]byte, error) {
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := c.aead.Open(nil, nonce, sealed, aad)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}
