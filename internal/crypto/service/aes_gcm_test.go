package service

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
)

func TestNewAESGCM(t *testing.T) {
	t.Run("valid 256-bit key", func(t *testing.T) {
		key := make([]byte, 32)
		_, err := rand.Read(key)
		require.NoError(t, err)

		cipher, err := NewAESGCM(key)
		assert.NoError(t, err)
		assert.NotNil(t, cipher)
	})

	t.Run("invalid key size", func(t *testing.T) {
		key := make([]byte, 16)
		_, err := rand.Read(key)
		require.NoError(t, err)

		cipher, err := NewAESGCM(key)
		assert.Error(t, err)
		assert.Nil(t, cipher)
	})

	t.Run("invalid key size - too large", func(t *testing.T) {
		key := make([]byte, 64)
		_, err := rand.Read(key)
		require.NoError(t, err)

		cipher, err := NewAESGCM(key)
		assert.Error(t, err)
		assert.Nil(t, cipher)
	})
}

func TestAESGCMCipher_Encrypt(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	cipher, err := NewAESGCM(key)
	require.NoError(t, err)

	t.Run("encrypt with plaintext and AAD", func(t *testing.T) {
		plaintext := []byte("Hello, World!")
		aad := []byte("additional authenticated data")

		ciphertext, nonce, tag, err := cipher.Encrypt(plaintext, aad)
		assert.NoError(t, err)
		assert.NotNil(t, ciphertext)
		assert.NotEqual(t, plaintext, ciphertext)
		assert.Equal(t, aesGCMNonceSize, len(nonce))
		assert.Equal(t, cryptoDomain.TagSize, len(tag))
	})

	t.Run("encrypt without AAD", func(t *testing.T) {
		plaintext := []byte("Hello, World!")

		ciphertext, nonce, tag, err := cipher.Encrypt(plaintext, nil)
		assert.NoError(t, err)
		assert.NotNil(t, ciphertext)
		assert.NotNil(t, nonce)
		assert.NotNil(t, tag)
	})

	t.Run("ciphertext length equals plaintext length", func(t *testing.T) {
		plaintext := []byte("exactly twenty bytes")

		ciphertext, _, _, err := cipher.Encrypt(plaintext, nil)
		require.NoError(t, err)
		assert.Equal(t, len(plaintext), len(ciphertext))
	})

	t.Run("nonce is unique for each encryption", func(t *testing.T) {
		plaintext := []byte("test")
		aad := []byte("aad")

		seen := make(map[string]bool)
		for i := 0; i < 10000; i++ {
			_, nonce, _, err := cipher.Encrypt(plaintext, aad)
			require.NoError(t, err)
			assert.False(t, seen[string(nonce)], "nonce repeated")
			seen[string(nonce)] = true
		}
	})
}

func TestAESGCMCipher_Decrypt(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	cipher, err := NewAESGCM(key)
	require.NoError(t, err)

	t.Run("decrypt successfully", func(t *testing.T) {
		plaintext := []byte("Hello, World!")
		aad := []byte("additional authenticated data")

		ciphertext, nonce, tag, err := cipher.Encrypt(plaintext, aad)
		require.NoError(t, err)

		decrypted, err := cipher.Decrypt(ciphertext, nonce, tag, aad)
		assert.NoError(t, err)
		assert.True(t, bytes.Equal(plaintext, decrypted))
	})

	t.Run("decrypt with wrong AAD fails", func(t *testing.T) {
		plaintext := []byte("Hello, World!")
		aad := []byte("correct aad")

		ciphertext, nonce, tag, err := cipher.Encrypt(plaintext, aad)
		require.NoError(t, err)

		decrypted, err := cipher.Decrypt(ciphertext, nonce, tag, []byte("wrong aad"))
		assert.Error(t, err)
		assert.Nil(t, decrypted)
	})

	t.Run("decrypt with wrong nonce fails", func(t *testing.T) {
		plaintext := []byte("Hello, World!")
		aad := []byte("aad")

		ciphertext, _, tag, err := cipher.Encrypt(plaintext, aad)
		require.NoError(t, err)

		wrongNonce := make([]byte, aesGCMNonceSize)
		_, err = rand.Read(wrongNonce)
		require.NoError(t, err)

		decrypted, err := cipher.Decrypt(ciphertext, wrongNonce, tag, aad)
		assert.Error(t, err)
		assert.Nil(t, decrypted)
	})

	t.Run("decrypt with tampered ciphertext fails", func(t *testing.T) {
		plaintext := []byte("Hello, World!")
		aad := []byte("aad")

		ciphertext, nonce, tag, err := cipher.Encrypt(plaintext, aad)
		require.NoError(t, err)

		ciphertext[0] ^= 1

		decrypted, err := cipher.Decrypt(ciphertext, nonce, tag, aad)
		assert.Error(t, err)
		assert.Nil(t, decrypted)
	})

	t.Run("decrypt with tampered tag fails", func(t *testing.T) {
		plaintext := []byte("Hello, World!")
		aad := []byte("aad")

		ciphertext, nonce, tag, err := cipher.Encrypt(plaintext, aad)
		require.NoError(t, err)

		tag[0] ^= 1

		decrypted, err := cipher.Decrypt(ciphertext, nonce, tag, aad)
		assert.Error(t, err)
		assert.Nil(t, decrypted)
	})

	t.Run("decrypt with different key fails", func(t *testing.T) {
		plaintext := []byte("Hello, World!")
		aad := []byte("aad")

		ciphertext, nonce, tag, err := cipher.Encrypt(plaintext, aad)
		require.NoError(t, err)

		otherKey := make([]byte, 32)
		_, err = rand.Read(otherKey)
		require.NoError(t, err)

		otherCipher, err := NewAESGCM(otherKey)
		require.NoError(t, err)

		decrypted, err := otherCipher.Decrypt(ciphertext, nonce, tag, aad)
		assert.Error(t, err)
		assert.Nil(t, decrypted)
	})
}

func TestAESGCMCipher_EncryptDecrypt_Integration(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	cipher, err := NewAESGCM(key)
	require.NoError(t, err)

	testCases := []struct {
		name      string
		plaintext []byte
		aad       []byte
	}{
		{
			name:      "short message",
			plaintext: []byte("test"),
			aad:       []byte("email"),
		},
		{
			name:      "long message",
			plaintext: bytes.Repeat([]byte("a"), 10000),
			aad:       []byte("large field"),
		},
		{
			name:      "message with unicode",
			plaintext: []byte("Hello 世界! 🔐"),
			aad:       []byte("unicode test"),
		},
		{
			name:      "message with special characters",
			plaintext: []byte("!@#$%^&*()_+-=[]{}|;:',.<>?/~`"),
			aad:       []byte("special"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ciphertext, nonce, tag, err := cipher.Encrypt(tc.plaintext, tc.aad)
			require.NoError(t, err)

			decrypted, err := cipher.Decrypt(ciphertext, nonce, tag, tc.aad)
			require.NoError(t, err)

			assert.True(t, bytes.Equal(tc.plaintext, decrypted))
		})
	}
}
