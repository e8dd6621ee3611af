package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
)

// generateLocalSecretsURI generates a base64key:// URI for testing.
func generateLocalSecretsURI(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return fmt.Sprintf("base64key://%s", base64.URLEncoding.EncodeToString(key))
}

func TestOpenKeeperWrapper(t *testing.T) {
	ctx := context.Background()

	t.Run("open with valid local key URI", func(t *testing.T) {
		wrapper, err := OpenKeeperWrapper(ctx, generateLocalSecretsURI(t))
		require.NoError(t, err)
		assert.NotNil(t, wrapper)
	})

	t.Run("open with invalid URI fails", func(t *testing.T) {
		_, err := OpenKeeperWrapper(ctx, "not-a-keeper-uri")
		assert.Error(t, err)
	})
}

func TestKeeperWrapper_WrapUnwrap(t *testing.T) {
	ctx := context.Background()
	keyURI := generateLocalSecretsURI(t)
	wrapper, err := OpenKeeperWrapper(ctx, keyURI)
	require.NoError(t, err)

	entity := cryptoDomain.EntityKey("alice")

	t.Run("wrap and unwrap round-trip", func(t *testing.T) {
		dek := newTestDek(t)

		wrapped, addr, err := wrapper.Wrap(ctx, dek, entity)
		require.NoError(t, err)
		assert.NotEqual(t, dek, wrapped)
		assert.Equal(t, "keeper", addr.LocationID)
		assert.Equal(t, keyURI, addr.KeyID)

		unwrapped, err := wrapper.Unwrap(ctx, wrapped, addr)
		require.NoError(t, err)
		assert.Equal(t, dek, unwrapped)
	})

	t.Run("wrap rejects wrong DEK size", func(t *testing.T) {
		_, _, err := wrapper.Wrap(ctx, []byte("short"), entity)
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeySize)
	})

	t.Run("unwrap with corrupted blob fails", func(t *testing.T) {
		dek := newTestDek(t)

		wrapped, addr, err := wrapper.Wrap(ctx, dek, entity)
		require.NoError(t, err)

		wrapped[0] ^= 1

		_, err = wrapper.Unwrap(ctx, wrapped, addr)
		assert.ErrorIs(t, err, cryptoDomain.ErrDekUnwrap)
	})

	t.Run("unwrap under a different keeper fails", func(t *testing.T) {
		dek := newTestDek(t)

		wrapped, addr, err := wrapper.Wrap(ctx, dek, entity)
		require.NoError(t, err)

		other, err := OpenKeeperWrapper(ctx, generateLocalSecretsURI(t))
		require.NoError(t, err)

		_, err = other.Unwrap(ctx, wrapped, addr)
		assert.ErrorIs(t, err, cryptoDomain.ErrDekUnwrap)
	})
}
