package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	cryptoMocks "github.com/fieldvault/fieldvault/internal/crypto/usecase/mocks"
	keymetaDomain "github.com/fieldvault/fieldvault/internal/keymeta/domain"
	keymetaMocks "github.com/fieldvault/fieldvault/internal/keymeta/usecase/mocks"
)

// passthroughTxManager runs the function without a real transaction.
type passthroughTxManager struct{}

func (passthroughTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func TestRunRekeyKey(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("replaces an existing key", func(t *testing.T) {
		resolver := &cryptoMocks.MockKeyResolver{}
		repository := &keymetaMocks.MockEntityKeyRepository{}
		meta := provisionTestMetadata()

		resolver.On("Invalidate", cryptoDomain.EntityKey("user-42")).Return()
		repository.On("Delete", mock.Anything, cryptoDomain.EntityKey("user-42")).Return(nil)
		resolver.On("Resolve", mock.Anything, cryptoDomain.EntityKey("user-42"), (*cryptoDomain.KeyMetadata)(nil)).
			Return(make([]byte, cryptoDomain.DekSize), meta, []byte("wrapped"), nil)
		repository.On("Create", mock.Anything, mock.MatchedBy(func(record *keymetaDomain.EntityKeyRecord) bool {
			return record.EntityKey == "user-42" && record.Metadata == meta
		})).Return(nil)

		var out bytes.Buffer
		err := RunRekeyKey(ctx, passthroughTxManager{}, resolver, repository, logger, &out, "user-42")
		require.NoError(t, err)
		require.Contains(t, out.String(), `Replaced key for entity "user-42"`)
		require.Contains(t, out.String(), "must be re-encrypted")
		resolver.AssertExpectations(t)
		repository.AssertExpectations(t)
	})

	t.Run("entity without a key cannot be re-keyed", func(t *testing.T) {
		resolver := &cryptoMocks.MockKeyResolver{}
		repository := &keymetaMocks.MockEntityKeyRepository{}

		resolver.On("Invalidate", cryptoDomain.EntityKey("user-42")).Return()
		repository.On("Delete", mock.Anything, cryptoDomain.EntityKey("user-42")).
			Return(keymetaDomain.ErrEntityKeyNotFound)

		var out bytes.Buffer
		err := RunRekeyKey(ctx, passthroughTxManager{}, resolver, repository, logger, &out, "user-42")
		require.Error(t, err)
		require.Contains(t, err.Error(), "has no key to replace")
		resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("provisioning failure rolls back", func(t *testing.T) {
		resolver := &cryptoMocks.MockKeyResolver{}
		repository := &keymetaMocks.MockEntityKeyRepository{}

		resolver.On("Invalidate", cryptoDomain.EntityKey("user-42")).Return()
		repository.On("Delete", mock.Anything, cryptoDomain.EntityKey("user-42")).Return(nil)
		resolver.On("Resolve", mock.Anything, cryptoDomain.EntityKey("user-42"), (*cryptoDomain.KeyMetadata)(nil)).
			Return(nil, cryptoDomain.KeyMetadata{}, nil, errors.New("kms unavailable"))

		var out bytes.Buffer
		err := RunRekeyKey(ctx, passthroughTxManager{}, resolver, repository, logger, &out, "user-42")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to provision replacement key")
		repository.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("invalid entity key is rejected", func(t *testing.T) {
		resolver := &cryptoMocks.MockKeyResolver{}
		repository := &keymetaMocks.MockEntityKeyRepository{}

		var out bytes.Buffer
		err := RunRekeyKey(ctx, passthroughTxManager{}, resolver, repository, logger, &out, "")
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid entity key")
	})
}
