// Package mocks provides testify mocks for the crypto usecase interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
)

// MockKeyResolver is a mock implementation of KeyResolver.
type MockKeyResolver struct {
	mock.Mock
}

func (m *MockKeyResolver) Resolve(
	ctx context.Context,
	entity cryptoDomain.EntityKey,
	meta *cryptoDomain.KeyMetadata,
) ([]byte, cryptoDomain.KeyMetadata, []byte, error) {
	args := m.Called(ctx, entity, meta)
	var dek, wrapped []byte
	if args.Get(0) != nil {
		dek = args.Get(0).([]byte)
	}
	if args.Get(2) != nil {
		wrapped = args.Get(2).([]byte)
	}
	return dek, args.Get(1).(cryptoDomain.KeyMetadata), wrapped, args.Error(3)
}

func (m *MockKeyResolver) Invalidate(entity cryptoDomain.EntityKey) {
	m.Called(entity)
}

func (m *MockKeyResolver) HydrateCache(entity cryptoDomain.EntityKey, meta cryptoDomain.KeyMetadata, wrapped []byte) {
	m.Called(entity, meta, wrapped)
}
