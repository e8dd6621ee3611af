// Package mocks provides testify mocks for the keymeta usecase interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	"github.com/fieldvault/fieldvault/internal/keymeta/domain"
)

// MockEntityKeyRepository is a mock implementation of EntityKeyRepository.
type MockEntityKeyRepository struct {
	mock.Mock
}

func (m *MockEntityKeyRepository) Create(ctx context.Context, record *domain.EntityKeyRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockEntityKeyRepository) GetByEntityKey(ctx context.Context, entity cryptoDomain.EntityKey) (*domain.EntityKeyRecord, error) {
	args := m.Called(ctx, entity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EntityKeyRecord), args.Error(1)
}

func (m *MockEntityKeyRepository) Delete(ctx context.Context, entity cryptoDomain.EntityKey) error {
	args := m.Called(ctx, entity)
	return args.Error(0)
}
