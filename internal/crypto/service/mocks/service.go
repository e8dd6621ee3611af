// Package mocks provides mock implementations of the crypto service
// interfaces for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
)

// MockKeyWrapper is a mock implementation of KeyWrapper for testing.
type MockKeyWrapper struct {
	mock.Mock
}

// Wrap mocks the Wrap method of KeyWrapper.
func (m *MockKeyWrapper) Wrap(
	ctx context.Context,
	dek []byte,
	entity cryptoDomain.EntityKey,
) ([]byte, cryptoDomain.KeyAddress, error) {
	args := m.Called(ctx, dek, entity)
	if args.Get(0) == nil {
		return nil, args.Get(1).(cryptoDomain.KeyAddress), args.Error(2)
	}
	return args.Get(0).([]byte), args.Get(1).(cryptoDomain.KeyAddress), args.Error(2)
}

// Unwrap mocks the Unwrap method of KeyWrapper.
func (m *MockKeyWrapper) Unwrap(
	ctx context.Context,
	wrapped []byte,
	addr cryptoDomain.KeyAddress,
) ([]byte, error) {
	args := m.Called(ctx, wrapped, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockSecretStore is a mock implementation of SecretStore for testing.
type MockSecretStore struct {
	mock.Mock
}

// CreateSecret mocks the CreateSecret method of SecretStore.
func (m *MockSecretStore) CreateSecret(
	ctx context.Context,
	id cryptoDomain.SecretAddress,
	payload []byte,
) (cryptoDomain.SecretAddress, error) {
	args := m.Called(ctx, id, payload)
	return args.Get(0).(cryptoDomain.SecretAddress), args.Error(1)
}

// GetSecret mocks the GetSecret method of SecretStore.
func (m *MockSecretStore) GetSecret(
	ctx context.Context,
	addr cryptoDomain.SecretAddress,
) ([]byte, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
