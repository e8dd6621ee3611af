// Package mocks provides testify mocks for the records usecase interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	"github.com/fieldvault/fieldvault/internal/records/usecase"
)

// MockOrchestrator is a mock implementation of Orchestrator.
type MockOrchestrator struct {
	mock.Mock
}

func (m *MockOrchestrator) EncryptObject(
	ctx context.Context,
	model string,
	record map[string]any,
	keyCtx usecase.EntityKeyContext,
) (map[string]any, cryptoDomain.KeyMetadata, error) {
	args := m.Called(ctx, model, record, keyCtx)
	var out map[string]any
	if args.Get(0) != nil {
		out = args.Get(0).(map[string]any)
	}
	return out, args.Get(1).(cryptoDomain.KeyMetadata), args.Error(2)
}

func (m *MockOrchestrator) DecryptObject(
	ctx context.Context,
	model string,
	record map[string]any,
	keyCtx usecase.EntityKeyContext,
) (map[string]any, []byte, error) {
	args := m.Called(ctx, model, record, keyCtx)
	var out map[string]any
	if args.Get(0) != nil {
		out = args.Get(0).(map[string]any)
	}
	var wrapped []byte
	if args.Get(1) != nil {
		wrapped = args.Get(1).([]byte)
	}
	return out, wrapped, args.Error(2)
}
