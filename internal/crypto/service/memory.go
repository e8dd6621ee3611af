package service

import (
	"context"
	"fmt"
	"sync"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
)

// MemoryKeyWrapper is an in-process KeyWrapper for development and tests.
//
// Each entity gets its own randomly generated master key on first wrap,
// mirroring the per-entity key ring provisioning of the real KMS backends,
// and DEKs are wrapped with AES-256-GCM under that master key.
type MemoryKeyWrapper struct {
	mu         sync.Mutex
	masterKeys map[string][]byte
	aead       AEADManager
}

// NewMemoryKeyWrapper creates an empty MemoryKeyWrapper.
func NewMemoryKeyWrapper() *MemoryKeyWrapper {
	return &MemoryKeyWrapper{
		masterKeys: make(map[string][]byte),
		aead:       NewAEADManager(),
	}
}

// Wrap encrypts the DEK under the entity's master key, provisioning the
// master key on first use.
func (m *MemoryKeyWrapper) Wrap(
	ctx context.Context,
	dek []byte,
	entity cryptoDomain.EntityKey,
) ([]byte, cryptoDomain.KeyAddress, error) {
	if len(dek) != cryptoDomain.DekSize {
		return nil, cryptoDomain.KeyAddress{}, cryptoDomain.ErrInvalidKeySize
	}

	addr := cryptoDomain.KeyAddress{
		LocationID: "memory",
		KeyRingID:  fmt.Sprintf("ring-%s", entity),
		KeyID:      fmt.Sprintf("key-%s", entity),
		KeyVersion: "1",
	}

	m.mu.Lock()
	masterKey, ok := m.masterKeys[addr.KeyID]
	if !ok {
		var err error
		masterKey, err = cryptoDomain.NewDek()
		if err != nil {
			m.mu.Unlock()
			return nil, cryptoDomain.KeyAddress{}, cryptoDomain.ErrKeyCreation
		}
		m.masterKeys[addr.KeyID] = masterKey
	}
	m.mu.Unlock()

	aead, err := m.aead.CreateCipher(masterKey, cryptoDomain.AESGCM)
	if err != nil {
		return nil, cryptoDomain.KeyAddress{}, err
	}

	ciphertext, nonce, tag, err := aead.Encrypt(dek, []byte(addr.KeyID))
	if err != nil {
		return nil, cryptoDomain.KeyAddress{}, cryptoDomain.ErrDekWrap
	}

	// Pack nonce and tag with the ciphertext so the wrapped DEK stays one blob.
	wrapped := make([]byte, 0, len(nonce)+len(ciphertext)+len(tag))
	wrapped = append(wrapped, nonce...)
	wrapped = append(wrapped, ciphertext...)
	wrapped = append(wrapped, tag...)
	return wrapped, addr, nil
}

// Unwrap decrypts a wrapped DEK using the master key named by the address.
func (m *MemoryKeyWrapper) Unwrap(
	ctx context.Context,
	wrapped []byte,
	addr cryptoDomain.KeyAddress,
) ([]byte, error) {
	m.mu.Lock()
	masterKey, ok := m.masterKeys[addr.KeyID]
	m.mu.Unlock()
	if !ok {
		return nil, cryptoDomain.ErrDekUnwrap
	}

	if len(wrapped) < aesGCMNonceSize+cryptoDomain.TagSize {
		return nil, cryptoDomain.ErrDekUnwrap
	}

	aead, err := m.aead.CreateCipher(masterKey, cryptoDomain.AESGCM)
	if err != nil {
		return nil, err
	}

	nonce := wrapped[:aesGCMNonceSize]
	ciphertext := wrapped[aesGCMNonceSize : len(wrapped)-cryptoDomain.TagSize]
	tag := wrapped[len(wrapped)-cryptoDomain.TagSize:]

	dek, err := aead.Decrypt(ciphertext, nonce, tag, []byte(addr.KeyID))
	if err != nil {
		return nil, cryptoDomain.ErrDekUnwrap
	}
	if len(dek) != cryptoDomain.DekSize {
		return nil, cryptoDomain.ErrDekIntegrity
	}

	return dek, nil
}

// MemorySecretStore is an in-process SecretStore for development and tests.
type MemorySecretStore struct {
	mu      sync.RWMutex
	secrets map[cryptoDomain.SecretAddress][]byte
}

// NewMemorySecretStore creates an empty MemorySecretStore.
func NewMemorySecretStore() *MemorySecretStore {
	return &MemorySecretStore{
		secrets: make(map[cryptoDomain.SecretAddress][]byte),
	}
}

// CreateSecret stores the payload under the given id, replacing any previous
// version, and returns the id unchanged.
func (m *MemorySecretStore) CreateSecret(
	ctx context.Context,
	id cryptoDomain.SecretAddress,
	payload []byte,
) (cryptoDomain.SecretAddress, error) {
	value := make([]byte, len(payload))
	copy(value, payload)

	m.mu.Lock()
	m.secrets[id] = value
	m.mu.Unlock()
	return id, nil
}

// GetSecret retrieves the latest stored payload for the id.
func (m *MemorySecretStore) GetSecret(
	ctx context.Context,
	addr cryptoDomain.SecretAddress,
) ([]byte, error) {
	m.mu.RLock()
	value, ok := m.secrets[addr]
	m.mu.RUnlock()
	if !ok {
		return nil, cryptoDomain.ErrSecretNotFound
	}

	payload := make([]byte, len(value))
	copy(payload, value)
	return payload, nil
}
