// Package domain defines the field-protection model for structured records:
// which fields of which models are encrypted, hashed for equality search, and
// how the encrypted representation is laid out in the record.
package domain

import (
	"sync"
)

// Side-field suffixes of an encrypted field. A field "email" encrypts into
// "email" (ciphertext), "email_nonce", "email_tag" and optionally "email_hash".
const (
	NonceSuffix = "_nonce"
	TagSuffix   = "_tag"
	HashSuffix  = "_hash"
)

// NonceField returns the record key holding the nonce for a field.
func NonceField(name string) string { return name + NonceSuffix }

// TagField returns the record key holding the authentication tag for a field.
func TagField(name string) string { return name + TagSuffix }

// HashField returns the record key holding the search hash for a field.
func HashField(name string) string { return name + HashSuffix }

// FieldConfig declares how one record field is protected.
type FieldConfig struct {
	// Encrypt replaces the field value with ciphertext on write.
	Encrypt bool
	// Decrypt restores the plaintext on read. Normally paired with Encrypt;
	// write-only fields (e.g. password) may set Encrypt without Decrypt.
	Decrypt bool
	// Hash stores a deterministic sha256 hash beside the ciphertext to enable
	// equality search without decryption.
	Hash bool
}

// ModelConfig maps field names of one record model to their protection config.
type ModelConfig map[string]FieldConfig

// Registry holds per-model field configurations. Safe for concurrent use;
// registration normally happens once at startup.
type Registry struct {
	mu     sync.RWMutex
	models map[string]ModelConfig
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]ModelConfig)}
}

// Register adds or replaces the configuration for a model.
func (r *Registry) Register(model string, config ModelConfig) {
	r.mu.Lock()
	r.models[model] = config
	r.mu.Unlock()
}

// Get returns the configuration for a model.
func (r *Registry) Get(model string) (ModelConfig, error) {
	r.mu.RLock()
	config, ok := r.models[model]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrModelNotConfigured
	}
	return config, nil
}

// Models returns the names of all registered models.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	return names
}

// DefaultRegistry returns a Registry seeded with the built-in models.
func DefaultRegistry() *Registry {
	registry := NewRegistry()
	registry.Register("User", ModelConfig{
		"email":    {Encrypt: true, Decrypt: true, Hash: true},
		"password": {Encrypt: true, Decrypt: true},
	})
	return registry
}
