package app

import (
	"context"
	"fmt"
	"sync"

	kms "cloud.google.com/go/kms/apiv1"
	"github.com/hashicorp/vault/api"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	cryptoService "github.com/fieldvault/fieldvault/internal/crypto/service"
	cryptoUseCase "github.com/fieldvault/fieldvault/internal/crypto/usecase"
)

// cryptoComponents groups the lazily initialized crypto dependencies.
type cryptoComponents struct {
	aeadManager cryptoService.AEADManager
	fieldCipher cryptoService.FieldCipher
	keyWrapper  cryptoService.KeyWrapper
	secretStore cryptoService.SecretStore
	keyCache    cryptoService.KeyCache
	keyResolver cryptoUseCase.KeyResolver

	aeadManagerInit sync.Once
	fieldCipherInit sync.Once
	keyWrapperInit  sync.Once
	secretStoreInit sync.Once
	keyCacheInit    sync.Once
	keyResolverInit sync.Once
}

// AEADManager returns the AEAD manager service.
func (c *Container) AEADManager() cryptoService.AEADManager {
	c.crypto.aeadManagerInit.Do(func() {
		c.crypto.aeadManager = cryptoService.NewAEADManager()
	})
	return c.crypto.aeadManager
}

// FieldCipher returns the field cipher service using the configured algorithm.
func (c *Container) FieldCipher() (cryptoService.FieldCipher, error) {
	var err error
	c.crypto.fieldCipherInit.Do(func() {
		alg := cryptoDomain.Algorithm(c.config.FieldAlgorithm)
		switch alg {
		case cryptoDomain.AESGCM, cryptoDomain.XChaCha20:
		default:
			err = fmt.Errorf("unsupported field algorithm: %s", c.config.FieldAlgorithm)
			c.initErrors["fieldCipher"] = err
			return
		}
		c.crypto.fieldCipher = cryptoService.NewFieldCipher(c.AEADManager(), alg)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["fieldCipher"]; exists {
		return nil, storedErr
	}
	return c.crypto.fieldCipher, nil
}

// KeyWrapper returns the key-wrapping backend selected by configuration.
func (c *Container) KeyWrapper() (cryptoService.KeyWrapper, error) {
	var err error
	c.crypto.keyWrapperInit.Do(func() {
		c.crypto.keyWrapper, err = c.initKeyWrapper()
		if err != nil {
			c.initErrors["keyWrapper"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyWrapper"]; exists {
		return nil, storedErr
	}
	return c.crypto.keyWrapper, nil
}

// SecretStore returns the wrapped-DEK secret store selected by configuration.
func (c *Container) SecretStore() (cryptoService.SecretStore, error) {
	var err error
	c.crypto.secretStoreInit.Do(func() {
		c.crypto.secretStore, err = c.initSecretStore()
		if err != nil {
			c.initErrors["secretStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["secretStore"]; exists {
		return nil, storedErr
	}
	return c.crypto.secretStore, nil
}

// KeyCache returns the in-process key cache.
func (c *Container) KeyCache() cryptoService.KeyCache {
	c.crypto.keyCacheInit.Do(func() {
		c.crypto.keyCache = cryptoService.NewKeyCache(c.config.KeyCacheTTL)
	})
	return c.crypto.keyCache
}

// KeyResolver returns the DEK resolution use case, decorated with metrics.
func (c *Container) KeyResolver() (cryptoUseCase.KeyResolver, error) {
	var err error
	c.crypto.keyResolverInit.Do(func() {
		c.crypto.keyResolver, err = c.initKeyResolver()
		if err != nil {
			c.initErrors["keyResolver"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyResolver"]; exists {
		return nil, storedErr
	}
	return c.crypto.keyResolver, nil
}

// initKeyWrapper creates the key wrapper based on the configured provider.
func (c *Container) initKeyWrapper() (cryptoService.KeyWrapper, error) {
	switch c.config.KeyWrapperProvider {
	case "gcpkms":
		if c.config.GCPKMSProject == "" {
			return nil, fmt.Errorf("GCP_KMS_PROJECT is required for the gcpkms key wrapper")
		}
		client, err := kms.NewKeyManagementClient(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to create gcp kms client: %w", err)
		}
		return cryptoService.NewGCPKMSWrapper(client, c.config.GCPKMSProject, c.config.GCPKMSLocation), nil
	case "keeper":
		if c.config.KeeperKeyURI == "" {
			return nil, fmt.Errorf("KEEPER_KEY_URI is required for the keeper key wrapper")
		}
		wrapper, err := cryptoService.OpenKeeperWrapper(context.Background(), c.config.KeeperKeyURI)
		if err != nil {
			return nil, fmt.Errorf("failed to open keeper: %w", err)
		}
		return wrapper, nil
	case "memory":
		return cryptoService.NewMemoryKeyWrapper(), nil
	default:
		return nil, fmt.Errorf("unsupported key wrapper provider: %s", c.config.KeyWrapperProvider)
	}
}

// initSecretStore creates the secret store based on the configured provider.
func (c *Container) initSecretStore() (cryptoService.SecretStore, error) {
	switch c.config.SecretStoreProvider {
	case "vault":
		client, err := api.NewClient(api.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create vault client: %w", err)
		}
		return cryptoService.NewVaultSecretStore(client.Logical(), c.config.VaultMountPath), nil
	case "awssm":
		store, err := cryptoService.OpenAWSSecretStore(context.Background(), c.config.AWSRegion)
		if err != nil {
			return nil, fmt.Errorf("failed to open aws secrets manager: %w", err)
		}
		return store, nil
	case "memory":
		return cryptoService.NewMemorySecretStore(), nil
	default:
		return nil, fmt.Errorf("unsupported secret store provider: %s", c.config.SecretStoreProvider)
	}
}

// initKeyResolver creates the key resolver with all its dependencies.
func (c *Container) initKeyResolver() (cryptoUseCase.KeyResolver, error) {
	keyWrapper, err := c.KeyWrapper()
	if err != nil {
		return nil, fmt.Errorf("failed to get key wrapper: %w", err)
	}

	secretStore, err := c.SecretStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get secret store: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics: %w", err)
	}

	resolver := cryptoUseCase.NewKeyResolver(keyWrapper, secretStore, c.KeyCache())
	return cryptoUseCase.NewKeyResolverWithMetrics(resolver, businessMetrics), nil
}
