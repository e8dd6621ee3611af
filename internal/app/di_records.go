package app

import (
	"fmt"
	"sync"

	keymetaRepository "github.com/fieldvault/fieldvault/internal/keymeta/repository"
	keymetaUseCase "github.com/fieldvault/fieldvault/internal/keymeta/usecase"
	recordsDomain "github.com/fieldvault/fieldvault/internal/records/domain"
	recordsHTTP "github.com/fieldvault/fieldvault/internal/records/http"
	recordsUseCase "github.com/fieldvault/fieldvault/internal/records/usecase"
)

// recordComponents groups the lazily initialized record dependencies.
type recordComponents struct {
	registry      *recordsDomain.Registry
	repository    keymetaUseCase.EntityKeyRepository
	orchestrator  recordsUseCase.Orchestrator
	recordHandler *recordsHTTP.RecordHandler

	registryInit      sync.Once
	repositoryInit    sync.Once
	orchestratorInit  sync.Once
	recordHandlerInit sync.Once
}

// Registry returns the per-model field protection registry.
func (c *Container) Registry() *recordsDomain.Registry {
	c.records.registryInit.Do(func() {
		c.records.registry = recordsDomain.DefaultRegistry()
	})
	return c.records.registry
}

// EntityKeyRepository returns the key metadata repository for the configured driver.
func (c *Container) EntityKeyRepository() (keymetaUseCase.EntityKeyRepository, error) {
	var err error
	c.records.repositoryInit.Do(func() {
		c.records.repository, err = c.initEntityKeyRepository()
		if err != nil {
			c.initErrors["entityKeyRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["entityKeyRepository"]; exists {
		return nil, storedErr
	}
	return c.records.repository, nil
}

// Orchestrator returns the record encryption orchestrator, decorated with metrics.
func (c *Container) Orchestrator() (recordsUseCase.Orchestrator, error) {
	var err error
	c.records.orchestratorInit.Do(func() {
		c.records.orchestrator, err = c.initOrchestrator()
		if err != nil {
			c.initErrors["orchestrator"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["orchestrator"]; exists {
		return nil, storedErr
	}
	return c.records.orchestrator, nil
}

// RecordHandler returns the HTTP handler for record encryption endpoints.
func (c *Container) RecordHandler() (*recordsHTTP.RecordHandler, error) {
	var err error
	c.records.recordHandlerInit.Do(func() {
		c.records.recordHandler, err = c.initRecordHandler()
		if err != nil {
			c.initErrors["recordHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["recordHandler"]; exists {
		return nil, storedErr
	}
	return c.records.recordHandler, nil
}

// initEntityKeyRepository creates the repository based on the database driver.
func (c *Container) initEntityKeyRepository() (keymetaUseCase.EntityKeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for entity key repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return keymetaRepository.NewPostgreSQLEntityKeyRepository(db), nil
	case "mysql":
		return keymetaRepository.NewMySQLEntityKeyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initOrchestrator creates the orchestrator with all its dependencies.
func (c *Container) initOrchestrator() (recordsUseCase.Orchestrator, error) {
	keyResolver, err := c.KeyResolver()
	if err != nil {
		return nil, fmt.Errorf("failed to get key resolver: %w", err)
	}

	fieldCipher, err := c.FieldCipher()
	if err != nil {
		return nil, fmt.Errorf("failed to get field cipher: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics: %w", err)
	}

	orchestrator := recordsUseCase.NewOrchestrator(
		c.Registry(),
		keyResolver,
		fieldCipher,
		c.config.FieldPassthroughOnError,
	)
	return recordsUseCase.NewOrchestratorWithMetrics(orchestrator, businessMetrics), nil
}

// initRecordHandler creates the record handler.
func (c *Container) initRecordHandler() (*recordsHTTP.RecordHandler, error) {
	orchestrator, err := c.Orchestrator()
	if err != nil {
		return nil, fmt.Errorf("failed to get orchestrator: %w", err)
	}

	repository, err := c.EntityKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get entity key repository: %w", err)
	}

	return recordsHTTP.NewRecordHandler(orchestrator, repository, c.Logger()), nil
}
