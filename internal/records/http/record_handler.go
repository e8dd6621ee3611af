// Package http provides HTTP handlers for record field encryption operations.
// Configured fields are protected with envelope encryption: one DEK per record
// operation, wrapped by the entity's remote key.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	apperrors "github.com/fieldvault/fieldvault/internal/errors"
	"github.com/fieldvault/fieldvault/internal/httputil"
	keymetaDomain "github.com/fieldvault/fieldvault/internal/keymeta/domain"
	keymetaUsecase "github.com/fieldvault/fieldvault/internal/keymeta/usecase"
	"github.com/fieldvault/fieldvault/internal/records/http/dto"
	recordsUsecase "github.com/fieldvault/fieldvault/internal/records/usecase"
	customValidation "github.com/fieldvault/fieldvault/internal/validation"
)

// RecordHandler handles HTTP requests for record encryption operations.
type RecordHandler struct {
	orchestrator recordsUsecase.Orchestrator
	repository   keymetaUsecase.EntityKeyRepository
	logger       *slog.Logger
}

// NewRecordHandler creates a new record handler with required dependencies.
func NewRecordHandler(
	orchestrator recordsUsecase.Orchestrator,
	repository keymetaUsecase.EntityKeyRepository,
	logger *slog.Logger,
) *RecordHandler {
	return &RecordHandler{
		orchestrator: orchestrator,
		repository:   repository,
		logger:       logger,
	}
}

// EncryptHandler encrypts the configured fields of a record.
// POST /v1/records/:model/encrypt
// Returns 200 OK with the encrypted record and the entity's key address.
func (h *RecordHandler) EncryptHandler(c *gin.Context) {
	model := c.Param("model")

	var req dto.EncryptRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	// Canonicalize before touching the key store so casing variants of the
	// same identifier cannot provision separate keys.
	entity, err := cryptoDomain.NewEntityKey(req.EntityKey)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	keyCtx := keymetaUsecase.NewStoreKeyContext(entity, h.repository)

	encrypted, meta, err := h.orchestrator.EncryptObject(c.Request.Context(), model, req.Record, keyCtx)
	if apperrors.Is(err, keymetaDomain.ErrEntityKeyAlreadyExists) {
		// A concurrent provisioner persisted key metadata for this entity
		// first. The durable record wins; retry resolves with it.
		h.logger.Info("entity key provisioning lost race, retrying with stored key",
			slog.String("entity_key", entity.String()),
		)
		encrypted, meta, err = h.orchestrator.EncryptObject(c.Request.Context(), model, req.Record, keyCtx)
	}
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapToEncryptResponse(model, entity.String(), encrypted, meta))
}

// DecryptHandler restores plaintext in the configured fields of a record.
// POST /v1/records/:model/decrypt
// Returns 200 OK with the decrypted record, side fields stripped.
func (h *RecordHandler) DecryptHandler(c *gin.Context) {
	model := c.Param("model")

	var req dto.DecryptRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	entity, err := cryptoDomain.NewEntityKey(req.EntityKey)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	keyCtx := keymetaUsecase.NewStoreKeyContext(entity, h.repository)

	decrypted, _, err := h.orchestrator.DecryptObject(c.Request.Context(), model, req.Record, keyCtx)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapToDecryptResponse(model, entity.String(), decrypted))
}
