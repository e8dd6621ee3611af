package usecase

import (
	"context"
	"time"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	"github.com/fieldvault/fieldvault/internal/metrics"
)

// orchestratorWithMetrics decorates Orchestrator with metrics instrumentation.
type orchestratorWithMetrics struct {
	next    Orchestrator
	metrics metrics.BusinessMetrics
}

// NewOrchestratorWithMetrics wraps an Orchestrator with metrics recording.
func NewOrchestratorWithMetrics(orchestrator Orchestrator, m metrics.BusinessMetrics) Orchestrator {
	return &orchestratorWithMetrics{
		next:    orchestrator,
		metrics: m,
	}
}

// EncryptObject records metrics for record encryption operations.
func (o *orchestratorWithMetrics) EncryptObject(
	ctx context.Context,
	model string,
	record map[string]any,
	keyCtx EntityKeyContext,
) (map[string]any, cryptoDomain.KeyMetadata, error) {
	start := time.Now()
	encrypted, meta, err := o.next.EncryptObject(ctx, model, record, keyCtx)

	status := "success"
	if err != nil {
		status = "error"
	}

	o.metrics.RecordOperation(ctx, "records", "record_encrypt", status)
	o.metrics.RecordDuration(ctx, "records", "record_encrypt", time.Since(start), status)

	return encrypted, meta, err
}

// DecryptObject records metrics for record decryption operations.
func (o *orchestratorWithMetrics) DecryptObject(
	ctx context.Context,
	model string,
	record map[string]any,
	keyCtx EntityKeyContext,
) (map[string]any, []byte, error) {
	start := time.Now()
	decrypted, wrapped, err := o.next.DecryptObject(ctx, model, record, keyCtx)

	status := "success"
	if err != nil {
		status = "error"
	}

	o.metrics.RecordOperation(ctx, "records", "record_decrypt", status)
	o.metrics.RecordDuration(ctx, "records", "record_decrypt", time.Since(start), status)

	return decrypted, wrapped, err
}
