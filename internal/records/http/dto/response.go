package dto

import (
	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
)

// KeyAddressResponse describes the remote key that wraps the record's DEK.
type KeyAddressResponse struct {
	LocationID string `json:"location_id"`
	KeyRingID  string `json:"key_ring_id"`
	KeyID      string `json:"key_id"`
	KeyVersion string `json:"key_version"`
}

// EncryptRecordResponse carries the encrypted record plus the key addressing
// metadata persisted for the entity.
type EncryptRecordResponse struct {
	Model      string             `json:"model"`
	EntityKey  string             `json:"entity_key"`
	Record     map[string]any     `json:"record"`
	KeyAddress KeyAddressResponse `json:"key_address"`
}

// DecryptRecordResponse carries the record with plaintext restored in the
// configured fields.
type DecryptRecordResponse struct {
	Model     string         `json:"model"`
	EntityKey string         `json:"entity_key"`
	Record    map[string]any `json:"record"`
}

// MapToEncryptResponse builds the encrypt response from the orchestrator output.
func MapToEncryptResponse(model, entityKey string, record map[string]any, meta cryptoDomain.KeyMetadata) EncryptRecordResponse {
	return EncryptRecordResponse{
		Model:     model,
		EntityKey: entityKey,
		Record:    record,
		KeyAddress: KeyAddressResponse{
			LocationID: meta.KeyAddress.LocationID,
			KeyRingID:  meta.KeyAddress.KeyRingID,
			KeyID:      meta.KeyAddress.KeyID,
			KeyVersion: meta.KeyAddress.KeyVersion,
		},
	}
}

// MapToDecryptResponse builds the decrypt response from the orchestrator output.
func MapToDecryptResponse(model, entityKey string, record map[string]any) DecryptRecordResponse {
	return DecryptRecordResponse{
		Model:     model,
		EntityKey: entityKey,
		Record:    record,
	}
}
