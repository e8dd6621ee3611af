// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/fieldvault/fieldvault/internal/validation"
)

// EncryptRecordRequest contains the parameters for encrypting a record's
// configured fields. The model name is extracted from the URL parameter.
type EncryptRecordRequest struct {
	EntityKey string         `json:"entity_key" binding:"required"`
	Record    map[string]any `json:"record" binding:"required"`
}

// Validate checks if the encrypt record request is valid.
func (r *EncryptRecordRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.EntityKey,
			validation.Required,
			validation.Length(1, 255),
			customValidation.Identifier,
		),
		validation.Field(&r.Record,
			validation.Required,
			validation.Length(1, 0), // At least one field
		),
	)
}

// DecryptRecordRequest contains the parameters for decrypting a record's
// encrypted fields.
type DecryptRecordRequest struct {
	EntityKey string         `json:"entity_key" binding:"required"`
	Record    map[string]any `json:"record" binding:"required"`
}

// Validate checks if the decrypt record request is valid.
func (r *DecryptRecordRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.EntityKey,
			validation.Required,
			validation.Length(1, 255),
			customValidation.Identifier,
		),
		validation.Field(&r.Record,
			validation.Required,
			validation.Length(1, 0),
		),
	)
}
