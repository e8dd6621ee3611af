package domain

import (
	"github.com/fieldvault/fieldvault/internal/errors"
)

var (
	// ErrModelNotConfigured indicates no field configuration is registered for
	// the requested model.
	ErrModelNotConfigured = errors.Wrap(errors.ErrInvalidInput, "model has no field configuration")

	// ErrFieldEncryption indicates encryption of a configured field failed.
	ErrFieldEncryption = errors.Wrap(errors.ErrUnavailable, "field encryption failed")

	// ErrFieldDecryption indicates decryption of a configured field failed.
	ErrFieldDecryption = errors.Wrap(errors.ErrInvalidInput, "field decryption failed")

	// ErrFieldNotString indicates a configured field carries a non-string value.
	ErrFieldNotString = errors.Wrap(errors.ErrInvalidInput, "configured field value must be a string")
)
