package domain

import (
	"encoding/hex"

	"github.com/fieldvault/fieldvault/internal/errors"
)

// EncryptedField is the hex-encoded bundle stored in place of one plaintext
// field: ciphertext, the nonce used for this encryption call, and the AEAD
// authentication tag. Each is persisted as a sibling record field.
type EncryptedField struct {
	Ciphertext string `json:"ciphertext"`
	Nonce      string `json:"nonce"`
	Tag        string `json:"tag"`
}

// Decode returns the raw bytes of the bundle.
// Fails with ErrInvalidInput when any part is not valid hex.
func (f EncryptedField) Decode() (ciphertext, nonce, tag []byte, err error) {
	ciphertext, err = hex.DecodeString(f.Ciphertext)
	if err != nil {
		return nil, nil, nil, errors.Wrap(errors.ErrInvalidInput, "invalid ciphertext encoding")
	}
	nonce, err = hex.DecodeString(f.Nonce)
	if err != nil {
		return nil, nil, nil, errors.Wrap(errors.ErrInvalidInput, "invalid nonce encoding")
	}
	tag, err = hex.DecodeString(f.Tag)
	if err != nil {
		return nil, nil, nil, errors.Wrap(errors.ErrInvalidInput, "invalid tag encoding")
	}
	return ciphertext, nonce, tag, nil
}

// NewEncryptedField hex-encodes raw AEAD output into a persistable bundle.
func NewEncryptedField(ciphertext, nonce, tag []byte) EncryptedField {
	return EncryptedField{
		Ciphertext: hex.EncodeToString(ciphertext),
		Nonce:      hex.EncodeToString(nonce),
		Tag:        hex.EncodeToString(tag),
	}
}

// IsComplete reports whether all three parts are present. Records that were
// written before a field became encryptable carry none of them.
func (f EncryptedField) IsComplete() bool {
	return f.Ciphertext != "" && f.Nonce != "" && f.Tag != ""
}
