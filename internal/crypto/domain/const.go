package domain

// Algorithm represents the cryptographic algorithm used for field encryption.
//
// All supported algorithms provide Authenticated Encryption with Associated Data
// (AEAD), ensuring both confidentiality and authenticity: tampered ciphertext,
// a wrong key or a wrong nonce all fail authentication instead of producing
// garbage plaintext.
type Algorithm string

const (
	// AESGCM represents AES-256-GCM authenticated encryption.
	//
	// Used with a 256-bit key and a 16-byte random nonce per encryption call.
	// The 16-byte authentication tag is stored separately from the ciphertext
	// so both can be persisted as sibling record fields.
	AESGCM Algorithm = "aes-gcm"

	// XChaCha20 represents XChaCha20-Poly1305 authenticated encryption.
	//
	// The extended 24-byte nonce makes random nonce generation safe at high
	// volume and the implementation is constant time on platforms without
	// AES hardware acceleration.
	XChaCha20 Algorithm = "xchacha20-poly1305"
)

const (
	// DekSize is the required length in bytes of a Data Encryption Key.
	DekSize = 32

	// TagSize is the length in bytes of the AEAD authentication tag.
	TagSize = 16

	// KeyMetadataSchemaVersion identifies the persisted KeyMetadata layout.
	// Bump only with an additive migration; readers reject unknown versions.
	KeyMetadataSchemaVersion = 1
)
