package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DeterministicHash computes the content-addressed search hash stored beside
// an encrypted field. Equal plaintexts always produce equal hashes regardless
// of the per-record DEK, which is what enables equality search over encrypted
// data without decrypting the corpus. Input is lowercased so lookups are case
// insensitive.
func DeterministicHash(value string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(value)))
	return hex.EncodeToString(sum[:])
}
