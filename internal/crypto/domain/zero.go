package domain

// Zero overwrites a byte slice in place so plaintext key material does not
// linger in memory after use. Callers defer it right after obtaining a DEK.
func Zero(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}
