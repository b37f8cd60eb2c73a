// Package memzero wipes derived key material out of memory once
// scan-core's identity and trust stores are done with it.
package memzero

import "crypto/subtle"

// Zero overwrites b with zeros in a constant-time friendly way. Callers
// pair this with defer immediately after a key is derived, before any
// error path that could return early with the key still resident.
func Zero(b []byte) {
	if len(b) == 0 {
		return
	}
	zero := make([]byte, len(b))
	subtle.ConstantTimeCopy(1, b, zero)
}

// ZeroKey32 wipes a fixed-size 32-byte key, the shape returned by
// internal/crypto's DeriveWrapKey and DeriveKeys.
func ZeroKey32(key *[32]byte) {
	Zero(key[:])
}
