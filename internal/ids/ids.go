// Package ids mints the sortable identifiers used throughout scan-core:
// device ids, session ids, hello nonces and log correlation ids.
package ids

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	domaintypes "provinode/scan-core/internal/domain/types"
)

const encodeAlphabet = "0123456789abcdefghjkmnpqrstvwxyz" // Crockford base32, no i/l/o/u

// New mints a 26-character, lexicographically sortable identifier: a
// 48-bit millisecond timestamp followed by 80 bits of uuid-sourced
// entropy, both Crockford base32 encoded.
func New(now time.Time) domaintypes.SortableID {
	ms := uint64(now.UnixMilli())
	entropy := uuid.New() // 128 bits; we consume the low 80

	var b [16]byte
	b[0] = byte(ms >> 40)
	b[1] = byte(ms >> 32)
	b[2] = byte(ms >> 24)
	b[3] = byte(ms >> 16)
	b[4] = byte(ms >> 8)
	b[5] = byte(ms)
	copy(b[6:16], entropy[6:16])

	return domaintypes.SortableID(encode(b))
}

// encode renders 16 bytes (128 bits) as 26 Crockford base32 characters.
func encode(b [16]byte) string {
	var sb strings.Builder
	sb.Grow(26)
	var acc uint64
	bits := 0
	// One pass over all 16 bytes, emitting a char per 5 bits: 25 full
	// chars cover 125 bits and the last 3 bits are left-aligned into the
	// 26th char.
	full := append([]byte{}, b[:]...)
	for _, by := range full {
		acc = acc<<8 | uint64(by)
		bits += 8
		for bits >= 5 {
			bits -= 5
			sb.WriteByte(encodeAlphabet[(acc>>uint(bits))&0x1f])
		}
	}
	if bits > 0 {
		sb.WriteByte(encodeAlphabet[(acc<<uint(5-bits))&0x1f])
	}
	out := sb.String()
	if len(out) < 26 {
		out += strings.Repeat("0", 26-len(out))
	}
	return out[:26]
}

// SHA256Hex returns the lowercase hex SHA-256 digest of b.
func SHA256Hex(b []byte) domaintypes.SHA256Hex {
	sum := sha256.Sum256(b)
	return domaintypes.SHA256Hex(hex.EncodeToString(sum[:]))
}
