// Package types holds the wire and on-disk data model shared by every
// scan-core subsystem: identity, trust, pairing, the secure channel, and
// the session recorder.
package types

// SortableID is a 26-character, lexicographically sortable identifier
// minted by internal/ids. It is used for device ids, session ids, hello
// nonces, and log correlation ids.
type SortableID string

// String returns the string form of the identifier.
func (id SortableID) String() string { return string(id) }

// SHA256Hex is the lowercase hex encoding of a SHA-256 digest.
type SHA256Hex string

// String returns the string form of the digest.
func (h SHA256Hex) String() string { return string(h) }

// TrustStatus is the lifecycle state of a TrustRecord.
type TrustStatus string

const (
	TrustStatusTrusted TrustStatus = "trusted"
	TrustStatusRevoked TrustStatus = "revoked"
)
