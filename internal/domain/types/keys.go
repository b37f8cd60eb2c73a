package types

// SessionKey is a 256-bit AES-GCM key derived by the secure channel
// handshake (HKDF-SHA256 over an ECDH shared secret).
type SessionKey [32]byte

// Slice returns the key as a []byte.
func (k SessionKey) Slice() []byte { return k[:] }

// NoncePrefix is the 8-byte AEAD nonce prefix derived by the handshake and
// shared by both directions; the last 4 bytes of each 12-byte nonce are
// the big-endian frame counter.
type NoncePrefix [8]byte

// Slice returns the prefix as a []byte.
func (p NoncePrefix) Slice() []byte { return p[:] }

// TrustRecord is a persisted, keyed statement of trust in a paired peer.
type TrustRecord struct {
	PeerDeviceID                   SortableID  `json:"peer_device_id"`
	PeerDisplayName                string      `json:"peer_display_name"`
	PeerCertFingerprintSHA256      SHA256Hex   `json:"peer_cert_fingerprint_sha256"`
	CreatedAtUTC                   string      `json:"created_at_utc"`
	LastSeenAtUTC                  string      `json:"last_seen_at_utc"`
	Status                         TrustStatus `json:"status"`
	PreviousCertFingerprintsSHA256 []SHA256Hex `json:"previous_cert_fingerprints_sha256,omitempty"`
}
