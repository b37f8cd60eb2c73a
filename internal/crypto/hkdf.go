package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DerivedKeys is the AEAD key and nonce prefix handed out by DeriveKeys.
// Both peers derive the same pair from the same ECDH shared secret and
// ack salt; outbound/inbound framing is kept ordered by the per-peer
// counters in SecureSessionState, not by separate per-direction keys.
type DerivedKeys struct {
	EncryptionKey [32]byte
	NoncePrefix   [8]byte
}

// DeriveKeys expands an ECDH shared secret into the session's AEAD key
// schedule with HKDF-SHA256, salted by the server's ack_salt and labeled
// per RFC 5869 info-string convention.
func DeriveKeys(sharedSecret, ackSalt []byte) (DerivedKeys, error) {
	r := hkdf.New(sha256.New, sharedSecret, ackSalt, []byte("scan-core|secure-channel|v1"))

	var out DerivedKeys
	if _, err := io.ReadFull(r, out.EncryptionKey[:]); err != nil {
		return DerivedKeys{}, err
	}
	if _, err := io.ReadFull(r, out.NoncePrefix[:]); err != nil {
		return DerivedKeys{}, err
	}
	return out, nil
}

// DeriveWrapKey expands raw signing-key material into a 256-bit AES-GCM
// key used to seal the identity store's client mTLS bundle at rest, per
// device so two devices sharing a home directory never share a key.
func DeriveWrapKey(signingPrivateScalar []byte, deviceID string) ([32]byte, error) {
	r := hkdf.New(sha256.New, signingPrivateScalar, []byte("scan-device:"+deviceID), []byte("scan-core|identity-wrap|v1"))
	var key [32]byte
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return [32]byte{}, err
	}
	return key, nil
}
