package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"math/big"
)

func digest(message []byte) []byte {
	sum := sha256.Sum256(message)
	return sum[:]
}

// ErrInvalidSignature is returned by Verify when the signature does not
// match the given public key and message.
var ErrInvalidSignature = errors.New("crypto: invalid signature")

// GenerateSigningKey creates a fresh P-256 ECDSA keypair and returns the
// X9.63-uncompressed public point and the raw private scalar.
func GenerateSigningKey() (publicX963, privateScalar []byte, err error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return MarshalPublicX963(&priv.PublicKey), priv.D.Bytes(), nil
}

// MarshalPublicX963 encodes a P-256 public key as an X9.63 uncompressed
// point: 0x04 || X (32 bytes) || Y (32 bytes).
func MarshalPublicX963(pub *ecdsa.PublicKey) []byte {
	return elliptic.Marshal(elliptic.P256(), pub.X, pub.Y)
}

// ParsePublicX963 decodes an X9.63 uncompressed P-256 point.
func ParsePublicX963(b []byte) (*ecdsa.PublicKey, error) {
	x, y := elliptic.Unmarshal(elliptic.P256(), b)
	if x == nil {
		return nil, errors.New("crypto: malformed x9.63 public point")
	}
	return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
}

// PrivateKeyFromScalar reconstructs a *ecdsa.PrivateKey from a raw scalar
// and its matching X9.63 public point.
func PrivateKeyFromScalar(publicX963, scalar []byte) (*ecdsa.PrivateKey, error) {
	pub, err := ParsePublicX963(publicX963)
	if err != nil {
		return nil, err
	}
	d := new(big.Int).SetBytes(scalar)
	return &ecdsa.PrivateKey{PublicKey: *pub, D: d}, nil
}

// Sign produces a raw, fixed-length 64-byte P-256 ECDSA signature: R
// (32 bytes, big-endian, zero-padded) concatenated with S (32 bytes).
func Sign(priv *ecdsa.PrivateKey, message []byte) ([]byte, error) {
	r, s, err := ecdsa.Sign(rand.Reader, priv, digest(message))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 64)
	r.FillBytes(out[:32])
	s.FillBytes(out[32:])
	return out, nil
}

// Verify checks a raw 64-byte P-256 ECDSA signature produced by Sign.
func Verify(pub *ecdsa.PublicKey, message, signature []byte) error {
	if len(signature) != 64 {
		return ErrInvalidSignature
	}
	r := new(big.Int).SetBytes(signature[:32])
	s := new(big.Int).SetBytes(signature[32:])
	if !ecdsa.Verify(pub, digest(message), r, s) {
		return ErrInvalidSignature
	}
	return nil
}
