package crypto

import (
	"crypto/ecdh"
	"crypto/rand"
)

// GenerateEphemeral creates a fresh ephemeral P-256 ECDH keypair for one
// handshake and returns the X9.63-uncompressed public point alongside the
// private key handle needed to complete the agreement.
func GenerateEphemeral() (publicX963 []byte, priv *ecdh.PrivateKey, err error) {
	priv, err = ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return priv.PublicKey().Bytes(), priv, nil
}

// SharedSecret completes an ECDH agreement against a peer's X9.63
// uncompressed public point.
func SharedSecret(priv *ecdh.PrivateKey, peerPublicX963 []byte) ([]byte, error) {
	peerPub, err := ecdh.P256().NewPublicKey(peerPublicX963)
	if err != nil {
		return nil, err
	}
	return priv.ECDH(peerPub)
}
