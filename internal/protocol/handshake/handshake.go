// Package handshake builds and verifies the secure channel's signed
// hello/ack exchange and derives the resulting AEAD key schedule.
package handshake

import (
	"crypto/ecdh"
	"encoding/base64"
	"fmt"
	"strings"

	scancrypto "provinode/scan-core/internal/crypto"
	domaintypes "provinode/scan-core/internal/domain/types"
)

const protocolID = "provinode.scan.secure-channel.v1"

// Hello is the client-signed handshake open, sent on control channel 0x01.
type Hello struct {
	Protocol                  string `json:"protocol"`
	SessionID                 string `json:"session_id"`
	ScanDeviceID              string `json:"scan_device_id"`
	ScanCertFingerprintSHA256 string `json:"scan_cert_fingerprint_sha256"`
	HelloNonce                string `json:"hello_nonce"`
	ClientEphemeralPublicKeyB64 string `json:"client_ephemeral_public_key_b64"`
	CreatedAtUTC              string `json:"created_at_utc"`
	ScanSigningPublicKeyB64   string `json:"scan_signing_public_key_b64"`
	HelloSignatureB64         string `json:"hello_signature_b64"`
}

// Ack is the server's handshake reply, echoing protocol and session_id.
type Ack struct {
	Protocol                    string `json:"protocol"`
	SessionID                   string `json:"session_id"`
	ServerEphemeralPublicKeyB64 string `json:"server_ephemeral_public_key_b64"`
	AckSaltB64                  string `json:"ack_salt_b64"`
}

// CanonicalPayload builds the exact UTF-8 signing payload described by
// the handshake: newline-joined fields in a fixed order.
func CanonicalPayload(sessionID, scanDeviceID, fingerprintLower, helloNonce string, ephemeralPublicX963, signingPublicX963 []byte) []byte {
	fields := []string{
		protocolID,
		sessionID,
		scanDeviceID,
		fingerprintLower,
		helloNonce,
		base64.StdEncoding.EncodeToString(ephemeralPublicX963),
		base64.StdEncoding.EncodeToString(signingPublicX963),
	}
	return []byte(strings.Join(fields, "\n"))
}

// ProtocolID returns the fixed protocol identifier both peers must agree
// on for a handshake to proceed.
func ProtocolID() string { return protocolID }

// VerifyHello checks a Hello's signature against the embedded signing
// public key, and returns the decoded X9.63 ephemeral and signing public
// keys for further use by the caller (the receiving desktop
// peer's responsibility; the scanner side never calls this).
func VerifyHello(h Hello) (ephemeralPublicX963, signingPublicX963 []byte, err error) {
	signingPub, err := base64.StdEncoding.DecodeString(h.ScanSigningPublicKeyB64)
	if err != nil {
		return nil, nil, fmt.Errorf("handshake: decode signing key: %w", err)
	}
	ephemeralPub, err := base64.StdEncoding.DecodeString(h.ClientEphemeralPublicKeyB64)
	if err != nil {
		return nil, nil, fmt.Errorf("handshake: decode ephemeral key: %w", err)
	}
	sig, err := base64.StdEncoding.DecodeString(h.HelloSignatureB64)
	if err != nil {
		return nil, nil, fmt.Errorf("handshake: decode signature: %w", err)
	}

	pub, err := scancrypto.ParsePublicX963(signingPub)
	if err != nil {
		return nil, nil, err
	}
	payload := CanonicalPayload(h.SessionID, h.ScanDeviceID, h.ScanCertFingerprintSHA256, h.HelloNonce, ephemeralPub, signingPub)
	if err := scancrypto.Verify(pub, payload, sig); err != nil {
		return nil, nil, err
	}
	return ephemeralPub, signingPub, nil
}

// DeriveSessionKeys completes the ECDH agreement against the peer's
// ephemeral public key and expands it into the AEAD key schedule.
func DeriveSessionKeys(ourEphemeralPriv *ecdh.PrivateKey, peerEphemeralPublicX963, ackSalt []byte) (domaintypes.SessionKey, domaintypes.NoncePrefix, error) {
	shared, err := scancrypto.SharedSecret(ourEphemeralPriv, peerEphemeralPublicX963)
	if err != nil {
		return domaintypes.SessionKey{}, domaintypes.NoncePrefix{}, err
	}
	derived, err := scancrypto.DeriveKeys(shared, ackSalt)
	if err != nil {
		return domaintypes.SessionKey{}, domaintypes.NoncePrefix{}, err
	}
	return domaintypes.SessionKey(derived.EncryptionKey), domaintypes.NoncePrefix(derived.NoncePrefix), nil
}
