package types

// QRPairingPayload is the short-lived, signed payload encoded in the
// desktop's pairing QR code.
type QRPairingPayload struct {
	PairingToken                 string `json:"pairing_token"`
	PairingCode                  string `json:"pairing_code"`
	PairingNonce                 string `json:"pairing_nonce"`
	DesktopDeviceID               string `json:"desktop_device_id"`
	DesktopDisplayName             string `json:"desktop_display_name"`
	PairingEndpoint                string `json:"pairing_endpoint"`
	QUICEndpoint                    string `json:"quic_endpoint"`
	ExpiresAtUTC                    string `json:"expires_at_utc"`
	DesktopCertFingerprintSHA256    string `json:"desktop_cert_fingerprint_sha256"`
	ProtocolVersion                 string `json:"protocol_version"`
	SignatureB64                    string `json:"signature_b64"`
}

// PairingConfirmation is the client-signed confirmation body POSTed to
// "{pairing_endpoint}/pairing/confirm".
type PairingConfirmation struct {
	PairingNonce                 string `json:"pairing_nonce"`
	ScanDeviceID                  string `json:"scan_device_id"`
	ScanDisplayName                string `json:"scan_display_name"`
	ScanCertFingerprintSHA256       string `json:"scan_cert_fingerprint_sha256"`
	DesktopCertFingerprintSHA256    string `json:"desktop_cert_fingerprint_sha256"`
	ConfirmedAtUTC                  string `json:"confirmed_at_utc"`
}

// PairingConfirmRequest is the full request body for the confirm exchange.
type PairingConfirmRequest struct {
	PairingCode    string               `json:"pairing_code"`
	PairingConfirm PairingConfirmation `json:"pairing_confirm"`
}

// PairingConfirmResponse is the 200 OK response body from the desktop.
type PairingConfirmResponse struct {
	TrustRecord    TrustRecord      `json:"trust_record"`
	ScanClientMTLS *ClientTLSWire   `json:"scan_client_mtls,omitempty"`
}

// ClientTLSWire is the wire shape of a client mTLS bundle returned by the
// desktop during a successful pairing confirmation.
type ClientTLSWire struct {
	BundleB64           string `json:"bundle_b64"`
	Password            string `json:"password"`
	PeerCertFingerprint string `json:"peer_cert_fingerprint_sha256"`
}

// SecureSessionState is the ephemeral, per-connection key schedule derived
// by the secure channel handshake. It never touches disk and is discarded
// on disconnect.
type SecureSessionState struct {
	EncryptionKey   SessionKey
	NoncePrefix     NoncePrefix
	OutboundCounter uint32
	InboundCounter  int64 // -1 sentinel: no frame accepted yet
}
