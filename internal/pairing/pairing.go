// Package pairing implements the pairing client (C4): QR payload
// validation and the confirm exchange against the desktop's pinned
// pairing endpoint.
package pairing

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	domaininterfaces "provinode/scan-core/internal/domain/interfaces"
	domaintypes "provinode/scan-core/internal/domain/types"
	"provinode/scan-core/internal/scanerr"
	"provinode/scan-core/internal/tlspin"
)

// Client validates scanned QR payloads and completes the confirm
// exchange over a per-attempt, leaf-pinned HTTPS client.
type Client struct {
	identity domaininterfaces.IdentityStore
	trust    domaininterfaces.TrustStore
	now      func() time.Time
}

// New returns a pairing Client backed by the given identity and trust
// stores.
func New(identity domaininterfaces.IdentityStore, trust domaininterfaces.TrustStore) *Client {
	return &Client{identity: identity, trust: trust, now: time.Now}
}

// ValidateQR runs the seven-step QR validation order from the pairing
// spec. Each failing step returns its own QrMalformed(reason).
func (c *Client) ValidateQR(payload []byte) (domaintypes.QRPairingPayload, error) {
	var qr domaintypes.QRPairingPayload
	if err := json.Unmarshal(payload, &qr); err != nil {
		return domaintypes.QRPairingPayload{}, scanerr.QrMalformed(scanerr.ReasonNotJSON, err)
	}

	endpoint, err := url.Parse(qr.PairingEndpoint)
	if err != nil || endpoint.Scheme != "https" || endpoint.Host == "" {
		return domaintypes.QRPairingPayload{}, scanerr.QrMalformed(scanerr.ReasonSchemeNotHTTPS, fmt.Errorf("pairing_endpoint %q", qr.PairingEndpoint))
	}

	major, _, ok := splitMajorMinor(qr.ProtocolVersion)
	if !ok || major != 1 {
		return domaintypes.QRPairingPayload{}, scanerr.QrMalformed(scanerr.ReasonUnsupportedVersion, fmt.Errorf("protocol_version %q", qr.ProtocolVersion))
	}

	expires, err := parseRFC3339(qr.ExpiresAtUTC)
	if err != nil || !expires.After(c.now()) {
		return domaintypes.QRPairingPayload{}, scanerr.QrMalformed(scanerr.ReasonExpired, fmt.Errorf("expires_at_utc %q", qr.ExpiresAtUTC))
	}

	if !isHex64(qr.DesktopCertFingerprintSHA256) {
		return domaintypes.QRPairingPayload{}, scanerr.QrMalformed(scanerr.ReasonFingerprintInvalid, fmt.Errorf("desktop_cert_fingerprint_sha256 %q", qr.DesktopCertFingerprintSHA256))
	}

	sig, err := base64.StdEncoding.DecodeString(qr.SignatureB64)
	if err != nil || len(sig) != 32 {
		return domaintypes.QRPairingPayload{}, scanerr.QrMalformed(scanerr.ReasonSignatureInvalid, fmt.Errorf("signature_b64 decodes to %d bytes", len(sig)))
	}

	if _, port, err := splitHostPort(qr.QUICEndpoint); err != nil || port < 1 || port > 65535 {
		return domaintypes.QRPairingPayload{}, scanerr.QrMalformed(scanerr.ReasonPortInvalid, fmt.Errorf("quic_endpoint %q", qr.QUICEndpoint))
	}

	qr.DesktopCertFingerprintSHA256 = lowerASCII(qr.DesktopCertFingerprintSHA256)
	return qr, nil
}

// Confirm completes the confirm exchange for a validated QR payload,
// installing the returned trust record and any client mTLS bundle.
func (c *Client) Confirm(ctx context.Context, qr domaintypes.QRPairingPayload) (domaintypes.TrustRecord, error) {
	if qr.DesktopCertFingerprintSHA256 == "" {
		return domaintypes.TrustRecord{}, scanerr.Newf(scanerr.KindUntrustedEndpoint, "pairing: no pinned fingerprint on endpoint")
	}

	material, err := c.identity.Material(ctx)
	if err != nil {
		return domaintypes.TrustRecord{}, err
	}

	confirmedAt := c.now().UTC().Format(time.RFC3339)
	body := domaintypes.PairingConfirmRequest{
		PairingCode: qr.PairingCode,
		PairingConfirm: domaintypes.PairingConfirmation{
			PairingNonce:                 qr.PairingNonce,
			ScanDeviceID:                 material.DeviceID.String(),
			ScanCertFingerprintSHA256:    string(material.CertFingerprintSHA256),
			DesktopCertFingerprintSHA256: qr.DesktopCertFingerprintSHA256,
			ConfirmedAtUTC:               confirmedAt,
		},
	}

	client := &http.Client{
		Timeout: 15 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: tlspin.Config(qr.DesktopCertFingerprintSHA256, c.clientCertificate(ctx)),
		},
	}

	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(body); err != nil {
		return domaintypes.TrustRecord{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, qr.PairingEndpoint+"/pairing/confirm", buf)
	if err != nil {
		return domaintypes.TrustRecord{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return domaintypes.TrustRecord{}, scanerr.New(scanerr.KindUntrustedEndpoint, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var out domaintypes.PairingConfirmResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return domaintypes.TrustRecord{}, scanerr.New(scanerr.KindServerRejected, err)
		}
		if out.ScanClientMTLS != nil {
			bundle, err := base64.StdEncoding.DecodeString(out.ScanClientMTLS.BundleB64)
			if err != nil {
				return domaintypes.TrustRecord{}, scanerr.Newf(scanerr.KindServerRejected, "malformed client mtls bundle: %v", err)
			}
			if err := c.identity.PersistClientTLSIdentity(ctx, bundle, out.ScanClientMTLS.Password, domaintypes.SHA256Hex(lowerASCII(out.ScanClientMTLS.PeerCertFingerprint))); err != nil {
				return domaintypes.TrustRecord{}, err
			}
		}
		if err := c.trust.Upsert(ctx, out.TrustRecord); err != nil {
			return domaintypes.TrustRecord{}, err
		}
		return out.TrustRecord, nil
	case http.StatusUnauthorized:
		return domaintypes.TrustRecord{}, scanerr.Newf(scanerr.KindInvalidCode, "pairing confirm rejected: invalid code")
	case http.StatusGone:
		return domaintypes.TrustRecord{}, scanerr.Newf(scanerr.KindExpired, "pairing confirm rejected: expired")
	case http.StatusTooManyRequests:
		return domaintypes.TrustRecord{}, scanerr.Newf(scanerr.KindLockedOut, "pairing confirm rejected: locked out")
	default:
		return domaintypes.TrustRecord{}, scanerr.Newf(scanerr.KindServerRejected, "pairing confirm rejected: status %s", resp.Status)
	}
}

// clientCertificate returns any previously issued client mTLS
// certificate to present during the confirm exchange, or nil for a
// first-time pairing attempt.
func (c *Client) clientCertificate(ctx context.Context) *tls.Certificate {
	bundle, err := c.identity.ClientTLSIdentity(ctx)
	if err != nil || bundle == nil {
		return nil
	}
	cert, err := tls.X509KeyPair(bundle.BundleBytes, bundle.BundleBytes)
	if err != nil {
		return nil
	}
	return &cert
}

func splitMajorMinor(v string) (major, minor int, ok bool) {
	for i := 0; i < len(v); i++ {
		if v[i] == '.' {
			maj, err1 := strconv.Atoi(v[:i])
			min, err2 := strconv.Atoi(v[i+1:])
			return maj, min, err1 == nil && err2 == nil
		}
	}
	maj, err := strconv.Atoi(v)
	return maj, 0, err == nil
}

func parseRFC3339(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}

func isHex64(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

func splitHostPort(hostport string) (string, int, error) {
	host, portStr, err := splitLastColon(hostport)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}

func splitLastColon(s string) (string, string, error) {
	i := -1
	for j := len(s) - 1; j >= 0; j-- {
		if s[j] == ':' {
			i = j
			break
		}
	}
	if i < 0 {
		return "", "", fmt.Errorf("pairing: %q is not host:port", s)
	}
	return s[:i], s[i+1:], nil
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

var _ domaininterfaces.PairingClient = (*Client)(nil)
