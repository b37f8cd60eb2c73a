// Package tlspin implements fail-closed leaf-certificate pinning shared
// by the pairing client's HTTPS confirm exchange and the framed
// transport's raw TLS dial.
package tlspin

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"strings"

	"provinode/scan-core/internal/scanerr"
)

// FingerprintLeafDER returns the lowercase hex SHA-256 digest of a
// leaf certificate's DER encoding.
func FingerprintLeafDER(der []byte) string {
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:])
}

// VerifyPeerCertificate builds a tls.Config.VerifyPeerCertificate hook
// that fails closed unless the leaf certificate's SHA-256 fingerprint
// case-insensitively equals pinnedFingerprintHex. It never falls back to
// system trust: pin absence or extraction failure is always rejected.
func VerifyPeerCertificate(pinnedFingerprintHex string) func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	pin := strings.ToLower(pinnedFingerprintHex)
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return scanerr.Newf(scanerr.KindUntrustedEndpoint, "tlspin: no certificate presented by peer")
		}
		leaf := rawCerts[0]
		got := strings.ToLower(FingerprintLeafDER(leaf))
		if got != pin {
			return scanerr.Newf(scanerr.KindUntrustedEndpoint, "tlspin: leaf fingerprint %s does not match pinned %s", got, pin)
		}
		return nil
	}
}

// Config returns a *tls.Config that skips Go's built-in chain
// verification (InsecureSkipVerify) in favor of the fail-closed pinned
// callback: with a pin present there is no fallback to system trust.
func Config(pinnedFingerprintHex string, clientCert *tls.Certificate) *tls.Config {
	cfg := &tls.Config{
		InsecureSkipVerify:    true,
		VerifyPeerCertificate: VerifyPeerCertificate(pinnedFingerprintHex),
		MinVersion:            tls.VersionTLS12,
	}
	if clientCert != nil {
		cfg.Certificates = []tls.Certificate{*clientCert}
	}
	return cfg
}
