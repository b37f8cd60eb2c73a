// Package discovery decodes the service discovery TXT record fields the
// core consumes into a ResolvedEndpoint. The discovery mechanism itself
// (mDNS/Bonjour browsing) is an external collaborator and out of scope;
// this package only interprets the record a browser hands back.
package discovery

import (
	"strconv"
	"strings"
)

const (
	defaultPairingScheme = "https"
	defaultPairingPort   = 7448
	defaultQUICPort      = 7447
)

// ResolvedEndpoint is the normalized shape of a desktop peer's
// advertised endpoint, derived from a raw TXT record field map.
type ResolvedEndpoint struct {
	DisplayName             string
	DeviceID                string
	Host                    string
	PairingScheme           string
	PairingPort             int
	QUICPort                int
	PairingCertFingerprint  string
}

// Resolve decodes a raw TXT record field map (as handed back by an
// external mDNS/Bonjour browser) together with the resolved host into a
// ResolvedEndpoint, applying the documented defaults for missing fields
// and lowercasing the fingerprint.
func Resolve(host string, txt map[string]string) ResolvedEndpoint {
	scheme := strings.ToLower(strings.TrimSpace(txt["pairing_scheme"]))
	if scheme == "" {
		scheme = defaultPairingScheme
	}

	pairingPort := defaultPairingPort
	if v, ok := txt["pairing_port"]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			pairingPort = n
		}
	}

	quicPort := defaultQUICPort
	if v, ok := txt["quic_port"]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			quicPort = n
		}
	}

	return ResolvedEndpoint{
		DisplayName:            txt["display_name"],
		DeviceID:               txt["device_id"],
		Host:                   host,
		PairingScheme:          scheme,
		PairingPort:            pairingPort,
		QUICPort:               quicPort,
		PairingCertFingerprint: strings.ToLower(strings.TrimSpace(txt["pairing_cert_fingerprint_sha256"])),
	}
}

// PairingBaseURL builds the "{scheme}://{host}:{port}" base URL used to
// reach the pairing confirm endpoint.
func (e ResolvedEndpoint) PairingBaseURL() string {
	return e.PairingScheme + "://" + e.Host + ":" + strconv.Itoa(e.PairingPort)
}
