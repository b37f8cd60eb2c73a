package store

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"sync"
	"time"

	scancrypto "provinode/scan-core/internal/crypto"
	domaininterfaces "provinode/scan-core/internal/domain/interfaces"
	domaintypes "provinode/scan-core/internal/domain/types"
	"provinode/scan-core/internal/ids"
	"provinode/scan-core/internal/scanerr"
	"provinode/scan-core/internal/util/memzero"
)

const identityFilename = "identity.json"

const clientTLSFormatTag = "provinode.scan.client-tls.v1"

// clientTLSSealed is the plaintext structure sealed inside a
// DeviceIdentity's ClientTLS blob before encryption.
type clientTLSSealed struct {
	BundleB64            string `json:"bundle_b64"`
	Password             string `json:"password"`
	PeerFingerprintLower string `json:"peer_cert_fingerprint_sha256"`
}

// IdentityFileStore persists the local device signing identity and an
// optional encrypted client mTLS bundle to a single document on disk.
type IdentityFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewIdentityFileStore returns an IdentityFileStore rooted at dir.
func NewIdentityFileStore(dir string) *IdentityFileStore {
	return &IdentityFileStore{dir: dir}
}

func (s *IdentityFileStore) path() string { return filepath.Join(s.dir, identityFilename) }

// load reads the on-disk identity, generating and persisting a fresh one
// if absent. It also performs legacy-plaintext migration.
func (s *IdentityFileStore) load() (domaintypes.DeviceIdentity, error) {
	var id domaintypes.DeviceIdentity
	if err := readIdentityOrTrustJSON(s.path(), &id); err != nil {
		return domaintypes.DeviceIdentity{}, scanerr.New(scanerr.KindIdentityCorrupt, err)
	}
	if id.DeviceID == "" {
		return s.create()
	}
	if len(id.SigningPublicX963) == 0 || len(id.SigningPrivateScalar) == 0 {
		return domaintypes.DeviceIdentity{}, scanerr.Newf(scanerr.KindIdentityCorrupt, "identity document missing signing key material")
	}

	if id.LegacyPlaintextClientTLS != nil {
		if err := s.migrateLegacy(&id); err != nil {
			return domaintypes.DeviceIdentity{}, err
		}
	}
	return id, nil
}

func (s *IdentityFileStore) create() (domaintypes.DeviceIdentity, error) {
	pub, priv, err := scancrypto.GenerateSigningKey()
	if err != nil {
		return domaintypes.DeviceIdentity{}, err
	}
	id := domaintypes.DeviceIdentity{
		DeviceID:              ids.New(time.Now()),
		SigningPublicX963:     pub,
		SigningPrivateScalar:  priv,
		CertFingerprintSHA256: domaintypes.SHA256Hex(scancrypto.FingerprintFull(pub)),
	}
	if err := writeIdentityOrTrustJSON(s.path(), id, 0o600); err != nil {
		return domaintypes.DeviceIdentity{}, err
	}
	return id, nil
}

// migrateLegacy encrypts a legacy plaintext client-TLS triple in place,
// rewrites the document, and clears the legacy fields. An incomplete
// triple (missing bundle, password, or fingerprint) is reported and left
// untouched so a caller can surface LegacyMigrationIncomplete.
func (s *IdentityFileStore) migrateLegacy(id *domaintypes.DeviceIdentity) error {
	legacy := id.LegacyPlaintextClientTLS
	if legacy.BundleB64 == "" || legacy.Password == "" || legacy.PeerCertFingerprint == "" {
		return scanerr.Newf(scanerr.KindLegacyMigrationIncomplete, "legacy client-tls triple incomplete for device %s", id.DeviceID)
	}
	bundle, err := base64.StdEncoding.DecodeString(legacy.BundleB64)
	if err != nil {
		return scanerr.New(scanerr.KindLegacyMigrationIncomplete, err)
	}
	if err := s.sealClientTLS(id, bundle, legacy.Password, legacy.PeerCertFingerprint); err != nil {
		return err
	}
	id.LegacyPlaintextClientTLS = nil
	return writeIdentityOrTrustJSON(s.path(), *id, 0o600)
}

func (s *IdentityFileStore) sealClientTLS(id *domaintypes.DeviceIdentity, bundle []byte, password string, fingerprint domaintypes.SHA256Hex) error {
	key, err := scancrypto.DeriveWrapKey(id.SigningPrivateScalar, string(id.DeviceID))
	if err != nil {
		return err
	}
	defer memzero.ZeroKey32(&key)

	sealed, err := sealJSON(key, clientTLSFormatTag, clientTLSSealed{
		BundleB64:            base64.StdEncoding.EncodeToString(bundle),
		Password:             password,
		PeerFingerprintLower: lowerHex(fingerprint),
	})
	if err != nil {
		return err
	}
	id.ClientTLS = &domaintypes.ClientTLSBundle{BundleBytes: sealed, PeerCertFingerprint: fingerprint}
	return nil
}

func lowerHex(h domaintypes.SHA256Hex) string {
	b := []byte(h)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Material implements domaininterfaces.IdentityStore.
func (s *IdentityFileStore) Material(ctx context.Context) (domaintypes.IdentityMaterial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.load()
	if err != nil {
		return domaintypes.IdentityMaterial{}, err
	}
	return domaintypes.IdentityMaterial{
		DeviceID:              id.DeviceID,
		SigningPublicX963:     id.SigningPublicX963,
		SigningPrivateScalar:  id.SigningPrivateScalar,
		CertFingerprintSHA256: id.CertFingerprintSHA256,
		PublicKeyB64:          base64.StdEncoding.EncodeToString(id.SigningPublicX963),
		PrivateKeyB64:         base64.StdEncoding.EncodeToString(id.SigningPrivateScalar),
	}, nil
}

// ClientTLSIdentity implements domaininterfaces.IdentityStore.
func (s *IdentityFileStore) ClientTLSIdentity(ctx context.Context) (*domaintypes.ClientTLSBundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.load()
	if err != nil {
		return nil, err
	}
	if id.ClientTLS == nil {
		return nil, nil
	}

	key, err := scancrypto.DeriveWrapKey(id.SigningPrivateScalar, string(id.DeviceID))
	if err != nil {
		return nil, err
	}
	defer memzero.ZeroKey32(&key)

	var sealed clientTLSSealed
	if err := openJSON(key, clientTLSFormatTag, id.ClientTLS.BundleBytes, &sealed); err != nil {
		return nil, scanerr.New(scanerr.KindIdentityCorrupt, err)
	}
	bundle, err := base64.StdEncoding.DecodeString(sealed.BundleB64)
	if err != nil {
		return nil, scanerr.New(scanerr.KindIdentityCorrupt, err)
	}
	return &domaintypes.ClientTLSBundle{
		BundleBytes:         bundle,
		Password:            sealed.Password,
		PeerCertFingerprint: domaintypes.SHA256Hex(sealed.PeerFingerprintLower),
	}, nil
}

// PersistClientTLSIdentity implements domaininterfaces.IdentityStore. It
// encrypts and writes the bundle, clearing any legacy plaintext field.
func (s *IdentityFileStore) PersistClientTLSIdentity(ctx context.Context, bundle []byte, password string, peerFingerprint domaintypes.SHA256Hex) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.load()
	if err != nil {
		return err
	}
	if err := s.sealClientTLS(&id, bundle, password, peerFingerprint); err != nil {
		return err
	}
	id.LegacyPlaintextClientTLS = nil
	return writeIdentityOrTrustJSON(s.path(), id, 0o600)
}

var _ domaininterfaces.IdentityStore = (*IdentityFileStore)(nil)
