package store

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"path/filepath"
	"sort"
	"sync"

	scancrypto "provinode/scan-core/internal/crypto"
	domaininterfaces "provinode/scan-core/internal/domain/interfaces"
	domaintypes "provinode/scan-core/internal/domain/types"
	"provinode/scan-core/internal/scanerr"
)

const (
	trustFilename    = "trust.json"
	trustKeyFilename = "trust.key"
	trustFormatTag   = "provinode.scan.trust.v1"
)

// trustDocumentLegacy is the plaintext, pre-encryption on-disk shape:
// recognized by the absence of a top-level "format" field.
type trustDocumentLegacy struct {
	Format  string                                              `json:"format,omitempty"`
	Records map[domaintypes.SortableID]domaintypes.TrustRecord `json:"records"`
}

// trustDocument is the encrypted, current on-disk shape. Format is
// checked before any attempt to decrypt so a mismatched document is
// rejected without touching the key file.
type trustDocument struct {
	Format   string `json:"format"`
	CipherB64 string `json:"cipher_b64"`
}

// TrustFileStore persists the keyed set of peer trust records as a
// single encrypted document, single-writer serialized.
type TrustFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewTrustFileStore returns a TrustFileStore rooted at dir.
func NewTrustFileStore(dir string) *TrustFileStore {
	return &TrustFileStore{dir: dir}
}

func (s *TrustFileStore) docPath() string { return filepath.Join(s.dir, trustFilename) }
func (s *TrustFileStore) keyPath() string { return filepath.Join(s.dir, trustKeyFilename) }

// key returns the store's 256-bit encryption key, minting and persisting
// one on first use.
func (s *TrustFileStore) key() ([32]byte, error) {
	b, err := readSealedFile(s.keyPath())
	if err != nil {
		return [32]byte{}, scanerr.New(scanerr.KindTrustStoreCorrupt, err)
	}
	if b != nil {
		if len(b) != 32 {
			return [32]byte{}, scanerr.Newf(scanerr.KindTrustStoreCorrupt, "trust key file has %d bytes, want 32", len(b))
		}
		var key [32]byte
		copy(key[:], b)
		return key, nil
	}

	var key [32]byte
	if _, err := rand.Read(key[:]); err != nil {
		return [32]byte{}, err
	}
	if err := writeSealedFile(s.keyPath(), key[:], 0o600); err != nil {
		return [32]byte{}, err
	}
	excludeFromBackup(s.keyPath())
	return key, nil
}

// load reads the trust document, transparently decrypting the encrypted
// format or accepting a legacy plaintext document (absence of the
// "format" field).
func (s *TrustFileStore) load() (map[domaintypes.SortableID]domaintypes.TrustRecord, error) {
	raw, err := readSealedFile(s.docPath())
	if err != nil {
		return nil, scanerr.New(scanerr.KindTrustStoreCorrupt, err)
	}
	if raw == nil {
		return map[domaintypes.SortableID]domaintypes.TrustRecord{}, nil
	}

	var probe struct {
		Format string `json:"format"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, scanerr.New(scanerr.KindTrustStoreCorrupt, err)
	}
	if probe.Format == "" {
		var legacy trustDocumentLegacy
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, scanerr.New(scanerr.KindTrustStoreCorrupt, err)
		}
		if legacy.Records == nil {
			return map[domaintypes.SortableID]domaintypes.TrustRecord{}, nil
		}
		return legacy.Records, nil
	}
	if probe.Format != trustFormatTag {
		return nil, scanerr.Newf(scanerr.KindTrustStoreCorrupt, "unrecognized trust document format %q", probe.Format)
	}

	var doc trustDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, scanerr.New(scanerr.KindTrustStoreCorrupt, err)
	}
	key, err := s.key()
	if err != nil {
		return nil, err
	}
	ct, err := base64.StdEncoding.DecodeString(doc.CipherB64)
	if err != nil {
		return nil, scanerr.New(scanerr.KindTrustStoreCorrupt, err)
	}
	pt, err := scancrypto.OpenRandom(key, []byte(trustFormatTag), ct)
	if err != nil {
		return nil, scanerr.New(scanerr.KindTrustStoreCorrupt, err)
	}
	var records map[domaintypes.SortableID]domaintypes.TrustRecord
	if err := json.Unmarshal(pt, &records); err != nil {
		return nil, scanerr.New(scanerr.KindTrustStoreCorrupt, err)
	}
	if records == nil {
		records = map[domaintypes.SortableID]domaintypes.TrustRecord{}
	}
	return records, nil
}

// save writes the trust document in the current encrypted format,
// upgrading a legacy plaintext document in place.
func (s *TrustFileStore) save(records map[domaintypes.SortableID]domaintypes.TrustRecord) error {
	key, err := s.key()
	if err != nil {
		return err
	}
	plaintext, err := json.Marshal(records)
	if err != nil {
		return err
	}
	ct, err := scancrypto.SealRandom(key, []byte(trustFormatTag), plaintext)
	if err != nil {
		return err
	}

	body, err := json.MarshalIndent(trustDocument{
		Format:    trustFormatTag,
		CipherB64: base64.StdEncoding.EncodeToString(ct),
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := writeSealedFile(s.docPath(), body, 0o600); err != nil {
		return err
	}
	excludeFromBackup(s.docPath())
	return nil
}

// Upsert implements domaininterfaces.TrustStore.
func (s *TrustFileStore) Upsert(ctx context.Context, record domaintypes.TrustRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	records[record.PeerDeviceID] = record
	return s.save(records)
}

// TrustedPeer implements domaininterfaces.TrustStore.
func (s *TrustFileStore) TrustedPeer(ctx context.Context, deviceID domaintypes.SortableID) (domaintypes.TrustRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return domaintypes.TrustRecord{}, false, err
	}
	rec, ok := records[deviceID]
	if !ok || rec.Status != domaintypes.TrustStatusTrusted {
		return domaintypes.TrustRecord{}, false, nil
	}
	return rec, true, nil
}

// All implements domaininterfaces.TrustStore, returning records sorted
// by device id.
func (s *TrustFileStore) All(ctx context.Context) ([]domaintypes.TrustRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]domaintypes.TrustRecord, 0, len(records))
	for _, r := range records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeerDeviceID < out[j].PeerDeviceID })
	return out, nil
}

var _ domaininterfaces.TrustStore = (*TrustFileStore)(nil)
