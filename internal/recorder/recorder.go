// Package recorder implements the content-addressed session package writer
// (C7): a single-writer actor that appends samples to a JSON-lines log,
// deduplicates payload blobs by SHA-256, and finalizes a manifest and
// integrity digest.
package recorder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	domaininterfaces "provinode/scan-core/internal/domain/interfaces"
	domaintypes "provinode/scan-core/internal/domain/types"
	"provinode/scan-core/internal/scanerr"
)

const (
	schemaVersion   = "1.0"
	producerVersion = "scan-core/1.0"
)

// SessionRecorder writes one session's content-addressed package to disk:
// <root>/<session_id>/{session.manifest.json, samples.log, blobs/sha256/<hex>, integrity.json}.
type SessionRecorder struct {
	mu sync.Mutex

	dir            string
	sessionID      domaintypes.SortableID
	sourceDeviceID domaintypes.SortableID
	startedAtUTC   string

	sampleCount int64
	blobCount   int64
	endAtUTC    string
	blobHashes  map[string]domaintypes.SHA256Hex // blobs/<rel> -> hash
}

// New creates the session directory layout (blobs/sha256/ and an empty
// samples.log) and returns a recorder ready to accept samples.
func New(root string, sessionID, sourceDeviceID domaintypes.SortableID) (*SessionRecorder, error) {
	dir := filepath.Join(root, sessionID.String())
	if err := os.MkdirAll(filepath.Join(dir, "blobs", "sha256"), 0o755); err != nil {
		return nil, scanerr.New(scanerr.KindRecorderIoFailure, err)
	}
	logPath := filepath.Join(dir, "samples.log")
	if _, err := os.Stat(logPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(logPath, nil, 0o644); err != nil {
			return nil, scanerr.New(scanerr.KindRecorderIoFailure, err)
		}
	}
	return &SessionRecorder{
		dir:            dir,
		sessionID:      sessionID,
		sourceDeviceID: sourceDeviceID,
		startedAtUTC:   time.Now().UTC().Format(time.RFC3339),
		blobHashes:     make(map[string]domaintypes.SHA256Hex),
	}, nil
}

// Record recomputes the payload's SHA-256, writes the blob if new, and
// appends the sample's log line.
func (r *SessionRecorder) Record(ctx context.Context, envelope domaintypes.SampleEnvelope, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sum := sha256.Sum256(payload)
	hash := domaintypes.SHA256Hex(hex.EncodeToString(sum[:]))
	if hash != envelope.HashSHA256 {
		return scanerr.Newf(scanerr.KindPayloadHashMismatch, "recorder: payload hash %s does not match envelope hash %s", hash, envelope.HashSHA256)
	}

	relPath := filepath.Join("blobs", "sha256", string(hash))
	blobPath := filepath.Join(r.dir, relPath)
	isNew, err := writeBlobIfAbsent(blobPath, payload)
	if err != nil {
		return scanerr.New(scanerr.KindRecorderIoFailure, err)
	}
	if isNew {
		r.blobCount++
	}
	r.blobHashes[filepath.ToSlash(relPath)] = hash

	line := domaintypes.SamplesLogLine{
		SampleSeq:     envelope.SampleSeq,
		SampleKind:    envelope.SampleKind,
		CaptureTimeNS: envelope.CaptureTimeNS,
		HashSHA256:    hash,
		BlobPath:      filepath.ToSlash(relPath),
		ByteSize:      int64(len(payload)),
	}
	encoded, err := sortedJSON(line)
	if err != nil {
		return scanerr.New(scanerr.KindRecorderIoFailure, err)
	}
	if err := appendLine(filepath.Join(r.dir, "samples.log"), encoded); err != nil {
		return scanerr.New(scanerr.KindRecorderIoFailure, err)
	}

	r.sampleCount++
	r.endAtUTC = time.Now().UTC().Format(time.RFC3339)
	return nil
}

// Finalize merges metadata, writes session.manifest.json and
// integrity.json, and returns the session directory path.
func (r *SessionRecorder) Finalize(ctx context.Context, extraMetadata map[string]string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	metadata := map[string]string{
		"room.session_id":       r.sessionID.String(),
		"schema_version":        schemaVersion,
		"source_device_id":      r.sourceDeviceID.String(),
		"capture_started_at_utc": r.startedAtUTC,
	}
	for k, v := range extraMetadata {
		metadata[k] = v
	}

	endAt := r.endAtUTC
	if endAt == "" {
		endAt = r.startedAtUTC
	}
	manifest := domaintypes.ManifestSummary{
		SessionID:           r.sessionID,
		SchemaVersion:       schemaVersion,
		SourceDeviceID:      r.sourceDeviceID,
		CaptureStartedAtUTC: r.startedAtUTC,
		EndAtUTC:            endAt,
		SampleCount:         r.sampleCount,
		BlobCount:           r.blobCount,
		ProducerVersion:     producerVersion,
		Metadata:            metadata,
	}
	manifestJSON, err := sortedJSON(manifest)
	if err != nil {
		return "", scanerr.New(scanerr.KindRecorderIoFailure, err)
	}
	manifestPretty, err := prettySorted(manifestJSON)
	if err != nil {
		return "", scanerr.New(scanerr.KindRecorderIoFailure, err)
	}
	manifestPath := filepath.Join(r.dir, "session.manifest.json")
	if err := writeAtomic(manifestPath, manifestPretty); err != nil {
		return "", scanerr.New(scanerr.KindRecorderIoFailure, err)
	}

	manifestDigest := sha256.Sum256(manifestPretty)
	samplesLogBytes, err := os.ReadFile(filepath.Join(r.dir, "samples.log"))
	if err != nil {
		return "", scanerr.New(scanerr.KindRecorderIoFailure, err)
	}
	samplesDigest := sha256.Sum256(samplesLogBytes)

	provenanceInput := r.sessionID.String() + ":" + strconv.FormatInt(r.sampleCount, 10) + ":" + strconv.FormatInt(r.blobCount, 10)
	provenanceDigest := sha256.Sum256([]byte(provenanceInput))

	blobHashesCopy := make(map[string]domaintypes.SHA256Hex, len(r.blobHashes))
	for k, v := range r.blobHashes {
		blobHashesCopy[k] = v
	}
	integrity := domaintypes.IntegrityDigest{
		ManifestSHA256:   domaintypes.SHA256Hex(hex.EncodeToString(manifestDigest[:])),
		SamplesLogSHA256: domaintypes.SHA256Hex(hex.EncodeToString(samplesDigest[:])),
		BlobHashes:       blobHashesCopy,
		ProvenanceDigest: domaintypes.SHA256Hex(hex.EncodeToString(provenanceDigest[:])),
	}
	integrityJSON, err := sortedJSON(integrity)
	if err != nil {
		return "", scanerr.New(scanerr.KindRecorderIoFailure, err)
	}
	if err := writeAtomic(filepath.Join(r.dir, "integrity.json"), integrityJSON); err != nil {
		return "", scanerr.New(scanerr.KindRecorderIoFailure, err)
	}

	return r.dir, nil
}

// Export copies the finalized session directory to destination,
// byte-identical, replacing any existing directory there (remove, then
// copy). The destination path, conventionally "<session_id>.roomcapture",
// is chosen by the caller; Export does not derive it.
func (r *SessionRecorder) Export(ctx context.Context, destination string) (string, error) {
	r.mu.Lock()
	dir := r.dir
	r.mu.Unlock()

	if err := os.RemoveAll(destination); err != nil {
		return "", scanerr.New(scanerr.KindRecorderIoFailure, err)
	}
	if err := copyDir(dir, destination); err != nil {
		return "", scanerr.New(scanerr.KindRecorderIoFailure, err)
	}
	return destination, nil
}

func writeBlobIfAbsent(path string, payload []byte) (isNew bool, err error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if err := writeAtomic(path, payload); err != nil {
		return false, err
	}
	return true, nil
}

func writeAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func appendLine(path string, line []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(line); err != nil {
		return err
	}
	_, err = f.Write([]byte{'\n'})
	return err
}

// sortedJSON marshals v with alphabetically sorted keys by round-tripping
// through a generic map, since encoding/json only sorts map keys, not
// struct fields declared in a fixed order.
func sortedJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

func prettySorted(compactJSON []byte) ([]byte, error) {
	var generic any
	if err := json.Unmarshal(compactJSON, &generic); err != nil {
		return nil, err
	}
	return json.MarshalIndent(generic, "", "  ")
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

var _ domaininterfaces.SessionRecorder = (*SessionRecorder)(nil)
