package types

// ManifestSummary is the top-level content of session.manifest.json.
type ManifestSummary struct {
	SessionID          SortableID        `json:"session_id"`
	SchemaVersion       string            `json:"schema_version"`
	SourceDeviceID       SortableID        `json:"source_device_id"`
	CaptureStartedAtUTC   string            `json:"capture_started_at_utc"`
	EndAtUTC              string            `json:"end_at_utc"`
	SampleCount           int64             `json:"sample_count"`
	BlobCount             int64             `json:"blob_count"`
	ProducerVersion       string            `json:"producer_version"`
	Metadata              map[string]string `json:"metadata"`
}

// IntegrityDigest is the content of integrity.json.
type IntegrityDigest struct {
	ManifestSHA256    SHA256Hex            `json:"manifest_sha256"`
	SamplesLogSHA256  SHA256Hex            `json:"samples_log_sha256"`
	BlobHashes        map[string]SHA256Hex `json:"blob_hashes"`
	ProvenanceDigest  SHA256Hex            `json:"provenance_digest"`
}

// SamplesLogLine is the shape of one line of samples.log.
type SamplesLogLine struct {
	SampleSeq     int64      `json:"sample_seq"`
	SampleKind    SampleKind `json:"sample_kind"`
	CaptureTimeNS int64      `json:"capture_time_ns"`
	HashSHA256    SHA256Hex  `json:"hash_sha256"`
	BlobPath      string     `json:"blob_path"`
	ByteSize      int64      `json:"byte_size"`
}
