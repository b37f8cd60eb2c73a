package types

// SampleKind enumerates the heterogeneous sample payloads the capture
// pipeline emits.
type SampleKind string

const (
	SampleKindKeyframeRGB     SampleKind = "KeyframeRgb"
	SampleKindDepthFrame      SampleKind = "DepthFrame"
	SampleKindMeshAnchorBatch SampleKind = "MeshAnchorBatch"
	SampleKindCameraPose      SampleKind = "CameraPose"
	SampleKindIntrinsics      SampleKind = "Intrinsics"
	SampleKindHeartbeat       SampleKind = "Heartbeat"
)

// SampleEnvelope is the per-sample metadata record: written to
// samples.log and carried over the secure transport.
type SampleEnvelope struct {
	SessionID     SortableID        `json:"session_id"`
	SampleSeq     int64             `json:"sample_seq"`
	CaptureTimeNS int64             `json:"capture_time_ns"`
	ClockID       string            `json:"clock_id"`
	SampleKind    SampleKind        `json:"sample_kind"`
	HashSHA256    SHA256Hex         `json:"hash_sha256"`
	PayloadRef    string            `json:"payload_ref"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// BackpressureHint is a peer-issued control message adjusting capture
// pipeline cadence.
type BackpressureHint struct {
	TargetKeyframeFPS     float64 `json:"target_keyframe_fps"`
	DepthStrideHint       int     `json:"depth_stride_hint"`
	MeshUpdateIntervalMS  int     `json:"mesh_update_interval_ms"`
	DropNonKeyframes      bool    `json:"drop_non_keyframes"`
}

// ResumeCheckpoint carries a high-water sample_seq, trimming the replay
// buffer and, when peer-initiated with StreamID "desktop-resume",
// triggering retransmission.
type ResumeCheckpoint struct {
	SessionID           SortableID `json:"session_id"`
	LastAckedSampleSeq  int64      `json:"last_acked_sample_seq"`
	CapturedAtUTC        string     `json:"captured_at_utc"`
	StreamID             string     `json:"stream_id"`
}

// ReplayEntry is a bounded, session-scoped buffered outbound sample frame
// kept for resume retransmission.
type ReplayEntry struct {
	SampleSeq int64
	Frame     []byte // exact bytes emitted on the wire
}
