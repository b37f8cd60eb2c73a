package interfaces

import (
	"context"

	domaintypes "provinode/scan-core/internal/domain/types"
)

// PairingClient validates a scanned QR payload and completes the confirm
// exchange against the desktop's pinned pairing endpoint (C4).
type PairingClient interface {
	ValidateQR(payload []byte) (domaintypes.QRPairingPayload, error)
	Confirm(ctx context.Context, qr domaintypes.QRPairingPayload) (domaintypes.TrustRecord, error)
}

// SecureChannel drives the authenticated handshake and per-frame AEAD
// codec over an already-connected pinned stream (C5).
type SecureChannel interface {
	Handshake(ctx context.Context, sessionID domaintypes.SortableID) error
	SealControl(v any) ([]byte, error)
	SealSample(envelopeJSON, payload []byte) ([]byte, error)
	OpenFrame(frame []byte) (payloadChannel byte, plaintext []byte, err error)
}

// TransportClient is the framed, secure stream to the desktop peer (C6).
type TransportClient interface {
	Connect(ctx context.Context, sessionID domaintypes.SortableID) error
	SendControl(ctx context.Context, v any) error
	SendSample(ctx context.Context, envelope domaintypes.SampleEnvelope, payload []byte) error
	OnBackpressure(handler func(domaintypes.BackpressureHint))
	Disconnect() error
}

// SessionRecorder is the single-writer, content-addressed session package
// writer (C7).
type SessionRecorder interface {
	Record(ctx context.Context, envelope domaintypes.SampleEnvelope, payload []byte) error
	Finalize(ctx context.Context, extraMetadata map[string]string) (string, error)
	Export(ctx context.Context, destination string) (string, error)
}

// Sequencer hands out monotonic per-session sample sequence numbers (C8).
type Sequencer interface {
	Next() int64
}

// FrameProvider is the external sensor/frame source collaborator; the
// capture pipeline only depends on this narrow interface.
type FrameProvider interface {
	Frames() <-chan domaintypes.Frame
	Start(ctx context.Context) error
	Stop()
}
