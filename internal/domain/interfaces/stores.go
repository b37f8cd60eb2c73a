package interfaces

import (
	"context"

	domaintypes "provinode/scan-core/internal/domain/types"
)

// IdentityStore persists the single per-device signing identity and
// optional client mTLS bundle (C2).
type IdentityStore interface {
	Material(ctx context.Context) (domaintypes.IdentityMaterial, error)
	ClientTLSIdentity(ctx context.Context) (*domaintypes.ClientTLSBundle, error)
	PersistClientTLSIdentity(ctx context.Context, bundle []byte, password string, peerFingerprint domaintypes.SHA256Hex) error
}

// TrustStore is the encrypted, keyed set of peer trust records (C3).
type TrustStore interface {
	Upsert(ctx context.Context, record domaintypes.TrustRecord) error
	TrustedPeer(ctx context.Context, deviceID domaintypes.SortableID) (domaintypes.TrustRecord, bool, error)
	All(ctx context.Context) ([]domaintypes.TrustRecord, error)
}
