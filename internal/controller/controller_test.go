package controller_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"provinode/scan-core/internal/controller"
	domaininterfaces "provinode/scan-core/internal/domain/interfaces"
	domaintypes "provinode/scan-core/internal/domain/types"
	"provinode/scan-core/internal/recorder"
)

type fakeIdentity struct {
	material domaintypes.IdentityMaterial
}

func (f *fakeIdentity) Material(ctx context.Context) (domaintypes.IdentityMaterial, error) {
	return f.material, nil
}
func (f *fakeIdentity) ClientTLSIdentity(ctx context.Context) (*domaintypes.ClientTLSBundle, error) {
	return nil, nil
}
func (f *fakeIdentity) PersistClientTLSIdentity(ctx context.Context, bundle []byte, password string, fp domaintypes.SHA256Hex) error {
	return nil
}

type fakeTrust struct{}

func (fakeTrust) Upsert(ctx context.Context, r domaintypes.TrustRecord) error { return nil }
func (fakeTrust) TrustedPeer(ctx context.Context, id domaintypes.SortableID) (domaintypes.TrustRecord, bool, error) {
	return domaintypes.TrustRecord{}, false, nil
}
func (fakeTrust) All(ctx context.Context) ([]domaintypes.TrustRecord, error) { return nil, nil }

type fakePairing struct {
	confirmResult domaintypes.TrustRecord
}

func (f *fakePairing) ValidateQR(payload []byte) (domaintypes.QRPairingPayload, error) {
	var qr domaintypes.QRPairingPayload
	_ = json.Unmarshal(payload, &qr)
	return qr, nil
}
func (f *fakePairing) Confirm(ctx context.Context, qr domaintypes.QRPairingPayload) (domaintypes.TrustRecord, error) {
	return f.confirmResult, nil
}

type fakeProvider struct{ frames chan domaintypes.Frame }

func (f *fakeProvider) Frames() <-chan domaintypes.Frame { return f.frames }
func (f *fakeProvider) Start(ctx context.Context) error  { return nil }
func (f *fakeProvider) Stop()                            { close(f.frames) }

type fakeRecorder struct{}

func (fakeRecorder) Record(ctx context.Context, envelope domaintypes.SampleEnvelope, payload []byte) error {
	return nil
}
func (fakeRecorder) Finalize(ctx context.Context, extra map[string]string) (string, error) {
	return "dir", nil
}
func (fakeRecorder) Export(ctx context.Context, destination string) (string, error) {
	return destination, nil
}

func qrPayload(t *testing.T) []byte {
	t.Helper()
	qr := domaintypes.QRPairingPayload{
		DesktopCertFingerprintSHA256: "aa",
		ExpiresAtUTC:                 time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		SignatureB64:                 base64.StdEncoding.EncodeToString(make([]byte, 32)),
	}
	b, err := json.Marshal(qr)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func newController(t *testing.T, trustRecord domaintypes.TrustRecord, dial controller.TransportDialer) *controller.Controller {
	provider := &fakeProvider{frames: make(chan domaintypes.Frame, 8)}
	identity := &fakeIdentity{material: domaintypes.IdentityMaterial{DeviceID: "device-1"}}
	pairing := &fakePairing{confirmResult: trustRecord}
	newRecorder := func(sessionID, sourceDeviceID domaintypes.SortableID) (domaininterfaces.SessionRecorder, error) {
		return fakeRecorder{}, nil
	}
	return controller.New(identity, fakeTrust{}, pairing, provider, newRecorder, dial, nil)
}

func TestController_PairTransitionsIdleToPaired(t *testing.T) {
	trustRecord := domaintypes.TrustRecord{PeerDeviceID: "peer-1", Status: domaintypes.TrustStatusTrusted}
	c := newController(t, trustRecord, nil)

	if c.State() != controller.StateIdle {
		t.Fatalf("expected Idle, got %s", c.State())
	}
	if _, err := c.Pair(context.Background(), qrPayload(t)); err != nil {
		t.Fatalf("pair: %v", err)
	}
	if c.State() != controller.StatePaired {
		t.Fatalf("expected Paired, got %s", c.State())
	}
}

func TestController_StartCaptureWithoutDialerFallsBackLocalOnly(t *testing.T) {
	trustRecord := domaintypes.TrustRecord{PeerDeviceID: "peer-1", Status: domaintypes.TrustStatusTrusted}
	c := newController(t, trustRecord, nil)
	if _, err := c.Pair(context.Background(), qrPayload(t)); err != nil {
		t.Fatalf("pair: %v", err)
	}
	if err := c.StartCapture(context.Background(), controller.ResolvedEndpoint{Host: "192.168.1.44", Port: 7447}); err != nil {
		t.Fatalf("start capture: %v", err)
	}
	if c.State() != controller.StateCapturing {
		t.Fatalf("expected Capturing, got %s", c.State())
	}
}

func TestController_StopCaptureFinalizesAndTransitions(t *testing.T) {
	trustRecord := domaintypes.TrustRecord{PeerDeviceID: "peer-1", Status: domaintypes.TrustStatusTrusted}
	c := newController(t, trustRecord, nil)
	ctx := context.Background()
	if _, err := c.Pair(ctx, qrPayload(t)); err != nil {
		t.Fatalf("pair: %v", err)
	}
	if err := c.StartCapture(ctx, controller.ResolvedEndpoint{}); err != nil {
		t.Fatalf("start capture: %v", err)
	}
	dir, err := c.StopCapture(ctx, nil)
	if err != nil {
		t.Fatalf("stop capture: %v", err)
	}
	if dir != "dir" {
		t.Fatalf("expected recorder dir, got %q", dir)
	}
	if c.State() != controller.StateFinalized {
		t.Fatalf("expected Finalized, got %s", c.State())
	}
}

func TestController_StopCaptureWritesExtraMetadataToManifest(t *testing.T) {
	trustRecord := domaintypes.TrustRecord{PeerDeviceID: "peer-1", Status: domaintypes.TrustStatusTrusted}
	provider := &fakeProvider{frames: make(chan domaintypes.Frame, 8)}
	identity := &fakeIdentity{material: domaintypes.IdentityMaterial{DeviceID: "device-1"}}
	pairing := &fakePairing{confirmResult: trustRecord}
	root := t.TempDir()
	newRecorder := func(sessionID, sourceDeviceID domaintypes.SortableID) (domaininterfaces.SessionRecorder, error) {
		return recorder.New(root, sessionID, sourceDeviceID)
	}
	c := controller.New(identity, fakeTrust{}, pairing, provider, newRecorder, nil, nil)

	ctx := context.Background()
	if _, err := c.Pair(ctx, qrPayload(t)); err != nil {
		t.Fatalf("pair: %v", err)
	}
	if err := c.StartCapture(ctx, controller.ResolvedEndpoint{}); err != nil {
		t.Fatalf("start capture: %v", err)
	}
	dir, err := c.StopCapture(ctx, map[string]string{"operator_note": "hallway scan"})
	if err != nil {
		t.Fatalf("stop capture: %v", err)
	}

	manifestBytes, err := os.ReadFile(filepath.Join(dir, "session.manifest.json"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var manifest domaintypes.ManifestSummary
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		t.Fatalf("unmarshal manifest: %v", err)
	}
	if manifest.Metadata["operator_note"] != "hallway scan" {
		t.Fatalf("expected extra metadata in manifest, got %v", manifest.Metadata)
	}
}

func TestController_StartCaptureRequiresPairedState(t *testing.T) {
	c := newController(t, domaintypes.TrustRecord{}, nil)
	if err := c.StartCapture(context.Background(), controller.ResolvedEndpoint{}); err == nil {
		t.Fatal("expected error starting capture from Idle state")
	}
}

func TestController_StartCaptureRejectsUntrustedRecord(t *testing.T) {
	trustRecord := domaintypes.TrustRecord{PeerDeviceID: "peer-1", Status: domaintypes.TrustStatusRevoked}
	c := newController(t, trustRecord, nil)
	if _, err := c.Pair(context.Background(), qrPayload(t)); err != nil {
		t.Fatalf("pair: %v", err)
	}
	if err := c.StartCapture(context.Background(), controller.ResolvedEndpoint{}); err == nil {
		t.Fatal("expected error starting capture with a non-trusted record")
	}
}
