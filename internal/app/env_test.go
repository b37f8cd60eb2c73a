package app_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"provinode/scan-core/internal/app"
	"provinode/scan-core/internal/controller"
	domaintypes "provinode/scan-core/internal/domain/types"
)

func TestLoadBootstrapEnv_ReadsSetVariables(t *testing.T) {
	t.Setenv("SCAN_QR_PAYLOAD_PATH", "/tmp/qr.json")
	t.Setenv("SCAN_AUTOPAIR", "true")
	t.Setenv("SCAN_AUTO_CAPTURE_SECONDS", "5")
	t.Setenv("SCAN_AUTO_EXPORT", "/tmp/export")
	t.Setenv("SCAN_SESSION_ID", "session-1")

	env := app.LoadBootstrapEnv()
	if env.QRPayloadPath != "/tmp/qr.json" || !env.Autopair || env.AutoCaptureSeconds != 5 ||
		env.AutoExportDir != "/tmp/export" || env.SessionID != "session-1" {
		t.Fatalf("unexpected bootstrap env: %+v", env)
	}
}

func TestLoadBootstrapEnv_DefaultsWhenUnset(t *testing.T) {
	for _, k := range []string{"SCAN_QR_PAYLOAD_PATH", "SCAN_AUTOPAIR", "SCAN_AUTO_CAPTURE_SECONDS", "SCAN_AUTO_EXPORT", "SCAN_SESSION_ID"} {
		t.Setenv(k, "")
	}
	env := app.LoadBootstrapEnv()
	if env.Autopair || env.AutoCaptureSeconds != 0 {
		t.Fatalf("expected zero-value defaults, got %+v", env)
	}
}

func TestRun_AutopairPropagatesConfirmFailureAgainstUnreachableEndpoint(t *testing.T) {
	w, err := app.NewWire(app.Config{Home: t.TempDir()})
	if err != nil {
		t.Fatalf("NewWire: %v", err)
	}

	qr := domaintypes.QRPairingPayload{
		PairingToken:                 "tok",
		PairingCode:                  "123456",
		PairingNonce:                 "nonce",
		DesktopDeviceID:              "desktop-1",
		DesktopDisplayName:           "living-room-mac",
		PairingEndpoint:              "https://127.0.0.1:1/pairing/confirm",
		QUICEndpoint:                 "127.0.0.1:7447",
		ExpiresAtUTC:                 time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		DesktopCertFingerprintSHA256: "aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899",
		ProtocolVersion:              "1.1",
		SignatureB64:                 base64.StdEncoding.EncodeToString(make([]byte, 32)),
	}
	raw, err := json.Marshal(qr)
	if err != nil {
		t.Fatalf("marshal qr: %v", err)
	}
	qrPath := filepath.Join(t.TempDir(), "qr.json")
	if err := os.WriteFile(qrPath, raw, 0o600); err != nil {
		t.Fatalf("write qr: %v", err)
	}

	env := app.BootstrapEnv{Autopair: true, QRPayloadPath: qrPath}
	if err := app.Run(context.Background(), w, env, controller.ResolvedEndpoint{}); err == nil {
		t.Fatal("expected Run to surface the confirm exchange failure against an unreachable endpoint")
	}
	if w.Controller.State() != controller.StateIdle {
		t.Fatalf("expected controller to remain Idle after a failed pair, got %s", w.Controller.State())
	}
}

func TestRun_AutopairRequiresQRPath(t *testing.T) {
	w, err := app.NewWire(app.Config{Home: t.TempDir()})
	if err != nil {
		t.Fatalf("NewWire: %v", err)
	}
	env := app.BootstrapEnv{Autopair: true}
	if err := app.Run(context.Background(), w, env, controller.ResolvedEndpoint{}); err == nil {
		t.Fatal("expected an error when autopair is set without a QR path")
	}
}

func TestRun_NoTriggersIsANoop(t *testing.T) {
	w, err := app.NewWire(app.Config{Home: t.TempDir()})
	if err != nil {
		t.Fatalf("NewWire: %v", err)
	}
	if err := app.Run(context.Background(), w, app.BootstrapEnv{}, controller.ResolvedEndpoint{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if w.Controller.State() != controller.StateIdle {
		t.Fatalf("expected Idle to remain unchanged, got %s", w.Controller.State())
	}
}
