package app

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"provinode/scan-core/internal/controller"
	domaintypes "provinode/scan-core/internal/domain/types"
	"provinode/scan-core/internal/recorder"
	"provinode/scan-core/internal/scanerr"
)

var (
	errMissingQRPath             = scanerr.Newf(scanerr.KindQrMalformed, "app: SCAN_AUTOPAIR is set but SCAN_QR_PAYLOAD_PATH is empty")
	errMissingSessionIDForExport = scanerr.Newf(scanerr.KindRecorderIoFailure, "app: SCAN_AUTO_EXPORT is set but SCAN_SESSION_ID is empty")
)

// BootstrapEnv is the headless-run configuration read from the process
// environment, for driving a full pair/capture/export cycle without a
// human operating the CLI interactively (embedded/CI use).
type BootstrapEnv struct {
	QRPayloadPath      string // SCAN_QR_PAYLOAD_PATH
	Autopair           bool   // SCAN_AUTOPAIR
	AutoCaptureSeconds int    // SCAN_AUTO_CAPTURE_SECONDS, 0 disables auto-capture
	AutoExportDir      string // SCAN_AUTO_EXPORT
	SessionID          string // SCAN_SESSION_ID, the session exported for SCAN_AUTO_EXPORT (required then)
}

// LoadBootstrapEnv reads BootstrapEnv from the process environment.
func LoadBootstrapEnv() BootstrapEnv {
	seconds, _ := strconv.Atoi(os.Getenv("SCAN_AUTO_CAPTURE_SECONDS"))
	autopair, _ := strconv.ParseBool(os.Getenv("SCAN_AUTOPAIR"))
	return BootstrapEnv{
		QRPayloadPath:      os.Getenv("SCAN_QR_PAYLOAD_PATH"),
		Autopair:           autopair,
		AutoCaptureSeconds: seconds,
		AutoExportDir:      os.Getenv("SCAN_AUTO_EXPORT"),
		SessionID:          os.Getenv("SCAN_SESSION_ID"),
	}
}

// Run drives w.Controller through pair -> capture -> export using the
// env-provided instructions. Pairing runs only when Autopair is set. When
// AutoCaptureSeconds is not positive, Run returns before capture, so
// export (AutoExportDir set) only ever follows a capture.
func Run(ctx context.Context, w *Wire, env BootstrapEnv, endpoint controller.ResolvedEndpoint) error {
	if env.Autopair {
		if env.QRPayloadPath == "" {
			return errMissingQRPath
		}
		payload, err := os.ReadFile(env.QRPayloadPath)
		if err != nil {
			return err
		}
		if _, err := w.Controller.Pair(ctx, payload); err != nil {
			return err
		}
	}

	if env.AutoCaptureSeconds <= 0 {
		return nil
	}
	if err := w.Controller.StartCapture(ctx, endpoint); err != nil {
		return err
	}
	timer := time.NewTimer(time.Duration(env.AutoCaptureSeconds) * time.Second)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
	dir, err := w.Controller.StopCapture(ctx, nil)
	if err != nil {
		return err
	}

	if env.AutoExportDir == "" {
		return nil
	}
	_ = dir // the recorder already wrote the finalized package under w.Home/sessions
	sessionID := env.SessionID
	if sessionID == "" {
		return errMissingSessionIDForExport
	}
	rec, err := recorder.New(filepath.Join(w.Home, "sessions"), domaintypes.SortableID(sessionID), "")
	if err != nil {
		return err
	}
	_, err = rec.Export(ctx, env.AutoExportDir)
	return err
}
