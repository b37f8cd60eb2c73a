package app

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"provinode/scan-core/internal/controller"
	domaininterfaces "provinode/scan-core/internal/domain/interfaces"
	domaintypes "provinode/scan-core/internal/domain/types"
	"provinode/scan-core/internal/ids"
	"provinode/scan-core/internal/pairing"
	"provinode/scan-core/internal/recorder"
	"provinode/scan-core/internal/simsource"
	"provinode/scan-core/internal/store"
	"provinode/scan-core/internal/telemetry"
	"provinode/scan-core/internal/transport"
)

// Wire bundles the stores, collaborators, and the lifecycle controller
// built from Config.
type Wire struct {
	Home       string // resolved on-disk root (cfg.Home with its default applied)
	Identity   domaininterfaces.IdentityStore
	Trust      domaininterfaces.TrustStore
	Controller *controller.Controller
	Logger     *telemetry.Logger
}

// NewWire constructs the dependency graph from cfg: encrypted file-backed
// identity and trust stores, a pairing client against the desktop's
// pinned endpoint, a transport dialer bound to the paired peer's
// certificate, a fresh session recorder per capture, and the controller
// tying them together.
func NewWire(cfg Config) (*Wire, error) {
	if cfg.Home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		cfg.Home = filepath.Join(dir, ".scan-core")
	}
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, err
	}
	streamID := cfg.StreamID
	if streamID == "" {
		streamID = "scan-core"
	}

	correlationID := ids.New(time.Now())
	backend, err := telemetry.New("INFO", correlationID)
	if err != nil {
		return nil, err
	}
	logger := backend.Logger("app")

	identityStore := store.NewIdentityFileStore(cfg.Home)
	trustStore := store.NewTrustFileStore(cfg.Home)
	pairingClient := pairing.New(identityStore, trustStore)
	provider := simsource.New(30)

	sessionsRoot := filepath.Join(cfg.Home, "sessions")
	newRecorder := func(sessionID, sourceDeviceID domaintypes.SortableID) (domaininterfaces.SessionRecorder, error) {
		return recorder.New(sessionsRoot, sessionID, sourceDeviceID)
	}

	dial := func(endpoint controller.ResolvedEndpoint, material domaintypes.IdentityMaterial, clientTLS *domaintypes.ClientTLSBundle) domaininterfaces.TransportClient {
		var clientCert *tls.Certificate
		if clientTLS != nil {
			if cert, err := tls.X509KeyPair(clientTLS.BundleBytes, clientTLS.BundleBytes); err == nil {
				clientCert = &cert
			}
		}
		addr := endpoint.Host + ":" + strconv.Itoa(endpoint.Port)
		return transport.New(addr, material, endpoint.PairingCertFingerprint, clientCert, streamID, logger)
	}

	ctrl := controller.New(identityStore, trustStore, pairingClient, provider, newRecorder, dial, logger)

	return &Wire{
		Home:       cfg.Home,
		Identity:   identityStore,
		Trust:      trustStore,
		Controller: ctrl,
		Logger:     logger,
	}, nil
}
