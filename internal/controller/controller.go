// Package controller implements the lifecycle state machine (C10) gluing
// pairing, capture, and finalize together: Idle -> Paired -> Capturing ->
// Finalized -> Idle.
package controller

import (
	"context"
	"sync"
	"time"

	"provinode/scan-core/internal/capture"
	domaininterfaces "provinode/scan-core/internal/domain/interfaces"
	domaintypes "provinode/scan-core/internal/domain/types"
	"provinode/scan-core/internal/ids"
	"provinode/scan-core/internal/scanerr"
	"provinode/scan-core/internal/sequencer"
	"provinode/scan-core/internal/telemetry"
)

// State is a controller lifecycle state.
type State string

const (
	StateIdle       State = "Idle"
	StatePaired     State = "Paired"
	StateCapturing  State = "Capturing"
	StateFinalized  State = "Finalized"
)

// ResolvedEndpoint carries the desktop connection details needed to
// attempt a transport connect, discovered out of band (mDNS, manual entry).
type ResolvedEndpoint struct {
	Host                   string
	Port                   int
	PairingCertFingerprint string
}

// TransportDialer builds a fresh transport client bound to a resolved
// endpoint and identity material; the controller owns its lifecycle.
type TransportDialer func(endpoint ResolvedEndpoint, material domaintypes.IdentityMaterial, clientTLS *domaintypes.ClientTLSBundle) domaininterfaces.TransportClient

// RecorderFactory constructs a fresh session recorder for a new session id.
type RecorderFactory func(sessionID, sourceDeviceID domaintypes.SortableID) (domaininterfaces.SessionRecorder, error)

// Controller drives one device's pairing/capture/finalize lifecycle. Not
// safe for concurrent use beyond the internal state guard: callers issue
// one lifecycle transition at a time.
type Controller struct {
	identity  domaininterfaces.IdentityStore
	trust     domaininterfaces.TrustStore
	pairing   domaininterfaces.PairingClient
	provider  domaininterfaces.FrameProvider
	newRecorder RecorderFactory
	dial      TransportDialer
	logger    *telemetry.Logger

	mu        sync.Mutex
	state     State
	sessionID domaintypes.SortableID
	trustRec  domaintypes.TrustRecord
	pipeline  *capture.Pipeline
	transport domaininterfaces.TransportClient
	localOnly bool
}

// New returns a Controller in the Idle state.
func New(
	identity domaininterfaces.IdentityStore,
	trust domaininterfaces.TrustStore,
	pairing domaininterfaces.PairingClient,
	provider domaininterfaces.FrameProvider,
	newRecorder RecorderFactory,
	dial TransportDialer,
	logger *telemetry.Logger,
) *Controller {
	return &Controller{
		identity:    identity,
		trust:       trust,
		pairing:     pairing,
		provider:    provider,
		newRecorder: newRecorder,
		dial:        dial,
		logger:      logger,
		state:       StateIdle,
	}
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pair validates and confirms a scanned QR payload, transitioning
// Idle -> Paired on success. A trust record now exists for the peer.
func (c *Controller) Pair(ctx context.Context, qrPayload []byte) (domaintypes.TrustRecord, error) {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return domaintypes.TrustRecord{}, scanerr.Newf(scanerr.KindServerRejected, "controller: pair requires Idle state, got %s", c.state)
	}
	c.mu.Unlock()

	qr, err := c.pairing.ValidateQR(qrPayload)
	if err != nil {
		return domaintypes.TrustRecord{}, err
	}
	rec, err := c.pairing.Confirm(ctx, qr)
	if err != nil {
		return domaintypes.TrustRecord{}, err
	}

	c.mu.Lock()
	c.trustRec = rec
	c.state = StatePaired
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Info("paired", telemetry.Fields{"peer_device_id": rec.PeerDeviceID})
	}
	return rec, nil
}

// StartCapture attempts a transport connect against endpoint and starts
// the capture pipeline, transitioning Paired -> Capturing. A transport
// connect failure falls back to local-only recording rather than aborting.
// The session's package root is owned by the controller's RecorderFactory.
func (c *Controller) StartCapture(ctx context.Context, endpoint ResolvedEndpoint) error {
	c.mu.Lock()
	if c.state != StatePaired {
		c.mu.Unlock()
		return scanerr.Newf(scanerr.KindServerRejected, "controller: start_capture requires Paired state, got %s", c.state)
	}
	trustRec := c.trustRec
	c.mu.Unlock()

	if trustRec.Status != domaintypes.TrustStatusTrusted {
		return scanerr.Newf(scanerr.KindUntrustedEndpoint, "controller: no trusted peer record for capture")
	}

	material, err := c.identity.Material(ctx)
	if err != nil {
		return err
	}
	sessionID := ids.New(time.Now())

	var transport domaininterfaces.TransportClient
	localOnly := false
	if c.dial != nil {
		clientTLS, _ := c.identity.ClientTLSIdentity(ctx)
		candidate := c.dial(endpoint, material, clientTLS)
		if candidate != nil {
			if err := candidate.Connect(ctx, sessionID); err != nil {
				if c.logger != nil {
					c.logger.Warning("transport_connect_failed_local_only", telemetry.Fields{"error": err.Error()})
				}
				localOnly = true
			} else {
				transport = candidate
			}
		} else {
			localOnly = true
		}
	} else {
		localOnly = true
	}

	rec, err := c.newRecorder(sessionID, material.DeviceID)
	if err != nil {
		return err
	}

	pipeline := capture.New(c.provider, rec, sequencer.New(), transport, sessionID, material.DeviceID, c.logger)
	if transport != nil {
		transport.OnBackpressure(pipeline.ApplyBackpressureHint)
	}
	if err := pipeline.Start(ctx); err != nil {
		if transport != nil {
			_ = transport.Disconnect()
		}
		return err
	}

	c.mu.Lock()
	c.sessionID = sessionID
	c.pipeline = pipeline
	c.transport = transport
	c.localOnly = localOnly
	c.state = StateCapturing
	c.mu.Unlock()
	return nil
}

// StopCapture stops the pipeline, always attempts recorder finalize, and
// always disconnects the transport, transitioning Capturing -> Finalized.
func (c *Controller) StopCapture(ctx context.Context, extraMetadata map[string]string) (string, error) {
	c.mu.Lock()
	if c.state != StateCapturing {
		c.mu.Unlock()
		return "", scanerr.Newf(scanerr.KindServerRejected, "controller: stop_capture requires Capturing state, got %s", c.state)
	}
	pipeline := c.pipeline
	transport := c.transport
	c.mu.Unlock()

	dir, finalizeErr := pipeline.Stop(ctx, extraMetadata)

	if transport != nil {
		if err := transport.Disconnect(); err != nil && c.logger != nil {
			c.logger.Warning("transport_disconnect_failed", telemetry.Fields{"error": err.Error()})
		}
	}

	c.mu.Lock()
	c.pipeline = nil
	c.transport = nil
	c.state = StateFinalized
	c.mu.Unlock()

	return dir, finalizeErr
}

// Reset returns the controller to Idle, ready for a new pairing/session
// cycle.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateIdle
	c.sessionID = ""
	c.trustRec = domaintypes.TrustRecord{}
}
