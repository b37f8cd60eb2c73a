// Package transport implements the framed, secure transport client (C6):
// a pinned TLS stream carrying the outer wire frame, driving the secure
// channel handshake, and buffering outbound samples for resume replay.
package transport

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net"
	"sync"
	"time"

	domaininterfaces "provinode/scan-core/internal/domain/interfaces"
	domaintypes "provinode/scan-core/internal/domain/types"
	"provinode/scan-core/internal/protocol/aeadframe"
	"provinode/scan-core/internal/scanerr"
	"provinode/scan-core/internal/securechannel"
	"provinode/scan-core/internal/telemetry"
	"provinode/scan-core/internal/tlspin"
	"provinode/scan-core/internal/wireframe"
)

// Client dials a pinned TLS stream to the desktop peer, drives the secure
// channel handshake, and exposes the send/receive API described by
// domaininterfaces.TransportClient.
type Client struct {
	addr                 string
	streamID             string
	material             domaintypes.IdentityMaterial
	clientCert           *tls.Certificate
	pinnedFingerprintHex string
	logger               *telemetry.Logger

	mu             sync.Mutex
	conn           net.Conn
	secure         domaininterfaces.SecureChannel
	sessionID      domaintypes.SortableID
	lastAckedSeq   int64
	backpressureFn func(domaintypes.BackpressureHint)

	replay replayBuffer

	readerDone chan struct{}
}

// New returns a Client ready to Connect to addr (host:port) with the
// given identity material, pinned leaf fingerprint, and stream id. Client
// mTLS is only presented when a bundle has already been issued during
// pairing, so clientCert may be nil.
func New(addr string, material domaintypes.IdentityMaterial, pinnedFingerprintHex string, clientCert *tls.Certificate, streamID string, logger *telemetry.Logger) *Client {
	return &Client{
		addr:                 addr,
		streamID:             streamID,
		material:             material,
		clientCert:           clientCert,
		pinnedFingerprintHex: pinnedFingerprintHex,
		logger:               logger,
		lastAckedSeq:         -1,
	}
}

// Connect dials the pinned TLS stream, drives the secure handshake, sends
// the initial resume checkpoint, and starts the inbound reader loop.
func (c *Client) Connect(ctx context.Context, sessionID domaintypes.SortableID) error {
	dialer := &net.Dialer{}
	rawConn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return scanerr.New(scanerr.KindTransportClosed, err)
	}
	tlsConn := tls.Client(rawConn, tlspin.Config(c.pinnedFingerprintHex, c.clientCert))
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return scanerr.New(scanerr.KindUntrustedEndpoint, err)
	}

	secure := securechannel.New(tlsConn, c.material)
	if err := secure.Handshake(ctx, sessionID); err != nil {
		tlsConn.Close()
		return err
	}

	c.mu.Lock()
	c.conn = tlsConn
	c.secure = secure
	c.sessionID = sessionID
	c.lastAckedSeq = -1
	c.mu.Unlock()
	c.replay.reset(sessionID)

	if err := c.sendResumeCheckpoint(-1); err != nil {
		tlsConn.Close()
		return err
	}

	c.readerDone = make(chan struct{})
	go c.readLoop()
	return nil
}

// SendControl seals and writes a control-channel message.
func (c *Client) SendControl(ctx context.Context, v any) error {
	c.mu.Lock()
	secure, conn := c.secure, c.conn
	c.mu.Unlock()
	if secure == nil || conn == nil {
		return scanerr.Newf(scanerr.KindTransportClosed, "transport: not connected")
	}
	frame, err := secure.SealControl(v)
	if err != nil {
		return err
	}
	return c.write(conn, frame)
}

// SendSample seals a sample envelope and payload, writes it, and buffers
// the emitted frame for potential resume retransmission.
func (c *Client) SendSample(ctx context.Context, envelope domaintypes.SampleEnvelope, payload []byte) error {
	c.mu.Lock()
	secure, conn := c.secure, c.conn
	c.mu.Unlock()
	if secure == nil || conn == nil {
		return scanerr.Newf(scanerr.KindTransportClosed, "transport: not connected")
	}
	envelopeJSON, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	frame, err := secure.SealSample(envelopeJSON, payload)
	if err != nil {
		return err
	}
	if err := c.write(conn, frame); err != nil {
		return err
	}
	c.replay.push(envelope.SampleSeq, frame)
	return nil
}

// OnBackpressure installs the handler invoked for inbound BackpressureHint
// control messages. Not safe to call concurrently with itself.
func (c *Client) OnBackpressure(handler func(domaintypes.BackpressureHint)) {
	c.mu.Lock()
	c.backpressureFn = handler
	c.mu.Unlock()
}

// Disconnect tears down the reader loop and underlying stream, and clears
// the secure session state and counters.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.secure = nil
	done := c.readerDone
	c.mu.Unlock()

	var closeErr error
	if conn != nil {
		closeErr = conn.Close()
	}
	if done != nil {
		<-done
	}
	return closeErr
}

// teardownLocked clears the session state and closes conn after a fatal
// inbound error, without waiting on readerDone: called from readLoop
// itself, so waiting on the channel it closes on return would deadlock.
func (c *Client) teardownLocked(conn net.Conn) {
	c.mu.Lock()
	c.conn = nil
	c.secure = nil
	c.mu.Unlock()
	conn.Close()
}

func (c *Client) write(w io.Writer, frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	// frame is already a complete outer wireframe.WriteFrame encoding
	// produced by the secure channel; write it verbatim.
	_, err := w.Write(frame)
	if err != nil {
		return scanerr.New(scanerr.KindTransportClosed, err)
	}
	return nil
}

func (c *Client) sendResumeCheckpoint(lastAcked int64) error {
	checkpoint := domaintypes.ResumeCheckpoint{
		SessionID:          c.sessionID,
		LastAckedSampleSeq: lastAcked,
		CapturedAtUTC:      time.Now().UTC().Format(time.RFC3339),
		StreamID:           c.streamID,
	}
	return c.SendControl(context.Background(), checkpoint)
}

// readLoop reassembles outer wire frames, decrypts AEAD envelopes, and
// routes inner control messages until the stream closes.
func (c *Client) readLoop() {
	defer close(c.readerDone)

	for {
		c.mu.Lock()
		conn, secure := c.conn, c.secure
		c.mu.Unlock()
		if conn == nil || secure == nil {
			return
		}

		channel, payload, err := wireframe.ReadFrame(conn)
		if err != nil {
			return
		}
		if err := wireframe.RefuseLegacy(channel); err != nil {
			if c.logger != nil {
				c.logger.Warning("legacy_channel_dropped", telemetry.Fields{"channel": channel})
			}
			continue
		}
		if channel != wireframe.ChannelAEADEnvelope {
			continue
		}

		payloadChannel, plaintext, err := secure.OpenFrame(payload)
		if err != nil {
			if c.logger != nil {
				c.logger.Error("aead_frame_rejected_disconnecting", telemetry.Fields{"error": err.Error()})
			}
			c.teardownLocked(conn)
			return
		}
		if aeadframe.PayloadChannel(payloadChannel) != aeadframe.PayloadChannelControl {
			continue
		}
		c.handleControl(plaintext)
	}
}

func (c *Client) handleControl(plaintext []byte) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(plaintext, &probe); err != nil {
		return
	}
	switch {
	case probe["last_acked_sample_seq"] != nil:
		var checkpoint domaintypes.ResumeCheckpoint
		if err := json.Unmarshal(plaintext, &checkpoint); err != nil {
			return
		}
		c.handleResumeCheckpoint(checkpoint)
	case probe["target_keyframe_fps"] != nil:
		var hint domaintypes.BackpressureHint
		if err := json.Unmarshal(plaintext, &hint); err != nil {
			return
		}
		c.mu.Lock()
		handler := c.backpressureFn
		c.mu.Unlock()
		if handler != nil {
			handler(hint)
		}
	}
}

func (c *Client) handleResumeCheckpoint(checkpoint domaintypes.ResumeCheckpoint) {
	c.mu.Lock()
	if checkpoint.LastAckedSampleSeq > c.lastAckedSeq {
		c.lastAckedSeq = checkpoint.LastAckedSampleSeq
	}
	ack := c.lastAckedSeq
	conn := c.conn
	c.mu.Unlock()

	retransmit := checkpoint.StreamID == "desktop-resume"
	entries := c.replay.trimAndCollect(ack, retransmit)
	if !retransmit || conn == nil {
		return
	}
	for _, entry := range entries {
		if err := c.write(conn, entry.Frame); err != nil {
			if c.logger != nil {
				c.logger.Warning("resume_retransmit_failed", telemetry.Fields{"sample_seq": entry.SampleSeq, "error": err.Error()})
			}
			return
		}
	}
}

var _ domaininterfaces.TransportClient = (*Client)(nil)
