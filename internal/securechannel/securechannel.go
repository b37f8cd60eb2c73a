// Package securechannel implements the secure channel codec (C5): the
// signed hello/ack handshake and per-message AEAD sealing/opening over
// an already-connected, TLS-pinned byte stream.
package securechannel

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"time"

	scancrypto "provinode/scan-core/internal/crypto"
	domaininterfaces "provinode/scan-core/internal/domain/interfaces"
	domaintypes "provinode/scan-core/internal/domain/types"
	"provinode/scan-core/internal/ids"
	"provinode/scan-core/internal/protocol/aeadframe"
	"provinode/scan-core/internal/protocol/handshake"
	"provinode/scan-core/internal/scanerr"
	"provinode/scan-core/internal/wireframe"
)

// Channel drives one connection's handshake and per-message AEAD codec.
// It is not safe for concurrent use; the owning transport client is
// responsible for serializing access.
type Channel struct {
	stream io.ReadWriter

	deviceID              domaintypes.SortableID
	signingPublicX963     []byte
	signingPrivateScalar  []byte
	certFingerprintLower  string

	state             domaintypes.SecureSessionState
	outboundExhausted bool // set once OutboundCounter has emitted at 0xFFFFFFFF; the wrap back to 0 is refused
}

// New returns a Channel bound to stream, ready to perform a client-side
// handshake as the given device identity.
func New(stream io.ReadWriter, material domaintypes.IdentityMaterial) *Channel {
	return &Channel{
		stream:               stream,
		deviceID:             material.DeviceID,
		signingPublicX963:    material.SigningPublicX963,
		signingPrivateScalar: material.SigningPrivateScalar,
		certFingerprintLower: lowerHex(string(material.CertFingerprintSHA256)),
		state:                domaintypes.SecureSessionState{InboundCounter: -1},
	}
}

// Handshake performs the client-initiated hello/ack exchange over the
// bound stream and derives the session's AEAD key schedule.
func (c *Channel) Handshake(ctx context.Context, sessionID domaintypes.SortableID) error {
	ephPub, ephPriv, err := scancrypto.GenerateEphemeral()
	if err != nil {
		return err
	}
	helloNonce := ids.New(time.Now()).String()

	payload := handshake.CanonicalPayload(sessionID.String(), c.deviceID.String(), c.certFingerprintLower, helloNonce, ephPub, c.signingPublicX963)
	privKey, err := scancrypto.PrivateKeyFromScalar(c.signingPublicX963, c.signingPrivateScalar)
	if err != nil {
		return err
	}
	sig, err := scancrypto.Sign(privKey, payload)
	if err != nil {
		return err
	}

	hello := handshake.Hello{
		Protocol:                    handshake.ProtocolID(),
		SessionID:                   sessionID.String(),
		ScanDeviceID:                c.deviceID.String(),
		ScanCertFingerprintSHA256:   c.certFingerprintLower,
		HelloNonce:                  helloNonce,
		ClientEphemeralPublicKeyB64: b64(ephPub),
		CreatedAtUTC:                time.Now().UTC().Format(time.RFC3339),
		ScanSigningPublicKeyB64:     b64(c.signingPublicX963),
		HelloSignatureB64:           b64(sig),
	}
	helloJSON, err := json.Marshal(hello)
	if err != nil {
		return err
	}
	if err := wireframe.WriteFrame(c.stream, wireframe.ChannelHandshakeControl, helloJSON); err != nil {
		return err
	}

	channel, ackPayload, err := wireframe.ReadFrame(c.stream)
	if err != nil {
		return err
	}
	if channel != wireframe.ChannelHandshakeControl {
		return scanerr.Newf(scanerr.KindHandshakeMismatch, "securechannel: expected control channel ack, got %#x", channel)
	}
	var ack handshake.Ack
	if err := json.Unmarshal(ackPayload, &ack); err != nil {
		return scanerr.New(scanerr.KindHandshakeMismatch, err)
	}
	if ack.Protocol != handshake.ProtocolID() || ack.SessionID != sessionID.String() {
		return scanerr.Newf(scanerr.KindHandshakeMismatch, "securechannel: ack protocol/session_id mismatch")
	}

	serverEphPub, err := decode64(ack.ServerEphemeralPublicKeyB64)
	if err != nil {
		return scanerr.New(scanerr.KindHandshakeMismatch, err)
	}
	ackSalt, err := decode64(ack.AckSaltB64)
	if err != nil {
		return scanerr.New(scanerr.KindHandshakeMismatch, err)
	}

	key, noncePrefix, err := handshake.DeriveSessionKeys(ephPriv, serverEphPub, ackSalt)
	if err != nil {
		return scanerr.New(scanerr.KindHandshakeMismatch, err)
	}

	c.state = domaintypes.SecureSessionState{
		EncryptionKey:   key,
		NoncePrefix:     noncePrefix,
		OutboundCounter: 0,
		InboundCounter:  -1,
	}
	return nil
}

// SealControl seals v (JSON-marshaled) as a control-channel AEAD frame,
// returning the outer wire bytes ready to write to the stream.
func (c *Channel) SealControl(v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return c.seal(aeadframe.PayloadChannelControl, body)
}

// SealSample seals `[env_len u32 BE][env_json][payload]` as a
// sample-channel AEAD frame, returning the outer wire bytes ready to
// write to the stream.
func (c *Channel) SealSample(envelopeJSON, payload []byte) ([]byte, error) {
	inner := make([]byte, 4+len(envelopeJSON)+len(payload))
	binary.BigEndian.PutUint32(inner[:4], uint32(len(envelopeJSON)))
	copy(inner[4:], envelopeJSON)
	copy(inner[4+len(envelopeJSON):], payload)
	return c.seal(aeadframe.PayloadChannelSample, inner)
}

func (c *Channel) seal(payloadChannel aeadframe.PayloadChannel, plaintext []byte) ([]byte, error) {
	if c.outboundExhausted {
		return nil, scanerr.Newf(scanerr.KindCounterExhausted, "securechannel: outbound counter exhausted")
	}
	frame, err := aeadframe.Seal(handshake.ProtocolID(), payloadChannel, c.state.EncryptionKey, c.state.NoncePrefix, c.state.OutboundCounter, plaintext)
	if err != nil {
		return nil, err
	}
	if c.state.OutboundCounter == ^uint32(0) {
		c.outboundExhausted = true
	} else {
		c.state.OutboundCounter++
	}

	frameJSON, err := aeadframe.Marshal(frame)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := wireframe.WriteFrame(&buf, wireframe.ChannelAEADEnvelope, frameJSON); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// OpenFrame decrypts an inbound AEAD envelope's inner JSON (already
// stripped of the outer wire frame by the caller) and returns its
// payload channel and plaintext, enforcing strict counter ordering.
func (c *Channel) OpenFrame(frame []byte) (byte, []byte, error) {
	f, err := aeadframe.Unmarshal(frame)
	if err != nil {
		return 0, nil, scanerr.New(scanerr.KindAeadFailure, err)
	}
	pt, err := aeadframe.Open(f, c.state.EncryptionKey, c.state.NoncePrefix, c.state.InboundCounter)
	if err != nil {
		return 0, nil, err
	}
	c.state.InboundCounter = int64(f.Counter)
	return byte(f.PayloadChannel), pt, nil
}

func lowerHex(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func b64(b []byte) string               { return scancrypto.B64(b) }
func decode64(s string) ([]byte, error) { return scancrypto.DecodeB64(s) }

var _ domaininterfaces.SecureChannel = (*Channel)(nil)
