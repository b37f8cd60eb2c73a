// Package aeadframe implements the secure channel's inner encrypted
// envelope: a JSON frame carrying a channel tag, a monotonic counter,
// and an AES-256-GCM sealed ciphertext.
package aeadframe

import (
	"encoding/base64"
	"encoding/json"

	scancrypto "provinode/scan-core/internal/crypto"
	"provinode/scan-core/internal/scanerr"
)

// PayloadChannel identifies the inner content of an encrypted frame.
type PayloadChannel byte

const (
	PayloadChannelControl PayloadChannel = 0x01
	PayloadChannelSample  PayloadChannel = 0x02
)

// Frame is the encrypted inner envelope JSON.
type Frame struct {
	Protocol       string         `json:"protocol"`
	PayloadChannel PayloadChannel `json:"payload_channel"`
	Counter        uint32         `json:"counter"`
	NonceB64       string         `json:"nonce_b64"`
	CiphertextB64  string         `json:"ciphertext_b64"`
	TagB64         string         `json:"tag_b64"`
}

// Seal encrypts plaintext under key using prefix and counter, and
// returns the wire Frame. Counter exhaustion (the caller's outbound
// counter wrapping past 2^32) is the caller's responsibility to detect
// before it picks the next counter value. Go's crypto/cipher AEAD
// interface appends the authentication tag to the ciphertext, so TagB64
// is left empty and the tag travels inside CiphertextB64; it is
// retained as a field for wire compatibility with peers that split it out.
func Seal(protocol string, payloadChannel PayloadChannel, key [32]byte, prefix [8]byte, counter uint32, plaintext []byte) (Frame, error) {
	nonce := scancrypto.BuildNonce(prefix, counter)
	ct, err := scancrypto.Seal(key, prefix, counter, nil, plaintext)
	if err != nil {
		return Frame{}, scanerr.New(scanerr.KindAeadFailure, err)
	}
	return Frame{
		Protocol:       protocol,
		PayloadChannel: payloadChannel,
		Counter:        counter,
		NonceB64:       base64.StdEncoding.EncodeToString(nonce[:]),
		CiphertextB64:  base64.StdEncoding.EncodeToString(ct),
	}, nil
}

// Open decrypts a Frame under key and prefix, enforcing that counter is
// strictly greater than inboundCounter (replay protection). A -1
// inboundCounter accepts any first frame.
func Open(f Frame, key [32]byte, prefix [8]byte, inboundCounter int64) ([]byte, error) {
	if int64(f.Counter) <= inboundCounter {
		return nil, scanerr.Newf(scanerr.KindReplayRejected, "aeadframe: counter %d not greater than inbound %d", f.Counter, inboundCounter)
	}
	ct, err := base64.StdEncoding.DecodeString(f.CiphertextB64)
	if err != nil {
		return nil, scanerr.New(scanerr.KindAeadFailure, err)
	}
	pt, err := scancrypto.Open(key, prefix, f.Counter, nil, ct)
	if err != nil {
		return nil, scanerr.New(scanerr.KindAeadFailure, err)
	}
	return pt, nil
}

// Marshal encodes a Frame as JSON, matching the wire's inner-envelope shape.
func Marshal(f Frame) ([]byte, error) { return json.Marshal(f) }

// Unmarshal decodes a Frame from its wire JSON representation.
func Unmarshal(b []byte) (Frame, error) {
	var f Frame
	err := json.Unmarshal(b, &f)
	return f, err
}
