package aeadframe_test

import (
	"errors"
	"testing"

	"provinode/scan-core/internal/protocol/aeadframe"
	"provinode/scan-core/internal/scanerr"
)

func testKeyPrefix() ([32]byte, [8]byte) {
	var key [32]byte
	var prefix [8]byte
	for i := range key {
		key[i] = byte(i)
	}
	for i := range prefix {
		prefix[i] = byte(i + 1)
	}
	return key, prefix
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key, prefix := testKeyPrefix()
	frame, err := aeadframe.Seal("protocol/v1", aeadframe.PayloadChannelSample, key, prefix, 1, []byte("sample-plaintext"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	pt, err := aeadframe.Open(frame, key, prefix, -1)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if string(pt) != "sample-plaintext" {
		t.Fatalf("expected round-tripped plaintext, got %q", pt)
	}
}

func TestOpen_RejectsNonIncreasingCounter(t *testing.T) {
	key, prefix := testKeyPrefix()
	frame, err := aeadframe.Seal("protocol/v1", aeadframe.PayloadChannelControl, key, prefix, 5, []byte("x"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	_, err = aeadframe.Open(frame, key, prefix, 5)
	var se *scanerr.Error
	if !errors.As(err, &se) || se.Kind != scanerr.KindReplayRejected {
		t.Fatalf("expected KindReplayRejected, got %v", err)
	}
}

func TestOpen_RejectsTamperedCiphertext(t *testing.T) {
	key, prefix := testKeyPrefix()
	frame, err := aeadframe.Seal("protocol/v1", aeadframe.PayloadChannelSample, key, prefix, 1, []byte("payload"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	frame.CiphertextB64 = frame.CiphertextB64[:len(frame.CiphertextB64)-4] + "abcd"
	if _, err := aeadframe.Open(frame, key, prefix, -1); err == nil {
		t.Fatal("expected an error opening tampered ciphertext")
	}
}

func TestMarshalUnmarshal_RoundTrip(t *testing.T) {
	key, prefix := testKeyPrefix()
	frame, err := aeadframe.Seal("protocol/v1", aeadframe.PayloadChannelControl, key, prefix, 2, []byte("control"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	b, err := aeadframe.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := aeadframe.Unmarshal(b)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != frame {
		t.Fatalf("expected round-tripped frame to be equal, got %+v want %+v", got, frame)
	}
}
