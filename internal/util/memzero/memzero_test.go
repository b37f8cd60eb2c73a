package memzero_test

import (
	"testing"

	"provinode/scan-core/internal/util/memzero"
)

func TestZero_OverwritesAllBytes(t *testing.T) {
	b := []byte{1, 2, 3, 4, 5}
	memzero.Zero(b)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d not zeroed: %d", i, v)
		}
	}
}

func TestZero_NoopOnEmpty(t *testing.T) {
	memzero.Zero(nil)
	memzero.Zero([]byte{})
}

func TestZeroKey32_OverwritesAllBytes(t *testing.T) {
	var key [32]byte
	for i := range key {
		key[i] = byte(i + 1)
	}
	memzero.ZeroKey32(&key)
	for i, v := range key {
		if v != 0 {
			t.Fatalf("key byte %d not zeroed: %d", i, v)
		}
	}
}
