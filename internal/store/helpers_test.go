package store_test

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	domaintypes "provinode/scan-core/internal/domain/types"
)

func readWholeFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func containsBytes(haystack, needle []byte) bool {
	return bytes.Contains(haystack, needle)
}

// writeLegacyIdentity injects a legacy plaintext client-TLS triple into
// an already-created identity document, simulating an on-disk document
// written before encrypted-at-rest storage existed.
func writeLegacyIdentity(t *testing.T, dir string, legacy domaintypes.LegacyClientTLS) {
	t.Helper()
	path := dir + "/identity.json"
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read identity file: %v", err)
	}
	var id domaintypes.DeviceIdentity
	if err := json.Unmarshal(raw, &id); err != nil {
		t.Fatalf("unmarshal identity file: %v", err)
	}
	id.LegacyPlaintextClientTLS = &legacy
	out, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		t.Fatalf("marshal identity file: %v", err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		t.Fatalf("write identity file: %v", err)
	}
}
