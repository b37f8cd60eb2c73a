package store_test

import (
	"context"
	"testing"

	domaintypes "provinode/scan-core/internal/domain/types"
	"provinode/scan-core/internal/store"
)

func TestIdentity_MaterializesOnFirstRead(t *testing.T) {
	dir := t.TempDir()
	ids := store.NewIdentityFileStore(dir)

	m1, err := ids.Material(context.Background())
	if err != nil {
		t.Fatalf("material: %v", err)
	}
	if m1.DeviceID == "" {
		t.Fatal("expected a minted device id")
	}

	m2, err := ids.Material(context.Background())
	if err != nil {
		t.Fatalf("material (second read): %v", err)
	}
	if m1.DeviceID != m2.DeviceID || m1.PrivateKeyB64 != m2.PrivateKeyB64 {
		t.Fatal("two reads of the same file must return identical material")
	}
}

func TestIdentity_RecreateAfterDelete_YieldsDifferentMaterial(t *testing.T) {
	dir1, dir2 := t.TempDir(), t.TempDir()
	m1, err := store.NewIdentityFileStore(dir1).Material(context.Background())
	if err != nil {
		t.Fatalf("material dir1: %v", err)
	}
	m2, err := store.NewIdentityFileStore(dir2).Material(context.Background())
	if err != nil {
		t.Fatalf("material dir2: %v", err)
	}
	if m1.DeviceID == m2.DeviceID {
		t.Fatal("two freshly created identities must not share a device id")
	}
}

func TestIdentity_PersistClientTLS_NoPlaintextOnDisk(t *testing.T) {
	dir := t.TempDir()
	ids := store.NewIdentityFileStore(dir)
	ctx := context.Background()

	if _, err := ids.Material(ctx); err != nil {
		t.Fatalf("material: %v", err)
	}

	bundleBytes := []byte("pkcs12-bundle-bytes")
	password := "super-secret-password"
	if err := ids.PersistClientTLSIdentity(ctx, bundleBytes, password, domaintypes.SHA256Hex("aa"+string(make([]byte, 62)))); err != nil {
		t.Fatalf("persist client tls: %v", err)
	}

	raw, err := readWholeFile(dir + "/identity.json")
	if err != nil {
		t.Fatalf("read identity file: %v", err)
	}
	if containsBytes(raw, bundleBytes) {
		t.Fatal("identity file must not contain the raw bundle bytes")
	}
	if containsBytes(raw, []byte(password)) {
		t.Fatal("identity file must not contain the plaintext password")
	}

	bundle, err := ids.ClientTLSIdentity(ctx)
	if err != nil {
		t.Fatalf("read back client tls: %v", err)
	}
	if bundle == nil || string(bundle.BundleBytes) != string(bundleBytes) || bundle.Password != password {
		t.Fatal("round-tripped client tls bundle mismatch")
	}
}

func TestIdentity_LegacyMigration(t *testing.T) {
	dir := t.TempDir()
	ids := store.NewIdentityFileStore(dir)
	ctx := context.Background()

	m, err := ids.Material(ctx)
	if err != nil {
		t.Fatalf("material: %v", err)
	}
	_ = m

	writeLegacyIdentity(t, dir, domaintypes.LegacyClientTLS{
		BundleB64:           "aGVsbG8=",
		Password:            "legacy-pass",
		PeerCertFingerprint: "bb" + domaintypes.SHA256Hex(make([]byte, 62)),
	})

	bundle, err := ids.ClientTLSIdentity(ctx)
	if err != nil {
		t.Fatalf("client tls after legacy migration: %v", err)
	}
	if bundle == nil || string(bundle.BundleBytes) != "hello" {
		t.Fatal("legacy bundle did not migrate correctly")
	}

	raw, err := readWholeFile(dir + "/identity.json")
	if err != nil {
		t.Fatalf("read identity file: %v", err)
	}
	if containsBytes(raw, []byte("legacy-pass")) {
		t.Fatal("legacy plaintext password must be cleared after migration")
	}
}
