package crypto_test

import (
	"bytes"
	"testing"

	"provinode/scan-core/internal/crypto"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	pub, scalar, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey: %v", err)
	}
	priv, err := crypto.PrivateKeyFromScalar(pub, scalar)
	if err != nil {
		t.Fatalf("PrivateKeyFromScalar: %v", err)
	}

	message := []byte("hello-hello")
	sig, err := crypto.Sign(priv, message)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(sig) != 64 {
		t.Fatalf("expected a 64-byte raw signature, got %d", len(sig))
	}
	if err := crypto.Verify(&priv.PublicKey, message, sig); err != nil {
		t.Fatalf("expected signature to verify, got %v", err)
	}
}

func TestVerify_RejectsTamperedMessage(t *testing.T) {
	pub, scalar, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey: %v", err)
	}
	priv, err := crypto.PrivateKeyFromScalar(pub, scalar)
	if err != nil {
		t.Fatalf("PrivateKeyFromScalar: %v", err)
	}
	sig, err := crypto.Sign(priv, []byte("original"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := crypto.Verify(&priv.PublicKey, []byte("tampered"), sig); err == nil {
		t.Fatal("expected verification to fail against a different message")
	}
}

func TestVerify_RejectsWrongLengthSignature(t *testing.T) {
	pub, scalar, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey: %v", err)
	}
	priv, err := crypto.PrivateKeyFromScalar(pub, scalar)
	if err != nil {
		t.Fatalf("PrivateKeyFromScalar: %v", err)
	}
	if err := crypto.Verify(&priv.PublicKey, []byte("m"), []byte("short")); err != crypto.ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestMarshalParsePublicX963_RoundTrip(t *testing.T) {
	pub, _, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey: %v", err)
	}
	parsed, err := crypto.ParsePublicX963(pub)
	if err != nil {
		t.Fatalf("ParsePublicX963: %v", err)
	}
	if got := crypto.MarshalPublicX963(parsed); !bytes.Equal(got, pub) {
		t.Fatal("expected marshal(parse(x)) == x")
	}
}

func TestParsePublicX963_RejectsMalformedPoint(t *testing.T) {
	if _, err := crypto.ParsePublicX963([]byte{0x01, 0x02, 0x03}); err == nil {
		t.Fatal("expected an error for a malformed x9.63 point")
	}
}

func TestSharedSecret_AgreesBetweenPeers(t *testing.T) {
	aPub, aPriv, err := crypto.GenerateEphemeral()
	if err != nil {
		t.Fatalf("GenerateEphemeral (a): %v", err)
	}
	bPub, bPriv, err := crypto.GenerateEphemeral()
	if err != nil {
		t.Fatalf("GenerateEphemeral (b): %v", err)
	}

	aSecret, err := crypto.SharedSecret(aPriv, bPub)
	if err != nil {
		t.Fatalf("SharedSecret (a): %v", err)
	}
	bSecret, err := crypto.SharedSecret(bPriv, aPub)
	if err != nil {
		t.Fatalf("SharedSecret (b): %v", err)
	}
	if !bytes.Equal(aSecret, bSecret) {
		t.Fatal("expected both peers to derive the same shared secret")
	}
}

func TestDeriveKeys_IsDeterministicForSameInputs(t *testing.T) {
	secret := bytes.Repeat([]byte{0x11}, 32)
	salt := bytes.Repeat([]byte{0x22}, 16)

	a, err := crypto.DeriveKeys(secret, salt)
	if err != nil {
		t.Fatalf("DeriveKeys: %v", err)
	}
	b, err := crypto.DeriveKeys(secret, salt)
	if err != nil {
		t.Fatalf("DeriveKeys: %v", err)
	}
	if a != b {
		t.Fatal("expected DeriveKeys to be deterministic for identical inputs")
	}
}

func TestDeriveWrapKey_DiffersPerDevice(t *testing.T) {
	scalar := bytes.Repeat([]byte{0x33}, 32)
	a, err := crypto.DeriveWrapKey(scalar, "device-a")
	if err != nil {
		t.Fatalf("DeriveWrapKey: %v", err)
	}
	b, err := crypto.DeriveWrapKey(scalar, "device-b")
	if err != nil {
		t.Fatalf("DeriveWrapKey: %v", err)
	}
	if a == b {
		t.Fatal("expected different device ids to derive different wrap keys")
	}
}

func TestSealOpen_RoundTrip(t *testing.T) {
	var key [32]byte
	var prefix [8]byte
	copy(key[:], bytes.Repeat([]byte{0x44}, 32))
	copy(prefix[:], []byte("abcdefgh"))

	ct, err := crypto.Seal(key, prefix, 7, []byte("aad"), []byte("plaintext"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	pt, err := crypto.Open(key, prefix, 7, []byte("aad"), ct)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(pt) != "plaintext" {
		t.Fatalf("expected round-tripped plaintext, got %q", pt)
	}
}

func TestOpen_RejectsWrongCounter(t *testing.T) {
	var key [32]byte
	var prefix [8]byte
	copy(key[:], bytes.Repeat([]byte{0x55}, 32))

	ct, err := crypto.Seal(key, prefix, 1, nil, []byte("plaintext"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := crypto.Open(key, prefix, 2, nil, ct); err == nil {
		t.Fatal("expected Open with the wrong counter to fail authentication")
	}
}

func TestSealRandomOpenRandom_RoundTrip(t *testing.T) {
	var key [32]byte
	copy(key[:], bytes.Repeat([]byte{0x66}, 32))

	blob, err := crypto.SealRandom(key, []byte("aad"), []byte("secret bundle"))
	if err != nil {
		t.Fatalf("SealRandom: %v", err)
	}
	pt, err := crypto.OpenRandom(key, []byte("aad"), blob)
	if err != nil {
		t.Fatalf("OpenRandom: %v", err)
	}
	if string(pt) != "secret bundle" {
		t.Fatalf("expected round-tripped plaintext, got %q", pt)
	}
}

func TestFingerprintFull_Is64LowercaseHexChars(t *testing.T) {
	pub, _, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey: %v", err)
	}
	fp := crypto.FingerprintFull(pub)
	if len(fp) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(fp))
	}
	for _, c := range fp {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			t.Fatalf("expected lowercase hex, got %q", fp)
		}
	}
}

func TestB64DecodeB64_RoundTrip(t *testing.T) {
	want := []byte("round-trip-me")
	got, err := crypto.DecodeB64(crypto.B64(want))
	if err != nil {
		t.Fatalf("DecodeB64: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("expected round-tripped bytes, got %q", got)
	}
}

func TestOpenRandom_RejectsTooShortBlob(t *testing.T) {
	var key [32]byte
	copy(key[:], bytes.Repeat([]byte{0x77}, 32))
	if _, err := crypto.OpenRandom(key, nil, []byte("x")); err == nil {
		t.Fatal("expected an error for a blob shorter than the nonce size")
	}
}
