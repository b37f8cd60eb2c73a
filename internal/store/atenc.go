package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	scancrypto "provinode/scan-core/internal/crypto"
)

// sealedFormatVersion is the current envelope version for the identity
// store's sealed client mTLS bundle. The trust store uses its own
// format-tagged document instead of this envelope.
const sealedFormatVersion = 1

// sealedBlob is the on-disk JSON envelope wrapping an AES-256-GCM sealed
// payload. additionalData binds the ciphertext to a format tag so a blob
// from one store cannot be replayed into another.
type sealedBlob struct {
	V      int    `json:"v"`
	Cipher string `json:"cipher_b64"`
}

// sealJSON marshals v to JSON, seals it under key with formatTag as
// additional authenticated data, and returns the sealedBlob envelope
// bytes ready to write to disk.
func sealJSON(key [32]byte, formatTag string, v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	ct, err := scancrypto.SealRandom(key, []byte(formatTag), raw)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(sealedBlob{
		V:      sealedFormatVersion,
		Cipher: base64.StdEncoding.EncodeToString(ct),
	}, "", "  ")
}

// openJSON reverses sealJSON, unmarshaling the decrypted payload into out.
func openJSON(key [32]byte, formatTag string, envelope []byte, out any) error {
	var sb sealedBlob
	if err := json.Unmarshal(envelope, &sb); err != nil {
		return err
	}
	if sb.V > sealedFormatVersion {
		return fmt.Errorf("store: unsupported sealed blob version %d", sb.V)
	}
	ct, err := base64.StdEncoding.DecodeString(sb.Cipher)
	if err != nil {
		return err
	}
	pt, err := scancrypto.OpenRandom(key, []byte(formatTag), ct)
	if err != nil {
		return err
	}
	return json.Unmarshal(pt, out)
}
