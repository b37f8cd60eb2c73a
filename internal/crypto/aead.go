package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
)

// ErrReplayedCounter describes a nonce counter that is not strictly
// greater than the last accepted counter for this key. Open does not
// return it; the counter check is left to callers.
var ErrReplayedCounter = errors.New("crypto: replayed or out-of-order counter")

// BuildNonce constructs the 12-byte AEAD nonce as prefix(8) ||
// counter_be_u32(4).
func BuildNonce(prefix [8]byte, counter uint32) [12]byte {
	var nonce [12]byte
	copy(nonce[:8], prefix[:])
	binary.BigEndian.PutUint32(nonce[8:], counter)
	return nonce
}

// Seal encrypts plaintext with AES-256-GCM under key, using the nonce
// built from prefix and counter, and authenticates additionalData.
func Seal(key [32]byte, prefix [8]byte, counter uint32, additionalData, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := BuildNonce(prefix, counter)
	return gcm.Seal(nil, nonce[:], plaintext, additionalData), nil
}

// Open decrypts and authenticates an AES-256-GCM ciphertext produced by
// Seal. Callers are responsible for the strictly-increasing counter check
// (see ErrReplayedCounter); Open itself only verifies the AEAD tag.
func Open(key [32]byte, prefix [8]byte, counter uint32, additionalData, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := BuildNonce(prefix, counter)
	return gcm.Open(nil, nonce[:], ciphertext, additionalData)
}

// SealRandom encrypts plaintext with AES-256-GCM under key using a fresh
// random 12-byte nonce, prepended to the returned ciphertext. It is used
// for one-shot, at-rest blob encryption (identity and trust stores)
// rather than the counter-based streaming nonces used by the secure
// channel.
func SealRandom(key [32]byte, additionalData, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	ct := gcm.Seal(nil, nonce, plaintext, additionalData)
	return append(nonce, ct...), nil
}

// OpenRandom decrypts a blob produced by SealRandom.
func OpenRandom(key [32]byte, additionalData, blob []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(blob) < gcm.NonceSize() {
		return nil, errors.New("crypto: sealed blob too short")
	}
	nonce, ct := blob[:gcm.NonceSize()], blob[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ct, additionalData)
}
