// Package crypto exposes the minimal primitives used by scan-core.
//
// Contents
//
//   - P-256 signing key generation, X9.63-uncompressed encoding and
//     ECDSA sign/verify (GenerateSigningKey, MarshalPublicX963,
//     ParsePublicX963, Sign, Verify)
//   - P-256 ephemeral ECDH key agreement (GenerateEphemeral, SharedSecret)
//   - HKDF-SHA256 key derivation (DeriveKeys)
//   - AES-256-GCM sealing, both counter-based (Seal, Open, BuildNonce) and
//     random-nonce one-shot (SealRandom, OpenRandom) for at-rest blobs
//   - SHA-256 device/certificate fingerprints (FingerprintFull)
//
// # Notes
//
// Callers should treat returned secrets as sensitive; see
// internal/util/memzero for wiping key material out of memory once done.
package crypto
