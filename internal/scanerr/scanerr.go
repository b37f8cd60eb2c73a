// Package scanerr defines the error taxonomy shared across scan-core: a
// fixed set of Kinds so callers can branch on failure category with
// errors.As instead of parsing message text.
package scanerr

import "fmt"

// Kind classifies a scan-core error into one of the fixed taxonomy
// categories used by pairing, the secure channel, the recorder and the
// identity/trust stores.
type Kind string

const (
	KindInvalidCode               Kind = "invalid_code"
	KindExpired                   Kind = "expired"
	KindLockedOut                 Kind = "locked_out"
	KindServerRejected            Kind = "server_rejected"
	KindUntrustedEndpoint         Kind = "untrusted_endpoint"
	KindQrMalformed               Kind = "qr_malformed"
	KindIdentityCorrupt           Kind = "identity_corrupt"
	KindLegacyMigrationIncomplete Kind = "legacy_migration_incomplete"
	KindTrustStoreCorrupt         Kind = "trust_store_corrupt"
	KindHandshakeMismatch         Kind = "handshake_mismatch"
	KindReplayRejected            Kind = "replay_rejected"
	KindAeadFailure               Kind = "aead_failure"
	KindCounterExhausted          Kind = "counter_exhausted"
	KindPayloadHashMismatch       Kind = "payload_hash_mismatch"
	KindTransportClosed           Kind = "transport_closed"
	KindRecorderIoFailure         Kind = "recorder_io_failure"
)

// Reason is a sub-kind of KindQrMalformed, describing precisely which
// validation step failed.
type Reason string

const (
	ReasonNotJSON             Reason = "not_json"
	ReasonExpired             Reason = "expired"
	ReasonSchemeNotHTTPS      Reason = "scheme_not_https"
	ReasonUnsupportedVersion  Reason = "unsupported_version"
	ReasonFingerprintInvalid  Reason = "fingerprint_invalid"
	ReasonSignatureInvalid    Reason = "signature_invalid"
	ReasonFieldMissing        Reason = "field_missing"
	ReasonPortInvalid         Reason = "port_invalid"
)

// Error is a scan-core error carrying a taxonomy Kind and, for
// KindQrMalformed, a Reason. It wraps an underlying error so
// errors.Is/errors.As can walk the full chain.
type Error struct {
	Kind   Kind
	Reason Reason // only meaningful when Kind == KindQrMalformed
	Err    error
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s(%s): %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap allows errors.Is and errors.As to walk through Error to the
// wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind wrapping err.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Newf builds an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// QrMalformed builds a KindQrMalformed error carrying reason.
func QrMalformed(reason Reason, err error) *Error {
	return &Error{Kind: KindQrMalformed, Reason: reason, Err: err}
}

// Is reports whether target is an *Error with the same Kind, so callers
// can write errors.Is(err, scanerr.Sentinel(scanerr.KindExpired)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Reason != "" {
		return e.Kind == t.Kind && e.Reason == t.Reason
	}
	return e.Kind == t.Kind
}

// Sentinel returns a comparable *Error of the given kind, for use with
// errors.Is(err, scanerr.Sentinel(scanerr.KindExpired)).
func Sentinel(kind Kind) *Error { return &Error{Kind: kind} }

// SentinelReason returns a comparable *Error for a QrMalformed reason.
func SentinelReason(reason Reason) *Error {
	return &Error{Kind: KindQrMalformed, Reason: reason}
}
