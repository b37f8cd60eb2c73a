package scanerr_test

import (
	"errors"
	"testing"

	"provinode/scan-core/internal/scanerr"
)

func TestErrorsIs_MatchesSameKindSentinel(t *testing.T) {
	err := scanerr.Newf(scanerr.KindExpired, "pairing_confirm rejected")
	if !errors.Is(err, scanerr.Sentinel(scanerr.KindExpired)) {
		t.Fatal("expected errors.Is to match the same Kind sentinel")
	}
	if errors.Is(err, scanerr.Sentinel(scanerr.KindInvalidCode)) {
		t.Fatal("expected errors.Is to reject a different Kind sentinel")
	}
}

func TestErrorsIs_QrMalformedRequiresMatchingReason(t *testing.T) {
	err := scanerr.QrMalformed(scanerr.ReasonExpired, errors.New("expires_at_utc in the past"))
	if !errors.Is(err, scanerr.SentinelReason(scanerr.ReasonExpired)) {
		t.Fatal("expected matching reason to satisfy errors.Is")
	}
	if errors.Is(err, scanerr.SentinelReason(scanerr.ReasonSchemeNotHTTPS)) {
		t.Fatal("expected a different reason to not satisfy errors.Is")
	}
}

func TestErrorsAs_UnwrapsToUnderlyingCause(t *testing.T) {
	cause := errors.New("disk full")
	err := scanerr.New(scanerr.KindRecorderIoFailure, cause)

	var se *scanerr.Error
	if !errors.As(err, &se) {
		t.Fatal("expected errors.As to find the *scanerr.Error")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to walk through Unwrap to the cause")
	}
}

func TestError_MessageIncludesReasonWhenSet(t *testing.T) {
	err := scanerr.QrMalformed(scanerr.ReasonUnsupportedVersion, errors.New(`protocol_version "2.0"`))
	got := err.Error()
	if got == "" {
		t.Fatal("expected a non-empty error message")
	}
	var se *scanerr.Error
	if !errors.As(err, &se) || se.Reason != scanerr.ReasonUnsupportedVersion {
		t.Fatalf("expected reason %q on the error, got %+v", scanerr.ReasonUnsupportedVersion, se)
	}
}
