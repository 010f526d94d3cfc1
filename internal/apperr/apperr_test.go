package apperr

import (
	"errors"
	"testing"
)

func TestNewAndError(t *testing.T) {
	err := New(KindNotFound, "bot not found")
	if err.Error() != "NotFound: bot not found" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWrapIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindInternal, "failed to reach postgres", cause)
	if err.Unwrap() != cause {
		t.Fatalf("expected Unwrap to return the wrapped cause")
	}
	want := "Internal: failed to reach postgres: connection refused"
	if err.Error() != want {
		t.Fatalf("unexpected error string: got %q want %q", err.Error(), want)
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := New(KindExpired, "widget token expired")
	if !Is(err, KindExpired) {
		t.Fatalf("expected Is to match KindExpired")
	}
	if Is(err, KindForbidden) {
		t.Fatalf("expected Is to reject a mismatched kind")
	}
}

func TestIsFalseForPlainError(t *testing.T) {
	if Is(errors.New("plain"), KindInternal) {
		t.Fatalf("expected Is to reject a non-AppError")
	}
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Fatalf("expected KindInternal for a plain error, got %s", got)
	}
	if got := KindOf(New(KindConflict, "duplicate")); got != KindConflict {
		t.Fatalf("expected KindConflict, got %s", got)
	}
}

func TestHTTPStatusCoversEveryKind(t *testing.T) {
	kinds := []Kind{
		KindValidationFailed, KindUnauthorized, KindForbidden, KindNotFound,
		KindConflict, KindPayloadTooLarge, KindUnsupportedFormat, KindCorruptInput,
		KindEmptyContent, KindRobotsDenied, KindInsufficientContent, KindEmbeddingFailed,
		KindContextOverflow, KindProviderUnavailable, KindProviderRejected, KindRateLimited,
		KindDomainNotAllowed, KindExpired, KindCancelled, KindInternal,
	}
	for _, k := range kinds {
		if status := HTTPStatus(k); status < 400 || status >= 600 {
			t.Fatalf("kind %s mapped to implausible status %d", k, status)
		}
	}
}

func TestHTTPStatusUnknownKindDefaultsTo500(t *testing.T) {
	if got := HTTPStatus(Kind("SomethingNew")); got != 500 {
		t.Fatalf("expected 500 for an unmapped kind, got %d", got)
	}
}
