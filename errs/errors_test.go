package errs

import (
	"errors"
	"testing"
)

func TestNewAndIs(t *testing.T) {
	err := New(ValidationError, "bad field")
	if !Is(err, ValidationError) {
		t.Error("Is should recognize the Kind it was constructed with")
	}
	if Is(err, IndexingError) {
		t.Error("Is should not match a different Kind")
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("disk exploded")
	err := Wrap(BackendError, "write failed", cause)
	if !errors.Is(err, cause) {
		t.Error("Wrap should preserve the cause for errors.Is/Unwrap")
	}
}

func TestLiftBackendErrorNilPassthrough(t *testing.T) {
	if LiftBackendError(nil) != nil {
		t.Error("LiftBackendError(nil) must return a literal nil, not a non-nil *Error")
	}
}

func TestLiftBackendErrorClassification(t *testing.T) {
	cases := map[string]Kind{
		"map is closed":       StoreAlreadyClosed,
		"key not found":       StoreNotInitialized,
		"entry was deleted":   StoreNotInitialized,
		"page data corrupt":   FileCorrupted,
		"permission denied":   PermissionDenied,
		"disk is full":        DiskFull,
		"something else went": BackendError,
	}
	for msg, want := range cases {
		got := LiftBackendError(errors.New(msg))
		if got.Kind != want {
			t.Errorf("LiftBackendError(%q).Kind = %v, want %v", msg, got.Kind, want)
		}
	}
}
