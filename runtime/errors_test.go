package runtime

import (
	"errors"
	"fmt"
	"testing"
)

func TestHostErrorMessageFixed(t *testing.T) {
	storageCause := errors.New("leveldb: file descriptor exhausted")
	validatorCause := fmt.Errorf("epoch 12: %w", errors.New("snapshot missing"))

	storageErr := newHostError(FaultStorage, storageCause)
	validatorErr := newHostError(FaultValidator, validatorCause)

	if storageErr.Error() != validatorErr.Error() {
		t.Fatalf("boundary messages differ: %q vs %q", storageErr.Error(), validatorErr.Error())
	}
	if got := storageErr.Error(); got != "contract host operation failed" {
		t.Fatalf("unexpected boundary message %q", got)
	}
}

func TestHostErrorDoesNotUnwrap(t *testing.T) {
	cause := errors.New("internal failure detail")
	err := error(newHostError(FaultStorage, cause))

	if errors.Is(err, cause) {
		t.Fatal("errors.Is reached the internal cause through the boundary error")
	}
	if unwrapped := errors.Unwrap(err); unwrapped != nil {
		t.Fatalf("boundary error unwrapped to %v", unwrapped)
	}
}

func TestHostErrorHostSideDiagnostics(t *testing.T) {
	cause := errors.New("detail")
	err := error(newHostError(FaultValidator, cause))

	var hostErr *HostError
	if !errors.As(err, &hostErr) {
		t.Fatal("errors.As failed to recover *HostError")
	}
	if hostErr.Kind() != FaultValidator {
		t.Fatalf("kind = %v, want %v", hostErr.Kind(), FaultValidator)
	}
	if !errors.Is(hostErr.Internal(), cause) {
		t.Fatal("Internal() lost the original cause")
	}
}

func TestFaultKindString(t *testing.T) {
	cases := []struct {
		kind FaultKind
		want string
	}{
		{FaultStorage, "storage"},
		{FaultValidator, "validator"},
		{FaultKind(0), "unknown"},
		{FaultKind(250), "unknown"},
	}
	for _, tc := range cases {
		if got := tc.kind.String(); got != tc.want {
			t.Errorf("FaultKind(%d).String() = %q, want %q", tc.kind, got, tc.want)
		}
	}
}
