package commonerrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestWithCause_KeepsIdentityAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := ErrStoreUnavailable.WithCause(cause)

	if !errors.Is(err, ErrStoreUnavailable) {
		t.Error("expected errors.Is to match the catalog error")
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
	if errors.Is(err, ErrAccountNotFound) {
		t.Error("did not expect a match on a different code")
	}
	if err.Error() != "store temporarily unavailable: connection reset" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestIsTransient(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"duplicate", ErrDuplicateAccount, false},
		{"not found", ErrAccountNotFound, false},
		{"notification", ErrNotificationDelivery.WithCause(errors.New("smtp down")), false},
		{"store", ErrStoreUnavailable, true},
		{"circuit", ErrCircuitOpen, true},
		{"wrapped store", fmt.Errorf("insert: %w", ErrStoreUnavailable), true},
		{"unclassified", errors.New("boom"), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
