package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		kind Kind
	}{
		{NotFound("loan not found"), KindNotFound},
		{Conflict("patrimony unit is not available"), KindConflict},
		{Forbidden("admin only"), KindForbidden},
		{Unauthorized("invalid credentials"), KindUnauthorized},
		{InvalidArgument("missing id"), KindInvalidArgument},
		{Internal("query failed", errors.New("boom")), KindInternal},
	}
	for _, tc := range cases {
		var de *Error
		if !errors.As(tc.err, &de) {
			t.Fatalf("errors.As failed for %v", tc.err)
		}
		if de.Kind != tc.kind {
			t.Fatalf("kind mismatch for %q: got %v want %v", de.Msg, de.Kind, tc.kind)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	err := NotFound("person not found")
	if err.Error() != "person not found" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestInternalWrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("list items", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to survive errors.Is")
	}
	wrapped := fmt.Errorf("outer: %w", err)
	var de *Error
	if !errors.As(wrapped, &de) || de.Kind != KindInternal {
		t.Fatalf("expected internal kind through wrapping, got %+v", de)
	}
}
