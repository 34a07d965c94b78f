package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAsFindsWrappedError(t *testing.T) {
	base := errors.New("generation 9 not found")
	wrapped := fmt.Errorf("handler: %w", NotFound("generation_not_found", base))

	ae, ok := As(wrapped)
	if !ok {
		t.Fatalf("expected *Error in chain")
	}
	if ae.Status != http.StatusNotFound || ae.Code != "generation_not_found" {
		t.Fatalf("unexpected error: status=%d code=%q", ae.Status, ae.Code)
	}
	if !errors.Is(wrapped, base) {
		t.Fatalf("expected base error to stay reachable")
	}
}

func TestErrorMessageFallbacks(t *testing.T) {
	if got := New(http.StatusConflict, "generation_busy", nil).Error(); got != "generation_busy" {
		t.Fatalf("code fallback: got=%q", got)
	}
	if got := New(http.StatusTeapot, "", nil).Error(); got != "api error (418)" {
		t.Fatalf("status fallback: got=%q", got)
	}
	if _, ok := As(errors.New("plain")); ok {
		t.Fatalf("plain error should not convert")
	}
}
