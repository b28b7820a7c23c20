package errors_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/dkoca/meshkit/errors"
)

func TestAppError_Error(t *testing.T) {
	e := errors.NotFound("application", "billing")
	if e.HTTPStatus != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", e.HTTPStatus)
	}
	if e.Retryable {
		t.Fatal("not found must not be retryable")
	}
	if e.Details["resource"] != "application" {
		t.Fatalf("missing resource detail: %v", e.Details)
	}
}

func TestAppError_UnwrapCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	e := errors.ServiceUnavailable("registry").WithCause(cause)

	if e.Unwrap() != cause {
		t.Fatal("Unwrap did not return cause")
	}
	if !e.Retryable {
		t.Fatal("service unavailable should be retryable")
	}
}

func TestRetryableCodes(t *testing.T) {
	cases := []struct {
		code errors.ErrorCode
		want bool
	}{
		{errors.ErrCodeTimeout, true},
		{errors.ErrCodeNoInstances, true},
		{errors.ErrCodeUpstreamFailed, true},
		{errors.ErrCodeNoRoute, false},
		{errors.ErrCodeValidation, false},
		{errors.ErrCodeInternal, false},
	}
	for _, c := range cases {
		if got := errors.IsRetryableCode(c.code); got != c.want {
			t.Errorf("IsRetryableCode(%s) = %v, want %v", c.code, got, c.want)
		}
	}
}

func TestNoRoute(t *testing.T) {
	e := errors.NoRoute("/api/nope")
	if e.HTTPStatus != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", e.HTTPStatus)
	}
	if e.Details["path"] != "/api/nope" {
		t.Fatalf("missing path detail: %v", e.Details)
	}
}

func TestAsAppError(t *testing.T) {
	e := errors.RateLimited()
	wrapped := fmt.Errorf("handler: %w", e)

	got, ok := errors.AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AsAppError to unwrap")
	}
	if got.Code != errors.ErrCodeRateLimited {
		t.Fatalf("unexpected code %s", got.Code)
	}
	if !errors.IsAppError(wrapped) {
		t.Fatal("IsAppError should see through wrapping")
	}
}

func TestToResponse(t *testing.T) {
	resp := errors.NoInstances("billing").ToResponse()
	if resp.Error.Code != errors.ErrCodeNoInstances {
		t.Fatalf("unexpected code %s", resp.Error.Code)
	}
	if !resp.Error.Retryable {
		t.Fatal("expected retryable response")
	}
}
