package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestFetchErrorMessageNamesKey(t *testing.T) {
	err := NewFetchError("sdp-sandbox-github-audit-dashboard", "repositories.json", errors.New("connection refused"))

	if !strings.Contains(err.Error(), "repositories.json") {
		t.Errorf("fetch error should name the key, got: %s", err.Error())
	}
	if !strings.Contains(err.Error(), "sdp-sandbox-github-audit-dashboard") {
		t.Errorf("fetch error should name the bucket, got: %s", err.Error())
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("fetch error should carry the cause, got: %s", err.Error())
	}
}

func TestNewFetchErrorNil(t *testing.T) {
	if err := NewFetchError("bucket", "key", nil); err != nil {
		t.Errorf("expected nil for nil cause, got %v", err)
	}
}

func TestFetchErrorUnwrap(t *testing.T) {
	cause := ClassifyHTTPStatus(404)
	err := NewFetchError("bucket", "dependabot.json", cause)

	if !IsFetchError(err) {
		t.Error("expected IsFetchError to be true")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected wrapped ErrNotFound to be visible through the fetch error")
	}
	if IsTransient(err) {
		t.Error("a 404 fetch error must not be retryable")
	}
}

func TestClassifyHTTPStatus(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{400, false},
		{401, false},
		{403, false},
		{404, false},
		{422, false},
		{500, true},
		{502, true},
		{503, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := ClassifyHTTPStatus(tt.status)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := IsTransient(err); got != tt.transient {
				t.Errorf("IsTransient(%d) = %v, want %v", tt.status, got, tt.transient)
			}
		})
	}
}

func TestIsTransientSentinels(t *testing.T) {
	if !IsTransient(fmt.Errorf("fetch: %w", ErrTimeout)) {
		t.Error("timeouts should be transient")
	}
	if IsTransient(fmt.Errorf("fetch: %w", ErrInvalidInput)) {
		t.Error("invalid input should not be transient")
	}
	if IsTransient(errors.New("something unknown")) {
		t.Error("unknown errors should default to non-transient")
	}
	if IsTransient(nil) {
		t.Error("nil is not transient")
	}
}

func TestIsPermanent(t *testing.T) {
	if !IsPermanent(NewPermanentf("no such object")) {
		t.Error("expected permanent")
	}
	if IsPermanent(NewTransientf("flaky network")) {
		t.Error("transient errors are not permanent")
	}
	if IsPermanent(nil) {
		t.Error("nil is not permanent")
	}
}
