package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "resource not found")
		if err.Error() != "[NOT_FOUND] resource not found" {
			t.Errorf("expected [NOT_FOUND] resource not found, got %s", err.Error())
		}
	})

	t.Run("Newf", func(t *testing.T) {
		err := Newf(CodeNotSupported, "file exceeds %d bytes", 10)
		if Message(err) != "file exceeds 10 bytes" {
			t.Errorf("unexpected message %q", Message(err))
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeInternal, "internal failure")
		expected := "[INTERNAL_ERROR] internal failure: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
		if !errors.Is(err, original) {
			t.Error("expected wrapped error to unwrap to the original")
		}
	})

	t.Run("ContextIsSortedInError", func(t *testing.T) {
		err := AddContext(New(CodeUpstream, "bad status"), CtxStatus, 404)
		err = AddContext(err, CtxRepo, "acme/web")
		expected := "[UPSTREAM_ERROR] bad status (repo=acme/web status=404)"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
		if Message(err) != "bad status" {
			t.Errorf("context must not leak into Message, got %q", Message(err))
		}
	})

	t.Run("AddContextThroughWrapping", func(t *testing.T) {
		inner := New(CodeNotFound, "file not found")
		outer := fmt.Errorf("fetch: %w", inner)
		got := AddContext(outer, CtxPath, "a.tsx")
		if got != outer {
			t.Error("expected the original chain to be returned")
		}
		var de *DomainError
		if !errors.As(got, &de) || de.Context[CtxPath] != "a.tsx" {
			t.Errorf("expected path context on inner error, got %v", de)
		}
	})

	t.Run("AddContextOnPlainError", func(t *testing.T) {
		plain := AddContext(errors.New("boom"), CtxPath, "a.tsx")
		if !IsCode(plain, CodeInternal) {
			t.Error("expected plain errors to be wrapped as internal")
		}
	})
}

func TestCodeOf(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorCode
	}{
		{New(CodeRateLimited, "slow down"), CodeRateLimited},
		{fmt.Errorf("outer: %w", New(CodeNotFound, "gone")), CodeNotFound},
		{errors.New("plain"), CodeInternal},
	}
	for _, tc := range cases {
		if got := CodeOf(tc.err); got != tc.want {
			t.Errorf("CodeOf(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
	if IsCode(errors.New("plain"), CodeInternal) {
		t.Error("IsCode should only match domain errors")
	}
}

func TestMessageAndStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{New(CodeValidationError, "repoUrl is required"), http.StatusBadRequest},
		{New(CodeNotFound, "history is disabled"), http.StatusNotFound},
		{New(CodeRateLimited, "slow down"), http.StatusTooManyRequests},
		{New(CodeNotSupported, "nope"), http.StatusNotImplemented},
		{New(CodeUpstream, "bad gateway"), http.StatusBadGateway},
		{New(CodeInternal, "oops"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.status {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.status)
		}
	}

	if got := Message(Wrap(errors.New("timeout"), CodeUpstream, "fetch tree")); got != "fetch tree: timeout" {
		t.Errorf("unexpected wrapped message %q", got)
	}
	if got := Message(errors.New("plain")); got != "plain" {
		t.Errorf("unexpected plain message %q", got)
	}
}
