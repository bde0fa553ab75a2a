package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "creditgate/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits the message", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal" {
			t.Fatalf("expected error code internal, got %q", body["error"])
		}
		if _, ok := body["message"]; ok {
			t.Fatalf("expected message to be omitted for internal errors")
		}
	})

	t.Run("bad request includes the message", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid input"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "bad_request" {
			t.Fatalf("expected error code bad_request, got %q", body["error"])
		}
		if body["message"] != "invalid input" {
			t.Fatalf("expected message to be returned for bad request, got %q", body["message"])
		}
	})

	t.Run("unknown error maps to internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, http.ErrBodyNotAllowed)

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
	})
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeInvalidInput:       http.StatusBadRequest,
		dErrors.CodeValidation:         http.StatusBadRequest,
		dErrors.CodeBadRequest:         http.StatusBadRequest,
		dErrors.CodeUnauthorized:       http.StatusUnauthorized,
		dErrors.CodeForbidden:          http.StatusForbidden,
		dErrors.CodeNotFound:           http.StatusNotFound,
		dErrors.CodeConflict:           http.StatusConflict,
		dErrors.CodeInvariantViolation: http.StatusConflict,
		dErrors.CodeUnavailable:        http.StatusServiceUnavailable,
		dErrors.CodeInternal:           http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := ToHTTPStatus(code); got != want {
			t.Errorf("ToHTTPStatus(%s) = %d, want %d", code, got, want)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Kind string `json:"kind"`
	}

	t.Run("rejects unknown fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"kind":"document","extra":1}`))
		var p payload
		if err := DecodeJSON(req, &p); err == nil {
			t.Fatal("expected error for unknown field")
		}
	})

	t.Run("decodes a valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"kind":"document"}`))
		var p payload
		if err := DecodeJSON(req, &p); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if p.Kind != "document" {
			t.Fatalf("expected kind document, got %q", p.Kind)
		}
	})
}
