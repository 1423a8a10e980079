package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	dErrors "middleoffice/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("oid format error is a bad request", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeOidFormat, "ObjectId wrongly structure."))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["exception"] != "ObjectId exception : ObjectId wrongly structure." {
			t.Fatalf("unexpected exception %q", body["exception"])
		}
	})

	t.Run("wrapped not found keeps 404 and full message", func(t *testing.T) {
		inner := dErrors.New(dErrors.CodeDataNotFound, "No result.")
		w := httptest.NewRecorder()
		WriteError(w, dErrors.Wrap(inner, dErrors.CodeConnection, "Get policy failed: "+inner.Error()+"."))

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["exception"] != "Connection exception : Get policy failed: Data not found : No result.." {
			t.Fatalf("unexpected exception %q", body["exception"])
		}
	})

	t.Run("plain error is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("boom"))
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
	})
}

func TestWriteMessage(t *testing.T) {
	w := httptest.NewRecorder()
	WriteMessage(w, http.StatusUnauthorized, "no token provided")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
	var body struct {
		Body struct {
			Message string `json:"Message"`
		} `json:"body"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Body.Message != "no token provided" {
		t.Fatalf("unexpected message %q", body.Body.Message)
	}
}
