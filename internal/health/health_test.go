package health

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandler_MasterKeyGenerated(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	Handler(true, nil).ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Errorf("code = %d, want 200 (generated key is a warning, not a failure)", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "generated_ephemeral") {
		t.Errorf("body = %q, want it to mention generated_ephemeral", rec.Body.String())
	}
}

func TestHandler_StoreFailureIsDegraded(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	Handler(false, func() error { return errors.New("disk full") }).ServeHTTP(rec, req)
	if rec.Code != 503 {
		t.Errorf("code = %d, want 503", rec.Code)
	}
}

func TestReadiness_NilCheckerIsReady(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ready", nil)
	NewReadiness(nil).ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Errorf("code = %d, want 200", rec.Code)
	}
}

func TestReadiness_FailingCheckerIsNotReady(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ready", nil)
	NewReadiness(func() error { return errors.New("unreachable") }).ServeHTTP(rec, req)
	if rec.Code != 503 {
		t.Errorf("code = %d, want 503", rec.Code)
	}
}
