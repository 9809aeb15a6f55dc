package envelope

import (
	"bytes"
	"testing"
)

func testWrapper(t *testing.T) *Wrapper {
	t.Helper()
	w, err := NewWrapper(bytes.Repeat([]byte{0x11}, 32))
	if err != nil {
		t.Fatalf("NewWrapper: %v", err)
	}
	return w
}

func TestWrapper_WrapUnwrap_RoundTrip(t *testing.T) {
	w := testWrapper(t)
	payload := []byte(`{"key":"dGVzdA=="}`)
	ciphertext, iv, err := w.Wrap(payload)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if len(iv) != 16 {
		t.Fatalf("iv length = %d, want 16", len(iv))
	}
	got, err := w.Unwrap(ciphertext, iv)
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Unwrap() = %q, want %q", got, payload)
	}
}

func TestWrapper_Unwrap_WrongMasterKey(t *testing.T) {
	w1 := testWrapper(t)
	w2, err := NewWrapper(bytes.Repeat([]byte{0x22}, 32))
	if err != nil {
		t.Fatalf("NewWrapper: %v", err)
	}
	ciphertext, iv, err := w1.Wrap([]byte("secret material"))
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if _, err := w2.Unwrap(ciphertext, iv); err == nil {
		t.Error("expected error unwrapping with the wrong master key")
	}
}

func TestNewWrapper_BadKeySize(t *testing.T) {
	if _, err := NewWrapper(make([]byte, 16)); err == nil {
		t.Error("expected error for non-32-byte master key")
	}
}
