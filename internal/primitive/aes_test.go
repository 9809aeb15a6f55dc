package primitive

import (
	"bytes"
	"testing"
)

func TestAESCBCEncryptDecrypt_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		key  []byte
		pt   []byte
	}{
		{"aes-128 short", make([]byte, 16), []byte("hello")},
		{"aes-256 short", make([]byte, 32), []byte("hello world")},
		{"aes-128 exact block", make([]byte, 16), make([]byte, 16)},
		{"aes-256 empty", make([]byte, 32), []byte{}},
		{"aes-256 long", make([]byte, 32), bytes.Repeat([]byte("x"), 1000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iv, err := RandomBytes(blockSize)
			if err != nil {
				t.Fatalf("RandomBytes: %v", err)
			}
			ct, err := AESCBCEncrypt(tt.key, iv, tt.pt)
			if err != nil {
				t.Fatalf("AESCBCEncrypt: %v", err)
			}
			if len(ct)%blockSize != 0 {
				t.Fatalf("ciphertext length %d not block aligned", len(ct))
			}
			pt, err := AESCBCDecrypt(tt.key, iv, ct)
			if err != nil {
				t.Fatalf("AESCBCDecrypt: %v", err)
			}
			if !bytes.Equal(pt, tt.pt) {
				t.Errorf("round trip = %q, want %q", pt, tt.pt)
			}
		})
	}
}

func TestAESCBCEncrypt_BadKey(t *testing.T) {
	iv := make([]byte, blockSize)
	_, err := AESCBCEncrypt(make([]byte, 15), iv, []byte("x"))
	if err == nil {
		t.Error("expected error for bad key size")
	}
}

func TestAESCBCEncrypt_BadIV(t *testing.T) {
	_, err := AESCBCEncrypt(make([]byte, 16), make([]byte, 8), []byte("x"))
	if err == nil {
		t.Error("expected error for bad iv size")
	}
}

func TestAESCBCDecrypt_TamperedPadding(t *testing.T) {
	key := make([]byte, 16)
	iv := make([]byte, blockSize)
	ct, err := AESCBCEncrypt(key, iv, []byte("hello"))
	if err != nil {
		t.Fatalf("AESCBCEncrypt: %v", err)
	}
	ct[len(ct)-1] ^= 0xFF
	if _, err := AESCBCDecrypt(key, iv, ct); err == nil {
		t.Error("expected error decrypting tampered ciphertext")
	}
}

func TestAESCBCDecrypt_NotBlockAligned(t *testing.T) {
	key := make([]byte, 16)
	iv := make([]byte, blockSize)
	_, err := AESCBCDecrypt(key, iv, []byte("not-16-bytes"))
	if err == nil {
		t.Error("expected error for misaligned ciphertext")
	}
}

func TestAESGCMEncryptDecrypt_RoundTrip(t *testing.T) {
	key := make([]byte, 32)
	nonce, err := RandomBytes(GCMNonceSize)
	if err != nil {
		t.Fatalf("RandomBytes: %v", err)
	}
	pt := []byte("authenticated data")
	ct, err := AESGCMEncrypt(key, nonce, pt)
	if err != nil {
		t.Fatalf("AESGCMEncrypt: %v", err)
	}
	got, err := AESGCMDecrypt(key, nonce, ct)
	if err != nil {
		t.Fatalf("AESGCMDecrypt: %v", err)
	}
	if !bytes.Equal(got, pt) {
		t.Errorf("round trip = %q, want %q", got, pt)
	}
}

func TestAESGCMDecrypt_TamperedCiphertext(t *testing.T) {
	key := make([]byte, 32)
	nonce := make([]byte, GCMNonceSize)
	ct, err := AESGCMEncrypt(key, nonce, []byte("data"))
	if err != nil {
		t.Fatalf("AESGCMEncrypt: %v", err)
	}
	ct[0] ^= 0xFF
	if _, err := AESGCMDecrypt(key, nonce, ct); err == nil {
		t.Error("expected error decrypting tampered ciphertext")
	}
}

func TestAESGCMEncrypt_BadNonceSize(t *testing.T) {
	_, err := AESGCMEncrypt(make([]byte, 32), make([]byte, 4), []byte("x"))
	if err == nil {
		t.Error("expected error for bad nonce size")
	}
}
