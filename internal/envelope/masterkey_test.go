package envelope

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"testing"
)

func TestParseMasterKey(t *testing.T) {
	raw := bytes.Repeat([]byte{0x42}, 32)
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"hex", hex.EncodeToString(raw), false},
		{"base64 prefixed", "base64:" + base64.StdEncoding.EncodeToString(raw), false},
		{"bare base64", base64.StdEncoding.EncodeToString(raw), false},
		{"raw 32-byte string", string(bytes.Repeat([]byte{'z'}, 32)), false},
		{"empty", "", true},
		{"too short hex", hex.EncodeToString(raw[:16]), true},
		{"garbage", "not-a-key-at-all", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ParseMasterKey(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMasterKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && len(key) != 32 {
				t.Errorf("key length = %d, want 32", len(key))
			}
		})
	}
}

func TestParseMasterKey_HexRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte{0x7}, 32)
	key, err := ParseMasterKey(hex.EncodeToString(raw))
	if err != nil {
		t.Fatalf("ParseMasterKey: %v", err)
	}
	if !bytes.Equal(key, raw) {
		t.Errorf("key = %x, want %x", key, raw)
	}
}
