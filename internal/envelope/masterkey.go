// Package envelope wraps and unwraps key material under the service's
// master key. Besides internal/primitive, internal/registry (which hands
// the unwrapped material on) and internal/engine, it is the only package
// that ever sees an unwrapped KeyRecord's cryptographic material.
package envelope

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/shoalcreek/privacycore/internal/domain"
	"github.com/shoalcreek/privacycore/internal/primitive"
)

const masterKeySize = 32

// ParseMasterKey decodes a configured master key value into 32 raw bytes.
// It accepts a "base64:" prefixed value, bare hex, bare base64, or a raw
// 32-byte string, in that order of preference. ParseMasterKey itself never
// falls back to a generated key: an empty or malformed value is an error.
// Generation for an unconfigured key happens only in ResolveMasterKey.
func ParseMasterKey(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("%w: master key is required", domain.ErrConfigMissing)
	}

	if rest, ok := strings.CutPrefix(value, "base64:"); ok {
		decoded, err := base64.StdEncoding.DecodeString(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid base64 master key", domain.ErrConfigMissing)
		}
		return requireSize(decoded)
	}

	if isHex(value) {
		decoded, err := hex.DecodeString(value)
		if err == nil {
			return requireSize(decoded)
		}
	}

	if looksBase64(value) {
		decoded, err := base64.StdEncoding.DecodeString(value)
		if err == nil && len(decoded) == masterKeySize {
			return decoded, nil
		}
	}

	if len(value) == masterKeySize {
		return []byte(value), nil
	}

	return nil, fmt.Errorf("%w: master key must decode to %d bytes", domain.ErrConfigMissing, masterKeySize)
}

// ResolveMasterKey parses a configured master key value, or generates a
// fresh random one when value is empty — matching the documented
// configuration default of generating rather than refusing to start.
// Operators relying on generation lose the ability to decrypt any
// ciphertext from a prior run, since the key never persists anywhere but
// the returned bytes; generated reports whether that happened, so a
// caller can log a loud warning.
func ResolveMasterKey(value string) (key []byte, generated bool, err error) {
	if strings.TrimSpace(value) == "" {
		key, err = primitive.RandomBytes(masterKeySize)
		return key, true, err
	}
	key, err = ParseMasterKey(value)
	return key, false, err
}

func requireSize(decoded []byte) ([]byte, error) {
	if len(decoded) != masterKeySize {
		return nil, fmt.Errorf("%w: master key must be %d bytes, got %d", domain.ErrConfigMissing, masterKeySize, len(decoded))
	}
	return decoded, nil
}

func isHex(value string) bool {
	if len(value)%2 != 0 || len(value) == 0 {
		return false
	}
	for _, r := range value {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') && (r < 'A' || r > 'F') {
			return false
		}
	}
	return true
}

func looksBase64(value string) bool {
	for _, r := range value {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '+', r == '/', r == '=':
			continue
		}
		return false
	}
	return len(value) >= 44
}
