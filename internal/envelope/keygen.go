package envelope

import (
	"encoding/hex"

	"github.com/shoalcreek/privacycore/internal/primitive"
)

// GenerateMasterKeyHex produces a fresh random 32-byte master key encoded
// as hex, for operators provisioning a new deployment (cmd/cli keygen).
func GenerateMasterKeyHex() (string, error) {
	b, err := primitive.RandomBytes(masterKeySize)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
