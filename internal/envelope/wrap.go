package envelope

import (
	"fmt"

	"github.com/shoalcreek/privacycore/internal/domain"
	"github.com/shoalcreek/privacycore/internal/primitive"
)

// Wrapper wraps and unwraps key material under a fixed 32-byte master key
// using AES-256-CBC, the same symmetric path internal/engine uses for
// AES-CBC data encryption. The master key never leaves this type.
type Wrapper struct {
	masterKey []byte
}

// NewWrapper constructs a Wrapper from an already-parsed 32-byte master
// key. Use ParseMasterKey to obtain one from a configuration value.
func NewWrapper(masterKey []byte) (*Wrapper, error) {
	if len(masterKey) != masterKeySize {
		return nil, fmt.Errorf("%w: master key must be %d bytes", domain.ErrBadKey, masterKeySize)
	}
	return &Wrapper{masterKey: masterKey}, nil
}

// Wrap encrypts payload (the JSON-marshaled AESPayload or
// AsymmetricPayload for a key's material) under the master key, returning
// the ciphertext and the IV used.
func (w *Wrapper) Wrap(payload []byte) (ciphertext, iv []byte, err error) {
	iv, err = primitive.RandomBytes(16)
	if err != nil {
		return nil, nil, err
	}
	ciphertext, err = primitive.AESCBCEncrypt(w.masterKey, iv, payload)
	if err != nil {
		return nil, nil, err
	}
	return ciphertext, iv, nil
}

// Unwrap decrypts wrapped key material back to its plaintext payload form.
func (w *Wrapper) Unwrap(ciphertext, iv []byte) ([]byte, error) {
	return primitive.AESCBCDecrypt(w.masterKey, iv, ciphertext)
}
