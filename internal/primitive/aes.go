// Package primitive exposes pure, stateless byte-level cryptographic
// functions: AES-CBC, AES-GCM, RSA, ECDSA, ECDH, SHA-256 and a CSPRNG. No
// function here touches a KeyRecord or any persisted state — callers
// (internal/envelope, internal/engine) own key lifecycle and storage.
package primitive

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/shoalcreek/privacycore/internal/domain"
)

const blockSize = aes.BlockSize // 16

// AESCBCEncrypt PKCS#7-pads plaintext and encrypts it with AES-CBC. key must
// be 16 or 32 bytes, iv must be 16 bytes.
func AESCBCEncrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadKey, err)
	}
	if len(iv) != blockSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes", domain.ErrBadKey, blockSize)
	}
	padded := pkcs7Pad(plaintext, blockSize)
	ciphertext := make([]byte, len(padded))
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

// AESCBCDecrypt decrypts AES-CBC ciphertext and removes PKCS#7 padding.
func AESCBCDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadKey, err)
	}
	if len(iv) != blockSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes", domain.ErrBadKey, blockSize)
	}
	if len(ciphertext) == 0 || len(ciphertext)%blockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext not block aligned", domain.ErrBadPadding)
	}
	plaintext := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(plaintext, ciphertext)
	return pkcs7Unpad(plaintext, blockSize)
}

func pkcs7Pad(data []byte, size int) []byte {
	padLen := size - len(data)%size
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte, size int) ([]byte, error) {
	if len(data) == 0 || len(data)%size != 0 {
		return nil, fmt.Errorf("%w: invalid length", domain.ErrBadPadding)
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > size || padLen > len(data) {
		return nil, fmt.Errorf("%w: invalid pad length", domain.ErrBadPadding)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("%w: inconsistent pad bytes", domain.ErrBadPadding)
		}
	}
	return data[:len(data)-padLen], nil
}

// AESGCMEncrypt encrypts plaintext with AES-256-GCM. key must be 32 bytes.
func AESGCMEncrypt(key, nonce, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadKey, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadKey, err)
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("%w: nonce must be %d bytes", domain.ErrBadKey, gcm.NonceSize())
	}
	return gcm.Seal(nil, nonce, plaintext, nil), nil
}

// AESGCMDecrypt decrypts AES-256-GCM ciphertext.
func AESGCMDecrypt(key, nonce, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadKey, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadKey, err)
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("%w: nonce must be %d bytes", domain.ErrBadKey, gcm.NonceSize())
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadPadding, err)
	}
	return plaintext, nil
}

// GCMNonceSize is the standard AES-GCM nonce length used throughout.
const GCMNonceSize = 12
