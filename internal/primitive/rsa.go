package primitive

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/shoalcreek/privacycore/internal/domain"
)

// RSAKeySize is the modulus size (bits) for the RSA-2048 algorithm.
const RSAKeySize = 2048

// GenerateRSA2048 generates a new RSA-2048 key pair, returning the private
// key as PKCS#8 PEM and the public key as SPKI PEM.
func GenerateRSA2048() (privPEM, pubPEM []byte, err error) {
	priv, err := rsa.GenerateKey(rand.Reader, RSAKeySize)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrRngFailure, err)
	}
	privBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrBadKey, err)
	}
	pubBytes, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrBadKey, err)
	}
	privPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privBytes})
	pubPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	return privPEM, pubPEM, nil
}

// RSAEncrypt encrypts plaintext with PKCS#1 v1.5 padding under the given
// SPKI PEM public key. Input length is bounded by the modulus size.
func RSAEncrypt(publicKeyPEM, plaintext []byte) ([]byte, error) {
	pub, err := parseRSAPublicKey(publicKeyPEM)
	if err != nil {
		return nil, err
	}
	maxLen := pub.Size() - 11
	if len(plaintext) > maxLen {
		return nil, domain.ErrInputTooLarge
	}
	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, pub, plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRngFailure, err)
	}
	return ciphertext, nil
}

// RSADecrypt decrypts PKCS#1 v1.5 ciphertext under the given PKCS#8 PEM
// private key.
func RSADecrypt(privateKeyPEM, ciphertext []byte) ([]byte, error) {
	priv, err := parseRSAPrivateKey(privateKeyPEM)
	if err != nil {
		return nil, err
	}
	plaintext, err := rsa.DecryptPKCS1v15(rand.Reader, priv, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadPadding, err)
	}
	return plaintext, nil
}

// RSASign signs a SHA-256 digest with the private key (PKCS#1 v1.5).
func RSASign(privateKeyPEM, digest []byte) ([]byte, error) {
	if len(digest) != sha256.Size {
		return nil, fmt.Errorf("%w: digest must be 32 bytes", domain.ErrBadSignature)
	}
	priv, err := parseRSAPrivateKey(privateKeyPEM)
	if err != nil {
		return nil, err
	}
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, 0, digest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadSignature, err)
	}
	return sig, nil
}

// RSAVerify verifies a PKCS#1 v1.5 signature over a SHA-256 digest.
func RSAVerify(publicKeyPEM, digest, signature []byte) error {
	if len(digest) != sha256.Size {
		return fmt.Errorf("%w: digest must be 32 bytes", domain.ErrBadSignature)
	}
	pub, err := parseRSAPublicKey(publicKeyPEM)
	if err != nil {
		return err
	}
	if err := rsa.VerifyPKCS1v15(pub, 0, digest, signature); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBadSignature, err)
	}
	return nil
}

func parseRSAPrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("%w: invalid PEM", domain.ErrBadKey)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadKey, err)
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA private key", domain.ErrBadKey)
	}
	return priv, nil
}

func parseRSAPublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("%w: invalid PEM", domain.ErrBadKey)
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadKey, err)
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA public key", domain.ErrBadKey)
	}
	return pub, nil
}
