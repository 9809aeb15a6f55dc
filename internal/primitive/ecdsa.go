package primitive

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math/big"

	"github.com/shoalcreek/privacycore/internal/domain"
)

// GenerateECDSAP256 generates a new ECDSA P-256 key pair, returning both
// keys as PEM (PKCS#8 private, SPKI public).
func GenerateECDSAP256() (privPEM, pubPEM []byte, err error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
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

// ECDSASign signs a SHA-256 digest with a PKCS#8 PEM private key, returning
// a fixed-width r||s signature (64 bytes for P-256).
func ECDSASign(privateKeyPEM, digest []byte) ([]byte, error) {
	if len(digest) != sha256.Size {
		return nil, fmt.Errorf("%w: digest must be 32 bytes", domain.ErrBadSignature)
	}
	priv, err := parseECDSAPrivateKey(privateKeyPEM)
	if err != nil {
		return nil, err
	}
	r, s, err := ecdsa.Sign(rand.Reader, priv, digest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRngFailure, err)
	}
	sig := make([]byte, 64)
	rBytes := r.Bytes()
	sBytes := s.Bytes()
	copy(sig[32-len(rBytes):], rBytes)
	copy(sig[64-len(sBytes):], sBytes)
	return sig, nil
}

// ECDSAVerify verifies an r||s signature over a SHA-256 digest with an SPKI
// PEM public key.
func ECDSAVerify(publicKeyPEM, digest, signature []byte) error {
	if len(digest) != sha256.Size {
		return fmt.Errorf("%w: digest must be 32 bytes", domain.ErrBadSignature)
	}
	if len(signature) != 64 {
		return fmt.Errorf("%w: signature must be 64 bytes", domain.ErrBadSignature)
	}
	pub, err := parseECDSAPublicKey(publicKeyPEM)
	if err != nil {
		return err
	}
	r := new(big.Int).SetBytes(signature[:32])
	s := new(big.Int).SetBytes(signature[32:64])
	if !ecdsa.Verify(pub, digest, r, s) {
		return fmt.Errorf("%w: verification failed", domain.ErrBadSignature)
	}
	return nil
}

func parseECDSAPrivateKey(pemBytes []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("%w: invalid PEM", domain.ErrBadKey)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadKey, err)
	}
	priv, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an ECDSA private key", domain.ErrBadKey)
	}
	return priv, nil
}

func parseECDSAPublicKey(pemBytes []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("%w: invalid PEM", domain.ErrBadKey)
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadKey, err)
	}
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an ECDSA public key", domain.ErrBadKey)
	}
	return pub, nil
}
