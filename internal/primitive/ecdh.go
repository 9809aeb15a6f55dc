package primitive

import (
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/shoalcreek/privacycore/internal/domain"
)

// GenerateECDHP256 generates an ephemeral P-256 ECDH key pair, returning raw
// (uncompressed point / scalar) bytes rather than PEM — these keys are
// single-use and never persisted on their own.
func GenerateECDHP256() (privRaw, pubRaw []byte, err error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrRngFailure, err)
	}
	return priv.Bytes(), priv.PublicKey().Bytes(), nil
}

// ECDHAgree derives a shared secret from a private scalar and a peer's
// uncompressed public point, both P-256, then hashes it with SHA-256 to
// produce a fixed-width symmetric key seed.
func ECDHAgree(privRaw, peerPubRaw []byte) ([]byte, error) {
	priv, err := ecdh.P256().NewPrivateKey(privRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadKey, err)
	}
	peerPub, err := ecdh.P256().NewPublicKey(peerPubRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadKey, err)
	}
	shared, err := priv.ECDH(peerPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadKey, err)
	}
	sum := sha256.Sum256(shared)
	return sum[:], nil
}

// ECDHPublicKeyFromPrivate returns the raw uncompressed public point for a
// raw P-256 ECDH private scalar.
func ECDHPublicKeyFromPrivate(privRaw []byte) ([]byte, error) {
	priv, err := ecdh.P256().NewPrivateKey(privRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadKey, err)
	}
	return priv.PublicKey().Bytes(), nil
}

// ECDSAPublicKeyToECDHRaw converts a stored ECDSA P-256 SPKI PEM public key
// into the raw point bytes ECDHAgree expects, so a registered ECC key can
// also serve as the recipient side of a hybrid encryption.
func ECDSAPublicKeyToECDHRaw(publicKeyPEM []byte) ([]byte, error) {
	pub, err := parseECDSAPublicKey(publicKeyPEM)
	if err != nil {
		return nil, err
	}
	ecdhPub, err := pub.ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadKey, err)
	}
	return ecdhPub.Bytes(), nil
}

// ECDSAPrivateKeyToECDHRaw converts a stored ECDSA P-256 PKCS#8 PEM private
// key into the raw scalar bytes ECDHAgree expects.
func ECDSAPrivateKeyToECDHRaw(privateKeyPEM []byte) ([]byte, error) {
	priv, err := parseECDSAPrivateKey(privateKeyPEM)
	if err != nil {
		return nil, err
	}
	ecdhPriv, err := priv.ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadKey, err)
	}
	return ecdhPriv.Bytes(), nil
}
