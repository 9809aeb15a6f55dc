package domain

import "time"

// KeyStatus is a KeyRecord's lifecycle state. Transitions are monotonic
// toward Revoked/Expired; no key ever returns to Active.
type KeyStatus string

const (
	KeyActive  KeyStatus = "active"
	KeyRevoked KeyStatus = "revoked"
	KeyExpired KeyStatus = "expired"
)

// KeyRecord is the persisted record for one managed key. WrappedMaterial is
// the only copy of the key's cryptographic material the registry holds; it
// is opaque ciphertext produced by internal/envelope and never handled
// directly outside the registry and the envelope wrapper.
type KeyRecord struct {
	InternalID      int64
	PublicID        string
	Owner           int64
	Name            string
	Algorithm       Algorithm
	WrappedMaterial []byte
	WrapIV          []byte
	Status          KeyStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ExpiresAt       *time.Time
	LastUsedAt      *time.Time
}

// IsUsable reports whether the key may be used for a cryptographic
// operation (encrypt/decrypt/sign/verify). Only Active keys qualify; a
// non-active key may still be read for export in a backup.
func (k *KeyRecord) IsUsable() bool {
	return k != nil && k.Status == KeyActive
}

// Redacted returns a copy with WrappedMaterial and WrapIV cleared, the shape
// returned to external callers.
func (k *KeyRecord) Redacted() KeyRecord {
	cp := *k
	cp.WrappedMaterial = nil
	cp.WrapIV = nil
	return cp
}
