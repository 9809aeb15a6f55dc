// Package registry owns key lifecycle: creation, lookup, revocation, and
// the wrap/unwrap boundary between persisted ciphertext and the plaintext
// material internal/engine operates on.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shoalcreek/privacycore/internal/domain"
	"github.com/shoalcreek/privacycore/internal/envelope"
	"github.com/shoalcreek/privacycore/internal/primitive"
	"github.com/shoalcreek/privacycore/internal/storage"
)

// Registry is the key lifecycle manager.
type Registry struct {
	keys    *storage.KeyRepo
	wrapper *envelope.Wrapper
}

func New(keys *storage.KeyRepo, wrapper *envelope.Wrapper) *Registry {
	return &Registry{keys: keys, wrapper: wrapper}
}

// CreateKey generates fresh material for algorithm, wraps it under the
// master key, and persists the record. The returned KeyRecord is
// redacted — its plaintext material is never returned to the caller.
func (reg *Registry) CreateKey(ctx context.Context, owner int64, name string, algorithm domain.Algorithm, expiresAt *time.Time) (domain.KeyRecord, error) {
	if !algorithm.Valid() {
		return domain.KeyRecord{}, domain.ErrBadAlgorithm
	}
	payload, err := generateMaterial(algorithm)
	if err != nil {
		return domain.KeyRecord{}, err
	}
	ciphertext, iv, err := reg.wrapper.Wrap(payload)
	if err != nil {
		return domain.KeyRecord{}, err
	}
	publicID, err := newPublicID()
	if err != nil {
		return domain.KeyRecord{}, err
	}
	record := &domain.KeyRecord{
		PublicID:        publicID,
		Owner:           owner,
		Name:            name,
		Algorithm:       algorithm,
		WrappedMaterial: ciphertext,
		WrapIV:          iv,
		Status:          domain.KeyActive,
		ExpiresAt:       expiresAt,
	}
	id, err := reg.keys.Insert(ctx, record)
	if err != nil {
		return domain.KeyRecord{}, err
	}
	record.InternalID = id
	return record.Redacted(), nil
}

// GetKey returns the redacted record for a key the caller already knows
// the internal id of.
func (reg *Registry) GetKey(ctx context.Context, internalID int64) (domain.KeyRecord, error) {
	k, err := reg.keys.GetByInternalID(ctx, internalID)
	if err != nil {
		return domain.KeyRecord{}, err
	}
	return k.Redacted(), nil
}

// GetKeyByPublicID looks up a key by its externally visible identifier.
func (reg *Registry) GetKeyByPublicID(ctx context.Context, publicID string) (domain.KeyRecord, error) {
	k, err := reg.keys.GetByPublicID(ctx, publicID)
	if err != nil {
		return domain.KeyRecord{}, err
	}
	return k.Redacted(), nil
}

// ListKeysFor returns every key owned by owner, redacted.
func (reg *Registry) ListKeysFor(ctx context.Context, owner int64) ([]domain.KeyRecord, error) {
	ks, err := reg.keys.ListForOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	out := make([]domain.KeyRecord, len(ks))
	for i := range ks {
		out[i] = ks[i].Redacted()
	}
	return out, nil
}

// UnwrapMaterial returns a key's plaintext payload bytes for use by
// internal/engine, and records the key as having just been used. The
// returned record is the unredacted internal view — callers that are not
// internal/engine should use GetKey/GetKeyByPublicID instead.
func (reg *Registry) UnwrapMaterial(ctx context.Context, publicID string) (*domain.KeyRecord, []byte, error) {
	k, err := reg.keys.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, nil, err
	}
	if !k.IsUsable() {
		return k, nil, domain.ErrKeyNotActive
	}
	plaintext, err := reg.wrapper.Unwrap(k.WrappedMaterial, k.WrapIV)
	if err != nil {
		return k, nil, err
	}
	_ = reg.keys.TouchLastUsed(ctx, k.InternalID)
	return k, plaintext, nil
}

// Revoke moves a key to the Revoked state. Revocation is monotonic: a key
// already Revoked or Expired stays that way.
func (reg *Registry) Revoke(ctx context.Context, internalID int64) error {
	k, err := reg.keys.GetByInternalID(ctx, internalID)
	if err != nil {
		return err
	}
	if k.Status != domain.KeyActive {
		return nil
	}
	return reg.keys.UpdateStatus(ctx, internalID, domain.KeyRevoked)
}

// MarkExpired moves a key to the Expired state. Only an Active key can
// expire; a Revoked key is left alone.
func (reg *Registry) MarkExpired(ctx context.Context, internalID int64) error {
	k, err := reg.keys.GetByInternalID(ctx, internalID)
	if err != nil {
		return err
	}
	if k.Status != domain.KeyActive {
		return nil
	}
	return reg.keys.UpdateStatus(ctx, internalID, domain.KeyExpired)
}

// ExportRaw returns owner's keys unredacted — including wrapped_material
// and wrap_iv still sealed under the master key — for internal/backup to
// serialize. Unlike ListKeysFor this never strips the wrapped material.
func (reg *Registry) ExportRaw(ctx context.Context, owner int64) ([]domain.KeyRecord, error) {
	return reg.keys.ListForOwner(ctx, owner)
}

// ImportRaw inserts each record whose public_id is not already present,
// reassigning ownership to owner. Records whose public_id already exists
// are left untouched and skipped — import is idempotent. It returns the
// number of keys actually inserted.
func (reg *Registry) ImportRaw(ctx context.Context, owner int64, records []domain.KeyRecord) (int, error) {
	restored := 0
	for _, rec := range records {
		_, err := reg.keys.GetByPublicID(ctx, rec.PublicID)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrKeyUnknown) {
			return restored, err
		}
		toInsert := rec
		toInsert.Owner = owner
		toInsert.InternalID = 0
		if _, err := reg.keys.Insert(ctx, &toInsert); err != nil {
			return restored, err
		}
		restored++
	}
	return restored, nil
}

func generateMaterial(algorithm domain.Algorithm) ([]byte, error) {
	switch {
	case algorithm.IsAES():
		key, err := primitive.RandomBytes(algorithm.AESKeySize())
		if err != nil {
			return nil, err
		}
		return domain.MarshalPayload(domain.AESPayload{Key: key})
	case algorithm == domain.AlgorithmRSA2048:
		privPEM, pubPEM, err := primitive.GenerateRSA2048()
		if err != nil {
			return nil, err
		}
		return domain.MarshalPayload(domain.AsymmetricPayload{PublicKeyPEM: pubPEM, PrivateKeyPEM: privPEM})
	case algorithm == domain.AlgorithmECCP256:
		privPEM, pubPEM, err := primitive.GenerateECDSAP256()
		if err != nil {
			return nil, err
		}
		return domain.MarshalPayload(domain.AsymmetricPayload{PublicKeyPEM: pubPEM, PrivateKeyPEM: privPEM})
	default:
		return nil, domain.ErrBadAlgorithm
	}
}

// newPublicID mints a "K-<millis>-<8 hex>" identifier: a millisecond
// timestamp plus 4 random bytes hex-encoded, unique enough not to require
// a round trip to the database to check. The random bytes come from a
// UUIDv4's own random field rather than a hand-rolled crypto/rand draw.
func newPublicID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrRngFailure, err)
	}
	return fmt.Sprintf("K-%d-%x", time.Now().UTC().UnixMilli(), id[:4]), nil
}
