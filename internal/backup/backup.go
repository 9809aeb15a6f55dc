// Package backup implements the key-set export/import codec: a document
// listing an owner's keys (material included, still wrapped under the
// master key) is JSON-marshaled, then wrapped a second time as a single
// AES-256-CBC envelope so the artifact is opaque outside this process.
package backup

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shoalcreek/privacycore/internal/audit"
	"github.com/shoalcreek/privacycore/internal/domain"
	"github.com/shoalcreek/privacycore/internal/envelope"
	"github.com/shoalcreek/privacycore/internal/registry"
)

const documentVersion = "1.0"

// document is the JSON shape inside the wrapped artifact.
type document struct {
	Version   string     `json:"version"`
	Timestamp time.Time  `json:"timestamp"`
	Keys      []keyEntry `json:"keys"`
}

type keyEntry struct {
	PublicID        string  `json:"public_id"`
	Name            string  `json:"name"`
	Algorithm       string  `json:"algorithm"`
	Status          string  `json:"status"`
	CreatedAt       string  `json:"created_at"`
	WrappedMaterial string  `json:"wrapped_material"`
	WrapIV          string  `json:"wrap_iv"`
	ExpiresAt       *string `json:"expires_at,omitempty"`
}

// Codec exports and imports key sets for a single owner.
type Codec struct {
	registry *registry.Registry
	wrapper  *envelope.Wrapper
	audit    *audit.Recorder
}

func New(reg *registry.Registry, wrapper *envelope.Wrapper, rec *audit.Recorder) *Codec {
	return &Codec{registry: reg, wrapper: wrapper, audit: rec}
}

// Export serializes every key owner holds — across all lifecycle states,
// since a revoked key's history still matters for a restore — into a
// single opaque artifact string. It fails with ErrNothingToBackUp if
// owner has no keys at all.
func (c *Codec) Export(ctx context.Context, owner int64) (string, error) {
	keys, err := c.registry.ExportRaw(ctx, owner)
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		c.recordFailure(ctx, owner, domain.ErrNothingToBackUp)
		return "", domain.ErrNothingToBackUp
	}

	doc := document{Version: documentVersion, Timestamp: time.Now().UTC(), Keys: make([]keyEntry, len(keys))}
	for i, k := range keys {
		entry := keyEntry{
			PublicID:        k.PublicID,
			Name:            k.Name,
			Algorithm:       string(k.Algorithm),
			Status:          string(k.Status),
			CreatedAt:       k.CreatedAt.UTC().Format(time.RFC3339),
			WrappedMaterial: hex.EncodeToString(k.WrappedMaterial),
			WrapIV:          hex.EncodeToString(k.WrapIV),
		}
		if k.ExpiresAt != nil {
			s := k.ExpiresAt.UTC().Format(time.RFC3339)
			entry.ExpiresAt = &s
		}
		doc.Keys[i] = entry
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		c.recordFailure(ctx, owner, err)
		return "", fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
	ciphertext, iv, err := c.wrapper.Wrap(raw)
	if err != nil {
		c.recordFailure(ctx, owner, err)
		return "", err
	}
	artifact := hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext)

	owned := owner
	_, _ = c.audit.Record(ctx, audit.Entry{
		Actor:  &owned,
		Action: domain.ActionKeyBackup,
		Status: domain.AuditSuccess,
		Details: map[string]any{
			"key_count": len(keys),
		},
	})
	return artifact, nil
}

// Import unwraps artifact under the master key, parses its key set, and
// inserts every key not already present under owner's ownership. Import
// is idempotent: a public_id already in the registry is left untouched
// and not counted. It returns the number of keys actually restored.
func (c *Codec) Import(ctx context.Context, owner int64, artifact string) (int, error) {
	segments := strings.SplitN(artifact, ":", 2)
	if len(segments) != 2 {
		c.recordRestoreFailure(ctx, owner, domain.ErrMalformedBackup)
		return 0, domain.ErrMalformedBackup
	}
	iv, err := hex.DecodeString(segments[0])
	if err != nil {
		c.recordRestoreFailure(ctx, owner, domain.ErrMalformedBackup)
		return 0, fmt.Errorf("%w: %v", domain.ErrMalformedBackup, err)
	}
	ciphertext, err := hex.DecodeString(segments[1])
	if err != nil {
		c.recordRestoreFailure(ctx, owner, domain.ErrMalformedBackup)
		return 0, fmt.Errorf("%w: %v", domain.ErrMalformedBackup, err)
	}
	raw, err := c.wrapper.Unwrap(ciphertext, iv)
	if err != nil {
		c.recordRestoreFailure(ctx, owner, err)
		return 0, err
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil || doc.Keys == nil {
		c.recordRestoreFailure(ctx, owner, domain.ErrMalformedBackup)
		return 0, domain.ErrMalformedBackup
	}

	records := make([]domain.KeyRecord, 0, len(doc.Keys))
	for _, e := range doc.Keys {
		wrappedMaterial, err := hex.DecodeString(e.WrappedMaterial)
		if err != nil {
			c.recordRestoreFailure(ctx, owner, domain.ErrMalformedBackup)
			return 0, fmt.Errorf("%w: %v", domain.ErrMalformedBackup, err)
		}
		wrapIV, err := hex.DecodeString(e.WrapIV)
		if err != nil {
			c.recordRestoreFailure(ctx, owner, domain.ErrMalformedBackup)
			return 0, fmt.Errorf("%w: %v", domain.ErrMalformedBackup, err)
		}
		createdAt, err := time.Parse(time.RFC3339, e.CreatedAt)
		if err != nil {
			c.recordRestoreFailure(ctx, owner, domain.ErrMalformedBackup)
			return 0, fmt.Errorf("%w: %v", domain.ErrMalformedBackup, err)
		}
		rec := domain.KeyRecord{
			PublicID:        e.PublicID,
			Name:            e.Name,
			Algorithm:       domain.Algorithm(e.Algorithm),
			Status:          domain.KeyStatus(e.Status),
			WrappedMaterial: wrappedMaterial,
			WrapIV:          wrapIV,
			CreatedAt:       createdAt,
		}
		if e.ExpiresAt != nil {
			t, err := time.Parse(time.RFC3339, *e.ExpiresAt)
			if err == nil {
				rec.ExpiresAt = &t
			}
		}
		records = append(records, rec)
	}

	restored, err := c.registry.ImportRaw(ctx, owner, records)
	if err != nil {
		c.recordRestoreFailure(ctx, owner, err)
		return restored, err
	}

	owned := owner
	_, _ = c.audit.Record(ctx, audit.Entry{
		Actor:  &owned,
		Action: domain.ActionKeyRestore,
		Status: domain.AuditSuccess,
		Details: map[string]any{
			"restored_count": restored,
		},
	})
	return restored, nil
}

func (c *Codec) recordFailure(ctx context.Context, owner int64, err error) {
	owned := owner
	_, _ = c.audit.Record(ctx, audit.Entry{
		Actor:  &owned,
		Action: domain.ActionKeyBackup,
		Status: domain.AuditFailed,
		Details: map[string]any{
			"error": err.Error(),
		},
	})
}

func (c *Codec) recordRestoreFailure(ctx context.Context, owner int64, err error) {
	owned := owner
	_, _ = c.audit.Record(ctx, audit.Entry{
		Actor:  &owned,
		Action: domain.ActionKeyRestore,
		Status: domain.AuditFailed,
		Details: map[string]any{
			"error": err.Error(),
		},
	})
}
