// Package ledger records successful cryptographic operations. Unlike
// internal/audit, it never sees a failure — a failed encrypt/decrypt is an
// audit-only event.
package ledger

import (
	"context"
	"time"

	"github.com/shoalcreek/privacycore/internal/domain"
	"github.com/shoalcreek/privacycore/internal/storage"
)

type Ledger struct {
	ops *storage.OperationRepo
}

func New(ops *storage.OperationRepo) *Ledger {
	return &Ledger{ops: ops}
}

// Record persists a successful encrypt/decrypt.
func (l *Ledger) Record(ctx context.Context, actor int64, keyInternalID *int64, kind domain.OperationKind, algorithm domain.Algorithm, resourceLabel string) error {
	_, err := l.ops.Insert(ctx, &domain.OperationRecord{
		Actor:         actor,
		KeyInternalID: keyInternalID,
		Kind:          kind,
		Algorithm:     algorithm,
		ResourceLabel: resourceLabel,
		Outcome:       domain.OperationSuccess,
		Timestamp:     time.Now().UTC(),
	})
	return err
}

// ListForActor returns an actor's recorded operations, newest first.
func (l *Ledger) ListForActor(ctx context.Context, actor int64, limit, offset int) ([]domain.OperationRecord, error) {
	return l.ops.ListForActor(ctx, actor, limit, offset)
}
