package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shoalcreek/privacycore/internal/domain"
)

// OperationRepo persists domain.OperationRecord rows — successful
// encrypt/decrypt calls only. Failures never reach this table.
type OperationRepo struct {
	db *sql.DB
}

func (r *OperationRepo) Insert(ctx context.Context, op *domain.OperationRecord) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO operations (actor, key_internal_id, kind, algorithm, resource_label, outcome, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		op.Actor, op.KeyInternalID, string(op.Kind), string(op.Algorithm), op.ResourceLabel,
		string(op.Outcome), op.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
	return res.LastInsertId()
}

// ListForActor returns an actor's operations, newest first, bounded by
// limit/offset.
func (r *OperationRepo) ListForActor(ctx context.Context, actor int64, limit, offset int) ([]domain.OperationRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, actor, key_internal_id, kind, algorithm, resource_label, outcome, timestamp
		FROM operations WHERE actor = ? ORDER BY id DESC LIMIT ? OFFSET ?`,
		actor, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
	defer rows.Close()
	var out []domain.OperationRecord
	for rows.Next() {
		var op domain.OperationRecord
		var keyID sql.NullInt64
		var kind, algorithm, outcome string
		if err := rows.Scan(&op.ID, &op.Actor, &keyID, &kind, &algorithm, &op.ResourceLabel, &outcome, &op.Timestamp); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
		}
		if keyID.Valid {
			id := keyID.Int64
			op.KeyInternalID = &id
		}
		op.Kind = domain.OperationKind(kind)
		op.Algorithm = domain.Algorithm(algorithm)
		op.Outcome = domain.OperationOutcome(outcome)
		out = append(out, op)
	}
	return out, rows.Err()
}
