package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shoalcreek/privacycore/internal/domain"
)

// KeyRepo persists domain.KeyRecord rows.
type KeyRepo struct {
	db *sql.DB
}

func (r *KeyRepo) Insert(ctx context.Context, k *domain.KeyRecord) (int64, error) {
	now := time.Now().UTC()
	k.CreatedAt, k.UpdatedAt = now, now
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO encryption_keys
			(public_id, owner, name, algorithm, wrapped_material, wrap_iv, status, created_at, updated_at, expires_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		k.PublicID, k.Owner, k.Name, string(k.Algorithm), k.WrappedMaterial, k.WrapIV, string(k.Status),
		now, now, nullTime(k.ExpiresAt), nullTime(k.LastUsedAt))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
	return id, nil
}

func (r *KeyRepo) GetByInternalID(ctx context.Context, id int64) (*domain.KeyRecord, error) {
	row := r.db.QueryRowContext(ctx, keySelect+` WHERE internal_id = ?`, id)
	return scanKey(row)
}

func (r *KeyRepo) GetByPublicID(ctx context.Context, publicID string) (*domain.KeyRecord, error) {
	row := r.db.QueryRowContext(ctx, keySelect+` WHERE public_id = ?`, publicID)
	return scanKey(row)
}

func (r *KeyRepo) ListForOwner(ctx context.Context, owner int64) ([]domain.KeyRecord, error) {
	rows, err := r.db.QueryContext(ctx, keySelect+` WHERE owner = ? ORDER BY internal_id ASC`, owner)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
	defer rows.Close()
	var out []domain.KeyRecord
	for rows.Next() {
		k, err := scanKeyRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *k)
	}
	return out, rows.Err()
}

func (r *KeyRepo) UpdateStatus(ctx context.Context, id int64, status domain.KeyStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE encryption_keys SET status = ?, updated_at = ? WHERE internal_id = ?`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
	return nil
}

func (r *KeyRepo) TouchLastUsed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE encryption_keys SET last_used_at = ? WHERE internal_id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
	return nil
}

const keySelect = `
	SELECT internal_id, public_id, owner, name, algorithm, wrapped_material, wrap_iv, status,
	       created_at, updated_at, expires_at, last_used_at
	FROM encryption_keys`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKey(row *sql.Row) (*domain.KeyRecord, error) {
	return scanKeyGeneric(row)
}

func scanKeyRows(rows *sql.Rows) (*domain.KeyRecord, error) {
	return scanKeyGeneric(rows)
}

func scanKeyGeneric(s rowScanner) (*domain.KeyRecord, error) {
	var k domain.KeyRecord
	var algorithm, status string
	var expiresAt, lastUsedAt sql.NullTime
	err := s.Scan(&k.InternalID, &k.PublicID, &k.Owner, &k.Name, &algorithm, &k.WrappedMaterial, &k.WrapIV,
		&status, &k.CreatedAt, &k.UpdatedAt, &expiresAt, &lastUsedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrKeyUnknown
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
	k.Algorithm = domain.Algorithm(algorithm)
	k.Status = domain.KeyStatus(status)
	if expiresAt.Valid {
		k.ExpiresAt = &expiresAt.Time
	}
	if lastUsedAt.Valid {
		k.LastUsedAt = &lastUsedAt.Time
	}
	return &k, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
