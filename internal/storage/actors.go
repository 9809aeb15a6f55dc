package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shoalcreek/privacycore/internal/domain"
)

// ActorRepo is a minimal accessor (Get and Upsert) over the actors table: role and
// status only, since authentication and profile management sit outside
// this service's boundary.
type ActorRepo struct {
	db *sql.DB
}

func (r *ActorRepo) Get(ctx context.Context, id int64) (*domain.Actor, error) {
	var a domain.Actor
	var role, status string
	err := r.db.QueryRowContext(ctx, `SELECT id, role, status FROM actors WHERE id = ?`, id).Scan(&a.ID, &role, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
	a.Role = domain.Role(role)
	a.Status = domain.ActorStatus(status)
	return &a, nil
}

func (r *ActorRepo) Upsert(ctx context.Context, a *domain.Actor) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO actors (id, role, status) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET role = excluded.role, status = excluded.status`,
		a.ID, string(a.Role), string(a.Status))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
	return nil
}
