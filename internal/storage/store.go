// Package storage is the relational persistence layer: encryption_keys,
// operations, audit_logs and a minimal actors table, backed by
// modernc.org/sqlite and versioned with golang-migrate embedded
// migrations.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store owns the database handle and exposes one repository per table.
type Store struct {
	db *sql.DB
}

// Open opens (and if necessary creates) the sqlite database at dsn and
// enables foreign key enforcement.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Keys() *KeyRepo          { return &KeyRepo{db: s.db} }
func (s *Store) Operations() *OperationRepo { return &OperationRepo{db: s.db} }
func (s *Store) Audit() *AuditRepo       { return &AuditRepo{db: s.db} }
func (s *Store) Actors() *ActorRepo      { return &ActorRepo{db: s.db} }
