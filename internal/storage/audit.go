package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shoalcreek/privacycore/internal/domain"
)

// AuditRepo persists domain.AuditRecord rows — every audited event,
// success or failure.
type AuditRepo struct {
	db *sql.DB
}

func (r *AuditRepo) Insert(ctx context.Context, a *domain.AuditRecord) (int64, error) {
	var details []byte
	if a.Details != nil {
		var err error
		details, err = json.Marshal(a.Details)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
		}
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (actor, action, resource, status, client_address, client_agent, details, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Actor, string(a.Action), a.Resource, string(a.Status), a.ClientAddress, a.ClientAgent, string(details), a.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
	return res.LastInsertId()
}

// Query returns audit records matching filter, newest first, bounded by
// limit/offset.
func (r *AuditRepo) Query(ctx context.Context, filter domain.AuditFilter, limit, offset int) ([]domain.AuditRecord, error) {
	where, args := buildAuditWhere(filter)
	query := `SELECT id, actor, action, resource, status, client_address, client_agent, details, timestamp
		FROM audit_logs` + where + ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
	defer rows.Close()
	var out []domain.AuditRecord
	for rows.Next() {
		rec, err := scanAuditRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (r *AuditRepo) Count(ctx context.Context, filter domain.AuditFilter) (int, error) {
	where, args := buildAuditWhere(filter)
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
	return n, nil
}

// DataActionWindowStats returns an actor's DATA_ENCRYPT/DATA_DECRYPT audit
// entry count and failed-status count at or after since. Scoping to those
// two actions is what makes the ratio in high_failure_rate meaningful: it
// is a failure rate over cryptographic operation attempts, not over every
// audited action (logins, key management, ...).
func (r *AuditRepo) DataActionWindowStats(ctx context.Context, actor int64, since time.Time) (total, failed int, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM audit_logs WHERE actor = ? AND timestamp >= ? AND action IN (?, ?)`,
		string(domain.AuditFailed), actor, since, string(domain.ActionDataEncrypt), string(domain.ActionDataDecrypt),
	).Scan(&total, &failed)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
	return total, failed, nil
}

// RecentSince returns an actor's audit records at or after since, newest
// first, bounded by limit. Unlike Query it takes a time bound directly
// rather than an equality filter, for sliding-window scans.
func (r *AuditRepo) RecentSince(ctx context.Context, actor int64, since time.Time, limit int) ([]domain.AuditRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, actor, action, resource, status, client_address, client_agent, details, timestamp
		FROM audit_logs WHERE actor = ? AND timestamp >= ? ORDER BY id DESC LIMIT ?`,
		actor, since, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
	defer rows.Close()
	var out []domain.AuditRecord
	for rows.Next() {
		rec, err := scanAuditRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// CountActionSince counts an actor's audit entries for a specific action at
// or after since.
func (r *AuditRepo) CountActionSince(ctx context.Context, actor int64, action domain.AuditAction, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM audit_logs WHERE actor = ? AND action = ? AND timestamp >= ?`,
		actor, string(action), since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
	return n, nil
}

func buildAuditWhere(filter domain.AuditFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Actor != nil {
		clauses = append(clauses, "actor = ?")
		args = append(args, *filter.Actor)
	}
	if filter.Action != nil {
		clauses = append(clauses, "action = ?")
		args = append(args, string(*filter.Action))
	}
	if filter.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanAuditRow(rows *sql.Rows) (*domain.AuditRecord, error) {
	var rec domain.AuditRecord
	var action, status string
	var resource, clientAddress, clientAgent sql.NullString
	var details sql.NullString
	var actor sql.NullInt64
	if err := rows.Scan(&rec.ID, &actor, &action, &resource, &status, &clientAddress, &clientAgent, &details, &rec.Timestamp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
	if actor.Valid {
		a := actor.Int64
		rec.Actor = &a
	}
	rec.Action = domain.AuditAction(action)
	rec.Status = domain.AuditStatus(status)
	if resource.Valid {
		rec.Resource = &resource.String
	}
	if clientAddress.Valid {
		rec.ClientAddress = &clientAddress.String
	}
	if clientAgent.Valid {
		rec.ClientAgent = &clientAgent.String
	}
	if details.Valid && details.String != "" {
		var m map[string]any
		if err := json.Unmarshal([]byte(details.String), &m); err == nil {
			rec.Details = m
		}
	}
	return &rec, nil
}
