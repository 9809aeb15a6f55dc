// Package audit is the tamper-evident, append-only record of every
// security-relevant event — successes and failures alike. It is the
// complete record internal/anomaly scans; internal/ledger, by contrast,
// sees only successful cryptographic operations.
package audit

import (
	"context"
	"time"

	"github.com/shoalcreek/privacycore/internal/domain"
	"github.com/shoalcreek/privacycore/internal/metrics"
	"github.com/shoalcreek/privacycore/internal/storage"
)

// Recorder appends and queries audit_logs entries.
type Recorder struct {
	repo *storage.AuditRepo
}

func New(repo *storage.AuditRepo) *Recorder {
	return &Recorder{repo: repo}
}

// Entry is the set of fields a caller supplies when recording an event;
// ID and Timestamp are assigned by the recorder.
type Entry struct {
	Actor         *int64
	Action        domain.AuditAction
	Resource      *string
	Status        domain.AuditStatus
	ClientAddress *string
	ClientAgent   *string
	Details       map[string]any
}

// Record appends a new audit entry and returns its assigned id.
func (r *Recorder) Record(ctx context.Context, e Entry) (int64, error) {
	id, err := r.repo.Insert(ctx, &domain.AuditRecord{
		Actor:         e.Actor,
		Action:        e.Action,
		Resource:      e.Resource,
		Status:        e.Status,
		ClientAddress: e.ClientAddress,
		ClientAgent:   e.ClientAgent,
		Details:       e.Details,
		Timestamp:     time.Now().UTC(),
	})
	if err == nil {
		metrics.AuditEventsTotal.WithLabelValues(string(e.Action), string(e.Status)).Inc()
	}
	return id, err
}

// Query returns audit records matching filter, newest first.
func (r *Recorder) Query(ctx context.Context, filter domain.AuditFilter, limit, offset int) ([]domain.AuditRecord, error) {
	return r.repo.Query(ctx, filter, limit, offset)
}

// Count returns the number of audit records matching filter.
func (r *Recorder) Count(ctx context.Context, filter domain.AuditFilter) (int, error) {
	return r.repo.Count(ctx, filter)
}

// DataActionWindowStats returns an actor's DATA_ENCRYPT/DATA_DECRYPT audit
// entry count and failed-status count at or after since.
func (r *Recorder) DataActionWindowStats(ctx context.Context, actor int64, since time.Time) (total, failed int, err error) {
	return r.repo.DataActionWindowStats(ctx, actor, since)
}

// RecentSince returns an actor's audit records at or after since, newest
// first, for detectors that need to inspect individual entries.
func (r *Recorder) RecentSince(ctx context.Context, actor int64, since time.Time, limit int) ([]domain.AuditRecord, error) {
	return r.repo.RecentSince(ctx, actor, since, limit)
}
