package audit

import (
	"context"
	"testing"

	"github.com/shoalcreek/privacycore/internal/domain"
	"github.com/shoalcreek/privacycore/internal/storage"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	s, err := storage.Open("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.ApplyMigrations(); err != nil {
		t.Fatalf("ApplyMigrations: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return New(s.Audit())
}

func TestRecorder_RecordAndQuery(t *testing.T) {
	r := newTestRecorder(t)
	ctx := context.Background()
	actor := int64(1)
	if _, err := r.Record(ctx, Entry{Actor: &actor, Action: domain.ActionKeyGenerate, Status: domain.AuditSuccess}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := r.Record(ctx, Entry{Actor: &actor, Action: domain.ActionDataEncrypt, Status: domain.AuditFailed}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	recs, err := r.Query(ctx, domain.AuditFilter{Actor: &actor}, 10, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recs) = %d, want 2", len(recs))
	}
	if recs[0].Action != domain.ActionDataEncrypt {
		t.Errorf("newest-first expected, got %v first", recs[0].Action)
	}
}

func TestRecorder_Count(t *testing.T) {
	r := newTestRecorder(t)
	ctx := context.Background()
	actor := int64(2)
	for i := 0; i < 3; i++ {
		if _, err := r.Record(ctx, Entry{Actor: &actor, Action: domain.ActionDataDecrypt, Status: domain.AuditSuccess}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	n, err := r.Count(ctx, domain.AuditFilter{Actor: &actor})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}
