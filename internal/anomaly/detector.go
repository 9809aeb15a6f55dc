// Package anomaly implements the online, sliding-window anomaly detector:
// four checks run in a fixed order against an actor's recent audit trail,
// and the first that trips wins. Detected anomalies are themselves
// recorded to the audit trail as ANOMALY_DETECTED/WARNING, but excluded
// from future window scans so a detection can never trigger another.
package anomaly

import (
	"context"
	"time"

	"github.com/shoalcreek/privacycore/internal/audit"
	"github.com/shoalcreek/privacycore/internal/domain"
)

// Thresholds configures the sensitivity of the four checks. All four read
// the same sliding window of recent activity.
type Thresholds struct {
	Window                      time.Duration
	MaxOpsPerWindow             int
	FailureRatioThreshold       float64 // failed DATA_* / total DATA_* in window
	RevokedKeyAttemptsThreshold int
	WorkingHoursStart           int // inclusive, local-time hour
	WorkingHoursEnd             int // exclusive, local-time hour
}

// DefaultThresholds returns the detector's out-of-the-box sensitivity.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Window:                      60 * time.Second,
		MaxOpsPerWindow:             20,
		FailureRatioThreshold:       0.30,
		RevokedKeyAttemptsThreshold: 2,
		WorkingHoursStart:           7,
		WorkingHoursEnd:             22,
	}
}

// Detector analyzes an actor's recent audit trail and records any
// anomaly it finds.
type Detector struct {
	recorder   *audit.Recorder
	thresholds Thresholds
}

func New(recorder *audit.Recorder, thresholds Thresholds) *Detector {
	return &Detector{recorder: recorder, thresholds: thresholds}
}

// Analyze runs the four detectors in fixed order against actor's trail as
// of at, returning the first hit (if any). It does not record the result;
// callers that want it persisted should call Record.
func (d *Detector) Analyze(ctx context.Context, actor int64, at time.Time) (*domain.Anomaly, error) {
	since := at.Add(-d.thresholds.Window)
	if a, err := d.checkHighVolume(ctx, actor, since, at); err != nil || a != nil {
		return a, err
	}
	if a, err := d.checkHighFailureRate(ctx, actor, since, at); err != nil || a != nil {
		return a, err
	}
	if a, err := d.checkRevokedKeyUsage(ctx, actor, since, at); err != nil || a != nil {
		return a, err
	}
	if a := d.checkUnusualTime(actor, at); a != nil {
		return a, nil
	}
	return nil, nil
}

func (d *Detector) checkHighVolume(ctx context.Context, actor int64, since, at time.Time) (*domain.Anomaly, error) {
	total, _, err := d.recorder.DataActionWindowStats(ctx, actor, since)
	if err != nil {
		return nil, err
	}
	if total <= d.thresholds.MaxOpsPerWindow {
		return nil, nil
	}
	return &domain.Anomaly{
		Type:     domain.AnomalyHighVolume,
		Severity: domain.SeverityMedium,
		Actor:    actor,
		Detail:   map[string]any{"count": total, "window_seconds": d.thresholds.Window.Seconds()},
		At:       at,
	}, nil
}

func (d *Detector) checkHighFailureRate(ctx context.Context, actor int64, since, at time.Time) (*domain.Anomaly, error) {
	total, failed, err := d.recorder.DataActionWindowStats(ctx, actor, since)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, nil
	}
	rate := float64(failed) / float64(total)
	if rate < d.thresholds.FailureRatioThreshold {
		return nil, nil
	}
	return &domain.Anomaly{
		Type:     domain.AnomalyHighFailure,
		Severity: domain.SeverityHigh,
		Actor:    actor,
		Detail:   map[string]any{"attempts": total, "failed": failed, "rate": rate},
		At:       at,
	}, nil
}

func (d *Detector) checkRevokedKeyUsage(ctx context.Context, actor int64, since, at time.Time) (*domain.Anomaly, error) {
	recent, err := d.recorder.RecentSince(ctx, actor, since, 500)
	if err != nil {
		return nil, err
	}
	var hits int
	var lastID int64
	for _, rec := range recent {
		if rec.Status != domain.AuditFailed {
			continue
		}
		if rec.Action != domain.ActionDataEncrypt && rec.Action != domain.ActionDataDecrypt {
			continue
		}
		if reason, ok := rec.Details["reason"]; ok && reason == "key_not_active" {
			hits++
			lastID = rec.ID
		}
	}
	if hits < d.thresholds.RevokedKeyAttemptsThreshold {
		return nil, nil
	}
	return &domain.Anomaly{
		Type:     domain.AnomalyRevokedKeyUse,
		Severity: domain.SeverityHigh,
		Actor:    actor,
		Detail:   map[string]any{"attempts": hits, "last_audit_id": lastID},
		At:       at,
	}, nil
}

func (d *Detector) checkUnusualTime(actor int64, at time.Time) *domain.Anomaly {
	hour := at.Local().Hour()
	if hour >= d.thresholds.WorkingHoursStart && hour < d.thresholds.WorkingHoursEnd {
		return nil
	}
	return &domain.Anomaly{
		Type:     domain.AnomalyUnusualTime,
		Severity: domain.SeverityLow,
		Actor:    actor,
		Detail:   map[string]any{"hour_local": hour},
		At:       at,
	}
}

// Record appends an Anomaly to the audit trail as an ANOMALY_DETECTED,
// WARNING entry.
func (d *Detector) Record(ctx context.Context, a domain.Anomaly) error {
	actor := a.Actor
	_, err := d.recorder.Record(ctx, audit.Entry{
		Actor:  &actor,
		Action: domain.ActionAnomalyDetected,
		Status: domain.AuditWarning,
		Details: map[string]any{
			"type":     string(a.Type),
			"severity": string(a.Severity),
			"detail":   a.Detail,
		},
	})
	return err
}

// Detect runs Analyze and, on a hit, persists it via Record in one call —
// the shape internal/engine invokes fire-and-forget after an operation.
func (d *Detector) Detect(ctx context.Context, actor int64, at time.Time) (*domain.Anomaly, error) {
	a, err := d.Analyze(ctx, actor, at)
	if err != nil || a == nil {
		return a, err
	}
	if err := d.Record(ctx, *a); err != nil {
		return a, err
	}
	return a, nil
}
