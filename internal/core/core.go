// Package core wires the registry, crypto engine, ledger, audit recorder,
// anomaly detector, backup codec, and policy guard into the operation set
// a transport (HTTP handler, CLI command, ...) invokes. Authorization is
// always applied here, before a registry or engine call — neither of
// those packages re-checks who is asking.
package core

import (
	"context"
	"errors"
	"time"

	"github.com/shoalcreek/privacycore/internal/anomaly"
	"github.com/shoalcreek/privacycore/internal/audit"
	"github.com/shoalcreek/privacycore/internal/backup"
	"github.com/shoalcreek/privacycore/internal/domain"
	"github.com/shoalcreek/privacycore/internal/engine"
	"github.com/shoalcreek/privacycore/internal/envelope"
	"github.com/shoalcreek/privacycore/internal/ledger"
	"github.com/shoalcreek/privacycore/internal/policy"
	"github.com/shoalcreek/privacycore/internal/registry"
	"github.com/shoalcreek/privacycore/internal/storage"
)

// Core is the cryptographic core's single entry point.
type Core struct {
	registry *registry.Registry
	engine   *engine.Engine
	ledger   *ledger.Ledger
	audit    *audit.Recorder
	detector *anomaly.Detector
	backup   *backup.Codec
	guard    *policy.Guard
}

// New assembles a Core over an already-migrated Store and a parsed master
// key. It is the one place that wires every package in this module
// together.
func New(store *storage.Store, masterKey []byte, thresholds anomaly.Thresholds) (*Core, error) {
	wrapper, err := envelope.NewWrapper(masterKey)
	if err != nil {
		return nil, err
	}
	reg := registry.New(store.Keys(), wrapper)
	led := ledger.New(store.Operations())
	rec := audit.New(store.Audit())
	det := anomaly.New(rec, thresholds)
	eng := engine.New(reg, led, rec, det)
	bk := backup.New(reg, wrapper, rec)
	return &Core{
		registry: reg,
		engine:   eng,
		ledger:   led,
		audit:    rec,
		detector: det,
		backup:   bk,
		guard:    policy.New(),
	}, nil
}

// CreateKey generates and registers a new key owned by actor.
func (c *Core) CreateKey(ctx context.Context, actor domain.Actor, name string, algorithm domain.Algorithm, expiresAt *time.Time) (domain.KeyRecord, error) {
	if err := c.guard.RequireActive(actor); err != nil {
		c.recordGuardDenial(ctx, actor.ID, domain.ActionKeyGenerate, nil, err)
		return domain.KeyRecord{}, err
	}
	key, err := c.registry.CreateKey(ctx, actor.ID, name, algorithm, expiresAt)
	if err != nil {
		c.recordKeyEvent(ctx, actor.ID, domain.ActionKeyGenerate, nil, err)
		return domain.KeyRecord{}, err
	}
	c.recordKeyEvent(ctx, actor.ID, domain.ActionKeyGenerate, &key.PublicID, nil)
	return key, nil
}

// RevokeKey moves keyPublicID to the Revoked state. The caller must own
// the key or hold the administrator role.
func (c *Core) RevokeKey(ctx context.Context, actor domain.Actor, keyPublicID string) error {
	if err := c.guard.RequireActive(actor); err != nil {
		c.recordGuardDenial(ctx, actor.ID, domain.ActionKeyRevoke, &keyPublicID, err)
		return err
	}
	key, err := c.registry.GetKeyByPublicID(ctx, keyPublicID)
	if err != nil {
		return err
	}
	if err := c.guard.RequireOwnerOrAdmin(actor, key.Owner); err != nil {
		c.recordGuardDenial(ctx, actor.ID, domain.ActionKeyRevoke, &keyPublicID, err)
		return err
	}
	if err := c.registry.Revoke(ctx, key.InternalID); err != nil {
		c.recordKeyEvent(ctx, actor.ID, domain.ActionKeyRevoke, &keyPublicID, err)
		return err
	}
	c.recordKeyEvent(ctx, actor.ID, domain.ActionKeyRevoke, &keyPublicID, nil)
	return nil
}

// ListKeys returns actor's own keys, redacted.
func (c *Core) ListKeys(ctx context.Context, actor domain.Actor) ([]domain.KeyRecord, error) {
	if err := c.guard.RequireActive(actor); err != nil {
		c.recordGuardDenial(ctx, actor.ID, domain.ActionKeyList, nil, err)
		return nil, err
	}
	return c.registry.ListKeysFor(ctx, actor.ID)
}

// Encrypt authorizes actor against the key's owner, then delegates to the
// crypto engine.
func (c *Core) Encrypt(ctx context.Context, actor domain.Actor, keyPublicID string, plaintext []byte, resourceLabel string) (string, error) {
	if err := c.guard.RequireActive(actor); err != nil {
		c.recordGuardDenial(ctx, actor.ID, domain.ActionDataEncrypt, &keyPublicID, err)
		return "", err
	}
	key, err := c.registry.GetKeyByPublicID(ctx, keyPublicID)
	if err != nil {
		return "", err
	}
	if err := c.guard.RequireOwnerOrAdmin(actor, key.Owner); err != nil {
		c.recordGuardDenial(ctx, actor.ID, domain.ActionDataEncrypt, &keyPublicID, err)
		return "", err
	}
	return c.engine.Encrypt(ctx, actor.ID, keyPublicID, plaintext, resourceLabel)
}

// Decrypt authorizes actor against the key's owner, then delegates to the
// crypto engine.
func (c *Core) Decrypt(ctx context.Context, actor domain.Actor, keyPublicID string, env string, resourceLabel string) ([]byte, error) {
	if err := c.guard.RequireActive(actor); err != nil {
		c.recordGuardDenial(ctx, actor.ID, domain.ActionDataDecrypt, &keyPublicID, err)
		return nil, err
	}
	key, err := c.registry.GetKeyByPublicID(ctx, keyPublicID)
	if err != nil {
		return nil, err
	}
	if err := c.guard.RequireOwnerOrAdmin(actor, key.Owner); err != nil {
		c.recordGuardDenial(ctx, actor.ID, domain.ActionDataDecrypt, &keyPublicID, err)
		return nil, err
	}
	return c.engine.Decrypt(ctx, actor.ID, keyPublicID, env, resourceLabel)
}

// ExportBackup serializes every key actor owns into a single artifact.
func (c *Core) ExportBackup(ctx context.Context, actor domain.Actor) (string, error) {
	if err := c.guard.RequireActive(actor); err != nil {
		c.recordGuardDenial(ctx, actor.ID, domain.ActionKeyBackup, nil, err)
		return "", err
	}
	return c.backup.Export(ctx, actor.ID)
}

// ImportBackup restores every key in artifact not already present,
// assigning ownership to actor.
func (c *Core) ImportBackup(ctx context.Context, actor domain.Actor, artifact string) (int, error) {
	if err := c.guard.RequireActive(actor); err != nil {
		c.recordGuardDenial(ctx, actor.ID, domain.ActionKeyRestore, nil, err)
		return 0, err
	}
	return c.backup.Import(ctx, actor.ID, artifact)
}

// ListOperations returns actor's successful encrypt/decrypt history.
func (c *Core) ListOperations(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.OperationRecord, error) {
	if err := c.guard.RequireActive(actor); err != nil {
		c.recordGuardDenial(ctx, actor.ID, domain.ActionOperationsQuery, nil, err)
		return nil, err
	}
	return c.ledger.ListForActor(ctx, actor.ID, limit, offset)
}

// QueryAudit runs filter against the audit trail. An actor may query their
// own records freely; querying another actor's records, or records with
// no actor filter at all, requires the administrator role.
func (c *Core) QueryAudit(ctx context.Context, actor domain.Actor, filter domain.AuditFilter, limit, offset int) ([]domain.AuditRecord, int, error) {
	if err := c.guard.RequireActive(actor); err != nil {
		c.recordGuardDenial(ctx, actor.ID, domain.ActionAuditQuery, nil, err)
		return nil, 0, err
	}
	if err := c.requireSelfOrPrivileged(actor, filter.Actor); err != nil {
		c.recordGuardDenial(ctx, actor.ID, domain.ActionAuditQuery, nil, err)
		return nil, 0, err
	}
	records, err := c.audit.Query(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := c.audit.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// SecurityAlerts returns ANOMALY_DETECTED audit records. An actor sees
// their own alerts; seeing another actor's (or all actors') requires the
// administrator role.
func (c *Core) SecurityAlerts(ctx context.Context, actor domain.Actor, forActor *int64, limit, offset int) ([]domain.AuditRecord, error) {
	if err := c.guard.RequireActive(actor); err != nil {
		c.recordGuardDenial(ctx, actor.ID, domain.ActionAlertsQuery, nil, err)
		return nil, err
	}
	if err := c.requireSelfOrPrivileged(actor, forActor); err != nil {
		c.recordGuardDenial(ctx, actor.ID, domain.ActionAlertsQuery, nil, err)
		return nil, err
	}
	action := domain.ActionAnomalyDetected
	filter := domain.AuditFilter{Actor: forActor, Action: &action}
	return c.audit.Query(ctx, filter, limit, offset)
}

// ClearAlerts records that actor has acknowledged their own open alerts.
// There is no separate in-memory cache to reset: the detector's sliding
// window is computed live from the audit trail on every call, so
// acknowledgement is itself just an audit event rather than a state
// mutation. Like every other self-service operation, only an active
// actor is required — clear_alerts has no cross-actor form for a role
// check to gate.
func (c *Core) ClearAlerts(ctx context.Context, actor domain.Actor) error {
	if err := c.guard.RequireActive(actor); err != nil {
		c.recordGuardDenial(ctx, actor.ID, domain.ActionAlertsCleared, nil, err)
		return err
	}
	actorID := actor.ID
	_, err := c.audit.Record(ctx, audit.Entry{
		Actor:  &actorID,
		Action: domain.ActionAlertsCleared,
		Status: domain.AuditSuccess,
	})
	return err
}

func (c *Core) requireSelfOrPrivileged(actor domain.Actor, target *int64) error {
	if target == nil || *target != actor.ID {
		return c.guard.RequireRole(actor, domain.RoleAdministrator)
	}
	return nil
}

// recordGuardDenial writes the FAILED audit entry spec.md requires for
// every policy guard denial, labeled with the action the actor was
// attempting when the guard rejected them.
func (c *Core) recordGuardDenial(ctx context.Context, actor int64, action domain.AuditAction, resource *string, err error) {
	_, _ = c.audit.Record(ctx, audit.Entry{
		Actor:    &actor,
		Action:   action,
		Resource: resource,
		Status:   domain.AuditFailed,
		Details:  map[string]any{"reason": keyEventReason(err)},
	})
}

func (c *Core) recordKeyEvent(ctx context.Context, actor int64, action domain.AuditAction, resource *string, err error) {
	status := domain.AuditSuccess
	var details map[string]any
	if err != nil {
		status = domain.AuditFailed
		details = map[string]any{"reason": keyEventReason(err)}
	}
	_, _ = c.audit.Record(ctx, audit.Entry{
		Actor:    &actor,
		Action:   action,
		Resource: resource,
		Status:   status,
		Details:  details,
	})
}

func keyEventReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrBadAlgorithm):
		return "bad_algorithm"
	case errors.Is(err, domain.ErrKeyUnknown):
		return "key_unknown"
	case errors.Is(err, domain.ErrNotAuthorized):
		return "not_authorized"
	default:
		return "internal_error"
	}
}
