// Package policy guards every operation with ownership/role/status
// predicates. Every denial — wrong owner, inactive actor, insufficient
// role — collapses to the same opaque error so a caller cannot use the
// error to enumerate why access was denied.
package policy

import "github.com/shoalcreek/privacycore/internal/domain"

// Guard evaluates authorization predicates against an Actor.
type Guard struct{}

func New() *Guard { return &Guard{} }

// RequireActive rejects an inactive actor.
func (g *Guard) RequireActive(actor domain.Actor) error {
	if !actor.IsActive() {
		return domain.ErrNotAuthorized
	}
	return nil
}

// RequireOwnerOrAdmin rejects an actor that neither owns the resource nor
// holds the administrator role.
func (g *Guard) RequireOwnerOrAdmin(actor domain.Actor, owner int64) error {
	if err := g.RequireActive(actor); err != nil {
		return err
	}
	if actor.IsAdministrator() || actor.ID == owner {
		return nil
	}
	return domain.ErrNotAuthorized
}

// RequireRole rejects an actor that does not hold one of the allowed
// roles.
func (g *Guard) RequireRole(actor domain.Actor, allowed ...domain.Role) error {
	if err := g.RequireActive(actor); err != nil {
		return err
	}
	for _, role := range allowed {
		if actor.Role == role {
			return nil
		}
	}
	return domain.ErrNotAuthorized
}

// RequireKeyUsable rejects a key that is not in the Active state,
// regardless of who is asking.
func (g *Guard) RequireKeyUsable(key domain.KeyRecord) error {
	if !key.IsUsable() {
		return domain.ErrKeyNotActive
	}
	return nil
}
