package policy

import (
	"testing"

	"github.com/shoalcreek/privacycore/internal/domain"
)

func TestGuard_RequireOwnerOrAdmin(t *testing.T) {
	g := New()
	tests := []struct {
		name    string
		actor   domain.Actor
		owner   int64
		wantErr bool
	}{
		{"owner", domain.Actor{ID: 1, Role: domain.RoleStandard, Status: domain.ActorActive}, 1, false},
		{"administrator", domain.Actor{ID: 9, Role: domain.RoleAdministrator, Status: domain.ActorActive}, 1, false},
		{"other standard actor", domain.Actor{ID: 2, Role: domain.RoleStandard, Status: domain.ActorActive}, 1, true},
		{"inactive owner", domain.Actor{ID: 1, Role: domain.RoleStandard, Status: domain.ActorInactive}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.RequireOwnerOrAdmin(tt.actor, tt.owner)
			if (err != nil) != tt.wantErr {
				t.Errorf("RequireOwnerOrAdmin() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && err != domain.ErrNotAuthorized {
				t.Errorf("err = %v, want ErrNotAuthorized", err)
			}
		})
	}
}

func TestGuard_RequireKeyUsable(t *testing.T) {
	g := New()
	active := domain.KeyRecord{Status: domain.KeyActive}
	revoked := domain.KeyRecord{Status: domain.KeyRevoked}
	if err := g.RequireKeyUsable(active); err != nil {
		t.Errorf("active key: err = %v, want nil", err)
	}
	if err := g.RequireKeyUsable(revoked); err != domain.ErrKeyNotActive {
		t.Errorf("revoked key: err = %v, want ErrKeyNotActive", err)
	}
}

func TestGuard_RequireRole_AdministratorOnly(t *testing.T) {
	g := New()
	admin := domain.Actor{ID: 1, Role: domain.RoleAdministrator, Status: domain.ActorActive}
	manager := domain.Actor{ID: 2, Role: domain.RoleManager, Status: domain.ActorActive}
	standard := domain.Actor{ID: 3, Role: domain.RoleStandard, Status: domain.ActorActive}
	if err := g.RequireRole(admin, domain.RoleAdministrator); err != nil {
		t.Errorf("admin: err = %v, want nil", err)
	}
	if err := g.RequireRole(manager, domain.RoleAdministrator); err != domain.ErrNotAuthorized {
		t.Errorf("manager: err = %v, want ErrNotAuthorized — spec.md §4.8 reserves administrative endpoints for administrator only", err)
	}
	if err := g.RequireRole(standard, domain.RoleAdministrator); err != domain.ErrNotAuthorized {
		t.Errorf("standard: err = %v, want ErrNotAuthorized", err)
	}
}
