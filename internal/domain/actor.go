package domain

// Role is an actor's authorization tier. Core only reads roles; a caller
// mutates the underlying actor store.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleManager       Role = "manager"
	RoleStandard      Role = "standard"
)

// ActorStatus is whether an actor may currently authenticate.
type ActorStatus string

const (
	ActorActive   ActorStatus = "active"
	ActorInactive ActorStatus = "inactive"
)

// Actor is the caller identity the core authorizes against. Core treats this
// as a read-only view; creation and mutation of actors is an external
// concern (session/password auth, user management).
type Actor struct {
	ID     int64
	Role   Role
	Status ActorStatus
}

// IsActive reports whether the actor may invoke any core operation.
func (a Actor) IsActive() bool {
	return a.Status == ActorActive
}

// IsAdministrator reports whether the actor holds the administrator role.
func (a Actor) IsAdministrator() bool {
	return a.Role == RoleAdministrator
}
