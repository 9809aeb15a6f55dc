package auth

import "context"

type contextKey string

const actorKey contextKey = "actor_id"

// WithActorID returns a context carrying the authenticated actor id.
func WithActorID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, actorKey, id)
}

// ActorIDFromContext returns the authenticated actor id, or false if the
// request carried none.
func ActorIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(actorKey).(int64)
	return id, ok
}
