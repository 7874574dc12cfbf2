package shared

import (
	"context"

	"github.com/google/uuid"
)

// Actor describes the authenticated caller.
type Actor struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

// ActorID returns the caller id, or nil when unauthenticated.
func ActorID(ctx context.Context) *uuid.UUID {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.UserID == uuid.Nil {
		return nil
	}
	id := actor.UserID
	return &id
}
