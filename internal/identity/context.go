// Package identity carries the upstream-authenticated caller through context.
// Authentication and authorization happen before requests reach this service;
// handlers only read the actor that the auth middleware stored here.
package identity

import "context"

// Role classifies the authenticated caller.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
	RoleAdmin   Role = "admin"
)

// Actor is the authenticated user on whose behalf a request runs.
type Actor struct {
	UserID string
	Role   Role
}

// IsDoctor reports whether the actor is a doctor.
func (a Actor) IsDoctor() bool { return a.Role == RoleDoctor }

// IsPatient reports whether the actor is a patient.
func (a Actor) IsPatient() bool { return a.Role == RolePatient }

type ctxKey string

const actorKey ctxKey = "clinic.actor"

// WithActor stores the actor in context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext extracts the actor if present.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	val := ctx.Value(actorKey)
	if val == nil {
		return Actor{}, false
	}
	actor, ok := val.(Actor)
	return actor, ok && actor.UserID != ""
}
