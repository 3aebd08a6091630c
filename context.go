package auditlog

import (
	"context"
	"database/sql"
)

// unexported context key types.
type actorKey struct{}
type skipKey struct{}
type txKey struct{}

// WithActor attaches the identifier of the acting user to the context.
func WithActor(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, actorKey{}, id)
}

// ActorFromContext returns the actor attached by WithActor.
func ActorFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(actorKey{}).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// WithSkip marks the context so lifecycle events fired with it are not audited.
func WithSkip(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipKey{}, true)
}

func extractSkip(ctx context.Context) bool {
	if v, ok := ctx.Value(skipKey{}).(bool); ok {
		return v
	}
	return false
}

// WithTx makes SQLStore write through tx instead of its *sql.DB, so the audit
// row commits or rolls back together with the host's change.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, tx)
}

func txFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

//go:generate mockgen -source=context.go -destination=mocks/identity.go -package=mocks Identity

// Identity resolves the currently authenticated actor. ok is false when the
// change is made by an anonymous or system caller.
type Identity interface {
	CurrentActorID(ctx context.Context) (id string, ok bool)
}

// IdentityFunc adapts a function to Identity.
type IdentityFunc func(ctx context.Context) (string, bool)

func (f IdentityFunc) CurrentActorID(ctx context.Context) (string, bool) {
	return f(ctx)
}

// ContextIdentity reads the actor stored by WithActor.
var ContextIdentity Identity = IdentityFunc(ActorFromContext)
