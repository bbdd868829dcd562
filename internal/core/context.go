package core

import "context"

type contextKey string

const ctxKeyUser contextKey = "import_user"

// ContextWithUser stores the acting user for an import request.
func ContextWithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKeyUser, u)
}

// UserFromContext returns the acting user, if one was stored.
func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKeyUser).(User)
	return u, ok
}
