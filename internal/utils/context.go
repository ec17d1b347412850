package utils

import (
	"context"

	"github.com/EmpoweredVote/EV-Auth/internal/users"
)

type contextKey string

const ContextUserKey contextKey = "user"

// WithUser attaches the resolved user to a single request's context.
func WithUser(ctx context.Context, u *users.User) context.Context {
	return context.WithValue(ctx, ContextUserKey, u)
}

func GetUserFromContext(ctx context.Context) (*users.User, bool) {
	u, ok := ctx.Value(ContextUserKey).(*users.User)
	return u, ok && u != nil
}
