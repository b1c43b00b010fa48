package middleware

import "context"

type principalKey struct{}

// Principal is the authenticated caller as resolved by Auth.
type Principal struct {
	UserID  int64
	TokenID string
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || p.UserID <= 0 {
		return Principal{}, false
	}
	return p, true
}

// UserIDFromContext returns the authenticated user id seeded by Auth.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	p, ok := PrincipalFromContext(ctx)
	return p.UserID, ok
}

// WithUserID seeds a principal without a token id; used by tests and internal callers.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return WithPrincipal(ctx, Principal{UserID: userID})
}
