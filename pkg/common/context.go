package common

import "context"

// contextKey is an unexported type so request-scoped values cannot
// collide with keys set by other packages.
type contextKey string

const (
	contextKeyUserID    contextKey = "user_id"
	contextKeyUserRoles contextKey = "user_roles"
)

// WithUserID stores the authenticated caller's ID on the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKeyUserID, userID)
}

// GetUserID returns the authenticated caller's ID, if one was set
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(contextKeyUserID).(string)
	return userID, ok
}

// WithUserRoles stores the caller's roles on the context
func WithUserRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, contextKeyUserRoles, roles)
}

// GetUserRoles returns the caller's roles, if any were set
func GetUserRoles(ctx context.Context) ([]string, bool) {
	roles, ok := ctx.Value(contextKeyUserRoles).([]string)
	return roles, ok
}

// HasRole reports whether the caller carries the given role
func HasRole(ctx context.Context, role string) bool {
	roles, ok := GetUserRoles(ctx)
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
