package common

import (
	"context"
)

// DemoUserID is the fallback user scope used when no Telegram identity is
// present and demo mode is enabled.
const DemoUserID = "demo"

// UserContext holds the per-request Telegram identity resolved from the
// session token. When absent (nil), the server operates in demo mode with a
// fixed user scope.
type UserContext struct {
	UserID       string
	FirstName    string
	Username     string
	LanguageCode string
}

type contextKey int

const userContextKey contextKey = iota

// WithUserContext stores a UserContext in the request context.
func WithUserContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

// UserContextFromContext retrieves the UserContext from context, or nil if absent.
func UserContextFromContext(ctx context.Context) *UserContext {
	uc, _ := ctx.Value(userContextKey).(*UserContext)
	return uc
}

// ResolveUserID returns the UserID from context, or DemoUserID when no user
// context is present. Used by services and storage operations that need a
// user scope.
func ResolveUserID(ctx context.Context) string {
	if uc := UserContextFromContext(ctx); uc != nil && uc.UserID != "" {
		return uc.UserID
	}
	return DemoUserID
}
