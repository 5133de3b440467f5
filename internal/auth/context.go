package auth

import "context"

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// SessionContextKey is the key used to store the session in request context
	SessionContextKey contextKey = "session"
)

// Session is the web session attached to a request
type Session struct {
	ID       int64  `json:"-"`
	Token    string `json:"-"`
	Username string `json:"username,omitempty"`
	LoggedIn bool   `json:"logged_in"`
}

// GetSessionFromContext extracts the session from the request context
func GetSessionFromContext(ctx context.Context) *Session {
	session, ok := ctx.Value(SessionContextKey).(*Session)
	if !ok {
		return nil
	}
	return session
}

// SetSessionInContext returns a new context with the session set
func SetSessionInContext(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, SessionContextKey, session)
}
