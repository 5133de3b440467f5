package auth

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SessionCookie names the cookie that carries the session token
const SessionCookie = "booking_session"

// Middleware resolves the session a request carries. Sessions are only
// started by Issue, so anonymous traffic leaves no rows behind.
type Middleware struct {
	service *Service
	secure  bool
	logger  zerolog.Logger
}

// NewMiddleware creates a new session middleware. secure marks the cookie
// HTTPS-only.
func NewMiddleware(service *Service, secure bool) *Middleware {
	return &Middleware{
		service: service,
		secure:  secure,
		logger:  log.With().Str("component", "auth").Logger(),
	}
}

// Session attaches the first valid session named by the bearer token or the
// cookie. Unknown or expired tokens are skipped and no session is created.
func (m *Middleware) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, token := range RequestTokens(r) {
			if session, err := m.service.ValidateSession(token); err == nil {
				r = r.WithContext(SetSessionInContext(r.Context(), session))
				break
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Issue returns the request's session, starting one and setting its cookie
// when the request has none.
func (m *Middleware) Issue(w http.ResponseWriter, r *http.Request) (*Session, error) {
	if session := GetSessionFromContext(r.Context()); session != nil {
		return session, nil
	}

	token, session, err := m.service.CreateSession()
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to create session")
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionDuration.Seconds()),
	})
	return session, nil
}

// RequestTokens lists the session tokens a request carries, the
// Authorization header first.
func RequestTokens(r *http.Request) []string {
	var tokens []string
	if token := extractBearerToken(r); token != "" {
		tokens = append(tokens, token)
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		tokens = append(tokens, cookie.Value)
	}
	return tokens
}

// ClearCookie expires the session cookie on the client
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// extractBearerToken extracts the token from the Authorization header
// Expects format: "Bearer <token>"
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
