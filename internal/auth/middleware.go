package auth

import (
	"context"
	"net/http"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "sessionID", id), ANY package that knows the string
// can read or shadow your value. Only THIS package can create a key of type
// contextKey, so only this package can read or write the session ID.
type contextKey string

const sessionIDKey contextKey = "sessionID"

// RequireAuth is a middleware that enforces a signed-in session on protected
// routes.
//
// It reads the JWT from the "site-session" HttpOnly cookie, validates it, and
// stores the session ID in the request context. If the token is missing or
// invalid, it returns 401 Unauthorized and stops the request chain.
//
// The middleware only proves the cookie is ours and unexpired. Whether the
// session is still the user's current one is decided by the session index,
// which handlers consult through the user service.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := extractSessionID(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}` + "\n"))
				return
			}

			ctx := WithSessionID(r.Context(), sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth extracts the session if a valid cookie is present, but does
// NOT block the request if it's missing or invalid.
//
// Used on the HTML pages: anonymous visitors can browse, signed-in users
// additionally see which items they voted for.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sessionID, err := extractSessionID(r, tokens); err == nil {
				r = r.WithContext(WithSessionID(r.Context(), sessionID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithSessionID returns a copy of ctx carrying sessionID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// SessionIDFromContext retrieves the session ID placed by the middleware.
//
// Returns ("", false) if the request is anonymous (no valid cookie).
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

// extractSessionID reads the session cookie and validates it.
func extractSessionID(r *http.Request, tokens *TokenService) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		// http.ErrNoCookie means the cookie isn't present — just anonymous
		return "", err
	}

	return tokens.Validate(cookie.Value)
}
