package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/sakif/linkshare/internal/apperror"
	"github.com/sakif/linkshare/internal/auth"
	"github.com/sakif/linkshare/internal/model"
)

// SessionResolver turns a session ID into its user.
type SessionResolver interface {
	UserBySession(ctx context.Context, sessionID string) (*model.User, error)
}

// currentUser resolves the session placed in the context by the auth
// middleware. A request without one, or whose session was superseded,
// yields apperror.ErrUnauthorized.
func currentUser(r *http.Request, users SessionResolver) (*model.User, error) {
	sessionID, ok := auth.SessionIDFromContext(r.Context())
	if !ok {
		return nil, apperror.Unauthorized("valid authentication required")
	}
	return users.UserBySession(r.Context(), sessionID)
}

// optionalUser is currentUser for pages anyone may see: a missing or stale
// session is an anonymous visitor, not an error.
func optionalUser(r *http.Request, users SessionResolver) (*model.User, error) {
	user, err := currentUser(r, users)
	if errors.Is(err, apperror.ErrUnauthorized) {
		return nil, nil
	}
	return user, err
}
