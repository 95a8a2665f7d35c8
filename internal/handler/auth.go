package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/linkshare/internal/auth"
	"github.com/sakif/linkshare/internal/model"
)

// OAuthFlow is the OAuth handshake as the handlers use it.
// *auth.Handshake implements it.
type OAuthFlow interface {
	Begin(w http.ResponseWriter, r *http.Request) error
	Complete(r *http.Request, successURL string) (*auth.Completion, error)
	ClearOAuthSessionCookie(w http.ResponseWriter)
}

// ProfileFetcher loads the signed-in GitHub profile.
// *auth.GitHubProvider implements it.
type ProfileFetcher interface {
	FetchUser(ctx context.Context, accessToken string) (*auth.GitHubUser, error)
}

// Accounts is the part of service.AuthService the handlers need.
type Accounts interface {
	ReconcileGitHubUser(ctx context.Context, profile *auth.GitHubUser, sessionID string) (*model.User, error)
	UserBySession(ctx context.Context, sessionID string) (*model.User, error)
	SignOut(ctx context.Context, sessionID string) error
}

// AuthHandler manages the GitHub OAuth login flow and session management.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSignin   → remember the redirect target, start the OAuth flow
//   - HandleCallback → finish the flow and reconcile the user account
//   - HandleSignout  → drop the session
//   - HandleMe       → return the currently signed-in user
type AuthHandler struct {
	oauth    OAuthFlow
	github   ProfileFetcher
	accounts Accounts
	secure   bool
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected here;
// the handler has no knowledge of how they're constructed. secure marks the
// cookies it writes as HTTPS-only.
func NewAuthHandler(
	oauth OAuthFlow,
	github ProfileFetcher,
	accounts Accounts,
	secure bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		oauth:    oauth,
		github:   github,
		accounts: accounts,
		secure:   secure,
		logger:   logger,
	}
}

// HandleSignin starts the OAuth flow.
//
// HTTP: GET /signin?success_url=/item/abc
//
// The optional success_url is stored in a short-lived cookie and used by the
// callback as the post-login redirect.
func (h *AuthHandler) HandleSignin(w http.ResponseWriter, r *http.Request) {
	auth.SetRedirectURLCookie(w, r, h.secure)

	if err := h.oauth.Begin(w, r); err != nil {
		h.logger.Error("signin: starting OAuth flow failed", slog.String("error", err.Error()))
		writePageError(w, err)
	}
}

// HandleCallback completes the OAuth login flow.
//
// HTTP: GET /callback?code=xxx&state=yyy
//
// FLOW:
//  1. Complete the handshake: check state, exchange the code, mint the
//     session ID. The response it prepares is held back, not written.
//  2. Remove the one-time redirect cookie from that response
//  3. Fetch the GitHub profile with the access token
//  4. Reconcile the profile with the user store
//  5. Write the response: session cookie, then the redirect
//
// Any failure aborts the request before step 5, so a browser never holds a
// session cookie for a login that was not recorded. The failure response
// only expires the OAuth state cookie. Nothing is retried.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	completion, err := h.oauth.Complete(r, auth.RedirectURLFromRequest(r))
	if err != nil {
		h.logger.Warn("callback: OAuth handshake failed", slog.String("error", err.Error()))
		h.failCallback(w, err)
		return
	}

	resp := completion.Response
	auth.DeleteRedirectURLCookie(resp)

	profile, err := h.github.FetchUser(r.Context(), completion.AccessToken)
	if err != nil {
		h.logger.Error("callback: fetching GitHub profile failed", slog.String("error", err.Error()))
		h.failCallback(w, err)
		return
	}

	user, err := h.accounts.ReconcileGitHubUser(r.Context(), profile, completion.SessionID)
	if err != nil {
		h.logger.Error("callback: reconciling user failed",
			slog.Int64("githubID", profile.ID),
			slog.String("error", err.Error()),
		)
		h.failCallback(w, err)
		return
	}

	h.logger.Info("user authenticated",
		slog.String("userID", user.ID),
		slog.String("login", user.Login),
	)

	resp.Write(w, r)
}

// failCallback answers a failed callback. The cookie header goes out before
// the error body.
func (h *AuthHandler) failCallback(w http.ResponseWriter, err error) {
	h.oauth.ClearOAuthSessionCookie(w)
	writePageError(w, err)
}

// HandleSignout drops the current session and its cookie.
//
// HTTP: GET /signout
//
// The session index row is deleted, so the cookie would stop working even
// if the browser kept it.
func (h *AuthHandler) HandleSignout(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := auth.SessionIDFromContext(r.Context()); ok {
		if err := h.accounts.SignOut(r.Context(), sessionID); err != nil {
			h.logger.Error("signout failed", slog.String("error", err.Error()))
			writePageError(w, err)
			return
		}
	}

	auth.ClearSessionCookie(w, h.secure)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleMe returns the currently signed-in user's profile.
//
// HTTP: GET /api/me
// Auth: Required (RequireAuth middleware sets the session ID in context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.accounts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
