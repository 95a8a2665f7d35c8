package auth

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/rs/xid"
	"golang.org/x/oauth2"

	"github.com/sakif/linkshare/internal/apperror"
)

const (
	// SessionCookieName carries the signed site session (a JWT whose subject
	// is the session ID).
	SessionCookieName = "site-session"

	// OAuthSessionName is the short-lived gorilla session that remembers the
	// state and PKCE verifier between /signin and /callback.
	OAuthSessionName = "oauth-session"

	oauthSessionMaxAge = 10 * 60

	stateKey    = "state"
	verifierKey = "verifier"
)

// NewOAuthStore returns a cookie-backed gorilla session store. The values
// are authenticated with an HMAC of secret, so a browser can read but not
// forge them. The verifier is not secret from the user's own browser.
func NewOAuthStore(secret string) *sessions.CookieStore {
	return sessions.NewCookieStore([]byte(secret))
}

// Completion is what a finished OAuth handshake hands back to the callback:
// the response to send (not yet written), the GitHub access token and the
// freshly minted session ID.
type Completion struct {
	Response    *PendingResponse
	AccessToken string
	SessionID   string
}

// Handshake drives both halves of the OAuth flow.
//
// Begin stores a one-time state and PKCE verifier in a signed cookie session
// and redirects to GitHub. Complete checks them against the callback,
// exchanges the code and prepares the sign-in response. Complete never
// writes to the client: the caller decides whether the response is sent.
type Handshake struct {
	provider *GitHubProvider
	tokens   *TokenService
	store    sessions.Store
	secure   bool
}

// NewHandshake wires a Handshake. secure marks every cookie it sets as
// HTTPS-only and should be true in production.
func NewHandshake(provider *GitHubProvider, tokens *TokenService, store sessions.Store, secure bool) *Handshake {
	return &Handshake{
		provider: provider,
		tokens:   tokens,
		store:    store,
		secure:   secure,
	}
}

// Begin starts the flow and redirects the browser to GitHub.
func (h *Handshake) Begin(w http.ResponseWriter, r *http.Request) error {
	// A cookie we can no longer decode (rotated secret, tampering) still
	// yields a fresh, usable session, so the error is not fatal here.
	session, _ := h.store.Get(r, OAuthSessionName)

	state := xid.New().String()
	verifier := oauth2.GenerateVerifier()

	session.Values[stateKey] = state
	session.Values[verifierKey] = verifier
	session.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   oauthSessionMaxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	}

	if err := session.Save(r, w); err != nil {
		return err
	}

	http.Redirect(w, r, h.provider.AuthURL(state, verifier), http.StatusFound)
	return nil
}

// Complete validates the callback request and exchanges its code.
//
// State problems (missing session, mismatch, denied authorization, no code)
// are validation errors. A failed code exchange is an upstream error. On
// success the pending response redirects to successURL, sets the site
// session cookie and expires the OAuth session cookie.
func (h *Handshake) Complete(r *http.Request, successURL string) (*Completion, error) {
	session, err := h.store.Get(r, OAuthSessionName)
	if err != nil || session.IsNew {
		return nil, apperror.ValidationFailed("state", "OAuth session is missing or expired")
	}

	expected, _ := session.Values[stateKey].(string)
	verifier, _ := session.Values[verifierKey].(string)
	if expected == "" || verifier == "" {
		return nil, apperror.ValidationFailed("state", "OAuth session is missing or expired")
	}

	q := r.URL.Query()
	if denied := q.Get("error"); denied != "" {
		return nil, apperror.ValidationFailed("code", "authorization was not granted: "+denied)
	}
	if q.Get("state") != expected {
		return nil, apperror.ValidationFailed("state", "OAuth state mismatch")
	}
	code := q.Get("code")
	if code == "" {
		return nil, apperror.ValidationFailed("code", "missing authorization code")
	}

	token, err := h.provider.Exchange(r.Context(), code, verifier)
	if err != nil {
		return nil, err
	}

	sessionID := xid.New().String()
	signed, err := h.tokens.Generate(sessionID)
	if err != nil {
		return nil, err
	}

	resp := NewPendingResponse(successURL, http.StatusSeeOther)
	resp.SetCookie(h.SessionCookie(signed))
	resp.SetCookie(h.expiredOAuthCookie())

	return &Completion{
		Response:    resp,
		AccessToken: token.AccessToken,
		SessionID:   sessionID,
	}, nil
}

// SessionCookie builds the site session cookie for a signed token.
func (h *Handshake) SessionCookie(signed string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearOAuthSessionCookie expires the OAuth state cookie. The callback sends
// it on failure too, so a used state never outlives its request.
func (h *Handshake) ClearOAuthSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, h.expiredOAuthCookie())
}

func (h *Handshake) expiredOAuthCookie() *http.Cookie {
	return sessions.NewCookie(OAuthSessionName, "", &sessions.Options{
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie writes a cookie that makes the browser drop the site
// session.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
