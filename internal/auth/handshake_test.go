package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/linkshare/internal/apperror"
)

func newTestHandshake(t *testing.T) (*Handshake, *fakeGitHub) {
	t.Helper()
	f := newFakeGitHub(t)
	h := NewHandshake(f.provider(), newTestTokenService(t), NewOAuthStore("oauth-store-secret-0123456789"), false)
	return h, f
}

// begin runs Begin and returns the cookies it set plus the state sent to
// GitHub.
func begin(t *testing.T, h *Handshake) ([]*http.Cookie, string) {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/signin", nil)

	require.NoError(t, h.Begin(rr, req))
	require.Equal(t, http.StatusFound, rr.Code)

	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	return rr.Result().Cookies(), state
}

func callbackRequest(cookies []*http.Cookie, query url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/callback?"+query.Encode(), nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

// =========================================================================
// BEGIN
// =========================================================================

func TestBegin_SetsOAuthSessionCookie(t *testing.T) {
	h, _ := newTestHandshake(t)

	cookies, _ := begin(t, h)

	require.Len(t, cookies, 1)
	assert.Equal(t, OAuthSessionName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, oauthSessionMaxAge, cookies[0].MaxAge)
}

func TestBegin_FreshStateEachTime(t *testing.T) {
	h, _ := newTestHandshake(t)

	_, s1 := begin(t, h)
	_, s2 := begin(t, h)
	assert.NotEqual(t, s1, s2)
}

// =========================================================================
// COMPLETE
// =========================================================================

func TestComplete_Success(t *testing.T) {
	h, f := newTestHandshake(t)
	cookies, state := begin(t, h)

	req := callbackRequest(cookies, url.Values{"state": {state}, "code": {"code-1"}})
	c, err := h.Complete(req, "/item/abc")
	require.NoError(t, err)

	assert.Equal(t, "gho_test_token", c.AccessToken)
	assert.NotEmpty(t, c.SessionID)
	assert.NotEmpty(t, f.gotVerifier, "PKCE verifier must be sent with the exchange")

	assert.Equal(t, "/item/abc", c.Response.Location)
	assert.Equal(t, http.StatusSeeOther, c.Response.Status)

	site := c.Response.Cookie(SessionCookieName)
	require.NotNil(t, site)
	got, err := h.tokens.Validate(site.Value)
	require.NoError(t, err)
	assert.Equal(t, c.SessionID, got, "session cookie must carry the new session ID")

	oauthCookie := c.Response.Cookie(OAuthSessionName)
	require.NotNil(t, oauthCookie)
	assert.Less(t, oauthCookie.MaxAge, 0, "OAuth session cookie is single-use")
}

func TestComplete_NewSessionIDPerLogin(t *testing.T) {
	h, _ := newTestHandshake(t)

	ids := map[string]bool{}
	for i := 0; i < 3; i++ {
		cookies, state := begin(t, h)
		c, err := h.Complete(callbackRequest(cookies, url.Values{"state": {state}, "code": {"c"}}), "/")
		require.NoError(t, err)
		ids[c.SessionID] = true
	}
	assert.Len(t, ids, 3)
}

func TestComplete_StateMismatch(t *testing.T) {
	h, _ := newTestHandshake(t)
	cookies, _ := begin(t, h)

	req := callbackRequest(cookies, url.Values{"state": {"forged"}, "code": {"code-1"}})
	_, err := h.Complete(req, "/")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestComplete_NoOAuthSession(t *testing.T) {
	h, _ := newTestHandshake(t)

	req := callbackRequest(nil, url.Values{"state": {"s"}, "code": {"code-1"}})
	_, err := h.Complete(req, "/")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestComplete_ForgedOAuthCookie(t *testing.T) {
	h, _ := newTestHandshake(t)

	req := callbackRequest(
		[]*http.Cookie{{Name: OAuthSessionName, Value: "not-signed"}},
		url.Values{"state": {"s"}, "code": {"code-1"}},
	)
	_, err := h.Complete(req, "/")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestComplete_MissingCode(t *testing.T) {
	h, _ := newTestHandshake(t)
	cookies, state := begin(t, h)

	_, err := h.Complete(callbackRequest(cookies, url.Values{"state": {state}}), "/")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestComplete_AuthorizationDenied(t *testing.T) {
	h, _ := newTestHandshake(t)
	cookies, state := begin(t, h)

	req := callbackRequest(cookies, url.Values{"state": {state}, "error": {"access_denied"}})
	_, err := h.Complete(req, "/")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestComplete_ExchangeFails(t *testing.T) {
	h, f := newTestHandshake(t)
	f.tokenStatus = http.StatusBadRequest
	cookies, state := begin(t, h)

	_, err := h.Complete(callbackRequest(cookies, url.Values{"state": {state}, "code": {"c"}}), "/")
	assert.ErrorIs(t, err, apperror.ErrUpstream)
}

// =========================================================================
// PENDING RESPONSE
// =========================================================================

func TestPendingResponse_Write(t *testing.T) {
	p := NewPendingResponse("/next", http.StatusSeeOther)
	p.SetCookie(&http.Cookie{Name: "a", Value: "1"})
	p.SetCookie(&http.Cookie{Name: "a", Value: "2"})
	p.DeleteCookie("b")

	rr := httptest.NewRecorder()
	p.Write(rr, httptest.NewRequest(http.MethodGet, "/callback", nil))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/next", rr.Header().Get("Location"))

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, "2", cookies[0].Value, "SetCookie replaces by name")
	assert.Equal(t, "b", cookies[1].Name)
	assert.Less(t, cookies[1].MaxAge, 0)
}

func TestClearOAuthSessionCookie(t *testing.T) {
	h, _ := newTestHandshake(t)
	rr := httptest.NewRecorder()

	h.ClearOAuthSessionCookie(rr)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, OAuthSessionName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
	assert.True(t, cookies[0].HttpOnly)
}
