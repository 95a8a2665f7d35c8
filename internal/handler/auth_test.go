package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/linkshare/internal/apperror"
	"github.com/sakif/linkshare/internal/auth"
	"github.com/sakif/linkshare/internal/billing"
	"github.com/sakif/linkshare/internal/handler"
	"github.com/sakif/linkshare/internal/model"
)

// MockOAuth implements handler.OAuthFlow without talking to GitHub.
type MockOAuth struct {
	SessionID   string
	ReturnErr   error
	CapturedURL string
	Began       bool
}

func (m *MockOAuth) Begin(w http.ResponseWriter, r *http.Request) error {
	m.Began = true
	http.Redirect(w, r, "https://github.example/authorize", http.StatusFound)
	return nil
}

func (m *MockOAuth) ClearOAuthSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: auth.OAuthSessionName, Path: "/", MaxAge: -1})
}

func (m *MockOAuth) Complete(r *http.Request, successURL string) (*auth.Completion, error) {
	m.CapturedURL = successURL
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	resp := auth.NewPendingResponse(successURL, http.StatusSeeOther)
	resp.SetCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "jwt-for-" + m.SessionID, Path: "/"})
	return &auth.Completion{
		Response:    resp,
		AccessToken: "gho_token",
		SessionID:   m.SessionID,
	}, nil
}

// MockGitHub implements handler.ProfileFetcher.
type MockGitHub struct {
	Profile       *auth.GitHubUser
	ReturnErr     error
	CapturedToken string
	Calls         int
}

func (m *MockGitHub) FetchUser(ctx context.Context, accessToken string) (*auth.GitHubUser, error) {
	m.Calls++
	m.CapturedToken = accessToken
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return m.Profile, nil
}

// MockAccounts implements handler.Accounts with a fixed reconcile error.
type MockAccounts struct {
	ReconcileErr error
}

func (m *MockAccounts) ReconcileGitHubUser(context.Context, *auth.GitHubUser, string) (*model.User, error) {
	return nil, m.ReconcileErr
}

func (m *MockAccounts) UserBySession(context.Context, string) (*model.User, error) {
	return nil, apperror.Unauthorized("no")
}

func (m *MockAccounts) SignOut(context.Context, string) error { return nil }

// stubCustomers is an enabled billing.Customers returning a fixed ID.
type stubCustomers struct{ calls int }

func (s *stubCustomers) Enabled() bool { return true }

func (s *stubCustomers) CreateCustomer(context.Context, string) (string, error) {
	s.calls++
	return "cus_test", nil
}

func callbackRequest(redirect string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/callback?code=c&state=s", nil)
	if redirect != "" {
		req.AddCookie(&http.Cookie{Name: auth.RedirectCookieName, Value: url.QueryEscape(redirect)})
	}
	return req
}

func assertOAuthCookieExpired(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()
	c := findCookie(rr.Result().Cookies(), auth.OAuthSessionName)
	require.NotNil(t, c, "failed callback must expire the OAuth state cookie")
	assert.Less(t, c.MaxAge, 0)
}

var ada = &auth.GitHubUser{ID: 42, Login: "ada", Email: "a@x.com"}

func TestAuthHandler_HandleCallback(t *testing.T) {
	t.Run("first login creates the user and writes the response", func(t *testing.T) {
		db := newTestDB(t)
		customers := &stubCustomers{}
		oauth := &MockOAuth{SessionID: "sess-new"}
		gh := &MockGitHub{Profile: ada}
		h := handler.NewAuthHandler(oauth, gh, newAuthService(db, customers), false, testLogger())

		rr := httptest.NewRecorder()
		h.HandleCallback(rr, callbackRequest("/item/abc"))

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/item/abc", rr.Header().Get("Location"))
		assert.Equal(t, "/item/abc", oauth.CapturedURL)
		assert.Equal(t, "gho_token", gh.CapturedToken)

		cookies := rr.Result().Cookies()
		site := findCookie(cookies, auth.SessionCookieName)
		require.NotNil(t, site)
		assert.Equal(t, "jwt-for-sess-new", site.Value)
		redirect := findCookie(cookies, auth.RedirectCookieName)
		require.NotNil(t, redirect, "redirect cookie must be deleted")
		assert.Less(t, redirect.MaxAge, 0)

		user, err := db.GetBySession(context.Background(), "sess-new")
		require.NoError(t, err)
		assert.Equal(t, "42", user.ID)
		assert.Equal(t, "ada", user.Login)
		require.NotNil(t, user.StripeCustomerID)
		assert.Equal(t, "cus_test", *user.StripeCustomerID)
		assert.Equal(t, 1, customers.calls)
	})

	t.Run("first login without billing", func(t *testing.T) {
		db := newTestDB(t)
		h := handler.NewAuthHandler(&MockOAuth{SessionID: "s1"}, &MockGitHub{Profile: ada},
			newAuthService(db, billing.Noop{}), false, testLogger())

		rr := httptest.NewRecorder()
		h.HandleCallback(rr, callbackRequest(""))

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/", rr.Header().Get("Location"), "no redirect cookie means home")

		user, err := db.GetByID(context.Background(), "42")
		require.NoError(t, err)
		assert.Nil(t, user.StripeCustomerID)
	})

	t.Run("returning user gets the new session and the old one stops resolving", func(t *testing.T) {
		db := newTestDB(t)
		seedUser(t, db, "42", "ada", "old")
		profile := &auth.GitHubUser{ID: 42, Login: "ada-renamed", Email: "a@x.com"}
		h := handler.NewAuthHandler(&MockOAuth{SessionID: "new"}, &MockGitHub{Profile: profile},
			newAuthService(db, &stubCustomers{}), false, testLogger())

		rr := httptest.NewRecorder()
		h.HandleCallback(rr, callbackRequest(""))
		require.Equal(t, http.StatusSeeOther, rr.Code)

		_, err := db.GetBySession(context.Background(), "old")
		assert.ErrorIs(t, err, apperror.ErrNotFound)

		user, err := db.GetBySession(context.Background(), "new")
		require.NoError(t, err)
		assert.Equal(t, "ada", user.Login, "login is not refreshed from GitHub")
	})

	t.Run("profile fetch failure is 502 and mutates nothing", func(t *testing.T) {
		db := newTestDB(t)
		customers := &stubCustomers{}
		gh := &MockGitHub{ReturnErr: apperror.Upstream("github user", errors.New("status 401"))}
		h := handler.NewAuthHandler(&MockOAuth{SessionID: "s1"}, gh,
			newAuthService(db, customers), false, testLogger())

		rr := httptest.NewRecorder()
		h.HandleCallback(rr, callbackRequest("/x"))

		assert.Equal(t, http.StatusBadGateway, rr.Code)
		assert.Nil(t, findCookie(rr.Result().Cookies(), auth.SessionCookieName),
			"no session cookie on failure")
		assertOAuthCookieExpired(t, rr)
		assert.Equal(t, 0, customers.calls)

		_, err := db.GetByID(context.Background(), "42")
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("handshake failure stops before the profile fetch", func(t *testing.T) {
		gh := &MockGitHub{Profile: ada}
		oauth := &MockOAuth{ReturnErr: apperror.ValidationFailed("state", "OAuth state mismatch")}
		h := handler.NewAuthHandler(oauth, gh, &MockAccounts{}, false, testLogger())

		rr := httptest.NewRecorder()
		h.HandleCallback(rr, callbackRequest(""))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, 0, gh.Calls)
		assertOAuthCookieExpired(t, rr)
	})

	t.Run("token exchange failure is 502", func(t *testing.T) {
		oauth := &MockOAuth{ReturnErr: apperror.Upstream("github token exchange", errors.New("bad code"))}
		h := handler.NewAuthHandler(oauth, &MockGitHub{}, &MockAccounts{}, false, testLogger())

		rr := httptest.NewRecorder()
		h.HandleCallback(rr, callbackRequest(""))

		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})

	t.Run("concurrent first login is 409 without a session cookie", func(t *testing.T) {
		accounts := &MockAccounts{ReconcileErr: apperror.Conflict("user", "42")}
		h := handler.NewAuthHandler(&MockOAuth{SessionID: "s1"}, &MockGitHub{Profile: ada}, accounts, false, testLogger())

		rr := httptest.NewRecorder()
		h.HandleCallback(rr, callbackRequest(""))

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Nil(t, findCookie(rr.Result().Cookies(), auth.SessionCookieName))
		assertOAuthCookieExpired(t, rr)
	})
}

func TestAuthHandler_HandleSignin(t *testing.T) {
	oauth := &MockOAuth{}
	h := handler.NewAuthHandler(oauth, &MockGitHub{}, &MockAccounts{}, false, testLogger())

	rr := httptest.NewRecorder()
	h.HandleSignin(rr, httptest.NewRequest(http.MethodGet, "/signin?success_url=%2Fitem%2Fabc", nil))

	assert.True(t, oauth.Began)
	assert.Equal(t, http.StatusFound, rr.Code)
	c := findCookie(rr.Result().Cookies(), auth.RedirectCookieName)
	require.NotNil(t, c)
	assert.Equal(t, 600, c.MaxAge)
}

func TestAuthHandler_HandleSignin_DropsStaleRedirect(t *testing.T) {
	h := handler.NewAuthHandler(&MockOAuth{}, &MockGitHub{}, &MockAccounts{}, false, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/signin", nil)
	req.AddCookie(&http.Cookie{Name: auth.RedirectCookieName, Value: url.QueryEscape("/item/old")})
	rr := httptest.NewRecorder()
	h.HandleSignin(rr, req)

	c := findCookie(rr.Result().Cookies(), auth.RedirectCookieName)
	require.NotNil(t, c)
	assert.Less(t, c.MaxAge, 0, "a sign-in without success_url must not reuse an older target")
}

func TestAuthHandler_HandleSignout(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "42", "ada", "sess-1")
	h := handler.NewAuthHandler(&MockOAuth{}, &MockGitHub{}, newAuthService(db, billing.Noop{}), false, testLogger())

	rr := httptest.NewRecorder()
	h.HandleSignout(rr, withSession(httptest.NewRequest(http.MethodGet, "/signout", nil), "sess-1"))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	c := findCookie(rr.Result().Cookies(), auth.SessionCookieName)
	require.NotNil(t, c)
	assert.Less(t, c.MaxAge, 0)

	_, err := db.GetBySession(context.Background(), "sess-1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	// Anonymous sign-out just clears the cookie.
	rr = httptest.NewRecorder()
	h.HandleSignout(rr, httptest.NewRequest(http.MethodGet, "/signout", nil))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
}

func TestAuthHandler_HandleMe(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "42", "ada", "sess-1")
	h := handler.NewAuthHandler(&MockOAuth{}, &MockGitHub{}, newAuthService(db, billing.Noop{}), false, testLogger())

	t.Run("current session", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleMe(rr, withSession(httptest.NewRequest(http.MethodGet, "/api/me", nil), "sess-1"))

		require.Equal(t, http.StatusOK, rr.Code)
		var body map[string]any
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, "42", body["id"])
		assert.Equal(t, "ada", body["login"])
		assert.NotContains(t, body, "sessionId")
	})

	t.Run("superseded session", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleMe(rr, withSession(httptest.NewRequest(http.MethodGet, "/api/me", nil), "stale"))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
