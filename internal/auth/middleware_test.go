package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// echoSession writes the session ID found in the context, or "anonymous".
var echoSession = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	id, ok := SessionIDFromContext(r.Context())
	if !ok {
		id = "anonymous"
	}
	_, _ = w.Write([]byte(id))
})

func requestWithToken(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	}
	return req
}

func TestRequireAuth(t *testing.T) {
	ts := newTestTokenService(t)
	valid, _ := ts.Generate("sess-1")
	expired, _ := ts.GenerateWithDuration("sess-1", -time.Second)

	tests := []struct {
		name       string
		token      string
		wantStatus int
		wantBody   string
	}{
		{"valid cookie", valid, http.StatusOK, "sess-1"},
		{"no cookie", "", http.StatusUnauthorized, ""},
		{"expired", expired, http.StatusUnauthorized, ""},
		{"garbage", "abc", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			RequireAuth(ts)(echoSession).ServeHTTP(rr, requestWithToken(tt.token))

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rr.Body.String())
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	ts := newTestTokenService(t)
	valid, _ := ts.Generate("sess-2")

	rr := httptest.NewRecorder()
	OptionalAuth(ts)(echoSession).ServeHTTP(rr, requestWithToken(valid))
	assert.Equal(t, "sess-2", rr.Body.String())

	rr = httptest.NewRecorder()
	OptionalAuth(ts)(echoSession).ServeHTTP(rr, requestWithToken("garbage"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "anonymous", rr.Body.String())
}
