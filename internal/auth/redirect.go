package auth

import (
	"net/http"
	"net/url"
	"strings"
)

// RedirectCookieName holds where to send the browser after a successful
// sign-in. It is set by GET /signin and consumed once by the callback.
const RedirectCookieName = "success_url"

// SetRedirectURLCookie stores the ?success_url= query parameter of r in the
// redirect cookie. Targets that are not same-site relative paths are ignored,
// so the callback can never be used as an open redirect.
//
// A missing or rejected target expires the cookie instead: a value left by an
// earlier, abandoned sign-in must not steer this one.
func SetRedirectURLCookie(w http.ResponseWriter, r *http.Request, secure bool) {
	c := &http.Cookie{
		Name:     RedirectCookieName,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}

	target, ok := sanitizeRedirect(r.URL.Query().Get(RedirectCookieName))
	if ok {
		c.Value = url.QueryEscape(target)
	} else {
		c.MaxAge = -1
	}
	http.SetCookie(w, c)
}

// RedirectURLFromRequest returns the redirect target stored in the cookie,
// or "/" when it is missing or unusable.
func RedirectURLFromRequest(r *http.Request) string {
	c, err := r.Cookie(RedirectCookieName)
	if err != nil {
		return "/"
	}
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return "/"
	}
	target, ok := sanitizeRedirect(raw)
	if !ok {
		return "/"
	}
	return target
}

// DeleteRedirectURLCookie expires the redirect cookie on a pending response.
func DeleteRedirectURLCookie(resp *PendingResponse) {
	resp.DeleteCookie(RedirectCookieName)
}

// sanitizeRedirect accepts only paths on this site: "/items", "/item/x?y=1".
// Absolute URLs, scheme-relative "//host" and "/\host" (which some browsers
// treat as "//host") are rejected.
func sanitizeRedirect(raw string) (string, bool) {
	if raw == "" || !strings.HasPrefix(raw, "/") {
		return "", false
	}
	if strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, `/\`) {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	return raw, true
}
