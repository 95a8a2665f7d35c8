package auth

import "net/http"

// PendingResponse is a redirect response that has been decided but not yet
// written. The callback keeps adjusting it (dropping the redirect cookie)
// and only writes it once the user record is saved, so a failed request
// leaves the browser without a session cookie.
type PendingResponse struct {
	Location string
	Status   int
	cookies  []*http.Cookie
}

func NewPendingResponse(location string, status int) *PendingResponse {
	return &PendingResponse{Location: location, Status: status}
}

// SetCookie adds c, replacing any earlier cookie with the same name.
func (p *PendingResponse) SetCookie(c *http.Cookie) {
	for i, existing := range p.cookies {
		if existing.Name == c.Name {
			p.cookies[i] = c
			return
		}
	}
	p.cookies = append(p.cookies, c)
}

// DeleteCookie makes the response expire the named cookie in the browser.
func (p *PendingResponse) DeleteCookie(name string) {
	p.SetCookie(&http.Cookie{
		Name:   name,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// Cookie returns the pending cookie called name, or nil.
func (p *PendingResponse) Cookie(name string) *http.Cookie {
	for _, c := range p.cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (p *PendingResponse) Cookies() []*http.Cookie {
	return p.cookies
}

// Write sends the cookies, then the redirect.
func (p *PendingResponse) Write(w http.ResponseWriter, r *http.Request) {
	for _, c := range p.cookies {
		http.SetCookie(w, c)
	}
	http.Redirect(w, r, p.Location, p.Status)
}
