// Package view renders the HTML pages with templ components.
//
// Components are built with templ.ComponentFunc and write escaped markup
// directly, so the package needs no code generation step. Every dynamic
// string goes through templ.EscapeString and every href through templ.URL,
// which replaces unsafe schemes such as javascript: with a harmless URL.
//
// Rendering is pure: the same inputs always produce the same bytes, and
// nothing here reads the clock, the request or the database.
//
// TODO: port these components to .templ sources and commit the generated
// _templ.go files once templ generate runs as part of the build.
package view

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/a-h/templ"
)

// ErrMalformedURL is returned when an item's URL cannot be parsed as an
// absolute URL with a host. The handler treats it as a server error: items
// are validated on submission, so a bad one means corrupt data.
var ErrMalformedURL = errors.New("view: malformed item URL")

// urlHost returns the host of an absolute URL, e.g. "deno.com" for
// "https://deno.com/blog". A port, if present, is kept.
func urlHost(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrMalformedURL, raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not absolute", ErrMalformedURL, raw)
	}
	return u.Host, nil
}

// writer collects the first write error so components can emit markup
// without checking every call.
type writer struct {
	w   io.Writer
	err error
}

func (w *writer) raw(s string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, s)
}

func (w *writer) text(s string) {
	w.raw(templ.EscapeString(s))
}

func (w *writer) href(s string) {
	w.raw(templ.EscapeString(string(templ.URL(s))))
}

func (w *writer) component(ctx context.Context, c templ.Component) {
	if w.err != nil {
		return
	}
	w.err = c.Render(ctx, w.w)
}
