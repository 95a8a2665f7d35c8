package view

import (
	"context"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/sakif/linkshare/internal/model"
	"github.com/sakif/linkshare/internal/service"
)

// pageScript wires the vote buttons and the submit form to the JSON API.
const pageScript = `<script>
document.addEventListener("click", async (e) => {
  const b = e.target.closest("button[data-vote-url]");
  if (!b) return;
  const method = b.dataset.voted === "true" ? "DELETE" : "POST";
  const res = await fetch(b.dataset.voteUrl, { method, credentials: "same-origin" });
  if (res.status === 401) { location.href = "/signin?success_url=" + encodeURIComponent(location.pathname); return; }
  if (res.ok) location.reload();
});
document.addEventListener("submit", async (e) => {
  const f = e.target.closest("form[data-submit-item]");
  if (!f) return;
  e.preventDefault();
  const body = JSON.stringify({ title: f.elements.namedItem("title").value, url: f.elements.namedItem("url").value });
  const res = await fetch("/api/items", { method: "POST", headers: { "Content-Type": "application/json" }, body });
  if (res.ok) { location.href = "/"; return; }
  const err = await res.json().catch(() => ({}));
  f.querySelector(".error").textContent = err.message || "Submission failed";
});
</script>`

// Layout wraps body in the site chrome. viewer is nil for anonymous
// visitors; signInReturn is where a sign-in from this page comes back to.
func Layout(title string, viewer *model.User, signInReturn string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		w.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		w.raw(`<title>`)
		w.text(title)
		w.raw(`</title></head><body><header class="flex justify-between p-4"><a href="/">linkshare</a><nav>`)
		if viewer != nil {
			w.text(viewer.Login)
			w.raw(` · <a href="/signout">Sign out</a>`)
		} else {
			w.raw(`<a href="`)
			w.href("/signin?success_url=" + url.QueryEscape(signInReturn))
			w.raw(`">Sign in</a>`)
		}
		w.raw(`</nav></header><main class="p-4">`)
		w.component(ctx, body)
		w.raw(`</main>`)
		w.raw(pageScript)
		w.raw(`</body></html>`)
		return w.err
	})
}

// ItemsPage renders the front page. Every entry is summarised before
// anything is written, so one malformed item fails the page cleanly with
// ErrMalformedURL. nextOffset is the offset of the next page, or 0 when
// there is none.
func ItemsPage(viewer *model.User, entries []service.ItemEntry, nextOffset int) (templ.Component, error) {
	rows := make([]templ.Component, 0, len(entries))
	for _, e := range entries {
		c, err := ItemSummary(e.Item, e.Author, e.Voted)
		if err != nil {
			return nil, err
		}
		rows = append(rows, c)
	}

	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		if viewer != nil {
			w.raw(`<form data-submit-item class="mb-4">`)
			w.raw(`<input name="title" placeholder="Title" required maxlength="200">`)
			w.raw(`<input name="url" type="url" placeholder="https://" required>`)
			w.raw(`<button type="submit">Submit</button><p class="error"></p></form>`)
		}
		if len(rows) == 0 {
			w.raw(`<p>No items yet.</p>`)
		}
		for _, r := range rows {
			w.component(ctx, r)
		}
		if nextOffset > 0 {
			w.raw(`<a class="more" href="`)
			w.href("/?offset=" + strconv.Itoa(nextOffset))
			w.raw(`">More</a>`)
		}
		return w.err
	})

	return Layout("linkshare", viewer, "/", body), nil
}

// ItemPage renders a single item.
func ItemPage(viewer *model.User, entry service.ItemEntry) (templ.Component, error) {
	summary, err := ItemSummary(entry.Item, entry.Author, entry.Voted)
	if err != nil {
		return nil, err
	}
	return Layout(entry.Item.Title+" · linkshare", viewer, "/item/"+entry.Item.ID, summary), nil
}
