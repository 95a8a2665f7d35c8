package view

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/sakif/linkshare/internal/model"
)

// PostedAtLayout formats the "posted at" timestamp. It is an absolute UTC
// time so a page renders the same no matter when it is rendered.
const PostedAtLayout = "2006-01-02 15:04 UTC"

// ItemSummary renders one row of the item list: the vote widget, the title
// linking to the item page, the external link labelled with the URL's host
// and the "posted by" line.
//
// user is the item's author. An item URL that is not absolute fails with
// ErrMalformedURL before anything is rendered.
func ItemSummary(item model.Item, user model.User, isVoted bool) (templ.Component, error) {
	host, err := urlHost(item.URL)
	if err != nil {
		return nil, err
	}

	vote := VoteButton(item, isVoted)
	posted := UserPostedAt(user.Login, item.CreatedAt)

	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<div class="py-2 flex gap-4">`)
		w.component(ctx, vote)
		w.raw(`<div class="space-y-1"><p>`)
		w.raw(`<a class="hover:underline mr-4" href="`)
		w.href("/item/" + url.PathEscape(item.ID))
		w.raw(`">`)
		w.text(item.Title)
		w.raw(`</a>`)
		w.raw(`<a class="hover:underline text-gray-500" href="`)
		w.href(item.URL)
		w.raw(`" target="_blank" rel="noopener noreferrer">`)
		w.text(host)
		w.raw(` ↗</a>`)
		w.raw(`</p>`)
		w.component(ctx, posted)
		w.raw(`</div></div>`)
		return w.err
	}), nil
}

// VoteButton renders the vote control for an item: the current score and a
// button that votes, or removes the vote when isVoted is set. The page
// script sends POST or DELETE to data-vote-url depending on data-voted.
func VoteButton(item model.Item, isVoted bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		class := "vote-button"
		label := "▲"
		if isVoted {
			class += " voted"
			label = "▼"
		}

		w.raw(`<div class="flex flex-col items-center">`)
		w.raw(`<button type="button" class="`)
		w.text(class)
		w.raw(`" data-vote-url="`)
		w.href("/api/vote?item_id=" + url.QueryEscape(item.ID))
		w.raw(`" data-voted="`)
		w.text(strconv.FormatBool(isVoted))
		w.raw(`">`)
		w.text(label)
		w.raw(`</button><span class="score">`)
		w.text(strconv.Itoa(item.Score))
		w.raw(`</span></div>`)
		return w.err
	})
}

// UserPostedAt renders "{login} {time}" as the item's byline.
func UserPostedAt(login string, createdAt time.Time) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		utc := createdAt.UTC()
		w.raw(`<p class="text-gray-500">posted by `)
		w.text(login)
		w.raw(` at <time datetime="`)
		w.text(utc.Format(time.RFC3339))
		w.raw(`">`)
		w.text(utc.Format(PostedAtLayout))
		w.raw(`</time></p>`)
		return w.err
	})
}
