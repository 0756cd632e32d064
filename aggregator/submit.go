package aggregator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"rssagg/models"
	"rssagg/store"

	"github.com/samber/lo"
)

var ErrUnknownPost = errors.New("unknown post")

// ValidationError rejects a submitted URL. Key is one of the models.FormErr*
// constants.
type ValidationError struct {
	URL string
	Key string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid feed url %q: %s", e.URL, e.Key)
}

// NormalizeURL trims surrounding whitespace and a single trailing slash.
func NormalizeURL(raw string) string {
	return strings.TrimSuffix(strings.TrimSpace(raw), "/")
}

// Validate checks a normalized URL against the feeds already tracked and
// returns the form error key, or "" when the URL is acceptable.
func Validate(feedURL string, known []models.Feed) string {
	if feedURL == "" {
		return models.FormErrRequired
	}

	u, err := url.ParseRequestURI(feedURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return models.FormErrNotURL
	}

	if lo.ContainsBy(known, func(feed models.Feed) bool { return feed.URL == feedURL }) {
		return models.FormErrExists
	}

	return ""
}

// Submit handles a URL entered by the user: it is normalized, validated into
// the form and, when valid, loaded.
func (a *Aggregator) Submit(ctx context.Context, raw string) error {
	feedURL := NormalizeURL(raw)

	var key string
	a.store.Mutate(func(tx *store.Tx) {
		key = Validate(feedURL, tx.State().Feeds)
		tx.UpdateForm(func(form *models.Form) {
			form.Valid = key == ""
			form.Error = key
			if key == "" {
				form.Status = models.FormSubmitted
			}
		})
	})

	if key != "" {
		return &ValidationError{URL: feedURL, Key: key}
	}

	return a.LoadRss(ctx, feedURL)
}

// OpenPost selects a post for preview and marks it as seen.
func (a *Aggregator) OpenPost(id string) error {
	var found bool
	a.store.Mutate(func(tx *store.Tx) {
		_, found = lo.Find(tx.State().Posts, func(post models.Post) bool {
			return post.ID == id
		})
		if !found {
			return
		}
		tx.SetModalPost(id)
		tx.MarkSeen(id)
	})

	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownPost, id)
	}
	return nil
}
