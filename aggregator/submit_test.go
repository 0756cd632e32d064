package aggregator_test

import (
	"context"
	"errors"
	"testing"

	"rssagg/aggregator"
	"rssagg/models"
	"rssagg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{raw: "https://example.com/rss", expected: "https://example.com/rss"},
		{raw: "https://example.com/rss/", expected: "https://example.com/rss"},
		{raw: "https://example.com/rss//", expected: "https://example.com/rss/"},
		{raw: "  https://example.com/rss/  ", expected: "https://example.com/rss"},
		{raw: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, aggregator.NormalizeURL(tt.raw))
		})
	}
}

func TestValidate(t *testing.T) {
	known := []models.Feed{{ID: "1", URL: "https://example.com/rss"}}

	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{name: "empty", url: "", expected: models.FormErrRequired},
		{name: "not a url", url: "not a url", expected: models.FormErrNotURL},
		{name: "no scheme", url: "example.com/rss", expected: models.FormErrNotURL},
		{name: "ftp", url: "ftp://example.com/rss", expected: models.FormErrNotURL},
		{name: "already tracked", url: "https://example.com/rss", expected: models.FormErrExists},
		{name: "valid", url: "https://other.example.com/feed.xml", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, aggregator.Validate(tt.url, known))
		})
	}
}

func TestSubmit(t *testing.T) {
	s := store.New(models.NewState())
	var forms []models.Form
	s.On(store.PathForm, func(_ store.Path, state *models.State) {
		forms = append(forms, state.Form)
	})

	fetcher := newFakeFetcher()
	fetcher.serve("https://example.com/rss", rss("Example", "I1"))
	a := aggregator.New(s, fetcher, aggregator.Config{})

	require.NoError(t, a.Submit(context.Background(), "https://example.com/rss/"))

	state := s.Snapshot()
	require.Len(t, state.Feeds, 1)
	assert.Equal(t, "https://example.com/rss", state.Feeds[0].URL)
	assert.Equal(t, []models.Form{
		{Status: models.FormSubmitted, Valid: true},
		{Status: models.FormFilling, Valid: true},
	}, forms)

	err := a.Submit(context.Background(), "https://example.com/rss")
	var validationErr *aggregator.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, models.FormErrExists, validationErr.Key)

	state = s.Snapshot()
	assert.False(t, state.Form.Valid)
	assert.Equal(t, models.FormErrExists, state.Form.Error)
	assert.Len(t, state.Feeds, 1)
	assert.Equal(t, 1, fetcher.callCount("https://example.com/rss"))
}

func TestSubmitLoadFailureResetsForm(t *testing.T) {
	s := store.New(models.NewState())
	var forms []models.Form
	s.On(store.PathForm, func(_ store.Path, state *models.State) {
		forms = append(forms, state.Form)
	})

	fetcher := newFakeFetcher()
	fetcher.serve("https://example.com/rss", "Hello world")
	a := aggregator.New(s, fetcher, aggregator.Config{})

	require.Error(t, a.Submit(context.Background(), "https://example.com/rss"))

	assert.Equal(t, []models.Form{
		{Status: models.FormSubmitted, Valid: true},
		{Status: models.FormFilling, Valid: true},
	}, forms)

	state := s.Snapshot()
	assert.Equal(t, models.StatusFailed, state.LoadingProcess.Status)
	assert.Empty(t, state.Feeds)
}

func TestSubmitInvalidDoesNotLoad(t *testing.T) {
	s := store.New(models.NewState())
	var statuses int
	s.On(store.PathLoadingStatus, func(store.Path, *models.State) { statuses++ })

	a := aggregator.New(s, newFakeFetcher(), aggregator.Config{})
	err := a.Submit(context.Background(), "definitely not a url")

	var validationErr *aggregator.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, models.FormErrNotURL, validationErr.Key)
	assert.Zero(t, statuses)
}

func TestOpenPost(t *testing.T) {
	initial := models.NewState()
	initial.Feeds = []models.Feed{{ID: "f"}}
	initial.Posts = []models.Post{{ID: "p1", ChannelID: "f", Title: "One"}, {ID: "p2", ChannelID: "f", Title: "Two"}}

	s := store.New(initial)
	var paths []store.Path
	s.Watch(func(path store.Path, _ *models.State) {
		paths = append(paths, path)
	})

	a := aggregator.New(s, newFakeFetcher(), aggregator.Config{})

	require.NoError(t, a.OpenPost("p2"))
	assert.Equal(t, []store.Path{store.PathModalPost, store.PathSeenPosts}, paths)

	state := s.Snapshot()
	assert.Equal(t, "p2", state.Modal.PostID)
	assert.True(t, state.UI.Seen("p2"))
	assert.False(t, state.UI.Seen("p1"))

	paths = nil
	require.NoError(t, a.OpenPost("p2"))
	assert.Empty(t, paths)

	err := a.OpenPost("missing")
	assert.ErrorIs(t, err, aggregator.ErrUnknownPost)
	assert.Empty(t, paths)
}
