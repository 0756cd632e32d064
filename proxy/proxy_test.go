package proxy_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"rssagg/parser"
	"rssagg/proxy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL(t *testing.T) {
	c := proxy.NewClient(proxy.Config{Base: "https://allorigins.hexlet.app/"})

	got, err := c.URL("https://example.com/feed?a=1")
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "allorigins.hexlet.app", u.Host)
	assert.Equal(t, "/get", u.Path)
	assert.Equal(t, "https://example.com/feed?a=1", u.Query().Get("url"))
	assert.Equal(t, "true", u.Query().Get("disableCache"))
}

func TestURLDirect(t *testing.T) {
	c := proxy.NewClient(proxy.Config{})

	got, err := c.URL("https://example.com/rss")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/rss", got)
}

func TestFetch(t *testing.T) {
	var userAgent string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		switch r.URL.Query().Get("url") {
		case "https://example.com/ok":
			json.NewEncoder(w).Encode(map[string]string{"contents": "<rss/>"})
		case "https://example.com/missing":
			w.WriteHeader(http.StatusNotFound)
		case "https://example.com/garbage":
			w.Write([]byte("<html>bad gateway page</html>"))
		case "https://example.com/no-contents":
			w.Write([]byte(`{"status": {"http_code": 500}}`))
		}
	}))
	defer ts.Close()

	c := proxy.NewClient(proxy.Config{Base: ts.URL, UserAgent: "test-agent"})

	t.Run("contents", func(t *testing.T) {
		body, err := c.Fetch(context.Background(), "https://example.com/ok")
		require.NoError(t, err)
		assert.Equal(t, "<rss/>", body)
		assert.Equal(t, "test-agent", userAgent)
	})

	t.Run("status error", func(t *testing.T) {
		_, err := c.Fetch(context.Background(), "https://example.com/missing")
		require.Error(t, err)
		assert.True(t, errors.Is(err, proxy.ErrNetwork))

		var netErr *proxy.NetworkError
		require.True(t, errors.As(err, &netErr))
		assert.Equal(t, http.StatusNotFound, netErr.Status)
	})

	t.Run("undecodable envelope", func(t *testing.T) {
		_, err := c.Fetch(context.Background(), "https://example.com/garbage")
		require.Error(t, err)
		assert.True(t, errors.Is(err, parser.ErrParsing))

		var parsingErr *parser.ParsingError
		require.True(t, errors.As(err, &parsingErr))
		assert.Equal(t, "<html>bad gateway page</html>", parsingErr.Raw)
	})

	t.Run("envelope without contents", func(t *testing.T) {
		_, err := c.Fetch(context.Background(), "https://example.com/no-contents")
		assert.True(t, errors.Is(err, parser.ErrParsing))
	})
}

func TestFetchDirect(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<rss>direct</rss>"))
	}))
	defer ts.Close()

	body, err := proxy.NewClient(proxy.Config{}).Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "<rss>direct</rss>", body)
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := proxy.NewClient(proxy.Config{Base: ts.URL}).Fetch(ctx, "https://example.com/slow")
	require.Error(t, err)
	assert.True(t, errors.Is(err, proxy.ErrNetwork))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestFetchConnectionRefused(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	base := ts.URL
	ts.Close()

	_, err := proxy.NewClient(proxy.Config{Base: base}).Fetch(context.Background(), "https://example.com/feed")
	assert.True(t, errors.Is(err, proxy.ErrNetwork))
}
