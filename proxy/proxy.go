// Package proxy downloads feed documents through an allorigins style proxy.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"rssagg/parser"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var (
	requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rssagg_proxy_requests_total",
		Help: "Feed download attempts, by outcome",
	}, []string{"outcome"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rssagg_proxy_request_duration_seconds",
		Help:    "Duration of feed downloads",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms up to ~40s
	})
)

const (
	DefaultBase      = "https://allorigins.hexlet.app"
	DefaultUserAgent = "rssagg/1.0"
)

// ErrNetwork is matched by every *NetworkError via errors.Is.
var ErrNetwork = errors.New("network failure")

// NetworkError covers transport failures, timeouts and non 2xx responses.
type NetworkError struct {
	URL    string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetching %s: unexpected status code: %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// Config holds the proxy settings.
type Config struct {
	// Base is the proxy origin, e.g. "https://allorigins.hexlet.app". When
	// empty, feeds are downloaded directly.
	Base      string
	UserAgent string
}

// envelope is the proxy response body.
type envelope struct {
	Contents *string `json:"contents"`
}

type Client struct {
	client *http.Client
	config Config
}

// NewClient builds a client without an overall timeout; callers bound
// requests through their context.
func NewClient(config Config) *Client {
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	return &Client{
		client: &http.Client{},
		config: config,
	}
}

// URL returns the address that is requested for feedURL.
func (c *Client) URL(feedURL string) (string, error) {
	if c.config.Base == "" {
		return feedURL, nil
	}

	u, err := url.Parse(fmt.Sprintf("%s/get", strings.TrimSuffix(c.config.Base, "/")))
	if err != nil {
		return "", fmt.Errorf("failed to parse proxy URL: %w", err)
	}

	q := u.Query()
	q.Set("url", feedURL)
	q.Set("disableCache", "true")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Fetch downloads the raw feed document for feedURL.
func (c *Client) Fetch(ctx context.Context, feedURL string) (string, error) {
	timer := prometheus.NewTimer(requestDuration)
	defer timer.ObserveDuration()

	target, err := c.URL(feedURL)
	if err != nil {
		requests.WithLabelValues("error").Inc()
		return "", err
	}

	body, err := c.get(ctx, target)
	if err != nil {
		requests.WithLabelValues("network_error").Inc()
		return "", err
	}

	if c.config.Base == "" {
		requests.WithLabelValues("ok").Inc()
		return body, nil
	}

	var env envelope
	if err := json.Unmarshal([]byte(body), &env); err != nil || env.Contents == nil {
		if err == nil {
			err = errors.New("proxy response has no contents")
		}
		requests.WithLabelValues("bad_envelope").Inc()
		return "", &parser.ParsingError{Raw: body, Err: err}
	}

	requests.WithLabelValues("ok").Inc()
	return *env.Contents, nil
}

func (c *Client) get(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	log.WithFields(log.Fields{
		"url": target,
	}).Debug("Downloading feed")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &NetworkError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return "", &NetworkError{URL: target, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &NetworkError{URL: target, Err: err}
	}

	return string(body), nil
}
