// Package aggregator loads feeds into the store and keeps them up to date.
package aggregator

import (
	"context"
	"time"

	"rssagg/feeds"
	"rssagg/parser"
	"rssagg/store"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultLoadTimeout  = 10 * time.Second
	DefaultPollDelay    = 5 * time.Second
	DefaultPollInterval = 5 * time.Second
)

// Fetcher downloads the raw document of a feed.
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) (string, error)
}

// ParseFunc turns a raw document into a channel.
type ParseFunc func(raw string) (*parser.Document, error)

// Config holds the engine timings.
type Config struct {
	// LoadTimeout bounds an initial load. Poll fetches are not bounded.
	LoadTimeout time.Duration
	// PollDelay is the wait between Run starting and the first cycle. Zero
	// polls right away, a negative value selects DefaultPollDelay.
	PollDelay time.Duration
	// PollInterval is the wait between one cycle settling and the next.
	PollInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = DefaultLoadTimeout
	}
	if c.PollDelay < 0 {
		c.PollDelay = DefaultPollDelay
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}

type Aggregator struct {
	store    *store.Store
	fetcher  Fetcher
	parse    ParseFunc
	ids      feeds.Minter
	config   Config
	schedule backoff.BackOff
}

type Option func(*Aggregator)

// WithParser replaces parser.Parse.
func WithParser(parse ParseFunc) Option {
	return func(a *Aggregator) {
		a.parse = parse
	}
}

// WithMinter replaces the default counter ids.
func WithMinter(ids feeds.Minter) Option {
	return func(a *Aggregator) {
		a.ids = ids
	}
}

// WithSchedule replaces the constant wait between poll cycles.
func WithSchedule(schedule backoff.BackOff) Option {
	return func(a *Aggregator) {
		a.schedule = schedule
	}
}

func New(s *store.Store, fetcher Fetcher, config Config, opts ...Option) *Aggregator {
	config = config.withDefaults()

	a := &Aggregator{
		store:    s,
		fetcher:  fetcher,
		parse:    parser.Parse,
		ids:      feeds.NewCounter(),
		config:   config,
		schedule: backoff.NewConstantBackOff(config.PollInterval),
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Store returns the store the aggregator writes to.
func (a *Aggregator) Store() *store.Store {
	return a.store
}

func (a *Aggregator) download(ctx context.Context, feedURL string) (*parser.Document, error) {
	raw, err := a.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	return a.parse(raw)
}
