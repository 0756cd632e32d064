package aggregator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loadAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rssagg_load_attempts_total",
		Help: "Initial feed loads, by result",
	}, []string{"result"})

	pollCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rssagg_poll_cycles_total",
		Help: "Completed poll cycles",
	})

	pollFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rssagg_poll_failures_total",
		Help: "Swallowed per feed poll failures, by error kind",
	}, []string{"kind"})

	postsAdded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rssagg_posts_added_total",
		Help: "Posts committed to the store, by source",
	}, []string{"source"})

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rssagg_poll_cycle_duration_seconds",
		Help:    "Time from the start of a poll cycle until every feed settled",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms up to ~100s
	})
)
