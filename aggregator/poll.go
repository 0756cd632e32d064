package aggregator

import (
	"context"
	"sync"
	"time"

	"rssagg/feeds"
	"rssagg/models"
	"rssagg/parser"
	"rssagg/store"

	"github.com/cenkalti/backoff/v4"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// CycleReport summarizes one poll cycle.
type CycleReport struct {
	Feeds  int
	Failed int
	Added  int
}

// FetchNewPosts polls every known feed concurrently and prepends the posts
// that are new to their feed. A failing feed is logged and skipped. It
// returns once every feed has settled.
func (a *Aggregator) FetchNewPosts(ctx context.Context) CycleReport {
	start := time.Now()

	var known []models.Feed
	a.store.Read(func(state *models.State) {
		known = append(known, state.Feeds...)
	})

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		report = CycleReport{Feeds: len(known)}
	)

	for _, feed := range known {
		wg.Add(1)
		go func(feed models.Feed) {
			defer wg.Done()

			added, err := a.pollFeed(ctx, feed)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				return
			}
			report.Added += added
		}(feed)
	}
	wg.Wait()

	pollCycles.Inc()
	cycleDuration.Observe(time.Since(start).Seconds())

	log.WithFields(log.Fields{
		"feeds":  report.Feeds,
		"failed": report.Failed,
		"added":  report.Added,
	}).Debug("Poll cycle settled")

	return report
}

func (a *Aggregator) pollFeed(ctx context.Context, feed models.Feed) (int, error) {
	doc, err := a.download(ctx, feed.URL)
	if err != nil {
		kind := Classify(err)
		pollFailures.WithLabelValues(string(kind)).Inc()

		log.WithFields(log.Fields{
			"feed":  feed.ID,
			"url":   feed.URL,
			"kind":  kind,
			"error": err,
		}).Error("Failed to poll feed")
		return 0, err
	}

	candidates := lo.Map(doc.Items, func(item parser.Item, _ int) models.Post {
		return models.Post{
			ChannelID:   feed.ID,
			Title:       item.Title,
			Link:        item.Link,
			Description: item.Description,
		}
	})

	var fresh []models.Post
	a.store.Mutate(func(tx *store.Tx) {
		existing := feeds.ForChannel(tx.State().Posts, feed.ID)
		fresh = feeds.Dedupe(candidates, existing)
		for i := range fresh {
			fresh[i].ID = a.ids.NewID()
		}
		tx.PrependPosts(fresh...)
	})

	if len(fresh) > 0 {
		postsAdded.WithLabelValues("poll").Add(float64(len(fresh)))
		log.WithFields(log.Fields{
			"feed":  feed.ID,
			"url":   feed.URL,
			"added": len(fresh),
		}).Info("New posts")
	}

	return len(fresh), nil
}

// Run polls after PollDelay and then keeps polling, waiting for the schedule
// between cycles, until ctx is cancelled. Cycles never overlap.
func (a *Aggregator) Run(ctx context.Context) error {
	log.WithFields(log.Fields{
		"delay":    a.config.PollDelay,
		"interval": a.config.PollInterval,
	}).Info("Starting poll loop")

	wait := a.config.PollDelay
	for {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info("Poll loop stopped")
			return ctx.Err()
		case <-timer.C:
		}

		a.FetchNewPosts(ctx)

		wait = a.schedule.NextBackOff()
		if wait == backoff.Stop {
			log.Info("Poll schedule exhausted")
			return nil
		}
	}
}
