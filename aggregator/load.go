package aggregator

import (
	"context"

	"rssagg/models"
	"rssagg/parser"
	"rssagg/store"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// LoadRss adds the feed at feedURL together with all of its current items.
// The outcome is written to loadingProcess; a failure leaves feeds and posts
// untouched and is not retried. Either way the form goes back to filling. The returned error is the one classified into
// loadingProcess.error.
func (a *Aggregator) LoadRss(ctx context.Context, feedURL string) error {
	a.store.Mutate(func(tx *store.Tx) {
		tx.SetLoadingStatus(models.StatusLoading)
	})

	ctx, cancel := context.WithTimeout(ctx, a.config.LoadTimeout)
	defer cancel()

	doc, err := a.download(ctx, feedURL)
	if err != nil {
		kind := Classify(err)
		loadAttempts.WithLabelValues(string(kind)).Inc()

		log.WithFields(log.Fields{
			"url":   feedURL,
			"kind":  kind,
			"error": err,
		}).Warn("Failed to load feed")

		a.store.Mutate(func(tx *store.Tx) {
			tx.SetLoadingError(&kind)
			tx.SetLoadingStatus(models.StatusFailed)
			tx.UpdateForm(func(form *models.Form) {
				form.Status = models.FormFilling
			})
		})
		return err
	}

	feed := models.Feed{
		ID:          a.ids.NewID(),
		URL:         feedURL,
		Title:       doc.Title,
		Description: doc.Description,
	}
	posts := lo.Map(doc.Items, func(item parser.Item, _ int) models.Post {
		return a.newPost(feed.ID, item)
	})

	a.store.Mutate(func(tx *store.Tx) {
		tx.PrependPosts(posts...)
		tx.PrependFeeds(feed)
		tx.SetLoadingError(nil)
		tx.SetLoadingStatus(models.StatusIdle)
		tx.UpdateForm(func(form *models.Form) {
			form.Status = models.FormFilling
			form.Error = ""
		})
	})

	loadAttempts.WithLabelValues("ok").Inc()
	postsAdded.WithLabelValues("load").Add(float64(len(posts)))

	log.WithFields(log.Fields{
		"url":   feedURL,
		"feed":  feed.ID,
		"title": feed.Title,
		"posts": len(posts),
	}).Info("Loaded feed")

	return nil
}

func (a *Aggregator) newPost(channelID string, item parser.Item) models.Post {
	return models.Post{
		ID:          a.ids.NewID(),
		ChannelID:   channelID,
		Title:       item.Title,
		Link:        item.Link,
		Description: item.Description,
	}
}
