package feeds

import (
	"rssagg/models"

	"github.com/samber/lo"
)

// SameTitle is the identity rule used for deduplication.
func SameTitle(a, b models.Post) bool {
	return a.Title == b.Title
}

// Dedupe returns the candidates whose title matches no existing post, keeping
// the candidates' relative order. Callers scope existing to a single channel
// first, see ForChannel.
func Dedupe(candidates, existing []models.Post) []models.Post {
	return lo.Filter(candidates, func(candidate models.Post, _ int) bool {
		return !lo.ContainsBy(existing, func(post models.Post) bool {
			return SameTitle(candidate, post)
		})
	})
}

// ForChannel returns the posts that belong to the given feed.
func ForChannel(posts []models.Post, channelID string) []models.Post {
	return lo.Filter(posts, func(post models.Post, _ int) bool {
		return post.ChannelID == channelID
	})
}
