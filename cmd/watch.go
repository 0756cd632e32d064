package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"rssagg/models"
	"rssagg/store"

	"github.com/cqroot/prompt"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// watchCmd represents the watch command
func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Print new posts to the command line",
		ArgsUsage: "[feed url...]",
		Description: `Loads the given feeds, or the ones in the configuration file, and
prints every post as a JSON object on a single line. The feeds keep being
polled and new posts are printed as they appear.

Asks for a feed URL when none is given.

Use a tool like jq to process the output. Prints all other log messages
to stderr.`,
		Action: func(ctx *cli.Context) error {
			cfg := loadedConfig(ctx)

			// Keep stdout for posts
			log.SetOutput(os.Stderr)

			urls := ctx.Args().Slice()
			if len(urls) == 0 {
				urls = cfg.Feeds
			}
			if len(urls) == 0 {
				feedURL, err := prompt.New().Ask("Feed URL:").Input("https://example.com/rss")
				if err != nil {
					return err
				}
				urls = []string{feedURL}
			}

			agg, err := newAggregator(cfg)
			if err != nil {
				return err
			}

			agg.Store().On(store.PathPosts, newPostPrinter(os.Stdout))

			runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			loadFeeds(runCtx, agg, urls)
			if len(agg.Store().Snapshot().Feeds) == 0 {
				return errors.New("none of the feeds could be loaded")
			}

			if err := agg.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintln(os.Stderr, "Stopping watch")
			return nil
		},
	}
}

// newPostPrinter returns a reaction writing every post it has not written
// before, oldest first
func newPostPrinter(w io.Writer) store.Reaction {
	printed := map[string]struct{}{}
	return func(_ store.Path, state *models.State) {
		for i := len(state.Posts) - 1; i >= 0; i-- {
			post := state.Posts[i]
			if _, ok := printed[post.ID]; ok {
				continue
			}
			printed[post.ID] = struct{}{}
			printPost(w, &post)
		}
	}
}

func printPost(w io.Writer, post *models.Post) {
	postJson, err := json.Marshal(post)
	if err == nil {
		fmt.Fprintln(w, string(postJson))
	}
}
